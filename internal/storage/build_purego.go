//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Compiled by default, or explicitly with:
//
//	CGO_ENABLED=0 go build -tags "purego" ./...
//
// Uses the pure-Go modernc.org/sqlite driver. No C compiler needed and
// cross-compiles anywhere, but cosine similarity is computed in Go over
// every candidate embedding, which is fine for development and smaller
// repositories.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
