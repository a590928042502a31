// Package types provides shared type definitions for the RepoContext MCP server.
//
// This package defines domain types used across multiple components of
// RepoContext, including source files, chunks, search results, and source
// citations.
//
// # Core Types
//
// SourceFile represents a code file pulled from an ingested repository. It is
// immutable input to the chunking engine:
//
//	file := &types.SourceFile{
//	    FilePath:  "internal/server/server.go",
//	    Content:   content,
//	    Language:  "go",
//	    SizeBytes: int64(len(content)),
//	}
//
// Chunk represents a bounded, line-addressed code segment produced by the
// chunking engine and consumed by the embedding and search layers:
//
//	chunk := &types.Chunk{
//	    FilePath:  "internal/server/server.go",
//	    Content:   segment,
//	    StartLine: 42,
//	    EndLine:   63,
//	    ChunkType: "function",
//	}
//
// Chunk line numbers are 1-indexed and inclusive. Every chunk satisfies
// EndLine >= StartLine; Validate enforces this along with the other field
// invariants.
//
// # Search Results and Citations
//
// SearchResult pairs a stored chunk with its similarity score.
// SourceReference is the citation form of a result: file path, line range,
// and a bounded content preview, used to ground generated answers.
package types
