// Package mcp exposes the indexing and question-answering pipeline as an
// MCP (Model Context Protocol) server over stdio.
//
// # Tools
//
// The server registers three tools:
//
//   - ingest_repository: clone a GitHub repository or read a local
//     directory, chunk its source files, embed the chunks, and store them
//     in the index. Incremental by content hash unless force is set.
//   - ask_codebase: answer a natural-language question about indexed code,
//     grounded in retrieved chunks with file/line citations. The question
//     "Where do I start?" triggers a curated codebase overview.
//   - get_status: report indexing statistics and index health, for one
//     repository or all of them.
//
// # Usage
//
//	srv, err := mcp.NewServer(mcp.DefaultDBPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Serve speaks JSON-RPC over stdin/stdout, so all logging must go to
// stderr.
//
// # Error Codes
//
// Tool failures use JSON-RPC error codes: standard -32602 (invalid params)
// and -32603 (internal), plus domain codes -32001 (repository not indexed),
// -32002 (indexing in progress), -32003 (nothing indexed yet), and -32004
// (empty question).
package mcp
