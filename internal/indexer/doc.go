// Package indexer coordinates the repository indexing pipeline.
//
// A run flows ingest -> chunk -> embed -> store: source files are collected
// by the ingest service, split into semantic chunks, embedded in batches,
// and persisted with their vectors.
//
// # Basic Usage
//
//	idx := indexer.New(store, emb)
//	stats, err := idx.IndexRepository(ctx, "https://github.com/owner/repo", nil)
//
// # Concurrency
//
// Files are processed by a worker pool and committed in transactional
// batches, so a crash mid-run leaves whole batches either indexed or not.
// Only one indexing run is active at a time; concurrent calls fail fast
// with ErrIndexingInProgress.
//
// # Incremental Indexing
//
// Each file's content hash is compared against the stored record. Unchanged
// files are skipped; changed files have their old chunks (and, by cascade,
// embeddings) deleted before re-indexing. Config.Force reindexes everything.
//
// # Failure Isolation
//
// A file that fails to chunk, embed, or store is recorded in
// Statistics.ErrorMessages and skipped; the rest of the run continues.
package indexer
