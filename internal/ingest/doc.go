// Package ingest fetches repositories and extracts the source files worth
// indexing.
//
// A repository can be ingested from a GitHub HTTPS URL, in which case it is
// shallow-cloned into a temporary directory, or from a local path. Extracted
// files are filtered by extension, size, ignore patterns and binary
// detection before being handed to the chunker.
//
// # Basic Usage
//
//	svc := ingest.New()
//	files, err := svc.IngestRepository(ctx, "https://github.com/owner/repo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, f := range files {
//	    fmt.Printf("%s (%s, %d bytes)\n", f.FilePath, f.Language, f.SizeBytes)
//	}
//
// File paths in the result are relative to the repository root.
package ingest
