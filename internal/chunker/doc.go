// Package chunker divides source code into bounded, line-addressed chunks for
// embedding and search.
//
// The chunker works on plain text with per-language regular expression
// patterns, so it supports many languages without needing a parser per
// language. Chunks are created at construct boundaries (functions, classes,
// methods, structs) to preserve semantic meaning.
//
// # Basic Usage
//
//	c := chunker.New()
//	chunks := c.Chunk(&types.SourceFile{
//	    FilePath: "app/service.py",
//	    Content:  source,
//	    Language: "python",
//	})
//
//	for _, chunk := range chunks {
//	    fmt.Printf("%s lines %d-%d (%d chars)\n",
//	        chunk.ChunkType, chunk.StartLine, chunk.EndLine, len(chunk.Content))
//	}
//
// Chunk never returns an error: anything that prevents semantic chunking
// routes the file to a fixed-size sliding window instead, and an empty file
// yields an empty list.
//
// # Chunking Strategy
//
// Semantic chunking runs in stages:
//   - Boundary detection: each line is tested against the language's ordered
//     construct patterns; the first match wins.
//   - Block end resolution: brace counting for brace-delimited languages,
//     indentation tracking for Python and Ruby.
//   - Merging: overlapping boundaries are merged greedily so the final set is
//     non-overlapping and sorted.
//
// Boundaries longer than MaxChunkSize are re-split with an overlapping
// window and labeled "<kind>_part_<n>".
//
// # Fallback
//
// The semantic result is discarded and the whole file re-chunked fixed-size
// when the language has no registered patterns, detection fails, no
// boundaries survive filtering, coverage of the file content falls below
// 70%, or too many chunks are badly oversized.
//
// # Chunk Sizing
//
// Sizes are measured in characters:
//   - Minimum: 500 (preferred band lower bound)
//   - Target: 750 (sliding window size)
//   - Maximum: 1000 (re-split threshold)
//
// Consecutive windows overlap by 25% of the target size so context near
// window edges appears in both neighbors.
package chunker
