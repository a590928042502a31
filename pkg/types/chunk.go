package types

import (
	"crypto/sha256"
	"errors"
	"strings"
)

// Well-known chunk types. Semantic chunks carry the construct kind detected
// by the boundary scanner (function, class, method, struct, impl, module);
// oversized semantic chunks are re-split into "<kind>_part_<n>" parts and
// fallback windows are labeled "fixed_size".
const (
	ChunkFixedSize = "fixed_size"
	ChunkFunction  = "function"
	ChunkClass     = "class"
	ChunkMethod    = "method"
	ChunkStruct    = "struct"
)

// Metadata keys set by the chunking engine
const (
	MetaChunkingMethod  = "chunking_method"
	MetaChunkNumber     = "chunk_number"
	MetaOverlapSize     = "overlap_size"
	MetaParentChunkType = "parent_chunk_type"
	MetaPartNumber      = "part_number"
	MetaOriginalSize    = "original_file_size"
)

// Chunking method values stored under MetaChunkingMethod
const (
	MethodSemantic      = "semantic"
	MethodSemanticSplit = "semantic_split"
	MethodFixedSize     = "fixed_size"
)

// Chunk represents a bounded, line-addressed code segment for embedding and
// search. Once constructed a chunk is never mutated; ownership passes to the
// embedding and storage layers.
type Chunk struct {
	// Identification
	ID       string // UUID assigned at creation
	FilePath string // Relative to the repository root

	// Content
	Content string

	// Location (1-indexed, inclusive)
	StartLine int
	EndLine   int

	// Classification
	Language  string
	ChunkType string

	// Metadata carries chunking provenance (method, part number, overlap)
	Metadata map[string]any
}

// Validate checks the chunk's field invariants
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID is required")
	}

	if c.FilePath == "" {
		return errors.New("file path cannot be empty")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.EndLine < c.StartLine {
		return errors.New("end line must be greater than or equal to start line")
	}

	if c.ChunkType == "" {
		return errors.New("chunk type is required")
	}

	return nil
}

// ContentHash computes the SHA-256 hash of the chunk content.
// Used for incremental-indexing change detection.
func (c *Chunk) ContentHash() [32]byte {
	return sha256.Sum256([]byte(c.Content))
}

// IsPart reports whether the chunk is a split part of a larger semantic chunk
func (c *Chunk) IsPart() bool {
	return strings.Contains(c.ChunkType, "_part_")
}

// Preview returns the first maxLen characters of the content, with an
// ellipsis appended when truncated
func (c *Chunk) Preview(maxLen int) string {
	if len(c.Content) <= maxLen {
		return c.Content
	}
	return c.Content[:maxLen] + "..."
}
