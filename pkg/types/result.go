package types

// SearchResult represents a single retrieval hit with relevance information
type SearchResult struct {
	// Identification
	ChunkID string
	Rank    int // Position in result set (1-based)

	// Scoring
	RelevanceScore float64 // Cosine similarity, normalized to [0, 1]

	// Payload
	Chunk *Chunk
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.ChunkID == "" {
		return ErrInvalidChunkID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Chunk == nil || sr.Chunk.Content == "" {
		return ErrEmptyContent
	}

	return nil
}

// SourceReference points at a specific location in the codebase that grounds
// part of a generated answer
type SourceReference struct {
	FilePath       string
	StartLine      int
	EndLine        int
	ContentPreview string
}

// Validate checks if the source reference is valid
func (sr *SourceReference) Validate() error {
	if sr.EndLine < sr.StartLine {
		return ErrInvalidLineRange
	}
	return nil
}

// ToSourceReference converts a search result into a citation with a bounded
// content preview
func (sr *SearchResult) ToSourceReference(previewLen int) SourceReference {
	return SourceReference{
		FilePath:       sr.Chunk.FilePath,
		StartLine:      sr.Chunk.StartLine,
		EndLine:        sr.Chunk.EndLine,
		ContentPreview: sr.Chunk.Preview(previewLen),
	}
}
