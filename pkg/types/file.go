package types

import (
	"errors"
	"time"
)

// SourceFile represents a code file from an ingested repository.
// Instances are owned by the caller and never mutated by the chunking engine.
type SourceFile struct {
	FilePath     string // Relative to the repository root
	Content      string // Full UTF-8 text content
	Language     string // Lower-cased language tag derived from file extension
	SizeBytes    int64
	LastModified time.Time
}

// Validate checks if the source file record is well formed
func (f *SourceFile) Validate() error {
	if f.FilePath == "" {
		return errors.New("file path cannot be empty")
	}

	if f.SizeBytes < 0 {
		return errors.New("size must be non-negative")
	}

	if f.Language == "" {
		return errors.New("language tag cannot be empty")
	}

	return nil
}

// LineCount returns the number of lines in the file content
func (f *SourceFile) LineCount() int {
	if f.Content == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(f.Content); i++ {
		if f.Content[i] == '\n' {
			n++
		}
	}
	return n
}
