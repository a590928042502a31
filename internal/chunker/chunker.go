package chunker

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/repoctx-mcp/pkg/types"
)

// Tuning constants for chunk sizing, in characters
const (
	// TargetChunkSize is the sliding-window size, the middle of the
	// MinChunkSize-MaxChunkSize band
	TargetChunkSize = 750

	// MinChunkSize is the lower bound of the preferred chunk size band
	MinChunkSize = 500

	// MaxChunkSize is the size above which a semantic chunk is re-split
	MaxChunkSize = 1000

	// OverlapPercentage is the fraction of TargetChunkSize repeated at the
	// start of each consecutive window
	OverlapPercentage = 0.25
)

// Fallback policy thresholds
const (
	// minContentLength is the trimmed length below which a semantic chunk
	// is treated as detection noise and dropped
	minContentLength = 20

	// minCoverageRatio is the minimum fraction of the file content that
	// semantic chunks must cover to be accepted
	minCoverageRatio = 0.7

	// oversizeFactor and oversizeShare reject a semantic result when more
	// than oversizeShare of its chunks exceed MaxChunkSize*oversizeFactor
	oversizeFactor = 1.5
	oversizeShare  = 0.3
)

// Chunker splits source files into bounded, line-addressed chunks. Semantic
// chunking follows detected construct boundaries; when boundary detection is
// unavailable or produces a poor result, the whole file is re-chunked with a
// fixed-size sliding window.
//
// A Chunker is stateless apart from its logger and safe for concurrent use.
type Chunker struct {
	logger *slog.Logger
}

// New creates a new Chunker instance
func New() *Chunker {
	return &Chunker{logger: slog.Default()}
}

// NewWithLogger creates a Chunker that logs detection failures to logger
func NewWithLogger(logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{logger: logger}
}

// detectionStatus classifies the outcome of boundary detection
type detectionStatus int

const (
	detectionOK detectionStatus = iota
	detectionUnsupported
	detectionFailed
)

// detectionOutcome is the explicit result of the boundary-detection stage.
// The fallback decision branches on this value instead of on thrown panics.
type detectionOutcome struct {
	status     detectionStatus
	boundaries []boundary
	err        error
}

// Chunk splits a source file into an ordered chunk sequence. It never fails:
// any detection-time problem routes to the fixed-size fallback, and an empty
// file yields an empty list. The result is deterministic for identical
// (content, language) input, apart from the generated chunk IDs.
func (c *Chunker) Chunk(file *types.SourceFile) []*types.Chunk {
	if file.Content == "" {
		return []*types.Chunk{}
	}

	chunks, ok := c.semanticChunks(file)
	if !ok {
		c.logger.Debug("falling back to fixed-size chunking", "file", file.FilePath)
		return c.fixedSizeChunks(file)
	}

	return chunks
}

// semanticChunks attempts boundary-driven chunking. The second return value
// is false whenever the result must be discarded in favor of the fallback.
func (c *Chunker) semanticChunks(file *types.SourceFile) (chunks []*types.Chunk, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("semantic chunking panicked", "file", file.FilePath, "panic", r)
			chunks, ok = nil, false
		}
	}()

	outcome := c.detect(file)
	switch outcome.status {
	case detectionUnsupported:
		c.logger.Debug("no construct patterns registered", "language", file.Language)
		return nil, false
	case detectionFailed:
		c.logger.Warn("boundary detection failed", "file", file.FilePath, "error", outcome.err)
		return nil, false
	}

	if len(outcome.boundaries) == 0 {
		return nil, false
	}

	lines := splitLines(file.Content)
	for _, b := range outcome.boundaries {
		content := strings.Join(lines[b.startLine-1:b.endLine], "\n")

		// Very small chunks are likely incomplete detections
		if len(strings.TrimSpace(content)) < minContentLength {
			continue
		}

		if len(content) > MaxChunkSize {
			chunks = append(chunks, c.splitOversized(file, content, b)...)
			continue
		}

		chunks = append(chunks, &types.Chunk{
			ID:        uuid.NewString(),
			FilePath:  file.FilePath,
			Content:   content,
			StartLine: b.startLine,
			EndLine:   b.endLine,
			Language:  file.Language,
			ChunkType: b.kind,
			Metadata: map[string]any{
				types.MetaChunkingMethod: types.MethodSemantic,
				types.MetaOriginalSize:   file.SizeBytes,
			},
		})
	}

	for _, ch := range chunks {
		if err := ch.Validate(); err != nil {
			c.logger.Error("invalid semantic chunk", "file", file.FilePath, "error", err)
			return nil, false
		}
	}

	if c.needsFallback(chunks, file.Content) {
		return nil, false
	}

	return chunks, true
}

// detect runs boundary detection and merging, converting any panic into an
// explicit failed outcome
func (c *Chunker) detect(file *types.SourceFile) (out detectionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = detectionOutcome{
				status: detectionFailed,
				err:    fmt.Errorf("boundary detection panic: %v", r),
			}
		}
	}()

	lang, ok := languageRegistry[strings.ToLower(file.Language)]
	if !ok {
		return detectionOutcome{status: detectionUnsupported}
	}

	lines := splitLines(file.Content)
	candidates := detectBoundaries(lines, lang)

	return detectionOutcome{
		status:     detectionOK,
		boundaries: mergeBoundaries(candidates),
	}
}

// splitOversized re-splits a semantic chunk that exceeds MaxChunkSize into
// overlapping sub-chunks labeled "<kind>_part_<n>"
func (c *Chunker) splitOversized(file *types.SourceFile, content string, b boundary) []*types.Chunk {
	windows := slideWindows(content, TargetChunkSize, overlapSize(), b.startLine)

	chunks := make([]*types.Chunk, 0, len(windows))
	for _, w := range windows {
		chunks = append(chunks, &types.Chunk{
			ID:        uuid.NewString(),
			FilePath:  file.FilePath,
			Content:   w.content,
			StartLine: w.startLine,
			EndLine:   w.endLine,
			Language:  file.Language,
			ChunkType: fmt.Sprintf("%s_part_%d", b.kind, w.number),
			Metadata: map[string]any{
				types.MetaChunkingMethod:  types.MethodSemanticSplit,
				types.MetaParentChunkType: b.kind,
				types.MetaPartNumber:      w.number,
				types.MetaOriginalSize:    file.SizeBytes,
			},
		})
	}

	return chunks
}

// fixedSizeChunks slides a fixed window over the whole file content with no
// semantic awareness
func (c *Chunker) fixedSizeChunks(file *types.SourceFile) []*types.Chunk {
	overlap := overlapSize()
	windows := slideWindows(file.Content, TargetChunkSize, overlap, 1)

	chunks := make([]*types.Chunk, 0, len(windows))
	for _, w := range windows {
		chunks = append(chunks, &types.Chunk{
			ID:        uuid.NewString(),
			FilePath:  file.FilePath,
			Content:   w.content,
			StartLine: w.startLine,
			EndLine:   w.endLine,
			Language:  file.Language,
			ChunkType: types.ChunkFixedSize,
			Metadata: map[string]any{
				types.MetaChunkingMethod: types.MethodFixedSize,
				types.MetaChunkNumber:    w.number,
				types.MetaOverlapSize:    overlap,
				types.MetaOriginalSize:   file.SizeBytes,
			},
		})
	}

	return chunks
}

// needsFallback decides whether a semantic chunk list is trustworthy enough
// to keep: it must be non-empty, cover at least minCoverageRatio of the file,
// and contain at most oversizeShare badly oversized chunks
func (c *Chunker) needsFallback(chunks []*types.Chunk, content string) bool {
	if len(chunks) == 0 {
		return true
	}

	total := 0
	oversized := 0
	for _, ch := range chunks {
		total += len(ch.Content)
		if float64(len(ch.Content)) > MaxChunkSize*oversizeFactor {
			oversized++
		}
	}

	if float64(total)/float64(len(content)) < minCoverageRatio {
		return true
	}

	return float64(oversized) > float64(len(chunks))*oversizeShare
}

// overlapSize returns the window overlap in characters, truncated the same
// way int(750*0.25) truncates
func overlapSize() int {
	overlap := float64(TargetChunkSize) * OverlapPercentage
	return int(overlap)
}

// splitLines splits content into lines for boundary detection, dropping the
// phantom empty line produced by a trailing newline so line-range metadata
// always addresses real lines
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
