package answerer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dshills/repoctx-mcp/internal/searcher"
	"github.com/dshills/repoctx-mcp/pkg/types"
)

var (
	// ErrEmptyQuestion is returned when the question is blank
	ErrEmptyQuestion = errors.New("question cannot be empty")
	// ErrChatFailed is returned when the chat completion call fails
	ErrChatFailed = errors.New("chat completion failed")
	// ErrNoChatConfigured is returned when no chat provider credentials exist
	ErrNoChatConfigured = errors.New("no chat provider configured")
)

const (
	// DefaultTopK is the number of chunks used to ground an answer
	DefaultTopK = 5
	// MaxTopK caps the grounding context size
	MaxTopK = 20
	// PreviewLength bounds the content preview on source references
	PreviewLength = 200
)

// Retriever finds relevant chunks for a query. Satisfied by
// searcher.Searcher.
type Retriever interface {
	Search(ctx context.Context, req searcher.SearchRequest) (*searcher.SearchResponse, error)
}

// QueryResponse is an answer grounded in retrieved code
type QueryResponse struct {
	Answer          string
	Sources         []types.SourceReference
	ConfidenceScore float64
	ProcessingTime  time.Duration
}

// AnswerOptions control retrieval for a question
type AnswerOptions struct {
	RepoID int64 // 0 answers across all indexed repos
	TopK   int
}

// Answerer turns natural-language questions into answers grounded in the
// indexed codebase: retrieve relevant chunks, build a context block, and ask
// the chat model to answer from that context only.
type Answerer struct {
	retriever Retriever
	chat      ChatClient
	logger    *slog.Logger
}

// New creates an Answerer
func New(retriever Retriever, chat ChatClient) *Answerer {
	return NewWithLogger(retriever, chat, slog.Default())
}

// NewWithLogger creates an Answerer with a custom logger
func NewWithLogger(retriever Retriever, chat ChatClient, logger *slog.Logger) *Answerer {
	return &Answerer{
		retriever: retriever,
		chat:      chat,
		logger:    logger,
	}
}

// Answer processes a question and generates a grounded response
func (a *Answerer) Answer(ctx context.Context, question string, opts AnswerOptions) (*QueryResponse, error) {
	startTime := time.Now()

	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	resp, err := a.retriever.Search(ctx, searcher.SearchRequest{
		Query:    question,
		RepoID:   opts.RepoID,
		Limit:    topK,
		UseCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve relevant chunks: %w", err)
	}

	answer, err := a.chat.Complete(ctx, ChatRequest{
		SystemPrompt: groundingSystemPrompt,
		UserPrompt:   buildUserPrompt(question, buildContext(resp.Results)),
		Temperature:  0.1,
		MaxTokens:    1000,
		TopP:         0.9,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	response := &QueryResponse{
		Answer:          strings.TrimSpace(answer),
		Sources:         sourceReferences(resp.Results),
		ConfidenceScore: ConfidenceScore(resp.Results),
		ProcessingTime:  time.Since(startTime),
	}

	a.logger.Info("answered question",
		"chunks", len(resp.Results),
		"confidence", response.ConfidenceScore,
		"duration", response.ProcessingTime)

	return response, nil
}

// sourceReferences converts search results into citations
func sourceReferences(results []types.SearchResult) []types.SourceReference {
	sources := make([]types.SourceReference, len(results))
	for i, r := range results {
		sources[i] = r.ToSourceReference(PreviewLength)
	}
	return sources
}

// ConfidenceScore estimates answer quality from retrieval results: 70%
// weight on the average relevance (normalized against 0.8, the floor of a
// strong match) and 30% on having at least three supporting chunks.
// Rounded to two decimals.
func ConfidenceScore(results []types.SearchResult) float64 {
	if len(results) == 0 {
		return 0.0
	}

	var sum float64
	for _, r := range results {
		sum += r.RelevanceScore
	}
	avg := sum / float64(len(results))

	normalized := math.Min(avg/0.8, 1.0)
	countFactor := math.Min(float64(len(results))/3.0, 1.0)

	confidence := normalized*0.7 + countFactor*0.3
	return math.Round(confidence*100) / 100
}
