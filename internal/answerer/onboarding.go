package answerer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dshills/repoctx-mcp/internal/searcher"
	"github.com/dshills/repoctx-mcp/pkg/types"
)

// overviewQueries probe different aspects of a codebase to assemble an
// orientation context for new developers
var overviewQueries = []string{
	"main entry point application startup",
	"API endpoints routes controllers",
	"configuration settings environment",
	"data models database schemas",
	"core business logic services",
	"README documentation getting started",
}

const (
	// overviewPerQuery is how many results each probe query contributes
	overviewPerQuery = 3
	// overviewMaxChunks caps the assembled overview context
	overviewMaxChunks = 8
	// overviewConfidence is reported for the curated onboarding answer
	overviewConfidence = 0.9
)

const overviewSystemPrompt = `You are an expert developer mentor helping a new team member understand a codebase. Your goal is to provide a comprehensive yet approachable overview that helps them get started quickly.

TASK: Generate a "Where do I start?" response that includes:

1. **CODEBASE OVERVIEW** (2-3 sentences)
   - What this application/system does
   - Main technology stack and architecture style

2. **KEY COMPONENTS** (bullet points)
   - Identify 3-4 most important directories/files
   - Briefly explain what each component does
   - Include specific file references

3. **ENTRY POINTS** (bullet points)
   - Where the application starts (main files, startup scripts)
   - Key configuration files
   - Important API endpoints or interfaces

4. **FIRST TASK RECOMMENDATION** (specific and actionable)
   - Suggest ONE specific file to examine first
   - Explain why this file is a good starting point
   - Mention what they should look for in that file

STYLE GUIDELINES:
- Be encouraging and welcoming
- Use clear, jargon-free language
- Focus on practical next steps
- Include specific file paths and line numbers
- Keep it concise but comprehensive
- Make it feel like advice from a helpful colleague

Base your response ONLY on the provided code context.`

// WhereDoIStart generates an onboarding overview of an indexed repository:
// what the system does, its key components and entry points, and a concrete
// first file to read
func (a *Answerer) WhereDoIStart(ctx context.Context, repoID int64) (*QueryResponse, error) {
	startTime := time.Now()

	chunks, err := a.collectOverviewChunks(ctx, repoID)
	if err != nil {
		return nil, err
	}

	answer, err := a.chat.Complete(ctx, ChatRequest{
		SystemPrompt: overviewSystemPrompt,
		UserPrompt:   buildOverviewPrompt(chunks),
		Temperature:  0.2,
		MaxTokens:    1200,
		TopP:         0.9,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	return &QueryResponse{
		Answer:          strings.TrimSpace(answer),
		Sources:         sourceReferences(chunks),
		ConfidenceScore: overviewConfidence,
		ProcessingTime:  time.Since(startTime),
	}, nil
}

// collectOverviewChunks runs the probe queries and keeps the most relevant
// unique chunks. Individual probe failures are logged and skipped; the
// overview degrades rather than failing.
func (a *Answerer) collectOverviewChunks(ctx context.Context, repoID int64) ([]types.SearchResult, error) {
	var all []types.SearchResult
	for _, query := range overviewQueries {
		resp, err := a.retriever.Search(ctx, searcher.SearchRequest{
			Query:    query,
			RepoID:   repoID,
			Limit:    overviewPerQuery,
			UseCache: true,
		})
		if err != nil {
			a.logger.Warn("overview probe failed", "query", query, "error", err)
			continue
		}
		all = append(all, resp.Results...)
	}

	unique := deduplicateResults(all)
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].RelevanceScore > unique[j].RelevanceScore
	})
	if len(unique) > overviewMaxChunks {
		unique = unique[:overviewMaxChunks]
	}
	return unique, nil
}

// deduplicateResults keeps the first occurrence of each chunk ID
func deduplicateResults(results []types.SearchResult) []types.SearchResult {
	seen := make(map[string]bool, len(results))
	unique := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		if seen[r.ChunkID] {
			continue
		}
		seen[r.ChunkID] = true
		unique = append(unique, r)
	}
	return unique
}

// buildOverviewPrompt formats the collected chunks for the overview request
func buildOverviewPrompt(results []types.SearchResult) string {
	context := formatChunks(results, "Component", "No code files found in the codebase.")
	return fmt.Sprintf(`Please analyze this codebase and provide a comprehensive "Where do I start?" response for a new developer joining the team.

Codebase Context:
%s

Generate a welcoming, practical overview that helps them understand the system and know exactly where to begin exploring.`, context)
}
