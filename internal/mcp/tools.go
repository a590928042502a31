package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/repoctx-mcp/internal/answerer"
	"github.com/dshills/repoctx-mcp/internal/indexer"
	"github.com/dshills/repoctx-mcp/internal/ingest"
	"github.com/dshills/repoctx-mcp/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeRepoNotFound       = -32001 // Named repository is not in the index
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Nothing has been indexed yet
	ErrorCodeEmptyQuestion      = -32004 // Question parameter is empty
)

// handleIngestRepository handles the ingest_repository tool invocation
func (s *Server) handleIngestRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	source, ok := args["source"].(string)
	if !ok || strings.TrimSpace(source) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "source parameter is required", map[string]interface{}{
			"param":  "source",
			"reason": "missing or empty",
		})
	}
	source = strings.TrimSpace(source)

	force := getBoolDefault(args, "force", false)

	config := &indexer.Config{Force: force}

	// A source is either a GitHub URL or a local directory
	var stats *indexer.Statistics
	var err error
	switch {
	case ingest.ValidateRepoURL(source) == nil:
		stats, err = s.indexer.IndexRepository(ctx, source, config)
	case isLocalDir(source):
		stats, err = s.indexer.IndexLocal(ctx, source, config)
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "source must be a GitHub repository URL or an existing local directory", map[string]interface{}{
			"param": "source",
			"value": source,
		})
	}

	if errors.Is(err, indexer.ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "an indexing operation is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Cached query results may reference stale chunks after a reindex
	if err := s.searcher.InvalidateCache(ctx); err != nil {
		s.logger.Warn("failed to invalidate search cache", "error", err)
	}

	// Format response
	response := map[string]interface{}{
		"indexed":            true,
		"repository":         stats.RepoName,
		"files_indexed":      stats.FilesIndexed,
		"files_skipped":      stats.FilesSkipped,
		"files_failed":       stats.FilesFailed,
		"chunks_created":     stats.ChunksCreated,
		"embeddings_created": stats.EmbeddingsCreated,
		"duration_ms":        stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
		} else {
			response["errors"] = stats.ErrorMessages
		}
		response["error_count"] = errorCount
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAskCodebase handles the ask_codebase tool invocation
func (s *Server) handleAskCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, _ := args["question"].(string)
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, newMCPError(ErrorCodeEmptyQuestion, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", answerer.DefaultTopK)
	if topK < 1 || topK > answerer.MaxTopK {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("top_k must be between 1 and %d", answerer.MaxTopK), map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	if s.answerer == nil {
		return nil, newMCPError(ErrorCodeInternalError, "no chat provider configured", map[string]interface{}{
			"hint": "set OPENAI_API_KEY, or AZURE_OPENAI_API_KEY with AZURE_OPENAI_CHAT_DEPLOYMENT",
		})
	}

	repoID, mcpErr := s.resolveRepoScope(ctx, args)
	if mcpErr != nil {
		return nil, mcpErr
	}

	var result *answerer.QueryResponse
	var err error
	if isOverviewQuestion(question) {
		result, err = s.answerer.WhereDoIStart(ctx, repoID)
	} else {
		result, err = s.answerer.Answer(ctx, question, answerer.AnswerOptions{
			RepoID: repoID,
			TopK:   topK,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "query processing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	sources := make([]map[string]interface{}, 0, len(result.Sources))
	for _, src := range result.Sources {
		sources = append(sources, map[string]interface{}{
			"file_path":  src.FilePath,
			"start_line": src.StartLine,
			"end_line":   src.EndLine,
			"preview":    src.ContentPreview,
		})
	}

	response := map[string]interface{}{
		"answer":             result.Answer,
		"sources":            sources,
		"confidence_score":   result.ConfidenceScore,
		"processing_time_ms": result.ProcessingTime.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	repoName := getStringDefault(args, "repo", "")
	if repoName == "" {
		return s.listReposStatus(ctx)
	}

	repo, err := s.storage.GetRepo(ctx, repoName)
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"indexed": false,
			"repo":    repoName,
			"message": "Repository not indexed. Use ingest_repository to index it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to look up repository", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, repo.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": true,
		"repository": map[string]interface{}{
			"name":            repo.Name,
			"url":             repo.URL,
			"index_version":   repo.IndexVersion,
			"last_indexed_at": repo.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
		"statistics": map[string]interface{}{
			"files_count":      status.FilesCount,
			"chunks_count":     status.ChunksCount,
			"embeddings_count": status.EmbeddingsCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"vector_search_native": status.Health.VectorSearchNative,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// listReposStatus summarizes every indexed repository
func (s *Server) listReposStatus(ctx context.Context) (*mcp.CallToolResult, error) {
	repos, err := s.storage.ListRepos(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list repositories", map[string]interface{}{
			"error": err.Error(),
		})
	}

	summaries := make([]map[string]interface{}, 0, len(repos))
	for _, repo := range repos {
		summaries = append(summaries, map[string]interface{}{
			"name":            repo.Name,
			"url":             repo.URL,
			"total_files":     repo.TotalFiles,
			"total_chunks":    repo.TotalChunks,
			"last_indexed_at": repo.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	response := map[string]interface{}{
		"indexed":          len(repos) > 0,
		"repository_count": len(repos),
		"repositories":     summaries,
	}
	if len(repos) == 0 {
		response["message"] = "Nothing indexed yet. Use ingest_repository to index a repository."
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// resolveRepoScope maps the optional repo argument to a repository ID.
// An absent repo argument searches across all indexed repos, which still
// requires at least one to exist.
func (s *Server) resolveRepoScope(ctx context.Context, args map[string]interface{}) (int64, error) {
	repoName := getStringDefault(args, "repo", "")
	if repoName != "" {
		repo, err := s.storage.GetRepo(ctx, repoName)
		if errors.Is(err, storage.ErrNotFound) {
			return 0, newMCPError(ErrorCodeRepoNotFound, "repository not indexed", map[string]interface{}{
				"repo": repoName,
			})
		}
		if err != nil {
			return 0, newMCPError(ErrorCodeInternalError, "failed to look up repository", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return repo.ID, nil
	}

	repos, err := s.storage.ListRepos(ctx)
	if err != nil {
		return 0, newMCPError(ErrorCodeInternalError, "failed to list repositories", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if len(repos) == 0 {
		return 0, newMCPError(ErrorCodeNotIndexed, "nothing indexed yet", map[string]interface{}{
			"hint": "use ingest_repository to index a repository first",
		})
	}
	return 0, nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// isLocalDir reports whether source names an existing directory
func isLocalDir(source string) bool {
	info, err := os.Stat(source)
	return err == nil && info.IsDir()
}

// isOverviewQuestion matches the predefined onboarding question so it is
// answered from the curated overview probes instead of a single search
func isOverviewQuestion(question string) bool {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(question), "?!."))
	return normalized == "where do i start" || normalized == "where should i start"
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
