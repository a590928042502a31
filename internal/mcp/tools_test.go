package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repoctx-mcp/internal/answerer"
)

const loginSource = `def login(username, password):
    """Validate credentials and open a session."""
    user = find_user(username)
    if user is None:
        return None
    if not verify_password(user, password):
        return None
    return create_session(user)

def logout(session_id):
    """Close an active session."""
    revoke_session(session_id)
`

type stubChat struct {
	answer   string
	requests []answerer.ChatRequest
}

func (c *stubChat) Complete(_ context.Context, req answerer.ChatRequest) (string, error) {
	c.requests = append(c.requests, req)
	return c.answer, nil
}

func (c *stubChat) Model() string { return "stub-model" }
func (c *stubChat) Close() error  { return nil }

// toolRequest builds a CallToolRequest the way the stdio transport would
func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// resultJSON decodes the text payload of a tool result
func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "tool results are text content")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

// requireMCPError asserts that err carries the given JSON-RPC error code
func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok, "expected *MCPError, got %T", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

// seedSourceDir writes a small repository tree to index
func seedSourceDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "auth.py"), []byte(loginSource), 0644))
	return root
}

// ingestDir runs the ingest_repository handler against a local directory and
// returns the decoded response
func ingestDir(t *testing.T, s *Server, dir string) map[string]interface{} {
	t.Helper()
	result, err := s.handleIngestRepository(context.Background(), toolRequest(map[string]interface{}{
		"source": dir,
	}))
	require.NoError(t, err)
	return resultJSON(t, result)
}

func TestHandleIngestRepository(t *testing.T) {
	t.Run("indexes local directory", func(t *testing.T) {
		s := newTestServer(t, nil)
		payload := ingestDir(t, s, seedSourceDir(t))

		assert.Equal(t, true, payload["indexed"])
		assert.Equal(t, float64(1), payload["files_indexed"])
		assert.Equal(t, float64(0), payload["files_failed"])
		assert.GreaterOrEqual(t, payload["chunks_created"], float64(1))
		assert.Equal(t, payload["chunks_created"], payload["embeddings_created"])
		assert.NotEmpty(t, payload["repository"])
	})

	t.Run("second run skips unchanged files", func(t *testing.T) {
		s := newTestServer(t, nil)
		dir := seedSourceDir(t)
		ingestDir(t, s, dir)

		payload := ingestDir(t, s, dir)
		assert.Equal(t, float64(0), payload["files_indexed"])
		assert.Equal(t, float64(1), payload["files_skipped"])
	})

	t.Run("force reindexes unchanged files", func(t *testing.T) {
		s := newTestServer(t, nil)
		dir := seedSourceDir(t)
		ingestDir(t, s, dir)

		result, err := s.handleIngestRepository(context.Background(), toolRequest(map[string]interface{}{
			"source": dir,
			"force":  true,
		}))
		require.NoError(t, err)
		payload := resultJSON(t, result)
		assert.Equal(t, float64(1), payload["files_indexed"])
	})

	t.Run("missing source", func(t *testing.T) {
		s := newTestServer(t, nil)
		_, err := s.handleIngestRepository(context.Background(), toolRequest(map[string]interface{}{}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("source neither URL nor directory", func(t *testing.T) {
		s := newTestServer(t, nil)
		_, err := s.handleIngestRepository(context.Background(), toolRequest(map[string]interface{}{
			"source": "/no/such/path",
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

}

func TestHandleAskCodebase(t *testing.T) {
	t.Run("grounded answer with sources", func(t *testing.T) {
		chat := &stubChat{answer: "Login validates credentials via find_user and verify_password."}
		s := newTestServer(t, chat)
		ingestDir(t, s, seedSourceDir(t))

		result, err := s.handleAskCodebase(context.Background(), toolRequest(map[string]interface{}{
			"question": "How does login work?",
		}))
		require.NoError(t, err)
		payload := resultJSON(t, result)

		assert.Equal(t, chat.answer, payload["answer"])
		assert.NotEmpty(t, payload["sources"])
		assert.Greater(t, payload["confidence_score"], float64(0))

		source := payload["sources"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, "auth.py", source["file_path"])
		assert.NotEmpty(t, source["preview"])
	})

	t.Run("scopes to named repo", func(t *testing.T) {
		chat := &stubChat{answer: "ok"}
		s := newTestServer(t, chat)
		payload := ingestDir(t, s, seedSourceDir(t))
		repoName := payload["repository"].(string)

		_, err := s.handleAskCodebase(context.Background(), toolRequest(map[string]interface{}{
			"question": "How does logout work?",
			"repo":     repoName,
		}))
		require.NoError(t, err)
	})

	t.Run("empty question", func(t *testing.T) {
		s := newTestServer(t, &stubChat{answer: "ok"})
		_, err := s.handleAskCodebase(context.Background(), toolRequest(map[string]interface{}{
			"question": "   ",
		}))
		requireMCPError(t, err, ErrorCodeEmptyQuestion)
	})

	t.Run("top_k out of range", func(t *testing.T) {
		s := newTestServer(t, &stubChat{answer: "ok"})
		_, err := s.handleAskCodebase(context.Background(), toolRequest(map[string]interface{}{
			"question": "How does login work?",
			"top_k":    float64(50),
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("nothing indexed", func(t *testing.T) {
		s := newTestServer(t, &stubChat{answer: "ok"})
		_, err := s.handleAskCodebase(context.Background(), toolRequest(map[string]interface{}{
			"question": "How does login work?",
		}))
		requireMCPError(t, err, ErrorCodeNotIndexed)
	})

	t.Run("unknown repo", func(t *testing.T) {
		s := newTestServer(t, &stubChat{answer: "ok"})
		ingestDir(t, s, seedSourceDir(t))

		_, err := s.handleAskCodebase(context.Background(), toolRequest(map[string]interface{}{
			"question": "How does login work?",
			"repo":     "ghost/repo",
		}))
		requireMCPError(t, err, ErrorCodeRepoNotFound)
	})

	t.Run("no chat provider", func(t *testing.T) {
		s := newTestServer(t, nil)
		ingestDir(t, s, seedSourceDir(t))

		_, err := s.handleAskCodebase(context.Background(), toolRequest(map[string]interface{}{
			"question": "How does login work?",
		}))
		mcpErr := requireMCPError(t, err, ErrorCodeInternalError)
		assert.Contains(t, mcpErr.Message, "chat provider")
	})

	t.Run("onboarding question uses overview flow", func(t *testing.T) {
		chat := &stubChat{answer: "Start with auth.py."}
		s := newTestServer(t, chat)
		ingestDir(t, s, seedSourceDir(t))

		result, err := s.handleAskCodebase(context.Background(), toolRequest(map[string]interface{}{
			"question": "Where do I start?",
		}))
		require.NoError(t, err)
		payload := resultJSON(t, result)

		assert.Equal(t, chat.answer, payload["answer"])
		assert.Equal(t, 0.9, payload["confidence_score"])
		require.NotEmpty(t, chat.requests)
		assert.Equal(t, 0.2, chat.requests[len(chat.requests)-1].Temperature)
	})
}

func TestIsOverviewQuestion(t *testing.T) {
	assert.True(t, isOverviewQuestion("Where do I start?"))
	assert.True(t, isOverviewQuestion("  where do i start  "))
	assert.True(t, isOverviewQuestion("Where should I start?!"))
	assert.False(t, isOverviewQuestion("Where is the login handler?"))
	assert.False(t, isOverviewQuestion("How does login work?"))
}

func TestHandleGetStatus(t *testing.T) {
	t.Run("empty index", func(t *testing.T) {
		s := newTestServer(t, nil)
		result, err := s.handleGetStatus(context.Background(), toolRequest(map[string]interface{}{}))
		require.NoError(t, err)
		payload := resultJSON(t, result)

		assert.Equal(t, false, payload["indexed"])
		assert.Equal(t, float64(0), payload["repository_count"])
		assert.Contains(t, payload["message"], "ingest_repository")
	})

	t.Run("lists indexed repos", func(t *testing.T) {
		s := newTestServer(t, nil)
		ingested := ingestDir(t, s, seedSourceDir(t))

		result, err := s.handleGetStatus(context.Background(), toolRequest(map[string]interface{}{}))
		require.NoError(t, err)
		payload := resultJSON(t, result)

		assert.Equal(t, true, payload["indexed"])
		assert.Equal(t, float64(1), payload["repository_count"])

		repos := payload["repositories"].([]interface{})
		require.Len(t, repos, 1)
		repo := repos[0].(map[string]interface{})
		assert.Equal(t, ingested["repository"], repo["name"])
		assert.Equal(t, float64(1), repo["total_files"])
	})

	t.Run("detailed status for one repo", func(t *testing.T) {
		s := newTestServer(t, nil)
		ingested := ingestDir(t, s, seedSourceDir(t))

		result, err := s.handleGetStatus(context.Background(), toolRequest(map[string]interface{}{
			"repo": ingested["repository"],
		}))
		require.NoError(t, err)
		payload := resultJSON(t, result)

		assert.Equal(t, true, payload["indexed"])
		stats := payload["statistics"].(map[string]interface{})
		assert.Equal(t, float64(1), stats["files_count"])
		assert.Equal(t, ingested["chunks_created"], stats["chunks_count"])
		assert.Equal(t, ingested["embeddings_created"], stats["embeddings_count"])

		health := payload["health"].(map[string]interface{})
		assert.Equal(t, true, health["database_accessible"])
		assert.Equal(t, true, health["embeddings_available"])
	})

	t.Run("unknown repo reports not indexed", func(t *testing.T) {
		s := newTestServer(t, nil)
		result, err := s.handleGetStatus(context.Background(), toolRequest(map[string]interface{}{
			"repo": "ghost/repo",
		}))
		require.NoError(t, err)
		payload := resultJSON(t, result)

		assert.Equal(t, false, payload["indexed"])
		assert.Contains(t, payload["message"], "ingest_repository")
	})
}

func TestParamHelpers(t *testing.T) {
	args := map[string]interface{}{
		"flag":  true,
		"count": float64(7),
		"name":  "value",
	}

	assert.True(t, getBoolDefault(args, "flag", false))
	assert.False(t, getBoolDefault(args, "missing", false))
	assert.Equal(t, 7, getIntDefault(args, "count", 1))
	assert.Equal(t, 1, getIntDefault(args, "missing", 1))
	assert.Equal(t, "value", getStringDefault(args, "name", "fallback"))
	assert.Equal(t, "fallback", getStringDefault(args, "missing", "fallback"))
}
