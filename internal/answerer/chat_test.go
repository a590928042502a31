package answerer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-4", payload["model"])
		assert.Equal(t, 0.1, payload["temperature"])

		messages, ok := payload["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 2)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"grounded answer"}}]}`))
	}))
	defer server.Close()

	headers := map[string]string{"Authorization": "Bearer test-key"}
	payload := map[string]any{
		"model":       "gpt-4",
		"messages":    chatMessages(ChatRequest{SystemPrompt: "sys", UserPrompt: "user"}),
		"temperature": 0.1,
	}

	answer, err := requestChat(context.Background(), server.Client(), server.URL, headers, payload)
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer)
}

func TestRequestChat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	_, err := requestChat(context.Background(), server.Client(), server.URL, nil, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestRequestChat_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := requestChat(context.Background(), server.Client(), server.URL, nil, map[string]any{})
	assert.Error(t, err)
}

func TestAzureChatClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/chat-dep/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotContains(t, payload, "model", "Azure routes by deployment, not model")

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"azure answer"}}]}`))
	}))
	defer server.Close()

	client, err := NewAzureChatClient(AzureChatConfig{
		APIKey:     "azure-key",
		Endpoint:   server.URL + "/",
		Deployment: "chat-dep",
		APIVersion: "2024-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "chat-dep", client.Model())

	answer, err := client.Complete(context.Background(), ChatRequest{
		SystemPrompt: "sys",
		UserPrompt:   "user",
		Temperature:  0.1,
		MaxTokens:    1000,
		TopP:         0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, "azure answer", answer)
}

func clearChatEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	t.Setenv("AZURE_OPENAI_CHAT_DEPLOYMENT", "")
	t.Setenv("AZURE_OPENAI_API_VERSION", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_CHAT_MODEL", "")
}

func TestNewChatFromEnv(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		clearChatEnv(t)
		_, err := NewChatFromEnv()
		assert.ErrorIs(t, err, ErrNoChatConfigured)
	})

	t.Run("openai", func(t *testing.T) {
		clearChatEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		client, err := NewChatFromEnv()
		require.NoError(t, err)
		assert.IsType(t, &OpenAIChatClient{}, client)
		assert.Equal(t, DefaultChatModel, client.Model())
	})

	t.Run("openai model override", func(t *testing.T) {
		clearChatEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("OPENAI_CHAT_MODEL", "gpt-4o")
		client, err := NewChatFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", client.Model())
	})

	t.Run("azure preferred", func(t *testing.T) {
		clearChatEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("AZURE_OPENAI_API_KEY", "azure-key")
		t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
		t.Setenv("AZURE_OPENAI_CHAT_DEPLOYMENT", "chat-dep")
		client, err := NewChatFromEnv()
		require.NoError(t, err)
		assert.IsType(t, &AzureChatClient{}, client)
		assert.Equal(t, "chat-dep", client.Model())
	})

	t.Run("azure missing endpoint", func(t *testing.T) {
		clearChatEnv(t)
		t.Setenv("AZURE_OPENAI_API_KEY", "azure-key")
		t.Setenv("AZURE_OPENAI_CHAT_DEPLOYMENT", "chat-dep")
		_, err := NewChatFromEnv()
		assert.ErrorIs(t, err, ErrNoChatConfigured)
	})
}
