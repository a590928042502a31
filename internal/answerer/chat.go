package answerer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dshills/repoctx-mcp/internal/embedder"
)

// Environment variables for chat provider selection. API keys and the Azure
// endpoint are shared with the embedder.
const (
	EnvAzureChatDeployment = "AZURE_OPENAI_CHAT_DEPLOYMENT"
	EnvOpenAIChatModel     = "OPENAI_CHAT_MODEL"
)

const (
	// DefaultChatModel is used when no model override is configured
	DefaultChatModel = "gpt-4"

	openAIChatURL = "https://api.openai.com/v1/chat/completions"

	chatTimeout = 60 * time.Second
)

// ChatRequest is a single chat completion exchange
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	TopP         float64
}

// ChatClient generates chat completions
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
	Model() string
	Close() error
}

// chatResponse is the wire shape shared by the OpenAI and Azure OpenAI chat
// completions endpoints
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// requestChat posts a chat completion request and returns the first choice
func requestChat(ctx context.Context, client *http.Client, apiURL string, headers map[string]string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	return apiResp.Choices[0].Message.Content, nil
}

// chatMessages builds the two-message conversation for a request
func chatMessages(req ChatRequest) []map[string]string {
	return []map[string]string{
		{"role": "system", "content": req.SystemPrompt},
		{"role": "user", "content": req.UserPrompt},
	}
}

// OpenAIChatClient calls the OpenAI chat completions API
type OpenAIChatClient struct {
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAIChatClient creates an OpenAI chat client. The model falls back to
// OPENAI_CHAT_MODEL, then DefaultChatModel.
func NewOpenAIChatClient(apiKey, model string) (*OpenAIChatClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv(embedder.EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key required", ErrNoChatConfigured)
	}
	if model == "" {
		model = os.Getenv(EnvOpenAIChatModel)
	}
	if model == "" {
		model = DefaultChatModel
	}

	return &OpenAIChatClient{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: chatTimeout},
	}, nil
}

func (c *OpenAIChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	payload := map[string]any{
		"model":       c.model,
		"messages":    chatMessages(req),
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
		"top_p":       req.TopP,
	}
	return requestChat(ctx, c.client, openAIChatURL, headers, payload)
}

func (c *OpenAIChatClient) Model() string { return c.model }

func (c *OpenAIChatClient) Close() error { return nil }

// AzureChatClient calls an Azure OpenAI chat deployment
type AzureChatClient struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	client     *http.Client
}

// AzureChatConfig holds Azure OpenAI chat settings. Empty fields fall back
// to the environment.
type AzureChatConfig struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// NewAzureChatClient creates an Azure OpenAI chat client
func NewAzureChatClient(cfg AzureChatConfig) (*AzureChatClient, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(embedder.EnvAzureAPIKey)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv(embedder.EnvAzureEndpoint)
	}
	if cfg.Deployment == "" {
		cfg.Deployment = os.Getenv(EnvAzureChatDeployment)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = os.Getenv(embedder.EnvAzureAPIVersion)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = embedder.DefaultAzureAPIVersion
	}

	if cfg.APIKey == "" || cfg.Endpoint == "" || cfg.Deployment == "" {
		return nil, fmt.Errorf("%w: Azure OpenAI chat requires api key, endpoint, and deployment", ErrNoChatConfigured)
	}

	return &AzureChatClient{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
		client:     &http.Client{Timeout: chatTimeout},
	}, nil
}

func (c *AzureChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	apiURL := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))

	headers := map[string]string{"api-key": c.apiKey}
	payload := map[string]any{
		"messages":    chatMessages(req),
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
		"top_p":       req.TopP,
	}
	return requestChat(ctx, c.client, apiURL, headers, payload)
}

func (c *AzureChatClient) Model() string { return c.deployment }

func (c *AzureChatClient) Close() error { return nil }

// NewChatFromEnv selects a chat provider from the environment: Azure when an
// Azure key and chat deployment are present, otherwise OpenAI.
func NewChatFromEnv() (ChatClient, error) {
	if os.Getenv(embedder.EnvAzureAPIKey) != "" && os.Getenv(EnvAzureChatDeployment) != "" {
		return NewAzureChatClient(AzureChatConfig{})
	}
	if os.Getenv(embedder.EnvOpenAIAPIKey) != "" {
		return NewOpenAIChatClient("", "")
	}
	return nil, ErrNoChatConfigured
}
