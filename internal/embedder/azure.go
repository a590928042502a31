package embedder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultAzureAPIVersion is used when AZURE_OPENAI_API_VERSION is unset
const DefaultAzureAPIVersion = "2024-02-01"

// AzureConfig configures an Azure OpenAI embedder
type AzureConfig struct {
	APIKey     string
	Endpoint   string // https://<resource>.openai.azure.com
	Deployment string // Deployment name of the embedding model
	APIVersion string
}

// AzureProvider implements Embedder using an Azure OpenAI deployment
type AzureProvider struct {
	cfg        AzureConfig
	httpClient *http.Client
	cache      *Cache
}

// NewAzureProvider creates an Azure OpenAI embedder. Unset config fields
// fall back to the AZURE_OPENAI_* environment variables.
func NewAzureProvider(cfg AzureConfig, cache *Cache) (*AzureProvider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(EnvAzureAPIKey)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv(EnvAzureEndpoint)
	}
	if cfg.Deployment == "" {
		cfg.Deployment = os.Getenv(EnvAzureDeployment)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = os.Getenv(EnvAzureAPIVersion)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAzureAPIVersion
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvAzureAPIKey)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvAzureEndpoint)
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvAzureDeployment)
	}

	return &AzureProvider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

func (a *AzureProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if a.cache != nil {
		if emb, ok := a.cache.Get(hash); ok {
			return emb, nil
		}
	}

	resp, err := a.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

func (a *AzureProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	config := DefaultRetryConfig()
	embeddings, err := retryWithBackoff(ctx, config, func() ([]*Embedding, error) {
		return a.callAPI(ctx, req.Texts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
	}

	cacheBatch(a.cache, req.Texts, embeddings)

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderAzure,
		Model:      a.Model(),
	}, nil
}

func (a *AzureProvider) callAPI(ctx context.Context, texts []string) ([]*Embedding, error) {
	// The deployment already pins the model, so the payload carries only
	// the input
	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		strings.TrimSuffix(a.cfg.Endpoint, "/"), a.cfg.Deployment, a.cfg.APIVersion)

	return requestEmbeddings(ctx, a.httpClient, url,
		map[string]string{"api-key": a.cfg.APIKey},
		map[string]any{"input": texts},
		ProviderAzure)
}

func (a *AzureProvider) Dimension() int {
	return AzureDimension
}

func (a *AzureProvider) Provider() string {
	return ProviderAzure
}

// Model returns the deployment name, which names the embedding model on
// Azure
func (a *AzureProvider) Model() string {
	if a.cfg.Deployment != "" {
		return a.cfg.Deployment
	}
	return DefaultAzureModel
}

func (a *AzureProvider) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}
