package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
)

// Provider configuration
const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultAzureModel  = "text-embedding-ada-002"
	DefaultOpenAIModel = "text-embedding-3-small"

	// Dimensions
	AzureDimension  = 1536
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 100
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// embeddingsResponse is the wire shape shared by the OpenAI and Azure
// OpenAI embeddings endpoints
type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// requestEmbeddings posts an embeddings request and decodes the response
// into per-text embeddings tagged with the given provider name
func requestEmbeddings(ctx context.Context, client *http.Client, url string, headers map[string]string, payload map[string]any, provider string) ([]*Embedding, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  provider,
			Model:     apiResp.Model,
		}
	}

	return embeddings, nil
}

// cacheBatch stores freshly generated embeddings by the hash of their text
func cacheBatch(cache *Cache, texts []string, embeddings []*Embedding) {
	if cache == nil {
		return
	}
	for i, emb := range embeddings {
		if i >= len(texts) {
			break
		}
		hash := ComputeHash(texts[i])
		emb.Hash = hash
		cache.Set(hash, emb)
	}
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
