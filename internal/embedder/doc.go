// Package embedder generates vector embeddings for code chunks.
//
// Three providers are available:
//   - azure: Azure OpenAI embedding deployments
//   - openai: the OpenAI embeddings API
//   - local: a deterministic offline pseudo embedder for development
//
// # Basic Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: chunk.Content,
//	})
//
// # Provider Selection
//
// NewFromEnv picks a provider from the environment:
//
//	REPOCTX_EMBEDDING_PROVIDER=azure|openai|local  # explicit choice
//	AZURE_OPENAI_API_KEY=...                       # auto-detects azure
//	OPENAI_API_KEY=sk-...                          # auto-detects openai
//
// With no credentials set, the local provider is used so the pipeline can
// run end to end without external services.
//
// Azure OpenAI additionally needs the resource endpoint and the deployment
// name of the embedding model:
//
//	AZURE_OPENAI_ENDPOINT=https://myresource.openai.azure.com
//	AZURE_OPENAI_DEPLOYMENT=text-embedding-ada-002
//	AZURE_OPENAI_API_VERSION=2024-02-01
//
// # Batching
//
// GenerateBatch embeds up to 100 texts per call, which is how the indexer
// submits chunk batches:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: texts,
//	})
//
// # Caching and Retry
//
// Providers share an LRU cache keyed by the SHA-256 hash of the text, so
// re-indexing unchanged chunks never re-calls the API. Failed API calls are
// retried up to 3 times with exponential backoff (100ms base, 5s cap).
package embedder
