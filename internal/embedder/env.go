package embedder

// Environment variables consulted by NewFromEnv
const (
	// EnvEmbeddingProvider forces a provider: azure, openai or local
	EnvEmbeddingProvider = "REPOCTX_EMBEDDING_PROVIDER"

	// EnvOpenAIAPIKey holds the OpenAI API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	// Azure OpenAI configuration
	EnvAzureAPIKey     = "AZURE_OPENAI_API_KEY"
	EnvAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureDeployment = "AZURE_OPENAI_DEPLOYMENT"
	EnvAzureAPIVersion = "AZURE_OPENAI_API_VERSION"
)
