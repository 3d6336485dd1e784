package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// EmbedderConfig represents the configuration for the embedding client.
type EmbedderConfig struct {
	Model     string
	BatchSize int
	BaseURL   string // Ollama server URL
}

// NewEmbedderWithConfig creates a batching embedder backed by an Ollama
// embedding model. Chunks are embedded in batches of BatchSize.
func NewEmbedderWithConfig(config EmbedderConfig) (*embeddings.EmbedderImpl, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 32
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	client, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(config.BatchSize),
		embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return embedder, nil
}
