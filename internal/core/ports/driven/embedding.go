package driven

import (
	"context"
)

// EmbeddingService generates text embeddings
type EmbeddingService interface {
	// Embed generates embeddings for multiple texts.
	// The result is order-preserving and 1:1 with the input: result[i] is
	// the vector for texts[i]. On permanent failure the error carries the
	// indices of the inputs that were not embedded
	// (domain.EmbeddingError), never a partially-aligned result.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// Ping verifies the embedding service is reachable
	Ping(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
