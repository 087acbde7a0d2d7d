package driven

import (
	"context"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
)

// DocumentStore records ingested documents for bookkeeping and listing.
// Embeddings never live here; the vector store is the only similarity
// index. The store is optional - ingestion works without one.
type DocumentStore interface {
	// Save creates or updates a document record (without its raw text)
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document record by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// ListByNamespace retrieves document records in a namespace
	ListByNamespace(ctx context.Context, namespace string, limit, offset int) ([]*domain.Document, error)

	// Delete removes a document record
	Delete(ctx context.Context, id string) error

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}

// ChunkStore records chunk spans produced by ingestion, keyed by the
// canonical chunk id, so re-ingestion can be verified chunk-for-chunk.
type ChunkStore interface {
	// SaveBatch saves chunks in one transaction, overwriting on id conflict
	SaveBatch(ctx context.Context, chunks []*domain.Chunk) error

	// GetByDocument retrieves all chunks for a document ordered by
	// sequence index
	GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error)

	// DeleteByDocument removes all chunks for a document
	DeleteByDocument(ctx context.Context, documentID string) error
}
