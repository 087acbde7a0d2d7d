package driven

import (
	"context"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
)

// VectorEntry pairs a chunk id with its embedding and retrieval metadata.
// A chunk is never upserted without its embedding and vice versa.
type VectorEntry struct {
	ChunkID       string
	Embedding     []float32
	DocumentID    string
	Source        string
	SequenceIndex int
	Content       string
}

// VectorStore wraps the external similarity-search capability.
// Namespaces partition the index: a query against one namespace never
// returns entries upserted into another.
type VectorStore interface {
	// Upsert writes entries into a namespace. Idempotent: re-upserting a
	// chunk id overwrites the previous entry rather than duplicating it.
	Upsert(ctx context.Context, namespace string, entries []VectorEntry) error

	// Query returns the topK most similar entries in the namespace,
	// ordered by descending score. A topK <= 0 fails with
	// domain.ErrInvalidArgument before any external call.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.Match, error)

	// DeleteByDocument removes all entries for a document in a namespace.
	DeleteByDocument(ctx context.Context, namespace, documentID string) error

	// Ping verifies the vector store is reachable
	Ping(ctx context.Context) error
}
