package driving

import (
	"context"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
)

// ChatService answers a question from ingested document content.
type ChatService interface {
	// Ask retrieves relevant chunks for the request's message and
	// synthesises an answer with citations. History is caller-supplied
	// and truncated internally to the configured turn budget.
	Ask(ctx context.Context, req domain.ChatRequest) (*domain.Answer, error)
}

// Retriever embeds a query and fetches ranked matches from the vector
// store. Split from ChatService so the search surface can be exercised
// without a completion provider.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.Match, error)
}

// DocumentService exposes the ingest bookkeeping records.
type DocumentService interface {
	// Get retrieves a document record by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// ListByNamespace retrieves document records in a namespace
	ListByNamespace(ctx context.Context, namespace string, limit, offset int) ([]*domain.Document, error)

	// GetChunks retrieves a document's chunk spans ordered by sequence index
	GetChunks(ctx context.Context, documentID string) ([]*domain.Chunk, error)

	// Delete removes a document's records and its vector store entries
	Delete(ctx context.Context, namespace, documentID string) error
}
