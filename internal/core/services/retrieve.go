package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driving"
	"github.com/askdoc-labs/askdoc-core/internal/runtime"
)

// Ensure retrievalService implements Retriever
var _ driving.Retriever = (*retrievalService)(nil)

// retrievalService implements the Retriever interface.
type retrievalService struct {
	vectorStore driven.VectorStore
	services    *runtime.Services
	logger      *slog.Logger
}

// NewRetriever creates a new Retriever.
func NewRetriever(
	vectorStore driven.VectorStore,
	services *runtime.Services,
	logger *slog.Logger,
) driving.Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &retrievalService{
		vectorStore: vectorStore,
		services:    services,
		logger:      logger,
	}
}

// Retrieve embeds the query and returns ranked matches.
// The per-document cap can shrink the candidate set, so the store is
// over-queried and the result truncated back to TopK after capping.
// Failures carry the phase that produced them as a RequestError state
// (EMBEDDING_QUERY or RETRIEVING) so callers never have to guess from
// the error kind.
func (s *retrievalService) Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	if opts.TopK <= 0 {
		opts.TopK = domain.DefaultTopK
	}
	if opts.TopK > domain.MaxTopK {
		opts.TopK = domain.MaxTopK
	}
	if opts.Namespace == "" {
		opts.Namespace = domain.DefaultNamespace
	}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, &domain.RequestError{
			State: domain.StateEmbeddingQuery,
			Err:   fmt.Errorf("embedding service not configured: %w", domain.ErrInvalidConfig),
		}
	}

	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, &domain.RequestError{
			State: domain.StateEmbeddingQuery,
			Err:   fmt.Errorf("embed query: %w", err),
		}
	}

	fetchK := opts.TopK
	if opts.MaxPerDocument > 0 {
		fetchK = opts.TopK * 3
	}

	matches, err := s.vectorStore.Query(ctx, opts.Namespace, vector, fetchK)
	if err != nil {
		return nil, &domain.RequestError{
			State: domain.StateRetrieving,
			Err:   fmt.Errorf("query vector store: %w", err),
		}
	}

	domain.SortMatches(matches)

	if opts.MinScore > 0 {
		kept := matches[:0]
		for _, m := range matches {
			if m.Score >= opts.MinScore {
				kept = append(kept, m)
			}
		}
		matches = kept
	}

	matches = domain.CapPerDocument(matches, opts.MaxPerDocument)
	if len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}

	s.logger.Debug("retrieval complete",
		"namespace", opts.Namespace,
		"top_k", opts.TopK,
		"matches", len(matches),
	)

	return matches, nil
}
