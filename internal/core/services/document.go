package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface.
type documentService struct {
	documentStore driven.DocumentStore
	chunkStore    driven.ChunkStore
	vectorStore   driven.VectorStore
	logger        *slog.Logger
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(
	documentStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	vectorStore driven.VectorStore,
	logger *slog.Logger,
) driving.DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		documentStore: documentStore,
		chunkStore:    chunkStore,
		vectorStore:   vectorStore,
		logger:        logger,
	}
}

// recordsEnabled reports whether bookkeeping stores are configured.
// Deployments without PostgreSQL still ingest and answer, but have no
// document records to browse.
func (s *documentService) recordsEnabled() bool {
	return s.documentStore != nil && s.chunkStore != nil
}

// Get retrieves a document record by ID.
func (s *documentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if !s.recordsEnabled() {
		return nil, fmt.Errorf("document records are not enabled: %w", domain.ErrInvalidConfig)
	}
	return s.documentStore.Get(ctx, id)
}

// ListByNamespace retrieves document records in a namespace.
func (s *documentService) ListByNamespace(ctx context.Context, namespace string, limit, offset int) ([]*domain.Document, error) {
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	if !s.recordsEnabled() {
		return nil, fmt.Errorf("document records are not enabled: %w", domain.ErrInvalidConfig)
	}
	return s.documentStore.ListByNamespace(ctx, namespace, limit, offset)
}

// GetChunks retrieves a document's chunk spans ordered by sequence index.
func (s *documentService) GetChunks(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	if !s.recordsEnabled() {
		return nil, fmt.Errorf("document records are not enabled: %w", domain.ErrInvalidConfig)
	}
	return s.chunkStore.GetByDocument(ctx, documentID)
}

// Delete removes a document's records and its vector store entries.
// The vector store delete runs first: a half-deleted document must drop
// out of retrieval even if record cleanup fails afterwards.
func (s *documentService) Delete(ctx context.Context, namespace, documentID string) error {
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}

	if err := s.vectorStore.DeleteByDocument(ctx, namespace, documentID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}

	if s.chunkStore != nil {
		if err := s.chunkStore.DeleteByDocument(ctx, documentID); err != nil {
			s.logger.Warn("failed to delete chunk records", "document_id", documentID, "error", err)
		}
	}
	if s.documentStore != nil {
		if err := s.documentStore.Delete(ctx, documentID); err != nil {
			s.logger.Warn("failed to delete document record", "document_id", documentID, "error", err)
		}
	}

	s.logger.Info("document deleted", "document_id", documentID, "namespace", namespace)
	return nil
}
