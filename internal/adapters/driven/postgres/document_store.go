package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save creates or updates a document record. Raw text is never stored.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, namespace, source, mime_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			namespace = EXCLUDED.namespace,
			source = EXCLUDED.source,
			mime_type = EXCLUDED.mime_type,
			uploaded_at = EXCLUDED.uploaded_at
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Namespace,
		doc.Source,
		doc.MimeType,
		doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Get retrieves a document record by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, namespace, source, mime_type, uploaded_at
		FROM documents
		WHERE id = $1
	`

	var doc domain.Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.Namespace,
		&doc.Source,
		&doc.MimeType,
		&doc.UploadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// ListByNamespace retrieves document records in a namespace
func (s *DocumentStore) ListByNamespace(ctx context.Context, namespace string, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT id, namespace, source, mime_type, uploaded_at
		FROM documents
		WHERE namespace = $1
		ORDER BY uploaded_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, namespace, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Namespace, &doc.Source, &doc.MimeType, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// Delete removes a document record. Chunk records cascade.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Ping verifies the store is reachable
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
