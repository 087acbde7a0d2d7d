package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL.
// Rows record chunk spans for inspection; embeddings stay in the vector
// store.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// SaveBatch saves chunks in one transaction, overwriting on id conflict.
func (s *ChunkStore) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO chunks (id, document_id, namespace, source, content, sequence_index, start_char, end_char, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				sequence_index = EXCLUDED.sequence_index,
				start_char = EXCLUDED.start_char,
				end_char = EXCLUDED.end_char,
				created_at = EXCLUDED.created_at
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			_, err = stmt.ExecContext(ctx,
				chunk.ID,
				chunk.DocumentID,
				chunk.Namespace,
				chunk.Source,
				chunk.Content,
				chunk.SequenceIndex,
				chunk.StartChar,
				chunk.EndChar,
				chunk.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("save chunk %s: %w", chunk.ID, err)
			}
		}
		return nil
	})
}

// GetByDocument retrieves all chunks for a document ordered by sequence index
func (s *ChunkStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	query := `
		SELECT id, document_id, namespace, source, content, sequence_index, start_char, end_char, created_at
		FROM chunks
		WHERE document_id = $1
		ORDER BY sequence_index
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Namespace,
			&chunk.Source,
			&chunk.Content,
			&chunk.SequenceIndex,
			&chunk.StartChar,
			&chunk.EndChar,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// DeleteByDocument removes all chunks for a document
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}
