package domain

import (
	"fmt"
	"time"
)

// DefaultNamespace is the vector store namespace used when the caller
// does not supply one.
const DefaultNamespace = "default"

// Document represents one uploaded document for the duration of ingestion.
// After ingestion only its derived chunks persist, in the external vector
// store under the document's namespace.
type Document struct {
	ID         string    `json:"id"`
	Namespace  string    `json:"namespace"`
	Source     string    `json:"source"` // Original filename
	MimeType   string    `json:"mime_type"`
	Text       string    `json:"text"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Chunk represents a contiguous segment of a document's text, the unit of
// embedding and retrieval.
type Chunk struct {
	ID            string    `json:"id"` // "{document_id}:{sequence_index}"
	DocumentID    string    `json:"document_id"`
	Namespace     string    `json:"namespace"`
	Source        string    `json:"source"`
	Content       string    `json:"content"`
	SequenceIndex int       `json:"sequence_index"` // Chunk position within document
	StartChar     int       `json:"start_char"`
	EndChar       int       `json:"end_char"`
	Embedding     []float32 `json:"embedding,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChunkID builds the canonical chunk id for a document and sequence index.
func ChunkID(documentID string, sequenceIndex int) string {
	return fmt.Sprintf("%s:%d", documentID, sequenceIndex)
}

// IngestResult reports the outcome of ingesting one document. Ingestion is
// not transactional: chunks that were upserted before a failure stay in the
// store, and Failed names the ones that did not make it so the caller can
// re-ingest (same document id overwrites).
type IngestResult struct {
	DocumentID string         `json:"document_id"`
	Namespace  string         `json:"namespace"`
	ChunkCount int            `json:"chunk_count"` // Chunks successfully embedded and upserted
	Failed     []ChunkFailure `json:"failed,omitempty"`
}

// ChunkFailure identifies a chunk that could not be embedded or upserted.
type ChunkFailure struct {
	ChunkID       string `json:"chunk_id"`
	SequenceIndex int    `json:"sequence_index"`
	Reason        string `json:"reason"`
}

// Complete reports whether every chunk was ingested.
func (r *IngestResult) Complete() bool {
	return len(r.Failed) == 0
}
