package driving

import (
	"context"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
)

// UploadRequest is the ingestion entry point payload. Text extraction from
// binary formats happens outside the core; Text is already plain text with
// a declared MIME type.
type UploadRequest struct {
	Text      string `json:"text"`
	Source    string `json:"source"` // Original filename
	MimeType  string `json:"mime_type"`
	Namespace string `json:"namespace,omitempty"`

	// DocumentID forces a specific id, enabling idempotent re-ingestion.
	// Empty means a fresh id is generated.
	DocumentID string `json:"document_id,omitempty"`
}

// IngestService turns an uploaded document into indexed chunks.
type IngestService interface {
	// Ingest validates, chunks, embeds and upserts one document.
	// Partial failures are reported in the result, not as an error;
	// the error return is reserved for requests that were rejected
	// before any side effect (bad format, size cap, empty text).
	Ingest(ctx context.Context, req UploadRequest) (*domain.IngestResult, error)
}
