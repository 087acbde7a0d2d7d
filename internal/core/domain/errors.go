package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrInvalidConfig indicates a component was constructed with bad configuration
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidArgument indicates a caller-supplied argument is out of range
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedFormat indicates the document's declared content type is not recognised
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrDocumentTooLarge indicates the raw text exceeds the configured ingestion cap
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrEmptyQuery indicates the query text is blank after trimming
	ErrEmptyQuery = errors.New("empty query")

	// ErrEmbeddingFailure indicates the embedding provider failed after retries
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrVectorStoreFailure indicates the vector store rejected an upsert or query
	ErrVectorStoreFailure = errors.New("vector store failure")

	// ErrSynthesisFailure indicates the completion provider failed after retries
	ErrSynthesisFailure = errors.New("synthesis failure")

	// ErrTimeout indicates an external call exceeded its deadline
	ErrTimeout = errors.New("timeout")

	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")
)

// ErrorCode returns a stable machine-readable code for an error, so callers
// can distinguish invalid input from dependency failures from retryable
// conditions. Unrecognised errors map to "internal".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrDocumentTooLarge):
		return "document_too_large"
	case errors.Is(err, ErrEmptyQuery):
		return "empty_query"
	case errors.Is(err, ErrEmbeddingFailure):
		return "embedding_failure"
	case errors.Is(err, ErrVectorStoreFailure):
		return "vector_store_failure"
	case errors.Is(err, ErrSynthesisFailure):
		return "synthesis_failure"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// EmbeddingError reports a permanent embedding failure for a batch.
// Indices identifies the positions (in the caller's input slice) whose
// texts were not embedded, so the caller can retry only those.
type EmbeddingError struct {
	Indices []int
	Cause   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for %d input(s): %v", len(e.Indices), e.Cause)
}

// Unwrap makes the error match ErrEmbeddingFailure via errors.Is.
func (e *EmbeddingError) Unwrap() error {
	return ErrEmbeddingFailure
}

// RequestError carries the chat request state in which a failure occurred
// together with the originating error kind.
type RequestError struct {
	State RequestState
	Err   error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("chat request failed in state %s: %v", e.State, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
