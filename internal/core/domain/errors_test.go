package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		err  error
		code string
	}{
		{ErrInvalidConfig, "invalid_config"},
		{ErrInvalidArgument, "invalid_argument"},
		{ErrUnsupportedFormat, "unsupported_format"},
		{ErrDocumentTooLarge, "document_too_large"},
		{ErrEmptyQuery, "empty_query"},
		{ErrEmbeddingFailure, "embedding_failure"},
		{ErrVectorStoreFailure, "vector_store_failure"},
		{ErrSynthesisFailure, "synthesis_failure"},
		{ErrTimeout, "timeout"},
		{ErrNotFound, "not_found"},
		{errors.New("something else"), "internal"},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			if got := ErrorCode(tc.err); got != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, got)
			}
		})
	}
}

func TestErrorCode_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("query %q: %w", "", ErrEmptyQuery)
	if got := ErrorCode(wrapped); got != "empty_query" {
		t.Errorf("expected empty_query for wrapped error, got %s", got)
	}
}

func TestEmbeddingError_MatchesSentinel(t *testing.T) {
	err := &EmbeddingError{
		Indices: []int{3, 4, 5},
		Cause:   errors.New("rate limited"),
	}

	if !errors.Is(err, ErrEmbeddingFailure) {
		t.Error("expected EmbeddingError to match ErrEmbeddingFailure")
	}
	if ErrorCode(err) != "embedding_failure" {
		t.Errorf("expected embedding_failure, got %s", ErrorCode(err))
	}

	var embErr *EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatal("expected errors.As to find EmbeddingError")
	}
	if len(embErr.Indices) != 3 {
		t.Errorf("expected 3 failed indices, got %d", len(embErr.Indices))
	}
}

func TestRequestError_CarriesStateAndKind(t *testing.T) {
	err := &RequestError{
		State: StateRetrieving,
		Err:   fmt.Errorf("query: %w", ErrVectorStoreFailure),
	}

	if !errors.Is(err, ErrVectorStoreFailure) {
		t.Error("expected RequestError to unwrap to originating kind")
	}
	if ErrorCode(err) != "vector_store_failure" {
		t.Errorf("expected vector_store_failure, got %s", ErrorCode(err))
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatal("expected errors.As to find RequestError")
	}
	if reqErr.State != StateRetrieving {
		t.Errorf("expected state RETRIEVING, got %s", reqErr.State)
	}
}
