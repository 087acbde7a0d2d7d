package mocks

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
)

// MockEmbeddingService is a mock implementation of EmbeddingService for
// testing. Safe for concurrent use; the ingest pipeline embeds batches in
// parallel.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string
	failNext   bool
	failCount  int // fail this many calls, then succeed
	calls      int
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 8,
		model:      "mock-embedding-model",
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	err := m.maybeFail(texts)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.generateEmbedding(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	err := m.maybeFail([]string{query})
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.generateEmbedding(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

func (m *MockEmbeddingService) maybeFail(texts []string) error {
	if m.failNext {
		m.failNext = false
		return m.embeddingError(texts)
	}
	if m.failCount > 0 {
		m.failCount--
		return m.embeddingError(texts)
	}
	return nil
}

func (m *MockEmbeddingService) embeddingError(texts []string) error {
	indices := make([]int, len(texts))
	for i := range indices {
		indices[i] = i
	}
	return &domain.EmbeddingError{Indices: indices, Cause: context.DeadlineExceeded}
}

// generateEmbedding generates a deterministic embedding based on text hash.
// Texts sharing words produce correlated vectors, so similarity queries in
// tests behave plausibly.
func (m *MockEmbeddingService) generateEmbedding(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, m.dimensions)
	for i := range embedding {
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000) / 1000.0
	}
	return embedding
}

// Helper methods for testing

func (m *MockEmbeddingService) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}

// SetFailCount makes the next n calls fail before succeeding.
func (m *MockEmbeddingService) SetFailCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCount = n
}

func (m *MockEmbeddingService) SetDimensions(dim int) {
	m.dimensions = dim
}

// Calls returns the number of Embed/EmbedQuery invocations.
func (m *MockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
