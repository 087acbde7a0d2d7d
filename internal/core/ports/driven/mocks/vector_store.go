package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// MockVectorStore is an in-memory mock of VectorStore for testing.
// It keeps entries per namespace keyed by chunk id and scores queries by
// dot product, which is enough for deterministic ranking assertions.
type MockVectorStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]driven.VectorEntry
	failUpsert bool
	failQuery  bool
}

// NewMockVectorStore creates a new MockVectorStore
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		namespaces: make(map[string]map[string]driven.VectorEntry),
	}
}

func (m *MockVectorStore) Upsert(ctx context.Context, namespace string, entries []driven.VectorEntry) error {
	if m.failUpsert {
		return fmt.Errorf("mock upsert: %w", domain.ErrVectorStoreFailure)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]driven.VectorEntry)
		m.namespaces[namespace] = ns
	}
	for _, e := range entries {
		ns[e.ChunkID] = e
	}
	return nil
}

func (m *MockVectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be >= 1: %w", domain.ErrInvalidArgument)
	}
	if m.failQuery {
		return nil, fmt.Errorf("mock query: %w", domain.ErrVectorStoreFailure)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]domain.Match, 0, len(m.namespaces[namespace]))
	for _, e := range m.namespaces[namespace] {
		matches = append(matches, domain.Match{
			ChunkID:       e.ChunkID,
			DocumentID:    e.DocumentID,
			Namespace:     namespace,
			Source:        e.Source,
			Content:       e.Content,
			SequenceIndex: e.SequenceIndex,
			Score:         dot(e.Embedding, vector),
		})
	}

	domain.SortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MockVectorStore) DeleteByDocument(ctx context.Context, namespace, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.namespaces[namespace] {
		if e.DocumentID == documentID {
			delete(m.namespaces[namespace], id)
		}
	}
	return nil
}

func (m *MockVectorStore) Ping(ctx context.Context) error {
	return nil
}

// Helper methods for testing

// Count returns the number of entries in a namespace.
func (m *MockVectorStore) Count(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.namespaces[namespace])
}

// Entry returns the stored entry for a chunk id, if any.
func (m *MockVectorStore) Entry(namespace, chunkID string) (driven.VectorEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.namespaces[namespace][chunkID]
	return e, ok
}

func (m *MockVectorStore) SetFailUpsert(fail bool) {
	m.failUpsert = fail
}

func (m *MockVectorStore) SetFailQuery(fail bool) {
	m.failQuery = fail
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
