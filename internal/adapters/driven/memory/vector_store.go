// Package memory provides an in-process VectorStore for local development
// and tests where no Pinecone index is available.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Ensure VectorStore implements the port
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore keeps vectors in memory, partitioned by namespace and keyed
// by chunk id. Queries score by cosine similarity. Contents are lost on
// restart; the adapter exists so the full pipeline runs without external
// services.
type VectorStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]driven.VectorEntry
}

// New creates an empty in-memory vector store.
func New() *VectorStore {
	return &VectorStore{
		namespaces: make(map[string]map[string]driven.VectorEntry),
	}
}

// Upsert writes entries into a namespace, overwriting by chunk id.
func (s *VectorStore) Upsert(ctx context.Context, namespace string, entries []driven.VectorEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]driven.VectorEntry, len(entries))
		s.namespaces[namespace] = ns
	}
	for _, e := range entries {
		ns[e.ChunkID] = e
	}
	return nil
}

// Query returns the topK most similar entries by cosine similarity.
func (s *VectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be >= 1: %w", domain.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.Match, 0, len(s.namespaces[namespace]))
	for _, e := range s.namespaces[namespace] {
		matches = append(matches, domain.Match{
			ChunkID:       e.ChunkID,
			DocumentID:    e.DocumentID,
			Namespace:     namespace,
			Source:        e.Source,
			Content:       e.Content,
			SequenceIndex: e.SequenceIndex,
			Score:         cosine(e.Embedding, vector),
		})
	}

	domain.SortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteByDocument removes all entries for a document in a namespace.
func (s *VectorStore) DeleteByDocument(ctx context.Context, namespace, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.namespaces[namespace] {
		if e.DocumentID == documentID {
			delete(s.namespaces[namespace], id)
		}
	}
	return nil
}

// Ping always succeeds; the store lives in-process.
func (s *VectorStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Count returns the number of entries in a namespace.
func (s *VectorStore) Count(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace])
}

// cosine computes cosine similarity over the shared prefix of a and b.
// Zero vectors score zero.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
