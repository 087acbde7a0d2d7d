// Package pinecone adapts the Pinecone vector database to the VectorStore
// port over its REST API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Ensure VectorStore implements the port
var _ driven.VectorStore = (*VectorStore)(nil)

// upsertBatchSize bounds vectors per upsert request, per Pinecone limits.
const upsertBatchSize = 100

// VectorStore implements the VectorStore port against a Pinecone index.
// The host is the index-specific endpoint (e.g.
// https://my-index-abc123.svc.us-east-1-aws.pinecone.io).
type VectorStore struct {
	host   string
	apiKey string
	client *http.Client
}

// New creates a Pinecone-backed vector store.
func New(host, apiKey string) (*VectorStore, error) {
	if host == "" {
		return nil, fmt.Errorf("pinecone host is required: %w", domain.ErrInvalidConfig)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone API key is required: %w", domain.ErrInvalidConfig)
	}
	return &VectorStore{
		host:   host,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// vectorMetadata is the per-vector payload carried alongside embeddings.
// Retrieval reads matches straight from the index, no secondary lookup.
type vectorMetadata struct {
	DocumentID    string `json:"document_id"`
	Source        string `json:"source"`
	SequenceIndex int    `json:"sequence_index"`
	Content       string `json:"content"`
}

type upsertVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata vectorMetadata `json:"metadata"`
}

type upsertRequest struct {
	Vectors   []upsertVector `json:"vectors"`
	Namespace string         `json:"namespace,omitempty"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata vectorMetadata `json:"metadata"`
	} `json:"matches"`
	Namespace string `json:"namespace"`
}

type deleteRequest struct {
	Filter    map[string]any `json:"filter,omitempty"`
	Namespace string         `json:"namespace,omitempty"`
}

// Upsert writes entries into a namespace. Pinecone upserts are idempotent
// by vector id.
func (s *VectorStore) Upsert(ctx context.Context, namespace string, entries []driven.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	for start := 0; start < len(entries); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(entries) {
			end = len(entries)
		}

		vectors := make([]upsertVector, 0, end-start)
		for _, e := range entries[start:end] {
			vectors = append(vectors, upsertVector{
				ID:     e.ChunkID,
				Values: e.Embedding,
				Metadata: vectorMetadata{
					DocumentID:    e.DocumentID,
					Source:        e.Source,
					SequenceIndex: e.SequenceIndex,
					Content:       e.Content,
				},
			})
		}

		if err := s.post(ctx, "/vectors/upsert", upsertRequest{
			Vectors:   vectors,
			Namespace: namespace,
		}, nil); err != nil {
			return failure("upsert", err)
		}
	}
	return nil
}

// Query returns the topK most similar entries in the namespace.
func (s *VectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be >= 1: %w", domain.ErrInvalidArgument)
	}

	var resp queryResponse
	err := s.post(ctx, "/query", queryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       namespace,
		IncludeMetadata: true,
	}, &resp)
	if err != nil {
		return nil, failure("query", err)
	}

	matches := make([]domain.Match, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = domain.Match{
			ChunkID:       m.ID,
			DocumentID:    m.Metadata.DocumentID,
			Namespace:     namespace,
			Source:        m.Metadata.Source,
			Content:       m.Metadata.Content,
			SequenceIndex: m.Metadata.SequenceIndex,
			Score:         m.Score,
		}
	}
	return matches, nil
}

// DeleteByDocument removes all vectors for a document via metadata filter.
func (s *VectorStore) DeleteByDocument(ctx context.Context, namespace, documentID string) error {
	err := s.post(ctx, "/vectors/delete", deleteRequest{
		Filter:    map[string]any{"document_id": map[string]any{"$eq": documentID}},
		Namespace: namespace,
	}, nil)
	if err != nil {
		return failure("delete", err)
	}
	return nil
}

// Ping verifies the index is reachable.
func (s *VectorStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.host+"/describe_index_stats", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return failure("ping", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pinecone ping returned status %d: %w", resp.StatusCode, domain.ErrVectorStoreFailure)
	}
	return nil
}

// post sends a JSON request and decodes the response into out when non-nil.
func (s *VectorStore) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// failure types a transport error. Deadline expiries surface as
// ErrTimeout, everything else as ErrVectorStoreFailure.
func failure(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("pinecone %s timed out: %v: %w", op, err, domain.ErrTimeout)
	}
	return fmt.Errorf("pinecone %s: %v: %w", op, err, domain.ErrVectorStoreFailure)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
