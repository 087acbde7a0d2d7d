package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven/mocks"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driving"
)

type documentFixture struct {
	svc        driving.DocumentService
	docStore   *mocks.MockDocumentStore
	chunkStore *mocks.MockChunkStore
	vectors    *mocks.MockVectorStore
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	f := &documentFixture{
		docStore:   mocks.NewMockDocumentStore(),
		chunkStore: mocks.NewMockChunkStore(),
		vectors:    mocks.NewMockVectorStore(),
	}
	f.svc = NewDocumentService(f.docStore, f.chunkStore, f.vectors, nil)
	return f
}

func (f *documentFixture) seedDocument(t *testing.T, id, namespace string, chunkCount int) {
	t.Helper()
	ctx := context.Background()

	err := f.docStore.Save(ctx, &domain.Document{
		ID:         id,
		Namespace:  namespace,
		Source:     id + ".txt",
		MimeType:   "text/plain",
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}

	chunks := make([]*domain.Chunk, chunkCount)
	entries := make([]driven.VectorEntry, chunkCount)
	for i := 0; i < chunkCount; i++ {
		chunks[i] = &domain.Chunk{
			ID:            domain.ChunkID(id, i),
			DocumentID:    id,
			Namespace:     namespace,
			Content:       "chunk content",
			SequenceIndex: i,
		}
		entries[i] = driven.VectorEntry{
			ChunkID:    chunks[i].ID,
			DocumentID: id,
			Embedding:  []float32{1, 0, 0},
		}
	}
	if err := f.chunkStore.SaveBatch(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	if err := f.vectors.Upsert(ctx, namespace, entries); err != nil {
		t.Fatal(err)
	}
}

func TestDocumentService_GetAndList(t *testing.T) {
	f := newDocumentFixture(t)
	f.seedDocument(t, "doc-a", domain.DefaultNamespace, 2)
	f.seedDocument(t, "doc-b", domain.DefaultNamespace, 1)
	f.seedDocument(t, "doc-c", "other", 1)

	doc, err := f.svc.Get(context.Background(), "doc-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Source != "doc-a.txt" {
		t.Errorf("unexpected source %s", doc.Source)
	}

	docs, err := f.svc.ListByNamespace(context.Background(), domain.DefaultNamespace, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents in default namespace, got %d", len(docs))
	}
}

func TestDocumentService_GetNotFound(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentService_GetChunks(t *testing.T) {
	f := newDocumentFixture(t)
	f.seedDocument(t, "doc-a", domain.DefaultNamespace, 3)

	chunks, err := f.svc.GetChunks(context.Background(), "doc-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.SequenceIndex != i {
			t.Errorf("chunk %d out of order: sequence %d", i, chunk.SequenceIndex)
		}
	}
}

func TestDocumentService_Delete(t *testing.T) {
	f := newDocumentFixture(t)
	f.seedDocument(t, "doc-a", domain.DefaultNamespace, 2)
	f.seedDocument(t, "doc-b", domain.DefaultNamespace, 1)

	if err := f.svc.Delete(context.Background(), domain.DefaultNamespace, "doc-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), "doc-a"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("document record should be gone")
	}
	chunks, _ := f.svc.GetChunks(context.Background(), "doc-a")
	if len(chunks) != 0 {
		t.Errorf("chunk records should be gone, found %d", len(chunks))
	}
	if got := f.vectors.Count(domain.DefaultNamespace); got != 1 {
		t.Errorf("only doc-b's vector should remain, found %d entries", got)
	}
}
