package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven/mocks"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driving"
	"github.com/askdoc-labs/askdoc-core/internal/normalisers"
	"github.com/askdoc-labs/askdoc-core/internal/postprocessors"
	"github.com/askdoc-labs/askdoc-core/internal/runtime"
	"github.com/askdoc-labs/askdoc-core/internal/worker"
)

// createTestServices creates runtime services for testing
func createTestServices(embedding *mocks.MockEmbeddingService, completion *mocks.MockCompletionService) *runtime.Services {
	services := runtime.NewServices()
	if embedding != nil {
		services.SetEmbeddingService(embedding)
	}
	if completion != nil {
		services.SetCompletionService(completion)
	}
	return services
}

type ingestFixture struct {
	svc         driving.IngestService
	embedding   *mocks.MockEmbeddingService
	vectorStore *mocks.MockVectorStore
	docStore    *mocks.MockDocumentStore
	chunkStore  *mocks.MockChunkStore
}

func newIngestFixture(t *testing.T, cfg IngestConfig) *ingestFixture {
	t.Helper()

	f := &ingestFixture{
		embedding:   mocks.NewMockEmbeddingService(),
		vectorStore: mocks.NewMockVectorStore(),
		docStore:    mocks.NewMockDocumentStore(),
		chunkStore:  mocks.NewMockChunkStore(),
	}
	f.svc = NewIngestService(
		normalisers.DefaultRegistry(),
		postprocessors.DefaultPipeline(),
		f.vectorStore,
		f.docStore,
		f.chunkStore,
		createTestServices(f.embedding, nil),
		worker.NewPool(2, nil),
		cfg,
		nil,
	)
	return f
}

func TestIngestService_Ingest(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})

	result, err := f.svc.Ingest(context.Background(), driving.UploadRequest{
		Text:     "Go is a statically typed language. It compiles quickly.",
		Source:   "go.txt",
		MimeType: "text/plain",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DocumentID == "" {
		t.Error("expected a generated document id")
	}
	if result.Namespace != domain.DefaultNamespace {
		t.Errorf("expected default namespace, got %s", result.Namespace)
	}
	if !result.Complete() {
		t.Errorf("expected complete ingest, failed: %v", result.Failed)
	}
	if result.ChunkCount == 0 {
		t.Error("expected at least one chunk")
	}
	if got := f.vectorStore.Count(domain.DefaultNamespace); got != result.ChunkCount {
		t.Errorf("vector store has %d entries, result says %d", got, result.ChunkCount)
	}

	// Bookkeeping records saved
	doc, err := f.docStore.Get(context.Background(), result.DocumentID)
	if err != nil {
		t.Fatalf("document record not saved: %v", err)
	}
	if doc.Source != "go.txt" || doc.Text != "" {
		t.Errorf("unexpected record: source=%q text=%q", doc.Source, doc.Text)
	}
	chunks, _ := f.chunkStore.GetByDocument(context.Background(), result.DocumentID)
	if len(chunks) != result.ChunkCount {
		t.Errorf("chunk store has %d records, want %d", len(chunks), result.ChunkCount)
	}
}

func TestIngestService_ChunkIDFormat(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})

	result, err := f.svc.Ingest(context.Background(), driving.UploadRequest{
		Text:       "Some content for the chunk id check.",
		Source:     "ids.txt",
		MimeType:   "text/plain",
		DocumentID: "doc-42",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DocumentID != "doc-42" {
		t.Errorf("expected forced document id, got %s", result.DocumentID)
	}
	if _, ok := f.vectorStore.Entry(domain.DefaultNamespace, "doc-42:0"); !ok {
		t.Error("expected chunk id doc-42:0 in vector store")
	}
}

func TestIngestService_Reingest(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})
	ctx := context.Background()

	req := driving.UploadRequest{
		Text:       "Same document ingested twice.",
		Source:     "twice.txt",
		MimeType:   "text/plain",
		DocumentID: "doc-again",
	}

	first, err := f.svc.Ingest(ctx, req)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := f.svc.Ingest(ctx, req)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if first.ChunkCount != second.ChunkCount {
		t.Errorf("chunk counts differ: %d vs %d", first.ChunkCount, second.ChunkCount)
	}
	// Upsert overwrites, no duplicates
	if got := f.vectorStore.Count(domain.DefaultNamespace); got != first.ChunkCount {
		t.Errorf("expected %d entries after re-ingest, got %d", first.ChunkCount, got)
	}
}

func TestIngestService_RejectsBeforeSideEffects(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{MaxDocumentBytes: 100})

	cases := []struct {
		name    string
		req     driving.UploadRequest
		wantErr error
	}{
		{
			"empty text",
			driving.UploadRequest{Text: "   \n ", Source: "e.txt", MimeType: "text/plain"},
			domain.ErrInvalidArgument,
		},
		{
			"oversized",
			driving.UploadRequest{Text: strings.Repeat("x", 101), Source: "big.txt", MimeType: "text/plain"},
			domain.ErrDocumentTooLarge,
		},
		{
			"unsupported format",
			driving.UploadRequest{Text: "binary stuff", Source: "a.xlsx", MimeType: "application/vnd.ms-excel"},
			domain.ErrUnsupportedFormat,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Ingest(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if got := f.vectorStore.Count(domain.DefaultNamespace); got != 0 {
		t.Errorf("rejected requests must not write to the store, found %d entries", got)
	}
}

func TestIngestService_PartialFailureReported(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{EmbedBatchSize: 1})

	// First embedding call fails, the rest succeed. With batch size 1 and
	// sentence preservation this loses exactly one batch.
	f.embedding.SetFailCount(1)

	text := strings.Repeat("A sentence that fills its own chunk comfortably with room to spare in every line. ", 40)
	result, err := f.svc.Ingest(context.Background(), driving.UploadRequest{
		Text:     text,
		Source:   "partial.txt",
		MimeType: "text/plain",
	})
	if err != nil {
		t.Fatalf("partial failure should not be an error: %v", err)
	}
	if result.Complete() {
		t.Fatal("expected failed chunks in the result")
	}
	if len(result.Failed) == 0 {
		t.Fatal("expected at least one chunk failure")
	}
	for _, fail := range result.Failed {
		if fail.ChunkID == "" || fail.Reason == "" {
			t.Errorf("failure missing detail: %+v", fail)
		}
	}
	if result.ChunkCount == 0 {
		t.Error("expected some chunks to succeed alongside the failures")
	}
	if got := f.vectorStore.Count(domain.DefaultNamespace); got != result.ChunkCount {
		t.Errorf("store count %d does not match reported %d", got, result.ChunkCount)
	}
}

func TestIngestService_NoEmbeddingService(t *testing.T) {
	f := &ingestFixture{vectorStore: mocks.NewMockVectorStore()}
	svc := NewIngestService(
		normalisers.DefaultRegistry(),
		postprocessors.DefaultPipeline(),
		f.vectorStore,
		nil,
		nil,
		createTestServices(nil, nil),
		worker.NewPool(1, nil),
		IngestConfig{},
		nil,
	)

	_, err := svc.Ingest(context.Background(), driving.UploadRequest{
		Text:     "No backend configured.",
		Source:   "n.txt",
		MimeType: "text/plain",
	})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestIngestService_NamespaceIsolation(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, driving.UploadRequest{
		Text: "Tenant A data.", Source: "a.txt", MimeType: "text/plain", Namespace: "tenant-a",
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Ingest(ctx, driving.UploadRequest{
		Text: "Tenant B data.", Source: "b.txt", MimeType: "text/plain", Namespace: "tenant-b",
	})
	if err != nil {
		t.Fatal(err)
	}

	if f.vectorStore.Count("tenant-a") == 0 || f.vectorStore.Count("tenant-b") == 0 {
		t.Error("expected entries in both namespaces")
	}
	if f.vectorStore.Count(domain.DefaultNamespace) != 0 {
		t.Error("default namespace should be empty")
	}
}
