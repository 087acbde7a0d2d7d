package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driving"
	"github.com/askdoc-labs/askdoc-core/internal/runtime"
	"github.com/askdoc-labs/askdoc-core/internal/worker"
)

// Ensure ingestService implements IngestService
var _ driving.IngestService = (*ingestService)(nil)

// Ingestion defaults.
const (
	// DefaultEmbedBatchSize is the number of chunks embedded per provider call.
	DefaultEmbedBatchSize = 64

	// DefaultMaxDocumentBytes caps uploaded document size (10 MiB).
	DefaultMaxDocumentBytes = 10 << 20
)

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	// EmbedBatchSize is the number of chunks per embedding call.
	EmbedBatchSize int

	// MaxDocumentBytes rejects documents larger than this before any
	// side effect. Zero uses DefaultMaxDocumentBytes.
	MaxDocumentBytes int
}

// ingestService implements the IngestService interface.
// The pipeline is: validate -> normalise -> chunk -> embed (parallel
// batches) -> upsert. Batches are independent: one failing batch does not
// roll back the others, and the result names the chunks that were lost.
type ingestService struct {
	registry      driven.NormaliserRegistry
	pipeline      driven.PostProcessorPipeline
	vectorStore   driven.VectorStore
	documentStore driven.DocumentStore // optional bookkeeping
	chunkStore    driven.ChunkStore    // optional bookkeeping
	services      *runtime.Services
	pool          *worker.Pool

	batchSize int
	maxBytes  int
	logger    *slog.Logger
}

// NewIngestService creates a new IngestService.
// documentStore and chunkStore may be nil; bookkeeping is best-effort and
// never fails an ingest.
func NewIngestService(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	vectorStore driven.VectorStore,
	documentStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	services *runtime.Services,
	pool *worker.Pool,
	cfg IngestConfig,
	logger *slog.Logger,
) driving.IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	maxBytes := cfg.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}

	return &ingestService{
		registry:      registry,
		pipeline:      pipeline,
		vectorStore:   vectorStore,
		documentStore: documentStore,
		chunkStore:    chunkStore,
		services:      services,
		pool:          pool,
		batchSize:     batchSize,
		maxBytes:      maxBytes,
		logger:        logger,
	}
}

// Ingest validates, chunks, embeds and upserts one document.
func (s *ingestService) Ingest(ctx context.Context, req driving.UploadRequest) (*domain.IngestResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("document text is empty: %w", domain.ErrInvalidArgument)
	}
	if len(req.Text) > s.maxBytes {
		return nil, fmt.Errorf("document is %d bytes, limit %d: %w",
			len(req.Text), s.maxBytes, domain.ErrDocumentTooLarge)
	}

	normaliser := s.registry.Get(req.MimeType)
	if normaliser == nil {
		return nil, fmt.Errorf("no normaliser for %q: %w", req.MimeType, domain.ErrUnsupportedFormat)
	}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("embedding service not configured: %w", domain.ErrInvalidConfig)
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	docID := req.DocumentID
	if docID == "" {
		docID = uuid.NewString()
	}

	normalised := normaliser.Normalise(req.Text, req.MimeType)
	pieces := s.pipeline.Process(normalised)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("document has no indexable content: %w", domain.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	chunks := make([]*domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &domain.Chunk{
			ID:            domain.ChunkID(docID, i),
			DocumentID:    docID,
			Namespace:     namespace,
			Source:        req.Source,
			Content:       piece.Content,
			SequenceIndex: i,
			StartChar:     piece.StartOffset,
			EndChar:       piece.EndOffset,
			CreatedAt:     now,
		}
	}

	s.logger.Info("ingesting document",
		"document_id", docID,
		"namespace", namespace,
		"source", req.Source,
		"chunks", len(chunks),
	)

	result := &domain.IngestResult{
		DocumentID: docID,
		Namespace:  namespace,
	}

	batches := splitBatches(chunks, s.batchSize)
	outcomes := worker.Run(ctx, s.pool, len(batches), func(ctx context.Context, index int) (int, error) {
		return s.ingestBatch(ctx, namespace, batches[index])
	})

	for i, outcome := range outcomes {
		if outcome.Err == nil {
			result.ChunkCount += outcome.Value
			continue
		}
		for _, chunk := range batches[i] {
			result.Failed = append(result.Failed, domain.ChunkFailure{
				ChunkID:       chunk.ID,
				SequenceIndex: chunk.SequenceIndex,
				Reason:        outcome.Err.Error(),
			})
		}
	}

	s.recordBookkeeping(ctx, &domain.Document{
		ID:         docID,
		Namespace:  namespace,
		Source:     req.Source,
		MimeType:   req.MimeType,
		UploadedAt: now,
	}, chunks)

	if !result.Complete() {
		s.logger.Warn("ingest finished with failures",
			"document_id", docID,
			"indexed", result.ChunkCount,
			"failed", len(result.Failed),
		)
	}

	return result, nil
}

// ingestBatch embeds one batch of chunks and upserts it into the vector
// store. Returns the number of chunks indexed.
func (s *ingestService) ingestBatch(ctx context.Context, namespace string, batch []*domain.Chunk) (int, error) {
	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return 0, fmt.Errorf("embedding service not configured: %w", domain.ErrInvalidConfig)
	}

	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(batch) {
		return 0, fmt.Errorf("embedding returned %d vectors for %d inputs: %w",
			len(vectors), len(batch), domain.ErrEmbeddingFailure)
	}

	entries := make([]driven.VectorEntry, len(batch))
	for i, chunk := range batch {
		chunk.Embedding = vectors[i]
		entries[i] = driven.VectorEntry{
			ChunkID:       chunk.ID,
			Embedding:     vectors[i],
			DocumentID:    chunk.DocumentID,
			Source:        chunk.Source,
			SequenceIndex: chunk.SequenceIndex,
			Content:       chunk.Content,
		}
	}

	if err := s.vectorStore.Upsert(ctx, namespace, entries); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// recordBookkeeping saves document and chunk records if stores are
// configured. Failures are logged, never propagated: the vector store is
// the source of truth for retrieval.
func (s *ingestService) recordBookkeeping(ctx context.Context, doc *domain.Document, chunks []*domain.Chunk) {
	if s.documentStore != nil {
		if err := s.documentStore.Save(ctx, doc); err != nil {
			s.logger.Warn("failed to save document record", "document_id", doc.ID, "error", err)
		}
	}
	if s.chunkStore != nil {
		if err := s.chunkStore.SaveBatch(ctx, chunks); err != nil {
			s.logger.Warn("failed to save chunk records", "document_id", doc.ID, "error", err)
		}
	}
}

// splitBatches partitions chunks into groups of at most size.
func splitBatches(chunks []*domain.Chunk, size int) [][]*domain.Chunk {
	if size <= 0 {
		size = DefaultEmbedBatchSize
	}
	var batches [][]*domain.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}
