package runtime

import (
	"context"
	"sync"

	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Services holds references to the AI backends.
// Both services can be swapped at runtime (e.g. after reconfiguration)
// and are safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	embeddingService  driven.EmbeddingService
	completionService driven.CompletionService
}

// NewServices creates an empty Services registry.
func NewServices() *Services {
	return &Services{}
}

// EmbeddingService returns the current embedding service (may be nil).
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// CompletionService returns the current completion service (may be nil).
func (s *Services) CompletionService() driven.CompletionService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completionService
}

// EmbeddingAvailable reports whether an embedding backend is configured.
func (s *Services) EmbeddingAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService != nil
}

// CompletionAvailable reports whether a completion backend is configured.
func (s *Services) CompletionAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completionService != nil
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}
	s.embeddingService = svc
}

// SetCompletionService updates the completion service.
// Closes the old service if present.
func (s *Services) SetCompletionService(svc driven.CompletionService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completionService != nil {
		_ = s.completionService.Close()
	}
	s.completionService = svc
}

// Close shuts down both services.
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.completionService != nil {
		_ = s.completionService.Close()
		s.completionService = nil
	}
	return nil
}

// ValidateAndSetEmbedding pings the service before installing it.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetCompletion pings the service before installing it.
func (s *Services) ValidateAndSetCompletion(ctx context.Context, svc driven.CompletionService) error {
	if svc == nil {
		s.SetCompletionService(nil)
		return nil
	}
	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}
	s.SetCompletionService(svc)
	return nil
}
