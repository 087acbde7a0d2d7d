package ai

import (
	"fmt"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Providers supported by the factory.
const (
	ProviderOpenAI = "openai"
)

// Settings configures AI service construction.
type Settings struct {
	Provider        string
	APIKey          string
	BaseURL         string
	EmbeddingModel  string
	CompletionModel string
	Retry           domain.RetryPolicy
}

// Factory creates AI services based on configuration.
type Factory struct{}

// NewFactory creates a new AI service factory.
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings.
// Returns nil service when no provider is configured.
func (f *Factory) CreateEmbeddingService(settings Settings) (driven.EmbeddingService, error) {
	if settings.Provider == "" || settings.APIKey == "" {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.EmbeddingModel, settings.BaseURL, settings.Retry)
	default:
		return nil, fmt.Errorf("unknown AI provider %q: %w", settings.Provider, domain.ErrInvalidConfig)
	}
}

// CreateCompletionService creates a completion service from settings.
// Returns nil service when no provider is configured.
func (f *Factory) CreateCompletionService(settings Settings) (driven.CompletionService, error) {
	if settings.Provider == "" || settings.APIKey == "" {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAICompletion(settings.APIKey, settings.CompletionModel, settings.BaseURL)
	default:
		return nil, fmt.Errorf("unknown AI provider %q: %w", settings.Provider, domain.ErrInvalidConfig)
	}
}
