package driven

import (
	"context"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
)

// CompletionService produces answer text from an assembled prompt.
// Implementations make exactly one provider call per Complete invocation;
// retry policy lives with the caller so it can be fault-injected in tests.
type CompletionService interface {
	// Complete sends the conversation to the model and returns the
	// assistant's reply. Messages follow the provider chat convention:
	// an optional system turn first, then user/assistant turns in order.
	Complete(ctx context.Context, messages []domain.ConversationTurn, opts CompleteOptions) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the completion service is reachable
	Ping(ctx context.Context) error

	// Close releases resources held by the completion service
	Close() error
}

// CompleteOptions tunes a single completion call.
type CompleteOptions struct {
	// MaxTokens limits the reply length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64
}
