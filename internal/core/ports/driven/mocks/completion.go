package mocks

import (
	"context"
	"fmt"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// MockCompletionService is a mock implementation of CompletionService for
// testing. It records every prompt it receives and can fail a configured
// number of calls before succeeding, for retry-path tests.
type MockCompletionService struct {
	reply     string
	failCount int
	calls     []([]domain.ConversationTurn)
}

// NewMockCompletionService creates a new MockCompletionService
func NewMockCompletionService() *MockCompletionService {
	return &MockCompletionService{
		reply: "mock answer",
	}
}

func (m *MockCompletionService) Complete(ctx context.Context, messages []domain.ConversationTurn, opts driven.CompleteOptions) (string, error) {
	copied := make([]domain.ConversationTurn, len(messages))
	copy(copied, messages)
	m.calls = append(m.calls, copied)

	if m.failCount > 0 {
		m.failCount--
		return "", fmt.Errorf("mock completion unavailable")
	}
	return m.reply, nil
}

func (m *MockCompletionService) Model() string {
	return "mock-chat-model"
}

func (m *MockCompletionService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockCompletionService) Close() error {
	return nil
}

// Helper methods for testing

// SetReply sets the text returned by successful calls.
func (m *MockCompletionService) SetReply(reply string) {
	m.reply = reply
}

// SetFailCount makes the next n calls fail before succeeding.
func (m *MockCompletionService) SetFailCount(n int) {
	m.failCount = n
}

// Calls returns the number of Complete invocations.
func (m *MockCompletionService) Calls() int {
	return len(m.calls)
}

// LastPrompt returns the messages of the most recent call, or nil.
func (m *MockCompletionService) LastPrompt() []domain.ConversationTurn {
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}
