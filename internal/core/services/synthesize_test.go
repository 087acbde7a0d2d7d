package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven/mocks"
	"github.com/askdoc-labs/askdoc-core/internal/runtime"
)

// fastRetry keeps retry tests quick.
func fastRetry(attempts int) domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func testMatches() []domain.Match {
	return []domain.Match{
		{ChunkID: "doc-1:0", DocumentID: "doc-1", Source: "handbook.md", Content: "Employees get 25 days of leave.", Score: 0.9},
		{ChunkID: "doc-1:3", DocumentID: "doc-1", Source: "handbook.md", Content: "Leave requests go through the portal.", Score: 0.7},
		{ChunkID: "doc-2:1", DocumentID: "doc-2", Source: "faq.txt", Content: "Carry-over is capped at 5 days.", Score: 0.5},
	}
}

func TestSynthesizer_BuildPrompt(t *testing.T) {
	syn := NewSynthesizer(createTestServices(nil, nil), SynthesizerConfig{}, nil)

	history := []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "earlier question"},
		{Role: domain.RoleAssistant, Content: "earlier answer"},
	}
	matches := testMatches()

	messages, citations := syn.BuildPrompt("How many leave days do I get?", history, matches)

	if messages[0].Role != domain.RoleSystem {
		t.Fatalf("first message role = %s, want system", messages[0].Role)
	}
	for _, m := range matches {
		if !strings.Contains(messages[0].Content, m.Content) {
			t.Errorf("system prompt missing excerpt %q", m.Content)
		}
	}
	last := messages[len(messages)-1]
	if last.Role != domain.RoleUser || last.Content != "How many leave days do I get?" {
		t.Errorf("last message should be the question, got %+v", last)
	}
	if len(messages) != 2+len(history) {
		t.Errorf("expected %d messages, got %d", 2+len(history), len(messages))
	}

	if len(citations) != len(matches) {
		t.Fatalf("expected %d citations, got %d", len(matches), len(citations))
	}
	for i, c := range citations {
		if c.ID != matches[i].ChunkID {
			t.Errorf("citation %d id = %s, want %s", i, c.ID, matches[i].ChunkID)
		}
		if c.Score == nil || *c.Score != matches[i].Score {
			t.Errorf("citation %d score mismatch", i)
		}
		if c.Source != matches[i].Source {
			t.Errorf("citation %d source = %s, want %s", i, c.Source, matches[i].Source)
		}
	}
}

func TestSynthesizer_ContextBudgetDropsLowestScored(t *testing.T) {
	syn := NewSynthesizer(createTestServices(nil, nil), SynthesizerConfig{
		MaxContextChars: 100,
	}, nil)

	matches := []domain.Match{
		{ChunkID: "a:0", Source: "a.txt", Content: strings.Repeat("A", 60), Score: 0.9},
		{ChunkID: "b:0", Source: "b.txt", Content: strings.Repeat("B", 60), Score: 0.8},
		{ChunkID: "c:0", Source: "c.txt", Content: strings.Repeat("C", 60), Score: 0.7},
	}

	messages, citations := syn.BuildPrompt("question", nil, matches)

	if len(citations) != 1 {
		t.Fatalf("expected 1 citation within budget, got %d", len(citations))
	}
	if citations[0].ID != "a:0" {
		t.Errorf("highest scored match should survive, got %s", citations[0].ID)
	}
	if strings.Contains(messages[0].Content, "CCC") {
		t.Error("dropped match leaked into the prompt")
	}
}

func TestSynthesizer_OversizedTopMatchStillIncluded(t *testing.T) {
	syn := NewSynthesizer(createTestServices(nil, nil), SynthesizerConfig{
		MaxContextChars: 50,
	}, nil)

	matches := []domain.Match{
		{ChunkID: "doc-1:0", Source: "big.md", Content: strings.Repeat("x", 200), Score: 0.9},
		{ChunkID: "doc-2:0", Source: "small.md", Content: "short", Score: 0.5},
	}

	messages, citations := syn.BuildPrompt("question", nil, matches)
	// The top match always makes it in, even over budget
	if len(citations) != 1 || citations[0].ID != "doc-1:0" {
		t.Fatalf("expected only the top match cited, got %+v", citations)
	}
	if !strings.Contains(messages[0].Content, matches[0].Content) {
		t.Error("top match content missing from prompt")
	}
	if strings.Contains(messages[0].Content, "short") {
		t.Error("over-budget match must not appear in prompt")
	}
}

func TestSynthesizer_NoMatchesPromptsGeneralKnowledge(t *testing.T) {
	syn := NewSynthesizer(createTestServices(nil, nil), SynthesizerConfig{}, nil)

	messages, citations := syn.BuildPrompt("question", nil, nil)
	if len(citations) != 0 {
		t.Fatalf("expected no citations, got %d", len(citations))
	}
	system := messages[0].Content
	if !strings.Contains(system, "No relevant excerpts were found") {
		t.Error("system prompt missing the no-context note")
	}
	if strings.Contains(system, "Context excerpts:") {
		t.Error("system prompt must not carry an empty excerpt section")
	}
}

func TestSynthesizer_CitationsMatchPromptContents(t *testing.T) {
	syn := NewSynthesizer(createTestServices(nil, nil), SynthesizerConfig{
		MaxContextChars: 70,
	}, nil)

	matches := []domain.Match{
		{ChunkID: "a:0", Source: "a.txt", Content: strings.Repeat("A", 50), Score: 0.9},
		{ChunkID: "b:0", Source: "b.txt", Content: strings.Repeat("B", 50), Score: 0.8},
	}

	messages, citations := syn.BuildPrompt("question", nil, matches)

	// Every citation's content is in the prompt, every excerpt is cited
	cited := make(map[string]bool)
	for _, c := range citations {
		cited[c.ID] = true
	}
	for _, m := range matches {
		inPrompt := strings.Contains(messages[0].Content, m.Content)
		if inPrompt != cited[m.ChunkID] {
			t.Errorf("chunk %s: inPrompt=%v cited=%v", m.ChunkID, inPrompt, cited[m.ChunkID])
		}
	}
}

func TestSynthesizer_CompleteRetriesThenSucceeds(t *testing.T) {
	completion := mocks.NewMockCompletionService()
	completion.SetFailCount(3)
	completion.SetReply("recovered answer")

	syn := NewSynthesizer(createTestServices(nil, completion), SynthesizerConfig{
		Retry: fastRetry(4),
	}, nil)

	text, err := syn.Complete(context.Background(), []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "q"},
	})
	if err != nil {
		t.Fatalf("expected success on attempt 4, got %v", err)
	}
	if text != "recovered answer" {
		t.Errorf("unexpected reply %q", text)
	}
	if completion.Calls() != 4 {
		t.Errorf("expected 4 attempts, got %d", completion.Calls())
	}
}

func TestSynthesizer_CompleteExhaustsRetries(t *testing.T) {
	completion := mocks.NewMockCompletionService()
	completion.SetFailCount(10)

	syn := NewSynthesizer(createTestServices(nil, completion), SynthesizerConfig{
		Retry: fastRetry(3),
	}, nil)

	_, err := syn.Complete(context.Background(), []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "q"},
	})
	if !errors.Is(err, domain.ErrSynthesisFailure) {
		t.Errorf("expected ErrSynthesisFailure, got %v", err)
	}
	if completion.Calls() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", completion.Calls())
	}
}

// timeoutCompleter fails every call with a deadline-style error.
type timeoutCompleter struct{ calls int }

func (c *timeoutCompleter) Complete(ctx context.Context, messages []domain.ConversationTurn, opts driven.CompleteOptions) (string, error) {
	c.calls++
	return "", fmt.Errorf("completion request timed out: %w", domain.ErrTimeout)
}

func (c *timeoutCompleter) Model() string { return "stub" }

func (c *timeoutCompleter) Ping(ctx context.Context) error { return nil }

func (c *timeoutCompleter) Close() error { return nil }

func TestSynthesizer_CompleteKeepsTimeoutKind(t *testing.T) {
	completer := &timeoutCompleter{}
	services := runtime.NewServices()
	services.SetCompletionService(completer)
	syn := NewSynthesizer(services, SynthesizerConfig{
		Retry: fastRetry(2),
	}, nil)

	_, err := syn.Complete(context.Background(), []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "q"},
	})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if errors.Is(err, domain.ErrSynthesisFailure) {
		t.Error("a timeout must not be re-typed as a synthesis failure")
	}
	if got := domain.ErrorCode(err); got != "timeout" {
		t.Errorf("ErrorCode = %q, want %q", got, "timeout")
	}
	if completer.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", completer.calls)
	}
}

func TestSynthesizer_NoCompletionService(t *testing.T) {
	syn := NewSynthesizer(createTestServices(nil, nil), SynthesizerConfig{}, nil)

	_, err := syn.Complete(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSynthesizer_HistoryTruncated(t *testing.T) {
	syn := NewSynthesizer(createTestServices(nil, nil), SynthesizerConfig{}, nil)

	history := make([]domain.ConversationTurn, 20)
	for i := range history {
		history[i] = domain.ConversationTurn{Role: domain.RoleUser, Content: "turn"}
	}

	messages, _ := syn.BuildPrompt("question", history, nil)
	// system + truncated history + question
	want := 2 + domain.DefaultHistoryTurns
	if len(messages) != want {
		t.Errorf("expected %d messages, got %d", want, len(messages))
	}
}
