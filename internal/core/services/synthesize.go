package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-core/internal/runtime"
)

// Synthesis defaults.
const (
	// DefaultMaxContextChars bounds the total excerpt text placed in a
	// prompt. Matches beyond the budget are dropped lowest-score first.
	DefaultMaxContextChars = 6000

	// DefaultTemperature keeps answers grounded in the excerpts.
	DefaultTemperature = 0.2
)

const systemPrompt = `You are a helpful assistant that answers questions using only the provided context excerpts. If the excerpts do not contain the answer, say you don't know rather than guessing. Be concise and factual.`

const noContextNote = `

No relevant excerpts were found for this question. Answer from general knowledge, and say so when you are unsure.`

// SynthesizerConfig tunes prompt assembly and completion calls.
type SynthesizerConfig struct {
	// MaxContextChars bounds total excerpt characters in the prompt.
	// Zero uses DefaultMaxContextChars.
	MaxContextChars int

	// MaxTokens limits the reply length. Zero uses the provider default.
	MaxTokens int

	// Temperature for completion calls. Zero uses DefaultTemperature.
	Temperature float64

	// Retry governs transient completion failures.
	Retry domain.RetryPolicy
}

// Synthesizer assembles a grounded prompt from retrieval matches and
// produces an answer through the completion service. Prompt assembly and
// the completion call are separate steps so the request lifecycle can be
// tracked between them.
type Synthesizer struct {
	services *runtime.Services
	cfg      SynthesizerConfig
	logger   *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(services *runtime.Services, cfg SynthesizerConfig, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = domain.DefaultRetryPolicy()
	}
	return &Synthesizer{services: services, cfg: cfg, logger: logger}
}

// BuildPrompt assembles the conversation sent to the completion provider
// and the citations for the matches whose content made it into the prompt.
// Matches must arrive sorted by descending score; when the context budget
// is exceeded the trailing (lowest scoring) matches are dropped, and only
// the included matches are cited. The highest scoring match is always
// included even when it alone exceeds the budget, so a non-empty match
// list always yields at least one citation.
func (s *Synthesizer) BuildPrompt(question string, history []domain.ConversationTurn, matches []domain.Match) ([]domain.ConversationTurn, []domain.Citation) {
	included := matches
	budget := s.cfg.MaxContextChars
	used := 0
	for i, m := range matches {
		if used+len(m.Content) > budget && i > 0 {
			included = matches[:i]
			break
		}
		used += len(m.Content)
	}

	var sb strings.Builder
	sb.WriteString(systemPrompt)
	if len(included) > 0 {
		sb.WriteString("\n\nContext excerpts:\n")
		for i, m := range included {
			fmt.Fprintf(&sb, "\n[%d] (source: %s)\n%s\n", i+1, m.Source, m.Content)
		}
	} else {
		sb.WriteString(noContextNote)
	}

	messages := make([]domain.ConversationTurn, 0, len(history)+2)
	messages = append(messages, domain.ConversationTurn{Role: domain.RoleSystem, Content: sb.String()})
	messages = append(messages, domain.TruncateHistory(history, domain.DefaultHistoryTurns)...)
	messages = append(messages, domain.ConversationTurn{Role: domain.RoleUser, Content: question})

	citations := make([]domain.Citation, len(included))
	for i, m := range included {
		score := m.Score
		citations[i] = domain.Citation{
			ID:     m.ChunkID,
			Score:  &score,
			Source: m.Source,
		}
	}

	if len(included) < len(matches) {
		s.logger.Debug("context budget dropped matches",
			"included", len(included),
			"dropped", len(matches)-len(included),
		)
	}

	return messages, citations
}

// Complete calls the completion provider with retry on transient failure.
// Exhausted retries surface as ErrSynthesisFailure.
func (s *Synthesizer) Complete(ctx context.Context, messages []domain.ConversationTurn) (string, error) {
	completer := s.services.CompletionService()
	if completer == nil {
		return "", fmt.Errorf("completion service not configured: %w", domain.ErrInvalidConfig)
	}

	opts := driven.CompleteOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		reply, err := completer.Complete(ctx, messages, opts)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if s.cfg.Retry.Exhausted(attempt) || ctx.Err() != nil {
			break
		}

		delay := s.cfg.Retry.Delay(attempt)
		s.logger.Warn("completion failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("completion cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	if errors.Is(lastErr, domain.ErrTimeout) {
		return "", fmt.Errorf("completion timed out: %w", lastErr)
	}
	return "", fmt.Errorf("completion failed after retries: %v: %w", lastErr, domain.ErrSynthesisFailure)
}

// Synthesize builds the prompt and completes it in one call.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, history []domain.ConversationTurn, matches []domain.Match) (*domain.Answer, error) {
	messages, citations := s.BuildPrompt(question, history, matches)
	text, err := s.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	return &domain.Answer{Text: text, Citations: citations}, nil
}
