package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driving"
)

// Ensure chatService implements ChatService
var _ driving.ChatService = (*chatService)(nil)

// Canned reply for requests that never reach the completion provider.
const (
	smallTalkReply = "Hello! Upload some documents and ask me anything about their contents."
)

// smallTalkPhrases are greetings answered without retrieval or synthesis.
var smallTalkPhrases = map[string]struct{}{
	"hi":             {},
	"hello":          {},
	"hey":            {},
	"yo":             {},
	"howdy":          {},
	"sup":            {},
	"thanks":         {},
	"thank you":      {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
	"how are you":    {},
	"whats up":       {},
	"what's up":      {},
}

// chatService implements the ChatService interface.
// A request moves through RECEIVED -> EMBEDDING_QUERY -> RETRIEVING ->
// BUILDING_PROMPT -> COMPLETING -> DONE; any failure carries the state it
// happened in so callers can tell a retrieval outage from a synthesis one.
type chatService struct {
	retriever   driving.Retriever
	synthesizer *Synthesizer
	logger      *slog.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(retriever driving.Retriever, synthesizer *Synthesizer, logger *slog.Logger) driving.ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &chatService{
		retriever:   retriever,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Ask answers a question from ingested document content.
func (s *chatService) Ask(ctx context.Context, req domain.ChatRequest) (*domain.Answer, error) {
	start := time.Now()
	state := domain.StateReceived

	fail := func(err error) (*domain.Answer, error) {
		s.logger.Warn("chat request failed",
			"state", state,
			"took", time.Since(start),
			"error", err,
		)
		return nil, &domain.RequestError{State: state, Err: err}
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return fail(domain.ErrEmptyQuery)
	}
	req.Normalize()

	if isSmallTalk(message) {
		s.logger.Debug("small talk bypass", "took", time.Since(start))
		return &domain.Answer{Text: smallTalkReply, Citations: []domain.Citation{}}, nil
	}

	state = domain.StateEmbeddingQuery
	matches, err := s.retriever.Retrieve(ctx, message, domain.RetrievalOptions{
		TopK:           req.TopK,
		Namespace:      req.Namespace,
		MaxPerDocument: domain.DefaultMaxPerDocument,
		MinScore:       domain.DefaultMinScore,
	})
	if err != nil {
		// The retriever reports which phase failed
		var phaseErr *domain.RequestError
		if errors.As(err, &phaseErr) {
			state = phaseErr.State
			err = phaseErr.Err
		}
		return fail(err)
	}
	state = domain.StateRetrieving

	if len(matches) == 0 {
		// Still answered by the model, from general knowledge, with no
		// citations
		s.logger.Info("no relevant matches, answering without context", "namespace", req.Namespace)
	}

	state = domain.StateBuildingPrompt
	messages, citations := s.synthesizer.BuildPrompt(message, req.History, matches)

	state = domain.StateCompleting
	text, err := s.synthesizer.Complete(ctx, messages)
	if err != nil {
		return fail(err)
	}

	s.logger.Info("chat request answered",
		"namespace", req.Namespace,
		"matches", len(matches),
		"citations", len(citations),
		"took", time.Since(start),
	)

	return &domain.Answer{Text: text, Citations: citations}, nil
}

// isSmallTalk reports whether the message is a bare greeting.
// Only short messages qualify, so "hello, what does the contract say about
// termination" still goes through retrieval.
func isSmallTalk(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, "!?.,")
	normalized = strings.TrimSpace(normalized)
	if len(strings.Fields(normalized)) > 3 {
		return false
	}
	_, ok := smallTalkPhrases[normalized]
	return ok
}
