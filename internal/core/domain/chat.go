package domain

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationTurn is one role/text pair in a conversation. The ordered
// sequence is supplied per request by the caller; the core never owns
// conversation state across requests.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DefaultHistoryTurns is the number of trailing turns kept for synthesis
// context (6 turns, roughly 3 user/assistant exchanges).
const DefaultHistoryTurns = 6

// TruncateHistory keeps the last maxTurns turns. A maxTurns <= 0 drops the
// history entirely.
func TruncateHistory(history []ConversationTurn, maxTurns int) []ConversationTurn {
	if maxTurns <= 0 {
		return nil
	}
	if len(history) <= maxTurns {
		return history
	}
	return history[len(history)-maxTurns:]
}

// Citation records the provenance of a retrieved chunk that grounded an
// answer. Produced fresh per answer, never persisted by the core.
type Citation struct {
	ID     string   `json:"id"`
	Score  *float64 `json:"score,omitempty"`
	Source string   `json:"source,omitempty"`
}

// Answer is the result of synthesising a response to one question.
// Citations list exactly the matches whose content was present in the
// assembled prompt, in prompt order.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// RequestState tracks the lifecycle of a single chat request.
type RequestState string

const (
	StateReceived       RequestState = "RECEIVED"
	StateEmbeddingQuery RequestState = "EMBEDDING_QUERY"
	StateRetrieving     RequestState = "RETRIEVING"
	StateBuildingPrompt RequestState = "BUILDING_PROMPT"
	StateCompleting     RequestState = "COMPLETING"
	StateDone           RequestState = "DONE"
	StateFailed         RequestState = "FAILED"
)

// ChatRequest is the core's query entry point payload.
type ChatRequest struct {
	Message   string             `json:"message"`
	History   []ConversationTurn `json:"history,omitempty"`
	TopK      int                `json:"top_k,omitempty"`
	Namespace string             `json:"namespace,omitempty"`
}

// Normalize applies defaults and clamps TopK into [MinTopK, MaxTopK].
func (r *ChatRequest) Normalize() {
	if r.Namespace == "" {
		r.Namespace = DefaultNamespace
	}
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
	if r.TopK < MinTopK {
		r.TopK = MinTopK
	}
	if r.TopK > MaxTopK {
		r.TopK = MaxTopK
	}
}
