package driven

import (
	"context"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
)

// ConversationStore persists per-session conversation history for callers
// that identify a session instead of supplying turns inline. This is a
// convenience for the transport layer: the core services only ever receive
// explicit history and never read or write this store themselves.
type ConversationStore interface {
	// Append adds turns to the end of a session's history and refreshes
	// its expiry.
	Append(ctx context.Context, sessionID string, turns ...domain.ConversationTurn) error

	// Recent returns the last maxTurns turns for a session, oldest first.
	// An unknown session yields an empty slice, not an error.
	Recent(ctx context.Context, sessionID string, maxTurns int) ([]domain.ConversationTurn, error)

	// Clear removes a session's history.
	Clear(ctx context.Context, sessionID string) error

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}
