// Package redis backs the conversation store with Redis lists so session
// history survives process restarts and is shared across replicas.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConversationStore = (*ConversationStore)(nil)

const (
	// Key prefix for conversation history lists
	conversationPrefix = "conversation:"

	// DefaultTTL expires idle sessions.
	DefaultTTL = 24 * time.Hour

	// maxStoredTurns caps a session's list length so one chatty session
	// cannot grow without bound.
	maxStoredTurns = 100
)

// ConversationStore implements driven.ConversationStore using Redis.
// Each session is a list of JSON-encoded turns, oldest first, with a TTL
// refreshed on every append.
type ConversationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConversationStore creates a Redis-backed ConversationStore.
// A ttl <= 0 uses DefaultTTL.
func NewConversationStore(client *redis.Client, ttl time.Duration) *ConversationStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ConversationStore{client: client, ttl: ttl}
}

// Append adds turns to the end of a session's history and refreshes its
// expiry.
func (s *ConversationStore) Append(ctx context.Context, sessionID string, turns ...domain.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, len(turns))
	for i, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		values[i] = data
	}

	key := conversationPrefix + sessionID
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -maxStoredTurns, -1)
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turns: %w", err)
	}
	return nil
}

// Recent returns the last maxTurns turns for a session, oldest first.
// An unknown session yields an empty slice.
func (s *ConversationStore) Recent(ctx context.Context, sessionID string, maxTurns int) ([]domain.ConversationTurn, error) {
	if maxTurns <= 0 {
		return nil, nil
	}

	key := conversationPrefix + sessionID
	raw, err := s.client.LRange(ctx, key, int64(-maxTurns), -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]domain.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn domain.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Clear removes a session's history.
func (s *ConversationStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, conversationPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Ping verifies the store is reachable.
func (s *ConversationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
