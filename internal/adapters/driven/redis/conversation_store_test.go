package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
)

func newTestStore(t *testing.T) (*ConversationStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewConversationStore(client, time.Hour), mr
}

func TestConversationStore_AppendAndRecent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Append(ctx, "sess-1",
		domain.ConversationTurn{Role: domain.RoleUser, Content: "first question"},
		domain.ConversationTurn{Role: domain.RoleAssistant, Content: "first answer"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = store.Append(ctx, "sess-1",
		domain.ConversationTurn{Role: domain.RoleUser, Content: "second question"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turns, err := store.Recent(ctx, "sess-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Content != "first question" || turns[2].Content != "second question" {
		t.Errorf("turns out of order: %+v", turns)
	}
	if turns[1].Role != domain.RoleAssistant {
		t.Errorf("role not preserved: %+v", turns[1])
	}
}

func TestConversationStore_RecentLimitsTurns(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := store.Append(ctx, "sess-1", domain.ConversationTurn{
			Role: domain.RoleUser, Content: fmt.Sprintf("turn %d", i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	turns, err := store.Recent(ctx, "sess-1", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	// The most recent turns, oldest first
	if turns[0].Content != "turn 6" || turns[3].Content != "turn 9" {
		t.Errorf("wrong window: %+v", turns)
	}
}

func TestConversationStore_UnknownSession(t *testing.T) {
	store, _ := newTestStore(t)

	turns, err := store.Recent(context.Background(), "nope", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty history, got %d turns", len(turns))
	}
}

func TestConversationStore_SessionIsolation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_ = store.Append(ctx, "sess-a", domain.ConversationTurn{Role: domain.RoleUser, Content: "a"})
	_ = store.Append(ctx, "sess-b", domain.ConversationTurn{Role: domain.RoleUser, Content: "b"})

	turns, err := store.Recent(ctx, "sess-a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].Content != "a" {
		t.Errorf("session isolation broken: %+v", turns)
	}
}

func TestConversationStore_Clear(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_ = store.Append(ctx, "sess-1", domain.ConversationTurn{Role: domain.RoleUser, Content: "x"})
	if err := store.Clear(ctx, "sess-1"); err != nil {
		t.Fatal(err)
	}

	turns, err := store.Recent(ctx, "sess-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("expected cleared history, got %d turns", len(turns))
	}
}

func TestConversationStore_ExpiresIdleSessions(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_ = store.Append(ctx, "sess-1", domain.ConversationTurn{Role: domain.RoleUser, Content: "x"})

	mr.FastForward(2 * time.Hour)

	turns, err := store.Recent(ctx, "sess-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Errorf("expected expired history, got %d turns", len(turns))
	}
}

func TestConversationStore_CapsStoredTurns(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < maxStoredTurns+20; i++ {
		err := store.Append(ctx, "sess-1", domain.ConversationTurn{
			Role: domain.RoleUser, Content: fmt.Sprintf("turn %d", i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	turns, err := store.Recent(ctx, "sess-1", maxStoredTurns*2)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != maxStoredTurns {
		t.Errorf("expected history capped at %d, got %d", maxStoredTurns, len(turns))
	}
	// The oldest turns fell off the front
	if turns[0].Content != "turn 20" {
		t.Errorf("unexpected oldest turn %q", turns[0].Content)
	}
}

func TestConversationStore_Ping(t *testing.T) {
	store, mr := newTestStore(t)

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("expected healthy ping, got %v", err)
	}

	mr.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Error("expected ping failure after server close")
	}
}
