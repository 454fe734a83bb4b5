package prompt

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/agent-memory-core/internal/model"
	"github.com/rcliao/agent-memory-core/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssembleIncludesIdentityAndBehavior(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Create(ctx, store.CreateLTMParams{Slug: "identity", Title: "id", Body: "You are the assistant.", CreatedBy: model.ActorMain}); err != nil {
		t.Fatalf("create identity: %v", err)
	}
	if _, err := s.Create(ctx, store.CreateLTMParams{Slug: "behavior", Title: "behavior", Body: "Be terse.", CreatedBy: model.ActorMain}); err != nil {
		t.Fatalf("create behavior: %v", err)
	}

	out, err := Assemble(ctx, s, 1000)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.Contains(out, "You are the assistant.") || !strings.Contains(out, "Be terse.") {
		t.Errorf("expected identity and behavior bodies in prompt, got %q", out)
	}
}

func TestAssembleWithoutIdentityOrBehaviorStillIncludesPresent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SetMission(ctx, "ship the feature"); err != nil {
		t.Fatalf("set mission: %v", err)
	}

	out, err := Assemble(ctx, s, 1000)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.Contains(out, "mission: ship the feature") {
		t.Errorf("expected present-state mission line, got %q", out)
	}
}

func TestAssembleIncludesRecentMessagesWithinBudget(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.AppendMessage(ctx, model.Message{ID: "message_a", Kind: model.KindUser, Content: "hi", Tokens: 1, CreatedAt: time.Now()})
	s.AppendMessage(ctx, model.Message{ID: "message_b", Kind: model.KindAssistant, Content: "hello", Tokens: 1, CreatedAt: time.Now()})

	out, err := Assemble(ctx, s, 1000)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.Contains(out, "[id:message_a]") || !strings.Contains(out, "[id:message_b]") {
		t.Errorf("expected both messages rendered, got %q", out)
	}
}
