package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rcliao/agent-memory-core/internal/model"
)

func TestStatsCountsAcrossTiers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s.Close()

	s.AppendMessage(ctx, model.Message{ID: "message_a", Kind: model.KindUser, Content: "hi", Tokens: 1})
	s.Create(ctx, CreateLTMParams{Slug: "identity", Title: "Identity", Body: "x", CreatedBy: model.ActorMain})
	s.CreateWorker(ctx, model.WorkerTemporalCompact)

	st, err := s.Stats(ctx, dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.MessageCount != 1 {
		t.Errorf("expected 1 message, got %d", st.MessageCount)
	}
	if st.LTMCount != 1 {
		t.Errorf("expected 1 ltm entry, got %d", st.LTMCount)
	}
	if st.WorkerCount != 1 {
		t.Errorf("expected 1 worker, got %d", st.WorkerCount)
	}
	if st.DBSizeBytes <= 0 {
		t.Error("expected non-zero db size")
	}
}
