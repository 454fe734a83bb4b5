package tool

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rcliao/agent-memory-core/internal/model"
)

func TestCreateSummaryRejectsInvalidID(t *testing.T) {
	ctx := context.Background()
	var created []model.Summary

	tools := NewCompactionTools(CompactionHooks{
		ValidIDs: func() map[string]bool {
			return map[string]bool{"message_a": true, "message_b": true}
		},
		NextOrder:     func(startID, endID string) (int, error) { return 1, nil },
		CreateSummary: func(ctx context.Context, s model.Summary) error { created = append(created, s); return nil },
		MintID:        func() string { return "summary_x" },
		Now:           func() time.Time { return time.Unix(0, 0) },
		Finish:        func(reason string) {},
	})

	create := findTool(tools, "create_summary")
	out, err := create.Execute(ctx, map[string]any{
		"startId": "message_a", "endId": "message_ghost", "narrative": "n",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(created) != 0 {
		t.Error("expected no summary created for invalid id")
	}
	if out == "" {
		t.Error("expected an error message")
	}
}

func TestCreateSummaryRejectsBackwardsRange(t *testing.T) {
	ctx := context.Background()
	var created []model.Summary

	// NextOrder is where ordering is actually decided (by resolved
	// message-seq extent, not raw id strings); this fake mimics a store
	// that found startId sorts after endId.
	tools := NewCompactionTools(CompactionHooks{
		ValidIDs: func() map[string]bool { return map[string]bool{"message_a": true, "message_b": true} },
		NextOrder: func(startID, endID string) (int, error) {
			return 0, fmt.Errorf("startId %q is after endId %q", startID, endID)
		},
		CreateSummary: func(ctx context.Context, s model.Summary) error { created = append(created, s); return nil },
		MintID:        func() string { return "summary_x" },
		Now:           func() time.Time { return time.Unix(0, 0) },
		Finish:        func(reason string) {},
	})

	create := findTool(tools, "create_summary")
	out, err := create.Execute(ctx, map[string]any{"startId": "message_b", "endId": "message_a", "narrative": "n"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(created) != 0 {
		t.Error("expected no summary created for startId > endId")
	}
	if out == "" {
		t.Error("expected an error message")
	}
}

func TestCreateSummarySuccess(t *testing.T) {
	ctx := context.Background()
	var created []model.Summary

	tools := NewCompactionTools(CompactionHooks{
		ValidIDs:      func() map[string]bool { return map[string]bool{"message_a": true, "message_b": true} },
		NextOrder:     func(startID, endID string) (int, error) { return 1, nil },
		CreateSummary: func(ctx context.Context, s model.Summary) error { created = append(created, s); return nil },
		MintID:        func() string { return "summary_x" },
		Now:           func() time.Time { return time.Unix(0, 0) },
		Finish:        func(reason string) {},
	})

	create := findTool(tools, "create_summary")
	_, err := create.Execute(ctx, map[string]any{
		"startId": "message_a", "endId": "message_b", "narrative": "n", "keyObservations": []any{"obs1"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(created) != 1 || created[0].ID != "summary_x" || len(created[0].KeyObservations) != 1 {
		t.Fatalf("expected summary created, got %+v", created)
	}
}

func TestFinishCompactionInvokesHook(t *testing.T) {
	ctx := context.Background()
	var gotReason string

	tools := NewCompactionTools(CompactionHooks{
		ValidIDs:      func() map[string]bool { return nil },
		NextOrder:     func(startID, endID string) (int, error) { return 1, nil },
		CreateSummary: func(ctx context.Context, s model.Summary) error { return nil },
		MintID:        func() string { return "" },
		Now:           func() time.Time { return time.Unix(0, 0) },
		Finish:        func(reason string) { gotReason = reason },
	})

	finish := findTool(tools, "finish_compaction")
	if _, err := finish.Execute(ctx, map[string]any{"reason": "done here"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotReason != "done here" {
		t.Errorf("expected Finish hook called with reason, got %q", gotReason)
	}
}
