package store

import (
	"context"
	"testing"

	"github.com/rcliao/agent-memory-core/internal/model"
)

func TestWorkerLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	w, err := s.CreateWorker(ctx, model.WorkerTemporalCompact)
	if err != nil {
		t.Fatalf("create worker: %v", err)
	}
	if w.Status != model.WorkerRunning {
		t.Errorf("expected running status, got %q", w.Status)
	}

	if err := s.CompleteWorker(ctx, w.ID); err != nil {
		t.Fatalf("complete worker: %v", err)
	}

	got, err := s.GetWorker(ctx, w.ID)
	if err != nil {
		t.Fatalf("get worker: %v", err)
	}
	if got == nil || got.Status != model.WorkerCompleted || got.CompletedAt == nil {
		t.Fatalf("expected completed worker, got %+v", got)
	}
}

func TestWorkerFailureRecordsError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	w, _ := s.CreateWorker(ctx, model.WorkerLTMReflect)
	if err := s.FailWorker(ctx, w.ID, "model timeout"); err != nil {
		t.Fatalf("fail worker: %v", err)
	}

	got, err := s.GetWorker(ctx, w.ID)
	if err != nil {
		t.Fatalf("get worker: %v", err)
	}
	if got.Status != model.WorkerFailed || got.Error != "model timeout" {
		t.Errorf("expected failed worker with error, got %+v", got)
	}
}

func TestGetWorkerMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.GetWorker(ctx, "worker_missing")
	if err != nil {
		t.Fatalf("get worker: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing worker, got %+v", got)
	}
}
