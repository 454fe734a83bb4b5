package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rcliao/agent-memory-core/internal/ident"
	"github.com/rcliao/agent-memory-core/internal/model"
)

// CreateWorker inserts a new worker row in the running state, for
// observability into background compaction/consolidation/reflection runs
// (spec §4.6-§4.7).
func (s *SQLiteStore) CreateWorker(ctx context.Context, typ model.WorkerType) (model.Worker, error) {
	id := s.ids.Next(ident.Worker)
	now := s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workers (id, type, status, started_at) VALUES (?, ?, ?, ?)`,
		id, string(typ), string(model.WorkerRunning), now.Format(time.RFC3339Nano))
	if err != nil {
		return model.Worker{}, err
	}

	return model.Worker{ID: id, Type: typ, Status: model.WorkerRunning, StartedAt: now}, nil
}

// CompleteWorker marks a worker row as completed.
func (s *SQLiteStore) CompleteWorker(ctx context.Context, id string) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE workers SET status = ?, completed_at = ? WHERE id = ?`,
		string(model.WorkerCompleted), now.Format(time.RFC3339Nano), id)
	return err
}

// FailWorker marks a worker row as failed, recording the error message.
func (s *SQLiteStore) FailWorker(ctx context.Context, id string, errMsg string) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE workers SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(model.WorkerFailed), now.Format(time.RFC3339Nano), errMsg, id)
	return err
}

// GetWorker fetches a worker row by id, or (nil, nil) if absent.
func (s *SQLiteStore) GetWorker(ctx context.Context, id string) (*model.Worker, error) {
	var w model.Worker
	var typ, status string
	var startedAt string
	var completedAt, errMsg sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, type, status, started_at, completed_at, error FROM workers WHERE id = ?`, id).
		Scan(&w.ID, &typ, &status, &startedAt, &completedAt, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	w.Type = model.WorkerType(typ)
	w.Status = model.WorkerStatus(status)
	w.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, completedAt.String)
		w.CompletedAt = &t
	}
	if errMsg.Valid {
		w.Error = errMsg.String
	}

	return &w, nil
}
