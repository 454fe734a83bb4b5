package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rcliao/agent-memory-core/internal/model"
)

// GetPresent reads the single present-state row, returning the zero value
// if it has never been written.
func (s *SQLiteStore) GetPresent(ctx context.Context) (model.Present, error) {
	var mission, status, tasksJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT mission, status, tasks FROM present_state WHERE id = 1`).
		Scan(&mission, &status, &tasksJSON)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return model.Present{Tasks: []model.Task{}}, nil
		}
		return model.Present{}, err
	}

	var tasks []model.Task
	if tasksJSON != "" {
		if err := json.Unmarshal([]byte(tasksJSON), &tasks); err != nil {
			return model.Present{}, fmt.Errorf("unmarshal tasks: %w", err)
		}
	}

	return model.Present{Mission: mission, Status: status, Tasks: tasks}, nil
}

// SetMission overwrites the mission field, creating the row if absent.
func (s *SQLiteStore) SetMission(ctx context.Context, mission string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO present_state (id, mission, status, tasks) VALUES (1, ?, '', '[]')
		 ON CONFLICT(id) DO UPDATE SET mission = excluded.mission`,
		mission)
	return err
}

// SetStatus overwrites the status field, creating the row if absent.
func (s *SQLiteStore) SetStatus(ctx context.Context, status string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO present_state (id, mission, status, tasks) VALUES (1, '', ?, '[]')
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		status)
	return err
}

// SetTasks overwrites the task list wholesale, creating the row if absent.
func (s *SQLiteStore) SetTasks(ctx context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO present_state (id, mission, status, tasks) VALUES (1, '', '', ?)
		 ON CONFLICT(id) DO UPDATE SET tasks = excluded.tasks`,
		string(tasksJSON))
	return err
}
