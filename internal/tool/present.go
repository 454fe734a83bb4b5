package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rcliao/agent-memory-core/internal/model"
	"github.com/rcliao/agent-memory-core/internal/store"
)

// NewPresentTools builds the three present-state tools, wrapping the
// storage setters verbatim (spec.md §4.5: "wrap the storage setters
// verbatim").
func NewPresentTools(s store.PresentStore) []Tool {
	return []Tool{
		{
			Name:        "present_set_mission",
			Description: "Overwrite the agent's current mission statement.",
			Schema: Schema{
				"mission": {Type: TypeString, Required: true, Description: "The new mission text."},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				mission, _ := args["mission"].(string)
				if err := s.SetMission(ctx, mission); err != nil {
					return "", err
				}
				return "mission updated", nil
			},
		},
		{
			Name:        "present_set_status",
			Description: "Overwrite the agent's current status line.",
			Schema: Schema{
				"status": {Type: TypeString, Required: true, Description: "The new status text."},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				status, _ := args["status"].(string)
				if err := s.SetStatus(ctx, status); err != nil {
					return "", err
				}
				return "status updated", nil
			},
		},
		{
			Name:        "present_update_tasks",
			Description: "Overwrite the agent's task list wholesale.",
			Schema: Schema{
				"tasks": {Type: TypeArray, Required: true, Description: "The new task list."},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				raw, _ := args["tasks"].([]any)
				tasks, err := decodeTasks(raw)
				if err != nil {
					return "", err
				}
				if err := s.SetTasks(ctx, tasks); err != nil {
					return "", err
				}
				return fmt.Sprintf("tasks updated (%d)", len(tasks)), nil
			},
		},
	}
}

func decodeTasks(raw []any) ([]model.Task, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var tasks []model.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}
