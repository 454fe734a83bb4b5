// Package model defines the core memory data types: temporal messages and
// summaries, the present-state scratchpad, long-term hierarchical entries,
// and worker rows for observability. Shaped after the teacher's
// internal/model/memory.go, generalized from the teacher's single flat
// Memory type to the three-tier model spec.md §3 describes.
package model

import "time"

// MessageKind enumerates temporal message kinds.
type MessageKind string

const (
	KindUser       MessageKind = "user"
	KindAssistant  MessageKind = "assistant"
	KindToolCall   MessageKind = "tool_call"
	KindToolResult MessageKind = "tool_result"
)

// Message is a single temporal memory entry. Never mutated; never deleted.
type Message struct {
	ID        string      `json:"id"`
	Kind      MessageKind `json:"kind"`
	Content   string      `json:"content"`
	Tokens    int         `json:"tokens"`
	CreatedAt time.Time   `json:"created_at"`
}

// Summary covers a contiguous range of temporal messages or lower-order
// summaries. Immutable once written.
type Summary struct {
	ID               string    `json:"id"`
	Order            int       `json:"order"`
	StartID          string    `json:"start_id"`
	EndID            string    `json:"end_id"`
	Narrative        string    `json:"narrative"`
	KeyObservations  []string  `json:"key_observations,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	Tokens           int       `json:"tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// TaskStatus enumerates present-state task statuses.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

// Task is one entry in the present-state task list.
type Task struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	Status        TaskStatus `json:"status"`
	BlockedReason string     `json:"blocked_reason,omitempty"`
}

// Present is the single-row mission/status/task scratchpad.
type Present struct {
	Mission string `json:"mission,omitempty"`
	Status  string `json:"status,omitempty"`
	Tasks   []Task `json:"tasks"`
}

// Actor enumerates who last touched an LTM entry.
type Actor string

const (
	ActorMain           Actor = "main"
	ActorLTMConsolidate Actor = "ltm-consolidate"
	ActorLTMReflect     Actor = "ltm-reflect"
)

// LTMEntry is a hierarchical, versioned knowledge entry addressed by slug.
type LTMEntry struct {
	Slug       string     `json:"slug"`
	Parent     string     `json:"parent,omitempty"`
	Path       string     `json:"path"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Tags       []string   `json:"tags,omitempty"`
	Links      []string   `json:"links,omitempty"`
	Version    int        `json:"version"`
	CreatedBy  Actor      `json:"created_by"`
	UpdatedBy  Actor      `json:"updated_by"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// WorkerType enumerates background worker kinds.
type WorkerType string

const (
	WorkerTemporalCompact WorkerType = "temporal-compact"
	WorkerLTMConsolidate  WorkerType = "ltm-consolidate"
	WorkerLTMReflect      WorkerType = "ltm-reflect"
)

// WorkerStatus enumerates worker row statuses.
type WorkerStatus string

const (
	WorkerRunning   WorkerStatus = "running"
	WorkerCompleted WorkerStatus = "completed"
	WorkerFailed    WorkerStatus = "failed"
)

// Worker is an observability row tracking one background task run.
type Worker struct {
	ID          string       `json:"id"`
	Type        WorkerType   `json:"type"`
	Status      WorkerStatus `json:"status"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}
