// Package store provides the durable, three-tier memory store: temporal
// messages/summaries, present state, long-term hierarchical entries with
// CAS versioning, and worker rows. Shaped after the teacher's
// internal/store/store.go + sqlite.go (SQLite via modernc.org/sqlite, WAL
// mode, FTS5 triggers) but generalized from a single flat Memory type to
// the model spec.md §3-§4 describes.
package store

import (
	"context"
	"time"

	"github.com/rcliao/agent-memory-core/internal/model"
)

// TemporalStore appends and reads the conversation event log.
type TemporalStore interface {
	AppendMessage(ctx context.Context, msg model.Message) error
	CreateSummary(ctx context.Context, s model.Summary) error
	GetMessages(ctx context.Context) ([]model.Message, error)
	GetSummaries(ctx context.Context) ([]model.Summary, error)
	// EstimateUncompactedTokens sums token estimates over messages not
	// covered by the maximal set of non-overlapping highest-order
	// summaries, plus the token estimate of those summaries.
	EstimateUncompactedTokens(ctx context.Context) (int, error)
	// GetActiveView returns the cyclic temporal view in chronological
	// order, shared by the prompt assembler and the compaction agent.
	GetActiveView(ctx context.Context) ([]TemporalEntry, error)
	// ValidSummaryIDs returns the id set a create_summary call may draw
	// its startId/endId from.
	ValidSummaryIDs(ctx context.Context) (map[string]bool, error)
	// NextSummaryOrder computes the subsumed-order rule for a new summary
	// spanning [startID, endID].
	NextSummaryOrder(ctx context.Context, startID, endID string) (int, error)
}

// PresentStore overwrites and reads the single present-state row.
type PresentStore interface {
	GetPresent(ctx context.Context) (model.Present, error)
	SetMission(ctx context.Context, mission string) error
	SetStatus(ctx context.Context, status string) error
	SetTasks(ctx context.Context, tasks []model.Task) error
}

// UpdateBodyParams holds parameters for a CAS body update.
type UpdateBodyParams struct {
	Slug            string
	Body            string
	ExpectedVersion int
	UpdatedBy       model.Actor
}

// UpdateTagsParams holds parameters for a CAS tag update.
type UpdateTagsParams struct {
	Slug            string
	Tags            []string
	ExpectedVersion int
	UpdatedBy       model.Actor
}

// CreateLTMParams holds parameters for creating an LTM entry.
type CreateLTMParams struct {
	Slug      string
	Parent    string // empty means root
	Title     string
	Body      string
	Tags      []string
	Links     []string
	CreatedBy model.Actor
}

// GlobParams holds parameters for a path-glob LTM query.
type GlobParams struct {
	Pattern  string
	MaxDepth int // 0 means unbounded
}

// SearchParams holds parameters for a title/body LTM query.
type SearchParams struct {
	Query      string
	PathPrefix string
}

// LTMSearchResult pairs an entry with its score (2*titleMatch + 1*bodyMatch).
type LTMSearchResult struct {
	Entry model.LTMEntry
	Score int
}

// LTMStore is the CAS-protected long-term hierarchical memory.
type LTMStore interface {
	Create(ctx context.Context, p CreateLTMParams) (model.LTMEntry, error)
	Read(ctx context.Context, slug string) (*model.LTMEntry, error)
	Update(ctx context.Context, p UpdateBodyParams) (model.LTMEntry, error)
	UpdateTags(ctx context.Context, p UpdateTagsParams) (model.LTMEntry, error)
	Archive(ctx context.Context, slug string, expectedVersion int) (model.LTMEntry, error)
	GetChildren(ctx context.Context, parentSlug string) ([]model.LTMEntry, error)
	Glob(ctx context.Context, p GlobParams) ([]model.LTMEntry, error)
	Search(ctx context.Context, p SearchParams) ([]LTMSearchResult, error)

	// ExportLTM and ImportLTM back the `export`/`import` CLI supplement
	// (SPEC_FULL.md Supplemented Features); Import always creates fresh
	// version-1 entries, never bypassing the CAS protocol.
	ExportLTM(ctx context.Context, pathPrefix string) ([]model.LTMEntry, error)
	ImportLTM(ctx context.Context, entries []model.LTMEntry) (int, error)
}

// WorkerStore tracks background worker runs for observability.
type WorkerStore interface {
	CreateWorker(ctx context.Context, typ model.WorkerType) (model.Worker, error)
	CompleteWorker(ctx context.Context, id string) error
	FailWorker(ctx context.Context, id string, errMsg string) error
	GetWorker(ctx context.Context, id string) (*model.Worker, error)
}

// Stats holds database diagnostics (supplements spec.md with the teacher's
// internal/store/stats.go role of crash diagnosis at a glance).
type Stats struct {
	DBPath         string    `json:"db_path"`
	DBSizeBytes    int64     `json:"db_size_bytes"`
	DBSizeHuman    string    `json:"db_size_human"`
	MessageCount   int       `json:"message_count"`
	SummaryCount   int       `json:"summary_count"`
	LTMCount       int       `json:"ltm_count"`
	LTMArchived    int       `json:"ltm_archived"`
	WorkerCount    int       `json:"worker_count"`
	UncompactedTok int       `json:"uncompacted_tokens"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Store is the full storage surface the agent runtime core depends on.
type Store interface {
	TemporalStore
	PresentStore
	LTMStore
	WorkerStore

	Stats(ctx context.Context, dbPath string) (Stats, error)
	Close() error
}
