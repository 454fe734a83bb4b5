package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/agent-memory-core/internal/clock"
	"github.com/rcliao/agent-memory-core/internal/ident"
)

// SQLiteStore implements Store using SQLite, following the teacher's
// internal/store/sqlite.go: modernc.org/sqlite (CGo-free), WAL journal
// mode, FTS5 virtual tables synced by triggers, idempotent migrate().
type SQLiteStore struct {
	db    *sql.DB
	ids   *ident.Service
	clock clock.Clock
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithClock(dbPath, clock.Real{})
}

// NewSQLiteStoreWithClock is NewSQLiteStore with an injectable clock, for
// deterministic tests (DESIGN NOTES §9).
func NewSQLiteStoreWithClock(dbPath string, c clock.Clock) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:    db,
		ids:   ident.New(c),
		clock: c,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) now() time.Time { return s.clock.Now() }

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS temporal_messages (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		content    TEXT NOT NULL,
		tokens     INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		seq        INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_created ON temporal_messages(created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_seq ON temporal_messages(seq);

	CREATE TABLE IF NOT EXISTS temporal_summaries (
		id               TEXT PRIMARY KEY,
		order_n          INTEGER NOT NULL,
		start_id         TEXT NOT NULL,
		end_id           TEXT NOT NULL,
		narrative        TEXT NOT NULL,
		key_observations TEXT,
		tags             TEXT,
		tokens           INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL,
		seq              INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_summaries_range ON temporal_summaries(start_id, end_id);
	CREATE INDEX IF NOT EXISTS idx_summaries_order ON temporal_summaries(order_n);
	CREATE INDEX IF NOT EXISTS idx_summaries_seq ON temporal_summaries(seq);

	CREATE TABLE IF NOT EXISTS seq_counter (
		id   INTEGER PRIMARY KEY CHECK (id = 1),
		next INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO seq_counter (id, next) VALUES (1, 1);

	CREATE TABLE IF NOT EXISTS present_state (
		id      INTEGER PRIMARY KEY CHECK (id = 1),
		mission TEXT,
		status  TEXT,
		tasks   TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS ltm_entries (
		slug        TEXT PRIMARY KEY,
		parent      TEXT,
		path        TEXT NOT NULL UNIQUE,
		title       TEXT NOT NULL,
		body        TEXT NOT NULL,
		tags        TEXT,
		links       TEXT,
		version     INTEGER NOT NULL DEFAULT 1,
		created_by  TEXT NOT NULL,
		updated_by  TEXT NOT NULL,
		archived_at TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ltm_parent ON ltm_entries(parent);
	CREATE INDEX IF NOT EXISTS idx_ltm_path ON ltm_entries(path);
	CREATE INDEX IF NOT EXISTS idx_ltm_archived ON ltm_entries(archived_at);

	CREATE TABLE IF NOT EXISTS workers (
		id           TEXT PRIMARY KEY,
		type         TEXT NOT NULL,
		status       TEXT NOT NULL,
		started_at   TEXT NOT NULL,
		completed_at TEXT,
		error        TEXT
	);

	CREATE TABLE IF NOT EXISTS session_config (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS message_chunks (
		id         TEXT PRIMARY KEY,
		message_id TEXT NOT NULL REFERENCES temporal_messages(id),
		seq        INTEGER NOT NULL,
		text       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_message_chunks_msg ON message_chunks(message_id);

	CREATE TABLE IF NOT EXISTS ltm_chunks (
		id   TEXT PRIMARY KEY,
		slug TEXT NOT NULL REFERENCES ltm_entries(slug),
		seq  INTEGER NOT NULL,
		text TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ltm_chunks_slug ON ltm_chunks(slug);

	CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		text,
		content=message_chunks,
		content_rowid=rowid
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS ltm_fts USING fts5(
		text,
		content=ltm_chunks,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers for automatic sync, mirroring the teacher's
	// chunks/chunks_fts trigger set in internal/store/sqlite.go.
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS message_chunks_ai AFTER INSERT ON message_chunks BEGIN
		INSERT INTO messages_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS message_chunks_ad AFTER DELETE ON message_chunks BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, text) VALUES('delete', old.rowid, old.text);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS message_chunks_au AFTER UPDATE ON message_chunks BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		INSERT INTO messages_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)

	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS ltm_chunks_ai AFTER INSERT ON ltm_chunks BEGIN
		INSERT INTO ltm_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS ltm_chunks_ad AFTER DELETE ON ltm_chunks BEGIN
		INSERT INTO ltm_fts(ltm_fts, rowid, text) VALUES('delete', old.rowid, old.text);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS ltm_chunks_au AFTER UPDATE ON ltm_chunks BEGIN
		INSERT INTO ltm_fts(ltm_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		INSERT INTO ltm_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)

	return s.RebuildFTS(context.Background())
}

// RebuildFTS backfills the FTS5 indexes for any chunk rows not yet indexed.
// Idempotent: INSERT OR IGNORE means running it repeatedly (e.g. across
// migrations) never double-indexes a row.
func (s *SQLiteStore) RebuildFTS(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO messages_fts(rowid, text) SELECT rowid, text FROM message_chunks`); err != nil {
		return fmt.Errorf("rebuild messages_fts: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO ltm_fts(rowid, text) SELECT rowid, text FROM ltm_chunks`); err != nil {
		return fmt.Errorf("rebuild ltm_fts: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
