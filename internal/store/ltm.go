package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/agent-memory-core/internal/agenterr"
	"github.com/rcliao/agent-memory-core/internal/chunker"
	"github.com/rcliao/agent-memory-core/internal/model"
)

// Create inserts a new root or child LTM entry at version 1. The teacher's
// Put (internal/store/sqlite.go) chains versions by ns+key lookup inside a
// tx; here slugs are caller-chosen and unique, so Create simply fails on
// collision rather than chaining a new version.
func (s *SQLiteStore) Create(ctx context.Context, p CreateLTMParams) (model.LTMEntry, error) {
	now := s.now().UTC()

	path := "/" + p.Slug
	if p.Parent != "" {
		parent, err := s.Read(ctx, p.Parent)
		if err != nil {
			return model.LTMEntry{}, err
		}
		if parent == nil {
			return model.LTMEntry{}, agenterr.NotFoundf("parent ltm entry %q", p.Parent)
		}
		path = parent.Path + "/" + p.Slug
	}

	tagsJSON, _ := json.Marshal(p.Tags)
	linksJSON, _ := json.Marshal(p.Links)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ltm_entries (slug, parent, path, title, body, tags, links, version, created_by, updated_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)`,
		p.Slug, p.Parent, path, p.Title, p.Body, string(tagsJSON), string(linksJSON),
		string(p.CreatedBy), string(p.CreatedBy), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.LTMEntry{}, agenterr.New(agenterr.Invalid, fmt.Sprintf("ltm entry %q already exists", p.Slug))
		}
		return model.LTMEntry{}, fmt.Errorf("insert ltm entry: %w", err)
	}

	if err := s.indexLTMChunks(ctx, p.Slug, p.Body); err != nil {
		return model.LTMEntry{}, err
	}

	entry, err := s.Read(ctx, p.Slug)
	if err != nil {
		return model.LTMEntry{}, err
	}
	return *entry, nil
}

// Read fetches one LTM entry including archived ones, or (nil, nil) if absent.
func (s *SQLiteStore) Read(ctx context.Context, slug string) (*model.LTMEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT slug, parent, path, title, body, tags, links, version, created_by, updated_by, archived_at, created_at, updated_at
		 FROM ltm_entries WHERE slug = ?`, slug)

	entry, err := scanLTMEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update performs the CAS body update: match on slug ∧ version =
// expectedVersion ∧ archived_at IS NULL, or fail with a precise error kind.
func (s *SQLiteStore) Update(ctx context.Context, p UpdateBodyParams) (model.LTMEntry, error) {
	if _, err := s.requireCAS(ctx, p.Slug, p.ExpectedVersion); err != nil {
		return model.LTMEntry{}, err
	}

	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE ltm_entries SET body = ?, version = version + 1, updated_by = ?, updated_at = ?
		 WHERE slug = ? AND version = ? AND archived_at IS NULL`,
		p.Body, string(p.UpdatedBy), now.Format(time.RFC3339Nano), p.Slug, p.ExpectedVersion)
	if err != nil {
		return model.LTMEntry{}, fmt.Errorf("update ltm body: %w", err)
	}
	if err := s.checkCASWrite(ctx, res, p.Slug, p.ExpectedVersion); err != nil {
		return model.LTMEntry{}, err
	}

	if err := s.indexLTMChunks(ctx, p.Slug, p.Body); err != nil {
		return model.LTMEntry{}, err
	}

	entry, err := s.Read(ctx, p.Slug)
	if err != nil {
		return model.LTMEntry{}, err
	}
	return *entry, nil
}

// UpdateTags performs the CAS tag update, the same protocol as Update.
func (s *SQLiteStore) UpdateTags(ctx context.Context, p UpdateTagsParams) (model.LTMEntry, error) {
	if _, err := s.requireCAS(ctx, p.Slug, p.ExpectedVersion); err != nil {
		return model.LTMEntry{}, err
	}

	tagsJSON, _ := json.Marshal(p.Tags)
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE ltm_entries SET tags = ?, version = version + 1, updated_by = ?, updated_at = ?
		 WHERE slug = ? AND version = ? AND archived_at IS NULL`,
		string(tagsJSON), string(p.UpdatedBy), now.Format(time.RFC3339Nano), p.Slug, p.ExpectedVersion)
	if err != nil {
		return model.LTMEntry{}, fmt.Errorf("update ltm tags: %w", err)
	}
	if err := s.checkCASWrite(ctx, res, p.Slug, p.ExpectedVersion); err != nil {
		return model.LTMEntry{}, err
	}

	entry, err := s.Read(ctx, p.Slug)
	if err != nil {
		return model.LTMEntry{}, err
	}
	return *entry, nil
}

// Archive soft-deletes an entry by setting archived_at, CAS-protected the
// same way as Update/UpdateTags.
func (s *SQLiteStore) Archive(ctx context.Context, slug string, expectedVersion int) (model.LTMEntry, error) {
	if _, err := s.requireCAS(ctx, slug, expectedVersion); err != nil {
		return model.LTMEntry{}, err
	}

	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE ltm_entries SET archived_at = ?, version = version + 1, updated_at = ?
		 WHERE slug = ? AND version = ? AND archived_at IS NULL`,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), slug, expectedVersion)
	if err != nil {
		return model.LTMEntry{}, fmt.Errorf("archive ltm entry: %w", err)
	}
	if err := s.checkCASWrite(ctx, res, slug, expectedVersion); err != nil {
		return model.LTMEntry{}, err
	}

	entry, err := s.Read(ctx, slug)
	if err != nil {
		return model.LTMEntry{}, err
	}
	return *entry, nil
}

// GetChildren lists direct children of an LTM entry, excluding archived ones.
func (s *SQLiteStore) GetChildren(ctx context.Context, parentSlug string) ([]model.LTMEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, parent, path, title, body, tags, links, version, created_by, updated_by, archived_at, created_at, updated_at
		 FROM ltm_entries WHERE parent = ? AND archived_at IS NULL ORDER BY slug ASC`, parentSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LTMEntry
	for rows.Next() {
		entry, err := scanLTMEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// requireCAS loads the current row and translates a version mismatch or
// archived state into a precise agenterr.Kind before the caller attempts
// the conditional UPDATE, per spec §4.2's "on zero-row result, read the
// current row to produce a precise error kind".
func (s *SQLiteStore) requireCAS(ctx context.Context, slug string, expectedVersion int) (model.LTMEntry, error) {
	entry, err := s.Read(ctx, slug)
	if err != nil {
		return model.LTMEntry{}, err
	}
	if entry == nil {
		return model.LTMEntry{}, agenterr.NotFoundf("ltm entry %q", slug)
	}
	if entry.ArchivedAt != nil {
		return model.LTMEntry{}, agenterr.Archivedf("ltm entry %q is archived", slug)
	}
	if entry.Version != expectedVersion {
		return model.LTMEntry{}, agenterr.ConflictErr(slug, expectedVersion, entry.Version)
	}
	return *entry, nil
}

// checkCASWrite closes the TOCTOU window between requireCAS's pre-check
// read and the conditional UPDATE it gates: if another writer's UPDATE
// lands in between, this call's WHERE clause matches zero rows even though
// requireCAS just approved it. A zero-row result is re-read and classified
// the same way requireCAS classifies its own pre-check, so a losing racer
// gets a precise Conflict/Archived/NotFound instead of silently returning
// whatever the winner wrote.
func (s *SQLiteStore) checkCASWrite(ctx context.Context, res sql.Result, slug string, expectedVersion int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.requireCAS(ctx, slug, expectedVersion); err != nil {
		return err
	}
	return agenterr.New(agenterr.Internal, fmt.Sprintf("update on %q affected no rows despite matching version %d", slug, expectedVersion))
}

// indexLTMChunks replaces an entry's FTS chunk rows with fresh ones, the
// same way AppendMessage chunks temporal content (internal/store/temporal.go),
// grounded in the teacher's chunker.Chunk + chunks/chunks_fts pairing.
func (s *SQLiteStore) indexLTMChunks(ctx context.Context, slug, body string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ltm_chunks WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("clear ltm chunks: %w", err)
	}
	for i, c := range chunker.Chunk(body, chunker.DefaultOptions()) {
		chunkID := fmt.Sprintf("%s_chunk_%d", slug, i)
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO ltm_chunks (id, slug, seq, text) VALUES (?, ?, ?, ?)`,
			chunkID, slug, i, c.Text); err != nil {
			return fmt.Errorf("insert ltm chunk: %w", err)
		}
	}
	return nil
}

// scanner abstracts over *sql.Row and *sql.Rows so scanLTMEntry can be
// used against both a single-row query and a cursor row.
type scanner interface {
	Scan(dest ...any) error
}

func scanLTMEntry(row scanner) (model.LTMEntry, error) {
	var e model.LTMEntry
	var tagsJSON, linksJSON string
	var createdBy, updatedBy string
	var archivedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&e.Slug, &e.Parent, &e.Path, &e.Title, &e.Body, &tagsJSON, &linksJSON,
		&e.Version, &createdBy, &updatedBy, &archivedAt, &createdAt, &updatedAt)
	if err != nil {
		return e, err
	}

	json.Unmarshal([]byte(tagsJSON), &e.Tags)
	json.Unmarshal([]byte(linksJSON), &e.Links)
	e.CreatedBy = model.Actor(createdBy)
	e.UpdatedBy = model.Actor(updatedBy)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if archivedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, archivedAt.String)
		e.ArchivedAt = &t
	}
	return e, nil
}
