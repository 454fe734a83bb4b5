package store

import (
	"context"
	"strings"

	"github.com/rcliao/agent-memory-core/internal/model"
)

// ExportLTM returns all non-archived LTM entries, optionally restricted to
// a path prefix, for backup/migration. Grounded in the teacher's
// internal/store/export.go ExportAll, generalized from ns filtering to
// path-prefix filtering.
func (s *SQLiteStore) ExportLTM(ctx context.Context, pathPrefix string) ([]model.LTMEntry, error) {
	where := []string{"archived_at IS NULL"}
	args := []interface{}{}

	if pathPrefix != "" {
		where = append(where, "(path = ? OR path LIKE ?)")
		args = append(args, pathPrefix, pathPrefix+"/%")
	}

	query := `SELECT slug, parent, path, title, body, tags, links, version, created_by, updated_by, archived_at, created_at, updated_at
	          FROM ltm_entries WHERE ` + strings.Join(where, " AND ") + ` ORDER BY path ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// ImportLTM recreates entries from an export, skipping slugs that already
// exist. Each import goes through Create, so every imported entry starts
// at version 1 rather than carrying over its exported version — the CAS
// protocol is never bypassed (SPEC_FULL.md Supplemented Features).
func (s *SQLiteStore) ImportLTM(ctx context.Context, entries []model.LTMEntry) (int, error) {
	imported := 0
	for _, e := range entries {
		existing, err := s.Read(ctx, e.Slug)
		if err != nil {
			return imported, err
		}
		if existing != nil {
			continue
		}

		_, err = s.Create(ctx, CreateLTMParams{
			Slug:      e.Slug,
			Parent:    e.Parent,
			Title:     e.Title,
			Body:      e.Body,
			Tags:      e.Tags,
			Links:     e.Links,
			CreatedBy: e.CreatedBy,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
