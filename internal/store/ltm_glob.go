package store

import (
	"context"
	"path"
	"strings"

	"github.com/rcliao/agent-memory-core/internal/model"
)

// Glob lists non-archived LTM entries whose path matches a pattern, per
// the recursive path-segment matcher described in SPEC_FULL.md's open
// question decisions: "*" matches within one segment, "**" matches across
// any number of segments, and maxDepth (0 = unbounded) filters the result
// by path depth after matching.
func (s *SQLiteStore) Glob(ctx context.Context, p GlobParams) ([]model.LTMEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, parent, path, title, body, tags, links, version, created_by, updated_by, archived_at, created_at, updated_at
		 FROM ltm_entries WHERE archived_at IS NULL ORDER BY path ASC`)
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
		if !matchGlob(p.Pattern, entry.Path) {
			continue
		}
		if p.MaxDepth > 0 && pathDepth(entry.Path) > p.MaxDepth {
			continue
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// matchGlob reports whether path matches pattern, both slash-separated.
// "*" matches any run of characters within a single segment; "**" matches
// zero or more whole segments.
func matchGlob(pattern, p string) bool {
	patSegs := splitPath(pattern)
	pathSegs := splitPath(p)
	return matchSegments(patSegs, pathSegs)
}

func matchSegments(pat, pth []string) bool {
	if len(pat) == 0 {
		return len(pth) == 0
	}

	if pat[0] == "**" {
		if matchSegments(pat[1:], pth) {
			return true
		}
		if len(pth) > 0 {
			return matchSegments(pat, pth[1:])
		}
		return false
	}

	if len(pth) == 0 {
		return false
	}
	ok, err := path.Match(pat[0], pth[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pat[1:], pth[1:])
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func pathDepth(p string) int {
	return len(splitPath(p))
}
