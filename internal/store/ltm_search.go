package store

import (
	"context"
	"strings"
)

// Search finds non-archived LTM entries whose title or body contains the
// query substring, scored 2*titleMatch + 1*bodyMatch (spec §4.3), optionally
// restricted to entries under pathPrefix. Grounded in the teacher's
// internal/store/search.go LIKE-based substring search, generalized with an
// explicit score instead of the teacher's recency-only ordering.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]LTMSearchResult, error) {
	where := []string{"archived_at IS NULL"}
	args := []interface{}{}

	if p.PathPrefix != "" {
		where = append(where, "(path = ? OR path LIKE ?)")
		args = append(args, p.PathPrefix, p.PathPrefix+"/%")
	}

	query := `SELECT slug, parent, path, title, body, tags, links, version, created_by, updated_by, archived_at, created_at, updated_at
	          FROM ltm_entries WHERE ` + strings.Join(where, " AND ")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	q := strings.ToLower(p.Query)
	var results []LTMSearchResult
	for rows.Next() {
		entry, err := scanLTMEntry(rows)
		if err != nil {
			return nil, err
		}
		score := 0
		if strings.Contains(strings.ToLower(entry.Title), q) {
			score += 2
		}
		if strings.Contains(strings.ToLower(entry.Body), q) {
			score++
		}
		if score == 0 {
			continue
		}
		results = append(results, LTMSearchResult{Entry: entry, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortSearchResults(results)
	return results, nil
}

func sortSearchResults(results []LTMSearchResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
