package store

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
)

// Stats returns database diagnostics, grounded in the teacher's
// internal/store/stats.go role of crash diagnosis at a glance, generalized
// from namespace/key counts to the three-tier model's table counts.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (Stats, error) {
	st := Stats{DBPath: dbPath, GeneratedAt: s.now().UTC()}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
		st.DBSizeHuman = humanize.Bytes(uint64(info.Size()))
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM temporal_messages`).Scan(&st.MessageCount)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM temporal_summaries`).Scan(&st.SummaryCount)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ltm_entries WHERE archived_at IS NULL`).Scan(&st.LTMCount)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ltm_entries WHERE archived_at IS NOT NULL`).Scan(&st.LTMArchived)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workers`).Scan(&st.WorkerCount)

	tok, err := s.EstimateUncompactedTokens(ctx)
	if err != nil {
		return st, err
	}
	st.UncompactedTok = tok

	return st, nil
}
