package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rcliao/agent-memory-core/internal/agenterr"
	"github.com/rcliao/agent-memory-core/internal/chunker"
	"github.com/rcliao/agent-memory-core/internal/model"
)

// AppendMessage inserts a temporal message. Individually atomic, as
// spec §4.2 requires; ids are externally supplied by the identifier
// service (here: the caller already minted msg.ID).
//
// Content is chunked with the teacher's chunker.Chunk the same way
// internal/store/sqlite.go chunks memory content, so long tool_result or
// assistant content gets multiple FTS-indexed rows instead of one giant one.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg model.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO temporal_messages (id, kind, content, tokens, created_at, seq) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, string(msg.Kind), msg.Content, msg.Tokens, msg.CreatedAt.UTC().Format(time.RFC3339Nano), seq)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	for i, c := range chunker.Chunk(msg.Content, chunker.DefaultOptions()) {
		chunkID := fmt.Sprintf("%s_chunk_%d", msg.ID, i)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO message_chunks (id, message_id, seq, text) VALUES (?, ?, ?, ?)`,
			chunkID, msg.ID, i, c.Text); err != nil {
			return fmt.Errorf("insert message chunk: %w", err)
		}
	}

	return tx.Commit()
}

// CreateSummary inserts a temporal summary. Individually atomic.
func (s *SQLiteStore) CreateSummary(ctx context.Context, sum model.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	keyObsJSON, _ := json.Marshal(sum.KeyObservations)
	tagsJSON, _ := json.Marshal(sum.Tags)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO temporal_summaries (id, order_n, start_id, end_id, narrative, key_observations, tags, tokens, created_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.Order, sum.StartID, sum.EndID, sum.Narrative, string(keyObsJSON), string(tagsJSON),
		sum.Tokens, sum.CreatedAt.UTC().Format(time.RFC3339Nano), seq)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}

	return tx.Commit()
}

// GetMessages returns all raw messages, ascending by id (ULID ids sort in
// creation order, per spec §4.1).
func (s *SQLiteStore) GetMessages(ctx context.Context) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, content, tokens, created_at FROM temporal_messages ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		var kind, createdAt string
		if err := rows.Scan(&m.ID, &kind, &m.Content, &m.Tokens, &createdAt); err != nil {
			return nil, err
		}
		m.Kind = model.MessageKind(kind)
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetSummaries returns all summaries, ascending by id.
func (s *SQLiteStore) GetSummaries(ctx context.Context) ([]model.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_n, start_id, end_id, narrative, key_observations, tags, tokens, created_at
		 FROM temporal_summaries ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Summary
	for rows.Next() {
		var sum model.Summary
		var keyObsJSON, tagsJSON, createdAt string
		if err := rows.Scan(&sum.ID, &sum.Order, &sum.StartID, &sum.EndID, &sum.Narrative,
			&keyObsJSON, &tagsJSON, &sum.Tokens, &createdAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(keyObsJSON), &sum.KeyObservations)
		json.Unmarshal([]byte(tagsJSON), &sum.Tags)
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

type extent struct{ lo, hi int64 }

type seqMsg struct {
	msg model.Message
	seq int64
}

type seqSummary struct {
	sum    model.Summary
	lo, hi int64
}

// TemporalEntry is one line of the cyclic temporal view spec §4.2/§4.3 and
// the compaction agent (spec §199: "the prompt assembler and the compaction
// agent both consume the same temporal view... extract it into one pure
// function"): either a raw message, or a summary standing in for the
// contiguous range of messages/lower-order summaries it subsumes.
type TemporalEntry struct {
	IsSummary bool
	Message   model.Message
	Summary   model.Summary
}

// loadCoverage loads every message and summary, resolves each id to the
// [lo, hi] range of raw message seqs it transitively spans, and selects the
// maximal non-overlapping set of highest-order summaries — the shared
// coverage computation behind both EstimateUncompactedTokens and
// GetActiveView.
//
// idExtent maps every message and summary id to the [lo, hi] range of
// message seqs it ultimately spans. For a message that is its own seq; for
// a summary it is derived from its start/end id's extent, which may itself
// be a summary — resolving transitively covers summary-of-summary nesting
// (spec §3) instead of comparing raw creation seqs, which would wrongly
// treat a summary's own (late) creation seq as part of the message range
// it summarizes.
func (s *SQLiteStore) loadCoverage(ctx context.Context) (selected, all []seqSummary, messages []seqMsg, idExtent map[string]extent, err error) {
	msgRows, err := s.db.QueryContext(ctx, `SELECT id, kind, content, tokens, created_at, seq FROM temporal_messages`)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	idExtent = make(map[string]extent)
	for msgRows.Next() {
		var m model.Message
		var kind, createdAt string
		var seq int64
		if err := msgRows.Scan(&m.ID, &kind, &m.Content, &m.Tokens, &createdAt, &seq); err != nil {
			msgRows.Close()
			return nil, nil, nil, nil, err
		}
		m.Kind = model.MessageKind(kind)
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		messages = append(messages, seqMsg{msg: m, seq: seq})
		idExtent[m.ID] = extent{lo: seq, hi: seq}
	}
	msgRows.Close()
	if err := msgRows.Err(); err != nil {
		return nil, nil, nil, nil, err
	}

	// Summaries are read ordered by creation seq so that, by the time a
	// summary's own id is needed as another summary's boundary, its extent
	// is already resolved in idExtent (a summary can only reference ids
	// that existed at its own creation time, per spec §3).
	sumRows, err := s.db.QueryContext(ctx,
		`SELECT id, order_n, start_id, end_id, narrative, key_observations, tags, tokens, created_at
		 FROM temporal_summaries ORDER BY seq ASC`)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	var candidates []seqSummary
	for sumRows.Next() {
		var sum model.Summary
		var keyObsJSON, tagsJSON, createdAt string
		if err := sumRows.Scan(&sum.ID, &sum.Order, &sum.StartID, &sum.EndID, &sum.Narrative,
			&keyObsJSON, &tagsJSON, &sum.Tokens, &createdAt); err != nil {
			sumRows.Close()
			return nil, nil, nil, nil, err
		}
		json.Unmarshal([]byte(keyObsJSON), &sum.KeyObservations)
		json.Unmarshal([]byte(tagsJSON), &sum.Tags)
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

		iv := seqSummary{sum: sum, lo: idExtent[sum.StartID].lo, hi: idExtent[sum.EndID].hi}
		candidates = append(candidates, iv)
		idExtent[sum.ID] = extent{lo: iv.lo, hi: iv.hi}
	}
	sumRows.Close()
	if err := sumRows.Err(); err != nil {
		return nil, nil, nil, nil, err
	}
	all = candidates

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sum.Order != candidates[j].sum.Order {
			return candidates[i].sum.Order > candidates[j].sum.Order
		}
		return candidates[i].lo < candidates[j].lo
	})

	overlaps := func(a, b seqSummary) bool {
		return a.lo <= b.hi && b.lo <= a.hi
	}
	for _, c := range candidates {
		clash := false
		for _, picked := range selected {
			if overlaps(picked, c) {
				clash = true
				break
			}
		}
		if !clash {
			selected = append(selected, c)
		}
	}

	return selected, all, messages, idExtent, nil
}

// EstimateUncompactedTokens sums token estimates over messages not covered
// by the maximal set of non-overlapping highest-order summaries, plus the
// token estimate of those summaries (spec §4.2). Coverage is computed over
// each id's resolved message-seq extent rather than raw id string
// comparison, because a summary's start/end id may name either a raw
// message or another summary's boundary (spec §3), and those live in
// different ULID namespaces that don't compare lexicographically against
// each other.
func (s *SQLiteStore) EstimateUncompactedTokens(ctx context.Context) (int, error) {
	selected, _, messages, _, err := s.loadCoverage(ctx)
	if err != nil {
		return 0, err
	}

	inCovered := func(seq int64) bool {
		for _, c := range selected {
			if seq >= c.lo && seq <= c.hi {
				return true
			}
		}
		return false
	}

	total := 0
	for _, c := range selected {
		total += c.sum.Tokens
	}
	for _, m := range messages {
		if !inCovered(m.seq) {
			total += m.msg.Tokens
		}
	}

	return total, nil
}

// GetActiveView returns the cyclic temporal view in chronological order:
// every selected summary stands in for the message range it covers,
// positioned where that range begins, and every message not covered by a
// selected summary appears in its own creation order. This is the single
// source both the prompt assembler (spec §4.3) and the compaction agent
// (spec §4.6) build their working conversation from, so the two never
// diverge on what "the current temporal view" means.
func (s *SQLiteStore) GetActiveView(ctx context.Context) ([]TemporalEntry, error) {
	selected, _, messages, _, err := s.loadCoverage(ctx)
	if err != nil {
		return nil, err
	}

	inCovered := func(seq int64) bool {
		for _, c := range selected {
			if seq >= c.lo && seq <= c.hi {
				return true
			}
		}
		return false
	}

	type ordered struct {
		seq   int64
		entry TemporalEntry
	}
	var out []ordered
	for _, c := range selected {
		out = append(out, ordered{seq: c.lo, entry: TemporalEntry{IsSummary: true, Summary: c.sum}})
	}
	for _, m := range messages {
		if !inCovered(m.seq) {
			out = append(out, ordered{seq: m.seq, entry: TemporalEntry{Message: m.msg}})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })

	entries := make([]TemporalEntry, len(out))
	for i, o := range out {
		entries[i] = o.entry
	}
	return entries, nil
}

// ValidSummaryIDs returns {all message ids} ∪ {start and end ids of all
// summaries} — the id set a compaction agent's create_summary call must
// draw its startId/endId from (spec §4.6).
func (s *SQLiteStore) ValidSummaryIDs(ctx context.Context) (map[string]bool, error) {
	_, all, messages, _, err := s.loadCoverage(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(messages)+2*len(all))
	for _, m := range messages {
		ids[m.msg.ID] = true
	}
	for _, c := range all {
		ids[c.sum.StartID] = true
		ids[c.sum.EndID] = true
	}
	return ids, nil
}

// NextSummaryOrder resolves startID and endID to their message-seq extent
// and returns 1 + the highest order among existing summaries whose extent
// lies entirely inside [startID, endID]'s extent, or 1 if none do (spec
// §4.6: "the new summary's order is max(subsumed.order, 0) + 1").
//
// startID/endID may each name a raw message or a summary boundary, and
// those live in different ULID namespaces whose type prefixes don't compare
// lexicographically against each other — ordering is decided purely on the
// resolved message-seq extent, never on the raw id strings.
func (s *SQLiteStore) NextSummaryOrder(ctx context.Context, startID, endID string) (int, error) {
	_, all, _, idExtent, err := s.loadCoverage(ctx)
	if err != nil {
		return 0, err
	}
	startExt, ok := idExtent[startID]
	if !ok {
		return 0, agenterr.New(agenterr.Invalid, fmt.Sprintf("unknown id %q", startID))
	}
	endExt, ok := idExtent[endID]
	if !ok {
		return 0, agenterr.New(agenterr.Invalid, fmt.Sprintf("unknown id %q", endID))
	}
	if startExt.lo > endExt.hi {
		return 0, agenterr.New(agenterr.Invalid, fmt.Sprintf("startId %q is after endId %q", startID, endID))
	}
	lo, hi := startExt.lo, endExt.hi

	maxOrder := 0
	for _, c := range all {
		if c.lo >= lo && c.hi <= hi && c.sum.Order > maxOrder {
			maxOrder = c.sum.Order
		}
	}
	return maxOrder + 1, nil
}

// nextSeq returns the next value in the global insertion-sequence counter
// shared by temporal_messages and temporal_summaries, computed inside the
// caller's transaction so concurrent appends within this single-threaded
// core never race (spec §5: the SQLite connection is accessed sequentially).
func nextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT next FROM seq_counter WHERE id = 1`).Scan(&next); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE seq_counter SET next = next + 1 WHERE id = 1`); err != nil {
		return 0, err
	}
	return next, nil
}
