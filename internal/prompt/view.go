// Package prompt assembles the agent's system prompt from the identity and
// behavior LTM entries, a token-budget-bounded recent-history view of
// temporal memory, and the present-state scratchpad (spec.md §4.3).
//
// SelectRecent and Render are the one pure function spec.md §199 calls for:
// the prompt assembler and the compaction agent both consume the same
// store.TemporalEntry view and must render it identically, so the two never
// drift into two different ideas of "the current conversation."
package prompt

import (
	"fmt"
	"strings"

	"github.com/rcliao/agent-memory-core/internal/model"
	"github.com/rcliao/agent-memory-core/internal/store"
	"github.com/rcliao/agent-memory-core/internal/tokenest"
)

// truncateAt is the per-message render cutoff (spec.md §4.3: "truncated at
// 500 characters with an ellipsis").
const truncateAt = 500

// SelectRecent walks entries (already chronological) from the newest
// backward, accumulating a token estimate, and stops once temporalBudget
// would be exceeded; the newest entry is always kept, even when it alone
// exceeds the budget. The result is returned back in chronological order.
func SelectRecent(entries []store.TemporalEntry, temporalBudget int) []store.TemporalEntry {
	if temporalBudget <= 0 || len(entries) == 0 {
		return nil
	}

	var picked []store.TemporalEntry
	used := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		tok := entryTokens(e)
		if used+tok > temporalBudget && len(picked) > 0 {
			break
		}
		picked = append(picked, e)
		used += tok
	}

	// picked was built newest-first; reverse it to chronological order.
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}

func entryTokens(e store.TemporalEntry) int {
	if e.IsSummary {
		if e.Summary.Tokens > 0 {
			return e.Summary.Tokens
		}
		return tokenest.Estimate(e.Summary.Narrative)
	}
	if e.Message.Tokens > 0 {
		return e.Message.Tokens
	}
	return tokenest.Estimate(e.Message.Content)
}

// Render renders one entry the way the compaction agent needs to read ids
// back out of the prompt: `[id:xxx]` prefixes on raw messages, `[summary
// from:xxx to:yyy]` lines for summaries (spec.md §4.3).
func Render(e store.TemporalEntry) string {
	if e.IsSummary {
		return renderSummary(e.Summary)
	}
	return renderMessage(e.Message)
}

func renderMessage(m model.Message) string {
	return fmt.Sprintf("[id:%s] %s: %s", m.ID, m.Kind, truncate(m.Content))
}

func renderSummary(s model.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[summary from:%s to:%s] %s", s.StartID, s.EndID, truncate(s.Narrative))
	for _, obs := range s.KeyObservations {
		fmt.Fprintf(&b, "\n  - %s", obs)
	}
	return b.String()
}

func truncate(s string) string {
	if len(s) <= truncateAt {
		return s
	}
	return s[:truncateAt] + "..."
}
