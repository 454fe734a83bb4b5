package prompt

import (
	"strings"
	"testing"

	"github.com/rcliao/agent-memory-core/internal/model"
	"github.com/rcliao/agent-memory-core/internal/store"
)

func msgEntry(id string, tokens int, content string) store.TemporalEntry {
	return store.TemporalEntry{Message: model.Message{ID: id, Kind: model.KindUser, Content: content, Tokens: tokens}}
}

func sumEntry(startID, endID string, tokens int) store.TemporalEntry {
	return store.TemporalEntry{IsSummary: true, Summary: model.Summary{StartID: startID, EndID: endID, Tokens: tokens, Narrative: "n"}}
}

func TestSelectRecentStopsAtBudget(t *testing.T) {
	entries := []store.TemporalEntry{
		msgEntry("message_a", 3, "a"),
		msgEntry("message_b", 3, "b"),
		msgEntry("message_c", 3, "c"),
	}

	got := SelectRecent(entries, 5)
	if len(got) != 1 || got[0].Message.ID != "message_c" {
		t.Fatalf("expected only the newest message within budget, got %+v", got)
	}
}

func TestSelectRecentAlwaysIncludesAtLeastOne(t *testing.T) {
	entries := []store.TemporalEntry{msgEntry("message_a", 999, "a")}
	got := SelectRecent(entries, 1)
	if len(got) != 1 {
		t.Fatalf("expected the single newest entry even over budget, got %+v", got)
	}
}

func TestSelectRecentReturnsChronologicalOrder(t *testing.T) {
	entries := []store.TemporalEntry{
		msgEntry("message_a", 1, "a"),
		msgEntry("message_b", 1, "b"),
	}
	got := SelectRecent(entries, 10)
	if len(got) != 2 || got[0].Message.ID != "message_a" || got[1].Message.ID != "message_b" {
		t.Fatalf("expected chronological order, got %+v", got)
	}
}

func TestSelectRecentZeroBudgetReturnsNothing(t *testing.T) {
	entries := []store.TemporalEntry{msgEntry("message_a", 1, "a")}
	if got := SelectRecent(entries, 0); got != nil {
		t.Fatalf("expected nil for zero budget, got %+v", got)
	}
}

func TestRenderMessageIncludesIDPrefix(t *testing.T) {
	out := Render(msgEntry("message_a", 1, "hello"))
	if !strings.HasPrefix(out, "[id:message_a]") {
		t.Errorf("expected id prefix, got %q", out)
	}
}

func TestRenderSummaryIncludesRangeAndObservations(t *testing.T) {
	e := sumEntry("message_a", "message_b", 5)
	e.Summary.KeyObservations = []string{"obs1"}
	out := Render(e)
	if !strings.HasPrefix(out, "[summary from:message_a to:message_b]") {
		t.Errorf("expected summary range prefix, got %q", out)
	}
	if !strings.Contains(out, "obs1") {
		t.Errorf("expected key observation rendered, got %q", out)
	}
}

func TestRenderMessageTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("x", 600)
	out := Render(msgEntry("message_a", 1, long))
	if !strings.Contains(out, "...") {
		t.Errorf("expected truncation ellipsis for content over 500 chars")
	}
	if strings.Count(out, "x") != truncateAt {
		t.Errorf("expected exactly %d chars kept, got %d", truncateAt, strings.Count(out, "x"))
	}
}
