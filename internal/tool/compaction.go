package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/agent-memory-core/internal/model"
	"github.com/rcliao/agent-memory-core/internal/tokenest"
)

// CompactionHooks wires the two compaction tools (spec.md §4.6) to the
// compaction agent's per-turn state without this package depending on
// internal/agent — the agent loop recomputes validIds and the subsumed-order
// rule every outer turn and passes the current snapshot in.
type CompactionHooks struct {
	// ValidIDs returns the current {all message ids} ∪ {summary boundary
	// ids} set a create_summary call must draw from.
	ValidIDs func() map[string]bool
	// NextOrder returns max(subsumed.order, 0) + 1 for a [startID, endID]
	// range, where subsumed is every existing summary whose range lies
	// inside it. It also resolves startID/endID to their message-seq
	// extents and errors if startID sorts after endID or either id is
	// unknown — startId/endId may each name a raw message or a summary
	// boundary, and those live in different ULID namespaces that don't
	// compare lexicographically against each other, so this is the only
	// place ordering can be decided correctly.
	NextOrder func(startID, endID string) (int, error)
	// CreateSummary persists the new summary.
	CreateSummary func(ctx context.Context, s model.Summary) error
	// MintID returns a fresh summary_ id.
	MintID func() string
	// Now returns the current time for the summary's created_at.
	Now func() time.Time
	// Finish is called when the agent invokes finish_compaction; it
	// signals the outer loop to stop (spec.md §4.6).
	Finish func(reason string)
}

// NewCompactionTools builds the compaction agent's exactly-two-tool set.
func NewCompactionTools(h CompactionHooks) []Tool {
	return []Tool{
		{
			Name: "create_summary",
			Description: "Insert a summary covering a contiguous range of temporal " +
				"messages or lower-order summaries.",
			Schema: Schema{
				"startId":         {Type: TypeString, Required: true},
				"endId":           {Type: TypeString, Required: true},
				"narrative":       {Type: TypeString, Required: true},
				"keyObservations": {Type: TypeArray, Required: false},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				startID, _ := args["startId"].(string)
				endID, _ := args["endId"].(string)
				narrative, _ := args["narrative"].(string)
				keyObs := stringSlice(args["keyObservations"])

				valid := h.ValidIDs()
				if !valid[startID] {
					return fmt.Sprintf("invalid id: startId %q is not in the valid id set", startID), nil
				}
				if !valid[endID] {
					return fmt.Sprintf("invalid id: endId %q is not in the valid id set", endID), nil
				}

				order, err := h.NextOrder(startID, endID)
				if err != nil {
					return fmt.Sprintf("invalid range: %v", err), nil
				}

				sum := model.Summary{
					ID:              h.MintID(),
					Order:           order,
					StartID:         startID,
					EndID:           endID,
					Narrative:       narrative,
					KeyObservations: keyObs,
					Tokens:          tokenest.EstimateAll(append([]string{narrative}, keyObs...)...),
					CreatedAt:       h.Now(),
				}
				if err := h.CreateSummary(ctx, sum); err != nil {
					return "", err
				}
				return fmt.Sprintf("created summary %s (order %d, %s..%s)", sum.ID, sum.Order, startID, endID), nil
			},
		},
		{
			Name:        "finish_compaction",
			Description: "Declare this compaction turn done.",
			Schema: Schema{
				"reason": {Type: TypeString, Required: false},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				reason, _ := args["reason"].(string)
				h.Finish(reason)
				return "compaction finished: " + reason, nil
			},
		},
	}
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
