package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/agent-memory-core/internal/model"
	"github.com/rcliao/agent-memory-core/internal/store"
)

// Deps is the storage surface the assembler reads from — a narrowed view of
// store.Store so callers can pass a fake in tests without building a whole
// SQLiteStore.
type Deps interface {
	GetPresent(ctx context.Context) (model.Present, error)
	Read(ctx context.Context, slug string) (*model.LTMEntry, error)
	GetActiveView(ctx context.Context) ([]store.TemporalEntry, error)
}

// identitySlug and behaviorSlug are the two reserved LTM slugs spec.md §4.3
// names by name.
const (
	identitySlug = "identity"
	behaviorSlug = "behavior"
)

// Assemble builds the system prompt per spec.md §4.3.
func Assemble(ctx context.Context, deps Deps, temporalBudget int) (string, error) {
	var b strings.Builder

	if identity, err := deps.Read(ctx, identitySlug); err != nil {
		return "", fmt.Errorf("load identity entry: %w", err)
	} else if identity != nil {
		b.WriteString(identity.Body)
		b.WriteString("\n\n")
	}

	if behavior, err := deps.Read(ctx, behaviorSlug); err != nil {
		return "", fmt.Errorf("load behavior entry: %w", err)
	} else if behavior != nil {
		b.WriteString(behavior.Body)
		b.WriteString("\n\n")
	}

	entries, err := deps.GetActiveView(ctx)
	if err != nil {
		return "", fmt.Errorf("load active view: %w", err)
	}
	recent := SelectRecent(entries, temporalBudget)
	for _, e := range recent {
		b.WriteString(Render(e))
		b.WriteString("\n")
	}

	present, err := deps.GetPresent(ctx)
	if err != nil {
		return "", fmt.Errorf("load present state: %w", err)
	}
	b.WriteString(renderPresent(present))

	return b.String(), nil
}

func renderPresent(p model.Present) string {
	var b strings.Builder
	b.WriteString("[present]\n")
	if p.Mission != "" {
		fmt.Fprintf(&b, "mission: %s\n", p.Mission)
	}
	if p.Status != "" {
		fmt.Fprintf(&b, "status: %s\n", p.Status)
	}
	for _, t := range p.Tasks {
		fmt.Fprintf(&b, "task[%s] %s: %s", t.ID, t.Status, t.Content)
		if t.BlockedReason != "" {
			fmt.Fprintf(&b, " (blocked: %s)", t.BlockedReason)
		}
		b.WriteString("\n")
	}
	return b.String()
}
