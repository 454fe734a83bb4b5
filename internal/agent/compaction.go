package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcliao/agent-memory-core/internal/clock"
	"github.com/rcliao/agent-memory-core/internal/ident"
	"github.com/rcliao/agent-memory-core/internal/llm"
	"github.com/rcliao/agent-memory-core/internal/model"
	"github.com/rcliao/agent-memory-core/internal/prompt"
	"github.com/rcliao/agent-memory-core/internal/store"
	"github.com/rcliao/agent-memory-core/internal/tool"
)

// MaxCompactionTurns bounds the compaction agent's outer loop (spec.md §4.6).
const MaxCompactionTurns = 10

// maxInnerTurns bounds the per-outer-turn model-call loop (spec.md §4.6).
const maxInnerTurns = 5

// compactionInstructionTemplate is appended to the shared system prompt so the
// compaction agent sees the same view as the main loop plus its task
// (spec.md §4.6: "sees the same system prompt and conversation-history view
// as the main agent... plus an appended task instruction").
const compactionInstructionTemplate = `
You are running as the compaction worker for this conversation. Your only
job is to replace ranges of the temporal history above with summaries until
the uncompacted token estimate is at or below %d. Use create_summary to
cover a contiguous range of message or summary ids with a narrative and key
observations, and call finish_compaction once you are done or believe no
further compaction would help.`

// CompactionOptions carries the compaction agent's dependencies.
type CompactionOptions struct {
	Store    store.Store
	Provider llm.Provider
	Model    string
	Clock    clock.Clock
	Idents   *ident.Service

	TemporalBudget   int
	CompactionTarget int
	MaxTokens        int
}

// CompactionResult reports what one compaction run accomplished.
type CompactionResult struct {
	OuterTurns   int
	TokensBefore int
	TokensAfter  int
	Finished     bool // the agent called finish_compaction
}

// RunCompaction runs the compaction agent to completion (spec.md §4.6),
// tracking it as a worker row. A returned error means the worker row was
// marked failed; per spec.md §4.6 ("Failure of the worker is recorded on
// the worker row; it does not fail the owning main turn") the caller should
// treat this as best-effort and not fail the turn that triggered it.
func RunCompaction(ctx context.Context, opts CompactionOptions) (CompactionResult, error) {
	worker, err := opts.Store.CreateWorker(ctx, model.WorkerTemporalCompact)
	if err != nil {
		return CompactionResult{}, fmt.Errorf("create worker: %w", err)
	}

	result, runErr := runCompactionLoop(ctx, opts)
	if runErr != nil {
		if failErr := opts.Store.FailWorker(ctx, worker.ID, runErr.Error()); failErr != nil {
			return result, fmt.Errorf("%v (also failed to record worker failure: %v)", runErr, failErr)
		}
		return result, runErr
	}
	if err := opts.Store.CompleteWorker(ctx, worker.ID); err != nil {
		return result, fmt.Errorf("complete worker: %w", err)
	}
	return result, nil
}

func runCompactionLoop(ctx context.Context, opts CompactionOptions) (CompactionResult, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	tokensBefore, err := opts.Store.EstimateUncompactedTokens(ctx)
	if err != nil {
		return CompactionResult{}, fmt.Errorf("estimate uncompacted tokens: %w", err)
	}

	outerTurn := 0
	finished := false

	for ; outerTurn < MaxCompactionTurns; outerTurn++ {
		tokens, err := opts.Store.EstimateUncompactedTokens(ctx)
		if err != nil {
			return CompactionResult{}, fmt.Errorf("estimate uncompacted tokens: %w", err)
		}
		if tokens <= opts.CompactionTarget {
			break
		}

		if ctx.Err() != nil {
			break
		}

		// The history view is rebuilt every outer turn because newly
		// created summaries change it (spec.md §4.6).
		system, err := prompt.Assemble(ctx, opts.Store, opts.TemporalBudget)
		if err != nil {
			return CompactionResult{}, fmt.Errorf("assemble prompt: %w", err)
		}
		system += fmt.Sprintf(compactionInstructionTemplate, opts.CompactionTarget)

		validIDs, err := opts.Store.ValidSummaryIDs(ctx)
		if err != nil {
			return CompactionResult{}, fmt.Errorf("compute valid ids: %w", err)
		}

		finishedThisOuter := false
		hooks := tool.CompactionHooks{
			ValidIDs: func() map[string]bool { return validIDs },
			NextOrder: func(startID, endID string) (int, error) {
				return opts.Store.NextSummaryOrder(ctx, startID, endID)
			},
			CreateSummary: func(ctx context.Context, sum model.Summary) error {
				return opts.Store.CreateSummary(ctx, sum)
			},
			MintID: func() string { return opts.Idents.Next(ident.Summary) },
			Now:    func() time.Time { return opts.Clock.Now() },
			Finish: func(reason string) { finishedThisOuter = true },
		}

		reg := tool.NewRegistry()
		reg.Register(tool.NewInvalidToolCallTool())
		for _, t := range tool.NewCompactionTools(hooks) {
			reg.Register(t)
		}
		toolSpecs := toolSpecsFrom(reg)

		working := []llm.Message{{Role: llm.RoleSystem, Content: system}}

		for inner := 0; inner < maxInnerTurns && !finishedThisOuter; inner++ {
			if ctx.Err() != nil {
				break
			}
			resp, err := opts.Provider.Generate(ctx, opts.Model, working, toolSpecs, maxTokens)
			if err != nil {
				return CompactionResult{}, fmt.Errorf("model generate: %w", err)
			}
			if len(resp.ToolCalls) == 0 {
				break
			}

			working = append(working, llm.Message{Role: llm.RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls})
			for _, tc := range resp.ToolCalls {
				resultText := tool.Dispatch(ctx, reg, tc.Name, json.RawMessage(tc.Arguments))
				working = append(working, llm.Message{Role: llm.RoleTool, Content: resultText, ToolCallID: tc.ID})
			}
		}

		if finishedThisOuter {
			finished = true
			outerTurn++
			break
		}
	}

	tokensAfter, err := opts.Store.EstimateUncompactedTokens(ctx)
	if err != nil {
		return CompactionResult{}, fmt.Errorf("estimate uncompacted tokens: %w", err)
	}

	return CompactionResult{
		OuterTurns:   outerTurn,
		TokensBefore: tokensBefore,
		TokensAfter:  tokensAfter,
		Finished:     finished,
	}, nil
}
