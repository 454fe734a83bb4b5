// Package agent implements the single-turn agent loop (spec.md §4.4) and
// the compaction agent built on top of it (spec.md §4.6). Both are plain
// functions over explicit dependencies — storage handle, clock, identifier
// service, model provider — per Design Notes §9's "pass a context object
// holding {config, providerFactory, storage, clock} explicitly; keep no
// hidden globals."
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rcliao/agent-memory-core/internal/clock"
	"github.com/rcliao/agent-memory-core/internal/ident"
	"github.com/rcliao/agent-memory-core/internal/llm"
	"github.com/rcliao/agent-memory-core/internal/model"
	"github.com/rcliao/agent-memory-core/internal/prompt"
	"github.com/rcliao/agent-memory-core/internal/store"
	"github.com/rcliao/agent-memory-core/internal/tokenest"
	"github.com/rcliao/agent-memory-core/internal/tool"
)

// MaxTurns bounds the main agent loop (spec.md §4.4).
const MaxTurns = 50

// DefaultMaxTokens is passed to the provider when Options.MaxTokens is unset.
const DefaultMaxTokens = 4096

// EventKind enumerates the agent loop's event-sink vocabulary (spec.md §4.4).
type EventKind string

const (
	EventUser          EventKind = "user"
	EventAssistant     EventKind = "assistant"
	EventToolCall      EventKind = "tool_call"
	EventToolResult    EventKind = "tool_result"
	EventError         EventKind = "error"
	EventConsolidation EventKind = "consolidation"
	EventDone          EventKind = "done"
)

// Event is one notification the loop emits through Options.EventSink. Not
// every field applies to every Kind; see the Kind-specific comments below.
type Event struct {
	Kind EventKind

	// Text carries the user/assistant message text, the error message, or
	// the consolidation note, depending on Kind.
	Text string

	// ToolCallID, ToolName, and ToolArgsJSON apply to EventToolCall.
	ToolCallID   string
	ToolName     string
	ToolArgsJSON string

	// ToolResult applies to EventToolResult and echoes ToolCallID.
	ToolResult string
}

// EventSink receives every event the loop emits, in emission order.
type EventSink func(Event)

// Usage accumulates token usage across every model call in a turn.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Result is runAgent's return value (spec.md §4.4: "{response, usage}").
type Result struct {
	Response string
	Usage    Usage
	// NumTurns counts completed tool round trips, not model-generate calls:
	// an immediate text response with no tool calls is 0 (spec.md §8
	// Scenario 1), one tool call followed by a final response is 1
	// (Scenario 2).
	NumTurns  int
	Cancelled bool
}

// Options carries runAgent's dependencies and optional hooks.
type Options struct {
	Store    store.Store
	Provider llm.Provider
	Model    string
	Tools    *tool.Registry
	Clock    clock.Clock
	Idents   *ident.Service

	TemporalBudget int
	MaxTokens      int

	// OnBeforeTurn is consulted immediately before each model call
	// (spec.md §4.4 step 3a, §4.8). A non-empty return value is appended
	// as an additional user message to both the working conversation and
	// temporal storage.
	OnBeforeTurn func() string

	// EventSink, if set, receives every event the loop emits.
	EventSink EventSink
}

// RunAgent runs one user turn to completion: a bounded loop of model calls
// and tool dispatches (spec.md §4.4).
func RunAgent(ctx context.Context, userMessage string, opts Options) (Result, error) {
	emit := opts.EventSink
	if emit == nil {
		emit = func(Event) {}
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	if ctx.Err() != nil {
		return Result{Cancelled: true}, nil
	}

	if err := appendTemporal(ctx, opts, model.KindUser, userMessage); err != nil {
		return Result{}, fmt.Errorf("append user message: %w", err)
	}
	emit(Event{Kind: EventUser, Text: userMessage})

	system, err := prompt.Assemble(ctx, opts.Store, opts.TemporalBudget)
	if err != nil {
		return Result{}, fmt.Errorf("assemble prompt: %w", err)
	}
	toolSpecs := toolSpecsFrom(opts.Tools)

	working := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: userMessage},
	}

	var usage Usage
	var finalResponse string

	for turn := 0; turn < MaxTurns; turn++ {
		if opts.OnBeforeTurn != nil {
			if injected := opts.OnBeforeTurn(); injected != "" {
				working = append(working, llm.Message{Role: llm.RoleUser, Content: injected})
				if err := appendTemporal(ctx, opts, model.KindUser, injected); err != nil {
					return Result{}, fmt.Errorf("append injected message: %w", err)
				}
				emit(Event{Kind: EventUser, Text: injected})
			}
		}

		if ctx.Err() != nil {
			return Result{Usage: usage, NumTurns: turn, Cancelled: true}, nil
		}

		resp, err := opts.Provider.Generate(ctx, opts.Model, working, toolSpecs, maxTokens)
		if err != nil {
			if ctx.Err() != nil {
				return Result{Usage: usage, NumTurns: turn, Cancelled: true}, nil
			}
			emit(Event{Kind: EventError, Text: err.Error()})
			return Result{}, fmt.Errorf("model generate: %w", err)
		}
		usage.InputTokens += resp.Usage.PromptTokens
		usage.OutputTokens += resp.Usage.CompletionTokens

		if resp.Text != "" {
			if err := appendTemporal(ctx, opts, model.KindAssistant, resp.Text); err != nil {
				return Result{}, fmt.Errorf("append assistant message: %w", err)
			}
			emit(Event{Kind: EventAssistant, Text: resp.Text})
			finalResponse = resp.Text
		}

		if len(resp.ToolCalls) == 0 {
			return Result{Response: finalResponse, Usage: usage, NumTurns: turn}, nil
		}

		working = append(working, llm.Message{Role: llm.RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls})

		for _, tc := range resp.ToolCalls {
			callContent := fmt.Sprintf("%s(%s)", tc.Name, tc.Arguments)
			if err := appendTemporal(ctx, opts, model.KindToolCall, callContent); err != nil {
				return Result{}, fmt.Errorf("append tool_call message: %w", err)
			}
			emit(Event{Kind: EventToolCall, ToolCallID: tc.ID, ToolName: tc.Name, ToolArgsJSON: tc.Arguments})

			resultText := tool.Dispatch(ctx, opts.Tools, tc.Name, json.RawMessage(tc.Arguments))

			if err := appendTemporal(ctx, opts, model.KindToolResult, resultText); err != nil {
				return Result{}, fmt.Errorf("append tool_result message: %w", err)
			}
			emit(Event{Kind: EventToolResult, ToolCallID: tc.ID, ToolResult: resultText})

			working = append(working, llm.Message{Role: llm.RoleTool, Content: resultText, ToolCallID: tc.ID})
		}
	}

	return Result{}, fmt.Errorf("agent loop exceeded MAX_TURNS (%d)", MaxTurns)
}

func appendTemporal(ctx context.Context, opts Options, kind model.MessageKind, content string) error {
	msg := model.Message{
		ID:        opts.Idents.Next(ident.Message),
		Kind:      kind,
		Content:   content,
		Tokens:    tokenest.Estimate(content),
		CreatedAt: opts.Clock.Now(),
	}
	return opts.Store.AppendMessage(ctx, msg)
}

func toolSpecsFrom(reg *tool.Registry) []llm.ToolSpec {
	if reg == nil {
		return nil
	}
	names := reg.Names()
	specs := make([]llm.ToolSpec, 0, len(names))
	for _, name := range names {
		t, ok := reg.Get(name)
		if !ok {
			continue
		}
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schemaToParameters(t.Schema),
		})
	}
	return specs
}

func schemaToParameters(s tool.Schema) map[string]any {
	props := make(map[string]any, len(s))
	var required []string
	for name, p := range s {
		props[name] = map[string]any{"type": string(p.Type), "description": p.Description}
		if p.Required {
			required = append(required, name)
		}
	}
	return map[string]any{"type": "object", "properties": props, "required": required}
}
