package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/agent-memory-core/internal/clock"
	"github.com/rcliao/agent-memory-core/internal/ident"
	"github.com/rcliao/agent-memory-core/internal/llm"
	"github.com/rcliao/agent-memory-core/internal/store"
	"github.com/rcliao/agent-memory-core/internal/tool"
)

func newTestOptions(t *testing.T, fake *llm.Fake) Options {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	c := clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	reg := tool.NewRegistry()
	reg.Register(tool.NewInvalidToolCallTool())
	for _, pt := range tool.NewPresentTools(s) {
		reg.Register(pt)
	}

	return Options{
		Store:          s,
		Provider:       fake,
		Model:          "test-model",
		Tools:          reg,
		Clock:          c,
		Idents:         ident.New(c),
		TemporalBudget: 4000,
	}
}

func TestRunAgentNoToolCallsReturnsTextImmediately(t *testing.T) {
	fake := &llm.Fake{Responses: []llm.Response{{Text: "hi there"}}}
	opts := newTestOptions(t, fake)

	var events []Event
	opts.EventSink = func(e Event) { events = append(events, e) }

	result, err := RunAgent(context.Background(), "hello", opts)
	if err != nil {
		t.Fatalf("run agent: %v", err)
	}
	if result.Response != "hi there" {
		t.Errorf("expected response text, got %q", result.Response)
	}
	if result.NumTurns != 0 {
		t.Errorf("expected 0 turns for an immediate text response with no tool calls, got %d", result.NumTurns)
	}

	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	if len(kinds) != 2 || kinds[0] != EventUser || kinds[1] != EventAssistant {
		t.Errorf("expected [user, assistant] events, got %v", kinds)
	}

	msgs, _ := opts.Store.GetMessages(context.Background())
	if len(msgs) != 2 {
		t.Fatalf("expected user+assistant persisted, got %d", len(msgs))
	}
}

func TestRunAgentDispatchesToolCallThenFinishes(t *testing.T) {
	fake := &llm.Fake{Responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "tc1", Name: "present_set_mission", Arguments: `{"mission":"ship it"}`}}},
		{Text: "done"},
	}}
	opts := newTestOptions(t, fake)

	var events []Event
	opts.EventSink = func(e Event) { events = append(events, e) }

	result, err := RunAgent(context.Background(), "set the mission", opts)
	if err != nil {
		t.Fatalf("run agent: %v", err)
	}
	if result.Response != "done" {
		t.Errorf("expected final response text, got %q", result.Response)
	}
	if result.NumTurns != 1 {
		t.Errorf("expected 1 turn for one tool round trip then a final response, got %d", result.NumTurns)
	}

	present, _ := opts.Store.GetPresent(context.Background())
	if present.Mission != "ship it" {
		t.Errorf("expected tool call to set mission, got %q", present.Mission)
	}

	var sawToolCall, sawToolResult bool
	for _, e := range events {
		if e.Kind == EventToolCall {
			sawToolCall = true
		}
		if e.Kind == EventToolResult {
			sawToolResult = true
		}
	}
	if !sawToolCall || !sawToolResult {
		t.Errorf("expected tool_call and tool_result events, got %+v", events)
	}
}

func TestRunAgentUnknownToolRedirectsInsteadOfFailing(t *testing.T) {
	fake := &llm.Fake{Responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "tc1", Name: "does_not_exist", Arguments: `{}`}}},
		{Text: "recovered"},
	}}
	opts := newTestOptions(t, fake)

	result, err := RunAgent(context.Background(), "try a bad tool", opts)
	if err != nil {
		t.Fatalf("run agent: %v", err)
	}
	if result.Response != "recovered" {
		t.Errorf("expected the loop to recover and finish, got %q", result.Response)
	}
}

func TestRunAgentOnBeforeTurnInjectsMessage(t *testing.T) {
	fake := &llm.Fake{Responses: []llm.Response{{Text: "ack"}}}
	opts := newTestOptions(t, fake)
	opts.OnBeforeTurn = func() string { return "urgent: stop" }

	if _, err := RunAgent(context.Background(), "hello", opts); err != nil {
		t.Fatalf("run agent: %v", err)
	}

	last := fake.LastMessages()
	var sawInjected bool
	for _, m := range last {
		if m.Content == "urgent: stop" {
			sawInjected = true
		}
	}
	if !sawInjected {
		t.Errorf("expected injected content in the messages sent to the provider, got %+v", last)
	}

	msgs, _ := opts.Store.GetMessages(context.Background())
	var sawTemporal bool
	for _, m := range msgs {
		if m.Content == "urgent: stop" {
			sawTemporal = true
		}
	}
	if !sawTemporal {
		t.Error("expected injected content to also be appended to temporal storage")
	}
}

func TestRunAgentCancelledBeforeModelCallReturnsCancelled(t *testing.T) {
	fake := &llm.Fake{Responses: []llm.Response{{Text: "should not be reached"}}}
	opts := newTestOptions(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := RunAgent(ctx, "hello", opts)
	if err != nil {
		t.Fatalf("run agent: %v", err)
	}
	if !result.Cancelled {
		t.Error("expected a cancelled result")
	}
	if fake.Calls() != 0 {
		t.Errorf("expected no model calls once cancelled, got %d", fake.Calls())
	}
}
