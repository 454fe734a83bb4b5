package llm

import (
	"context"
	"errors"
	"testing"
)

func TestFakeReturnsScriptedResponsesInOrder(t *testing.T) {
	f := &Fake{Responses: []Response{
		{Text: "first"},
		{ToolCalls: []ToolCall{{ID: "tc1", Name: "present_set_mission", Arguments: `{}`}}},
	}}

	r1, err := f.Generate(context.Background(), "claude-sonnet", nil, nil, 1024)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if r1.Text != "first" {
		t.Errorf("expected first scripted response, got %+v", r1)
	}

	r2, err := f.Generate(context.Background(), "claude-sonnet", nil, nil, 1024)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(r2.ToolCalls) != 1 || r2.ToolCalls[0].Name != "present_set_mission" {
		t.Errorf("expected second scripted response, got %+v", r2)
	}

	if f.Calls() != 2 {
		t.Errorf("expected 2 recorded calls, got %d", f.Calls())
	}
}

func TestFakeReturnsErrExhaustedPastScript(t *testing.T) {
	f := &Fake{Responses: []Response{{Text: "only"}}}

	if _, err := f.Generate(context.Background(), "m", nil, nil, 1024); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := f.Generate(context.Background(), "m", nil, nil, 1024)
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestFakeRecordsLastMessages(t *testing.T) {
	f := &Fake{Responses: []Response{{Text: "ok"}}}
	msgs := []Message{{Role: RoleUser, Content: "hello"}}

	if _, err := f.Generate(context.Background(), "m", msgs, nil, 1024); err != nil {
		t.Fatalf("generate: %v", err)
	}
	got := f.LastMessages()
	if len(got) != 1 || got[0].Content != "hello" {
		t.Errorf("expected recorded messages, got %+v", got)
	}
}
