package server

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/agent-memory-core/internal/agent"
)

func echoRunTurn(t *testing.T) RunTurn {
	t.Helper()
	return func(ctx context.Context, userMessage string, onBeforeTurn func() string, sink agent.EventSink) (agent.Result, error) {
		sink(agent.Event{Kind: agent.EventAssistant, Text: "echo: " + userMessage})
		return agent.Result{Response: "echo: " + userMessage, NumTurns: 1}, nil
	}
}

func decodeLines(t *testing.T, raw []byte) []OutputLine {
	t.Helper()
	var lines []OutputLine
	for _, l := range bytes.Split(bytes.TrimSpace(raw), []byte("\n")) {
		if len(l) == 0 {
			continue
		}
		var out OutputLine
		if err := json.Unmarshal(l, &out); err != nil {
			t.Fatalf("decode output line %q: %v", l, err)
		}
		lines = append(lines, out)
	}
	return lines
}

func TestServerEchoesAssistantTextAndResult(t *testing.T) {
	in := strings.NewReader(`{"type":"user","message":{"role":"user","content":"hi"},"session_id":"s1"}` + "\n")
	var out bytes.Buffer

	srv := New(in, &out, echoRunTurn(t), nil, "test-model", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := decodeLines(t, out.Bytes())
	var sawAssistant, sawResult bool
	for _, l := range lines {
		if l.Type == "assistant" && l.Message != nil && len(l.Message.Content) == 1 && l.Message.Content[0].Text == "echo: hi" {
			sawAssistant = true
		}
		if l.Type == "result" {
			sawResult = true
			if l.Subtype != "success" || l.SessionID != "s1" {
				t.Errorf("expected success result for session s1, got %+v", l)
			}
			if l.Result == nil || *l.Result != "echo: hi" {
				t.Errorf("expected result text, got %+v", l.Result)
			}
		}
	}
	if !sawAssistant {
		t.Error("expected an assistant output line")
	}
	if !sawResult {
		t.Error("expected a result output line")
	}
}

func TestServerFlattensContentBlocks(t *testing.T) {
	in := strings.NewReader(`{"type":"user","message":{"role":"user","content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}}` + "\n")
	var out bytes.Buffer

	srv := New(in, &out, echoRunTurn(t), nil, "test-model", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := decodeLines(t, out.Bytes())
	var found bool
	for _, l := range lines {
		if l.Type == "result" && l.Result != nil && *l.Result == "echo: part one part two" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected flattened content block text in the result, got %+v", lines)
	}
}

func TestServerMalformedLineEmitsSystemErrorAndContinues(t *testing.T) {
	in := strings.NewReader("not json\n" + `{"type":"user","message":{"role":"user","content":"hi"}}` + "\n")
	var out bytes.Buffer

	srv := New(in, &out, echoRunTurn(t), nil, "test-model", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := decodeLines(t, out.Bytes())
	var sawParseError, sawResult bool
	for _, l := range lines {
		if l.Type == "system" && l.Subtype == "error" {
			sawParseError = true
		}
		if l.Type == "result" {
			sawResult = true
		}
	}
	if !sawParseError {
		t.Error("expected a system error for the malformed line")
	}
	if !sawResult {
		t.Error("expected the well-formed line after it to still be processed")
	}
}

func TestServerControlStatusReportsState(t *testing.T) {
	in := strings.NewReader(`{"type":"control","action":"status"}` + "\n")
	var out bytes.Buffer

	srv := New(in, &out, echoRunTurn(t), nil, "test-model", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := decodeLines(t, out.Bytes())
	var found bool
	for _, l := range lines {
		if l.Type == "system" && l.Subtype == "status" {
			found = true
			if l.Content != "idle" {
				t.Errorf("expected idle status before any user message, got %q", l.Content)
			}
		}
	}
	if !found {
		t.Error("expected a status system line")
	}
}
