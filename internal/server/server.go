package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/agent-memory-core/internal/agent"
	"github.com/rcliao/agent-memory-core/internal/agenterr"
	"github.com/rcliao/agent-memory-core/internal/scheduler"
)

// RunTurn matches agent.RunAgent's shape minus the bits the server itself
// supplies (OnBeforeTurn and EventSink), so Server can wrap it once and
// hand the result to scheduler.TurnFunc.
type RunTurn func(ctx context.Context, userMessage string, onBeforeTurn func() string, sink agent.EventSink) (agent.Result, error)

// Server reads NDJSON from in and writes NDJSON events to out, driving a
// scheduler per turn (spec.md §4.8).
type Server struct {
	in      io.Reader
	out     io.Writer
	mu      sync.Mutex // serializes writes; events arrive from multiple goroutines
	model   string
	log     *zap.Logger
	sched   *scheduler.Scheduler
	pending int64 // submitted turns awaiting their result line; guards shutdown
}

// New builds a Server. runTurn is normally a closure over agent.RunAgent and
// a fixed agent.Options; model is echoed in assistant message envelopes.
func New(in io.Reader, out io.Writer, runTurn RunTurn, compact scheduler.CompactFunc, model string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{in: in, out: out, model: model, log: log}

	turnFunc := func(ctx context.Context, userMessage, sessionID string, onBeforeTurn func() string) (agent.Result, error) {
		start := time.Now()
		result, err := runTurn(ctx, userMessage, onBeforeTurn, s.writeAgentEvent)
		s.writeResult(result, err, time.Since(start), sessionID)
		atomic.AddInt64(&s.pending, -1)
		return result, err
	}

	hooks := scheduler.Hooks{
		OnQueued:      s.writeQueued,
		OnInjected:    s.writeInjected,
		OnStateChange: func(scheduler.State) {},
	}
	s.sched = scheduler.New(turnFunc, compact, hooks, log)
	return s
}

// Run reads lines from the input stream until EOF or ctx cancellation,
// dispatching each to the scheduler. It blocks until the scheduler's
// background work (including any in-flight compaction) has wound down.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedDone := make(chan error, 1)
	go func() { schedDone <- s.sched.Run(ctx) }()

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := s.handleLine(line); err != nil {
			s.writeSystemError(err.Error())
		}
	}
	if err := scanner.Err(); err != nil {
		s.writeSystemError(fmt.Sprintf("reading input: %v", err))
	}

	// Wait for every submitted turn to produce its result line before
	// tearing the scheduler down, so EOF on stdin can't cancel a turn that
	// arrived just before it (spec.md §5: a turn's result always follows
	// its events).
	for atomic.LoadInt64(&s.pending) > 0 {
		select {
		case <-ctx.Done():
			goto shutdown
		case <-time.After(2 * time.Millisecond):
		}
	}

shutdown:
	cancel()
	<-schedDone
	return nil
}

func (s *Server) handleLine(line []byte) error {
	var in InputLine
	if err := json.Unmarshal(line, &in); err != nil {
		return agenterr.Wrap(agenterr.Parse, "malformed input line", err)
	}

	switch in.Type {
	case "user":
		if in.Message == nil {
			return agenterr.New(agenterr.Invalid, `"user" line missing "message"`)
		}
		content, err := FlattenContent(in.Message.Content)
		if err != nil {
			return agenterr.Wrap(agenterr.Invalid, "invalid message content", err)
		}
		atomic.AddInt64(&s.pending, 1)
		s.sched.Submit(scheduler.QueuedMessage{
			Content:    content,
			SessionID:  in.SessionID,
			ReceivedAt: time.Now(),
		})
		return nil
	case "control":
		switch in.Action {
		case "interrupt":
			s.sched.Interrupt()
			s.writeLine(OutputLine{Type: "system", Subtype: "interrupted"})
		case "status":
			s.writeLine(OutputLine{Type: "system", Subtype: "status", Content: string(s.sched.State())})
		default:
			return agenterr.New(agenterr.Invalid, fmt.Sprintf("unknown control action %q", in.Action))
		}
		return nil
	default:
		return agenterr.New(agenterr.Invalid, fmt.Sprintf("unknown line type %q", in.Type))
	}
}

func (s *Server) writeAgentEvent(e agent.Event) {
	switch e.Kind {
	case agent.EventUser:
		// User turns are not echoed back; the caller already has them.
	case agent.EventAssistant:
		s.writeLine(OutputLine{
			Type: "assistant",
			Message: &OutputMessage{
				Role:    "assistant",
				Content: []ContentPart{{Type: "text", Text: e.Text}},
				Model:   s.model,
			},
		})
	case agent.EventToolCall:
		var input map[string]any
		_ = json.Unmarshal([]byte(e.ToolArgsJSON), &input)
		s.writeLine(OutputLine{
			Type: "assistant",
			Message: &OutputMessage{
				Role: "assistant",
				Content: []ContentPart{{
					Type: "tool_use", ID: e.ToolCallID, Name: e.ToolName, Input: input,
				}},
				Model: s.model,
			},
		})
	case agent.EventToolResult:
		s.writeLine(OutputLine{Type: "system", Subtype: "tool_result", ToolCallID: e.ToolCallID, Content: e.ToolResult})
	case agent.EventError:
		s.writeLine(OutputLine{Type: "system", Subtype: "error", Err: e.Text})
	case agent.EventConsolidation:
		s.writeLine(OutputLine{Type: "system", Subtype: "consolidation", Content: e.Text})
	case agent.EventDone:
		// No dedicated line; the turn's "result" message follows.
	}
}

func (s *Server) writeResult(result agent.Result, err error, elapsed time.Duration, sessionID string) {
	out := OutputLine{
		Type:       "result",
		DurationMS: elapsed.Milliseconds(),
		NumTurns:   result.NumTurns,
		SessionID:  sessionID,
		Usage:      &Usage{InputTokens: result.Usage.InputTokens, OutputTokens: result.Usage.OutputTokens},
	}
	switch {
	case err != nil:
		out.Subtype = "error"
		out.IsError = true
		msg := err.Error()
		out.Result = &msg
	case result.Cancelled:
		out.Subtype = "cancelled"
	default:
		out.Subtype = "success"
		out.Result = &result.Response
	}
	s.writeLine(out)
}

func (s *Server) writeQueued(position int) {
	s.writeLine(OutputLine{Type: "system", Subtype: "queued", Position: &position})
}

func (s *Server) writeInjected(messageCount, contentLength int) {
	s.writeLine(OutputLine{Type: "system", Subtype: "injected", MessageCnt: &messageCount, ContentLen: &contentLength})
}

func (s *Server) writeSystemError(msg string) {
	s.writeLine(OutputLine{Type: "system", Subtype: "error", Err: msg})
}

func (s *Server) writeLine(out OutputLine) {
	b, err := json.Marshal(out)
	if err != nil {
		s.log.Error("marshal output line", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(append(b, '\n')); err != nil {
		s.log.Error("write output line", zap.Error(err))
	}
}
