// Package scheduler implements the single-turn-at-a-time gate, the
// out-of-turn FIFO queue, mid-turn injection, and interrupt handling
// described in spec.md §4.7. It owns no storage or model logic itself — it
// wraps a caller-supplied TurnFunc (normally agent.RunAgent) and decides
// when that function may run.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/agent-memory-core/internal/agent"
)

// State is one of the three states spec.md §4.7 names.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDraining State = "draining"
)

// QueuedMessage is one user message waiting for a turn.
type QueuedMessage struct {
	Content    string
	SessionID  string
	ReceivedAt time.Time
}

// TurnFunc runs one turn to completion. onBeforeTurn is supplied by the
// scheduler itself (spec.md §4.7's mid-turn injection), not the caller.
type TurnFunc func(ctx context.Context, userMessage, sessionID string, onBeforeTurn func() string) (agent.Result, error)

// CompactFunc runs the best-effort compaction worker after a turn. Errors
// are logged, never surfaced to the turn that triggered them (spec.md §4.6,
// §5: "Compaction failures never escalate to the main turn").
type CompactFunc func(ctx context.Context) error

// Hooks notify a caller (normally the NDJSON server) of scheduler-level
// events that aren't part of agent.Event.
type Hooks struct {
	// OnQueued fires when a message is enqueued behind a running turn
	// (not when a turn starts immediately from idle).
	OnQueued func(position int)
	// OnInjected fires when queued messages are drained into a running
	// turn (spec.md: `system{subtype:"injected", message_count, content_length}`).
	OnInjected func(messageCount, contentLength int)
	// OnStateChange fires on every state transition.
	OnStateChange func(State)
}

// Scheduler enforces spec.md §4.7's state machine around a TurnFunc.
type Scheduler struct {
	run      TurnFunc
	compact  CompactFunc
	hooks    Hooks
	log      *zap.Logger
	signal   chan struct{}
	bg       *errgroup.Group
	bgCtx    context.Context

	mu      sync.Mutex
	state   State
	queue   []QueuedMessage
	cancel  context.CancelFunc
	running bool // non-reentrant processQueue guard (spec.md §4.7 invariant)
}

// New builds a Scheduler. compact may be nil to disable the post-turn
// background compaction check (used by tests that only exercise the state
// machine).
func New(run TurnFunc, compact CompactFunc, hooks Hooks, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		run:     run,
		compact: compact,
		hooks:   hooks,
		log:     log,
		signal:  make(chan struct{}, 1),
		state:   StateIdle,
	}
}

// Run drives the scheduler's processing loop until ctx is cancelled. It
// also owns the errgroup that background compaction runs are spawned onto,
// so Run's return waits for any in-flight compaction to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	s.bg = group
	s.bgCtx = gctx

	for {
		select {
		case <-ctx.Done():
			return group.Wait()
		case <-s.signal:
			s.processQueue(ctx)
		}
	}
}

// Submit enqueues a user message and wakes the processing loop. If the
// scheduler is idle the message is dequeued and run immediately without a
// "queued" notification (spec.md: `idle --user msg--> running`); otherwise
// it joins the FIFO queue behind the in-flight turn.
func (s *Scheduler) Submit(msg QueuedMessage) {
	s.mu.Lock()
	wasIdle := s.state == StateIdle
	s.queue = append(s.queue, msg)
	position := len(s.queue)
	s.mu.Unlock()

	if !wasIdle && s.hooks.OnQueued != nil {
		s.hooks.OnQueued(position)
	}

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Interrupt cancels the in-flight turn, if any. The agent loop observes
// this at its next suspension point (spec.md §4.7, §5).
func (s *Scheduler) Interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// State returns the scheduler's current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// processQueue drains the queue one turn at a time. The running guard makes
// it safe to call from multiple signal deliveries without re-entering while
// a prior call is still draining (spec.md §4.7: "processQueue is not
// re-entrant").
func (s *Scheduler) processQueue(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.state = StateIdle
			s.mu.Unlock()
			s.notify(StateIdle)
			return
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.state = StateRunning
		turnCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.mu.Unlock()
		s.notify(StateRunning)

		result, err := s.run(turnCtx, msg.Content, msg.SessionID, s.drainForInjection)
		cancel()

		s.mu.Lock()
		s.cancel = nil
		s.state = StateDraining
		s.mu.Unlock()
		s.notify(StateDraining)

		if err != nil {
			s.log.Error("turn failed", zap.Error(err), zap.String("session_id", msg.SessionID))
		} else if result.Cancelled {
			s.log.Info("turn cancelled", zap.String("session_id", msg.SessionID))
		}

		s.spawnCompaction()
	}
}

// drainForInjection implements spec.md §4.7's mid-turn injection: it is
// passed to the agent loop as onBeforeTurn, called at every model-call
// boundary.
func (s *Scheduler) drainForInjection() string {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return ""
	}
	drained := s.queue
	s.queue = nil
	s.mu.Unlock()

	parts := make([]string, len(drained))
	for i, m := range drained {
		parts[i] = m.Content
	}
	joined := strings.Join(parts, "\n\n")

	if s.hooks.OnInjected != nil {
		s.hooks.OnInjected(len(drained), len(joined))
	}
	return joined
}

// spawnCompaction runs the compaction worker in the background errgroup so
// it never blocks the scheduler from picking up the next queued turn.
func (s *Scheduler) spawnCompaction() {
	if s.compact == nil || s.bg == nil {
		return
	}
	s.bg.Go(func() error {
		if err := s.compact(s.bgCtx); err != nil {
			s.log.Warn("compaction worker failed", zap.Error(err))
		}
		return nil
	})
}

func (s *Scheduler) notify(st State) {
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(st)
	}
}
