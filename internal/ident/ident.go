// Package ident mints lexicographically sortable identifiers with a short
// type prefix (message_01H..., summary_01H..., worker_01H..., session_01H...).
// It generalizes the teacher's bare ulid.MustNew(ulid.Timestamp(now), entropy)
// call (internal/store/sqlite.go) into a small service with per-kind
// prefixes, as spec §4.1 requires.
package ident

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/agent-memory-core/internal/clock"
)

// Kind names the entity a minted ID belongs to.
type Kind string

const (
	Message  Kind = "message"
	Summary  Kind = "summary"
	Worker   Kind = "worker"
	Session  Kind = "session"
	LTM      Kind = "ltm"
	ToolCall Kind = "toolcall"
)

// Service mints monotonically sortable IDs. Two IDs minted in the same
// millisecond, in any order, still sort in creation order: ulid.MustNew
// already guarantees this given monotonically increasing entropy, which
// ulid.Monotonic supplies over a *rand.Rand seeded once at construction;
// the mutex serializes all mints through that one non-thread-safe reader
// (mirrors the teacher's per-store entropy source).
type Service struct {
	mu      sync.Mutex
	entropy io.Reader
	clock   clock.Clock
}

// New creates an identifier service. If c is nil, the real wall clock is used.
func New(c clock.Clock) *Service {
	if c == nil {
		c = clock.Real{}
	}
	source := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Service{entropy: ulid.Monotonic(source, 0), clock: c}
}

// Next mints a new identifier of the given kind.
func (s *Service) Next(k Kind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(s.clock.Now()), s.entropy)
	return string(k) + "_" + id.String()
}
