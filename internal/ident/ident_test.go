package ident

import (
	"strings"
	"testing"
)

func TestNextHasPrefix(t *testing.T) {
	s := New(nil)
	id := s.Next(Message)
	if !strings.HasPrefix(id, "message_") {
		t.Errorf("expected message_ prefix, got %q", id)
	}
}

func TestNextMonotonic(t *testing.T) {
	s := New(nil)
	var prev string
	for i := 0; i < 1000; i++ {
		id := s.Next(Summary)
		if prev != "" && id <= prev {
			t.Fatalf("ids not monotonic: %q then %q", prev, id)
		}
		prev = id
	}
}

func TestDifferentKindsDifferentPrefixes(t *testing.T) {
	s := New(nil)
	m := s.Next(Message)
	w := s.Next(Worker)
	if strings.HasPrefix(m, "worker_") || strings.HasPrefix(w, "message_") {
		t.Error("prefixes leaked across kinds")
	}
}
