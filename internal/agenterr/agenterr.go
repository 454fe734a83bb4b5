// Package agenterr defines the typed error kinds shared across the agent
// runtime core, as required by the propagation policy in spec §7. Most
// call sites still wrap errors with fmt.Errorf("op: %w", err) the way the
// teacher codebase does; agenterr exists only where a caller needs to
// switch on *kind* rather than message text (LTM CAS, summary id
// validation, and stdin parsing).
package agenterr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it.
type Kind int

const (
	// Unknown is the zero value; KindOf returns it for plain errors that
	// never passed through this package.
	Unknown Kind = iota
	Parse
	Invalid
	NotFound
	Conflict
	Archived
	ToolValidation
	ToolExecution
	ModelError
	Cancelled
	Internal
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse"
	case Invalid:
		return "invalid"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Archived:
		return "archived"
	case ToolValidation:
		return "tool_validation"
	case ToolExecution:
		return "tool_execution"
	case ModelError:
		return "model_error"
	case Cancelled:
		return "cancelled"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying a Kind plus optional CAS conflict detail.
type Error struct {
	Kind     Kind
	Msg      string
	Expected int // populated for Conflict
	Actual   int // populated for Conflict
	Err      error
}

func (e *Error) Error() string {
	if e.Kind == Conflict {
		return fmt.Sprintf("%s: expected version %d, actual %d", e.Msg, e.Expected, e.Actual)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a plain typed error of the given kind.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

// Wrap attaches a kind to an existing error.
func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Msg: msg, Err: err}
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Msg: fmt.Sprintf(format, args...)}
}

// Archivedf builds an Archived error.
func Archivedf(format string, args ...any) *Error {
	return &Error{Kind: Archived, Msg: fmt.Sprintf(format, args...)}
}

// ConflictErr builds a CAS Conflict{expected, actual} error.
func ConflictErr(slug string, expected, actual int) *Error {
	return &Error{Kind: Conflict, Msg: fmt.Sprintf("version conflict on %q", slug), Expected: expected, Actual: actual}
}

// Cancelledf builds a Cancelled error.
func Cancelledf(format string, args ...any) *Error {
	return &Error{Kind: Cancelled, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, walking the unwrap chain. Returns
// Unknown for errors that never carried a Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
