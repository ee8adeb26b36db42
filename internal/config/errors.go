package config

import (
	"errors"
	"fmt"
)

// Kind classifies configuration failures.
type Kind int

const (
	// NotFound: the document (or an inherited parent) does not exist.
	NotFound Kind = iota
	// Malformed: the document could not be parsed, inheritance is
	// circular, or an environment setup script failed.
	Malformed
	// MergeConflict: the same key path holds a scalar in two layers of
	// the inheritance chain.
	MergeConflict
	// MissingField: a mandatory section (project identity, device
	// target) is absent from the resolved tree.
	MissingField
	// UnresolvedPlaceholderLoop: placeholder substitution did not reach
	// a fixed point within the iteration cap.
	UnresolvedPlaceholderLoop
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Malformed:
		return "malformed"
	case MergeConflict:
		return "merge conflict"
	case MissingField:
		return "missing field"
	case UnresolvedPlaceholderLoop:
		return "unresolved placeholder loop"
	}
	return "unknown"
}

// Error is the failure type for every configuration operation.
type Error struct {
	Kind Kind
	// Path names the offending document or key path.
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s: %s: %s", e.Kind, e.Path, e.Msg)
	}
	return fmt.Sprintf("config: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a configuration error, or ok=false for any
// other error value.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
