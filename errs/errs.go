// Package errs defines the error taxonomy shared across karukan (spec §7):
// every failure the engine can observe is tagged with one of a handful of
// kinds so callers can decide how to degrade gracefully without string
// matching error messages.
package errs

import "fmt"

// Kind tags which part of the system produced an error.
type Kind int

const (
	// Model covers missing model files, decode failures, and OOM inside a
	// neural backend.
	Model Kind = iota
	// Dict covers bad magic, truncated files, and version mismatches in
	// the double-array dictionary format.
	Dict
	// Learning covers IO failures saving or loading the learning cache.
	Learning
	// Config covers unparsable TOML or out-of-range configuration values.
	Config
	// Ffi covers null handles and invalid UTF-8 arriving from the host.
	Ffi
)

func (k Kind) String() string {
	switch k {
	case Model:
		return "ModelError"
	case Dict:
		return "DictError"
	case Learning:
		return "LearningError"
	case Config:
		return "ConfigError"
	case Ffi:
		return "FfiError"
	default:
		return "UnknownError"
	}
}

// Error is a taxonomy-tagged error wrapping an underlying cause.
type Error struct {
	Kind Kind
	Op   string // short operation name, e.g. "dict.Load" or "neural.Convert"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation name. If err is nil, New returns
// nil so call sites can write `return errs.New(...)` unconditionally after
// an `if err != nil` guard without double-wrapping nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or something it wraps) is a karukan Error of kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if ke, ok := err.(*Error); ok && ke.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
