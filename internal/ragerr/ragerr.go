// Package ragerr defines the error taxonomy shared across the core:
// Validation, NotFound, Conflict, Cancelled, ProviderError, Corrupt, and
// Internal. Components construct errors with the New/Wrap helpers so callers
// can branch on Code via errors.As without string matching.
package ragerr

import (
	"errors"
	"fmt"
)

// Code classifies an Error for transport-layer mapping (400/404/409/502/...).
type Code int

const (
	// Internal is everything not otherwise classified: log it, mark the
	// affected document errored, unregister the job.
	Internal Code = iota
	// Validation is bad input at an interface boundary.
	Validation
	// NotFound is a missing docId, store, node, or edge.
	NotFound
	// Conflict is a wrong-state error, such as an embedding dimension
	// that does not match the store's fixed dimension.
	Conflict
	// Cancelled is raised through cooperative cancellation.
	Cancelled
	// ProviderError is an upstream LLM/embedding failure.
	ProviderError
	// Corrupt marks an unreadable on-disk file.
	Corrupt
)

func (c Code) String() string {
	switch c {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Cancelled:
		return "cancelled"
	case ProviderError:
		return "provider_error"
	case Corrupt:
		return "corrupt"
	default:
		return "internal"
	}
}

// Error is a typed, wrappable error carrying a Code.
type Error struct {
	code Code
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Code returns the error's classification.
func (e *Error) Code() Code { return e.code }

// New constructs a typed error with no wrapped cause.
func New(code Code, msg string) error {
	return &Error{code: code, msg: msg}
}

// Newf constructs a typed error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error, preserving it for
// errors.Is/errors.As and Unwrap chains.
func Wrap(code Code, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, msg: msg, err: err}
}

// CodeOf extracts the Code of err if it (or something it wraps) is an
// *Error, and Internal otherwise.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return Internal
}

// Is reports whether err's Code equals code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

var (
	// ErrDimensionMismatch is raised by vector store upserts whose
	// embedding length does not match the store's fixed dimension.
	ErrDimensionMismatch = New(Conflict, "embedding dimension does not match store dimension")
	// ErrStoreCorrupt is raised when a vector store file is unreadable or
	// not a recognized version.
	ErrStoreCorrupt = New(Corrupt, "vector store file is unreadable or unrecognized")
	// ErrEmptyText is raised by upserts of items with empty text.
	ErrEmptyText = New(Validation, "item text must not be empty")
	// ErrEmptyEmbedding is raised by upserts of items with an empty
	// embedding vector.
	ErrEmptyEmbedding = New(Validation, "item embedding must not be empty")
	// ErrCancelled is the sentinel raised by cooperative cancellation
	// checks throughout the ingestion pipeline and the flow engine.
	ErrCancelled = New(Cancelled, "operation cancelled")
)
