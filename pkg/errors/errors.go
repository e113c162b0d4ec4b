// Package errors provides structured error handling for Strata
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind represents the category of error
type Kind string

const (
	// KindSchemaViolation indicates a value tree that does not match the
	// schema tree shape. Fatal to the write operation that produced it.
	KindSchemaViolation Kind = "schema_violation"
	// KindStructuralCorruption indicates leaf column streams that disagree
	// on record boundaries during assembly. Fatal, never retried.
	KindStructuralCorruption Kind = "structural_corruption"
	// KindMalformedEncoding indicates encoded bytes inconsistent with the
	// declared value count or bit width. Fatal for the page.
	KindMalformedEncoding Kind = "malformed_encoding"
	// KindChecksumMismatch indicates page-level corruption detected by the
	// stored checksum. Fatal for the page only.
	KindChecksumMismatch Kind = "checksum_mismatch"
	// KindUnsupportedEncoding indicates an unrecognized encoding id on read.
	// Fatal for the column chunk.
	KindUnsupportedEncoding Kind = "unsupported_encoding"
	// KindConfig represents configuration errors
	KindConfig Kind = "config"
	// KindInternal represents internal invariant failures
	KindInternal Kind = "internal"
)

// Error represents a structured error with context
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithColumn records the dotted column path the error belongs to
func (e *Error) WithColumn(path string) *Error {
	return e.WithDetail("column", path)
}

// WithPage records the ordinal of the page the error belongs to
func (e *Error) WithPage(ordinal int) *Error {
	return e.WithDetail("page", ordinal)
}

// New creates a new error with the given kind and message
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Kind:    kind,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsKind checks if the error is of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the kind of the error, or KindInternal for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal
	}
	return e.Kind
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
