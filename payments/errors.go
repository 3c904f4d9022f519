/*
errors.go - Error kinds for the replay pipeline

PURPOSE:
  All error types in one place. The engine itself never fails: errors are
  produced at the boundary (record sources) or are recorded as silent
  no-ops (unresolved references).

ERROR CATEGORIES:
  1. Record errors - A single row could not be parsed; the row is skipped
  2. Reference misses - Not returned, only counted in Stats
  3. Source failures - Anything else from a Source; the replay aborts

USAGE:
  Sources wrap row-level problems so the engine can skip them:

    return payments.Transaction{}, payments.NewMalformedRecordError(line, err)

SEE ALSO:
  - engine.go: Skip-or-abort decision in Replay
  - csvio/reader.go: Produces these errors
*/
package payments

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidOperationKind is returned when a type tag matches none of
	// the five operation kinds.
	ErrInvalidOperationKind = errors.New("invalid operation kind")

	// ErrMalformedRecord marks a source error that only affects one record.
	// Replay skips such records and keeps going.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnresolvedReference describes a dispute-family record whose tx was
	// never seen. The engine treats it as a no-op and never returns it; it
	// exists so callers can name the condition in logs and reports.
	ErrUnresolvedReference = errors.New("unresolved reference")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidKindError carries the rejected type tag.
type InvalidKindError struct {
	Raw string
}

func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid operation kind %q", e.Raw)
}

func (e *InvalidKindError) Unwrap() error {
	return ErrInvalidOperationKind
}

// MalformedRecordError ties a parse failure to its position in the input.
type MalformedRecordError struct {
	Line int
	Err  error
}

// NewMalformedRecordError wraps err as a skippable record error.
func NewMalformedRecordError(line int, err error) *MalformedRecordError {
	return &MalformedRecordError{Line: line, Err: err}
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Is lets errors.Is match ErrMalformedRecord while Unwrap still exposes the
// underlying cause (for example an *InvalidKindError).
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsSkippable returns true if the error only invalidates a single record.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}
