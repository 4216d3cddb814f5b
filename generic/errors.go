/*
errors.go - Centralized error taxonomy

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages build structured errors with the constructors below and
  callers match them with errors.Is / errors.As, never by message.

ERROR KINDS:
  1. Validation        - malformed or missing input
  2. Permission        - role/department mismatch, action illegal for status
  3. NotFound          - referenced entity absent
  4. Conflict          - double-booking, duplicate calendar day, day in use
  5. InvalidTransition - status change not in the lifecycle table

AGGREGATION:
  Bulk operations collect several structured errors into Errors. The
  aggregate unwraps to every member, so errors.Is(err, ErrConflict) holds
  when any member is a conflict.

USAGE:
  if errors.Is(err, generic.ErrNotFound) {
      ...
  }

  var gerr *generic.Error
  if errors.As(err, &gerr) {
      fmt.Println(gerr.Kind, gerr.Messages)
  }

SEE ALSO:
  - api/errors.go: Maps kinds to HTTP status codes and the error envelope
  - allowance/bulk.go: Builds aggregated errors
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input is malformed or incomplete.
	ErrValidation = errors.New("validation failed")

	// ErrPermission is returned when the principal may not perform the action.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would break a uniqueness invariant.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition is returned when a status change is not allowed
	// for the acting role and the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry kind and human-readable messages
// =============================================================================

// Kind classifies an error for the boundary layer.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindPermission        Kind = "permission"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindPermission:
		return ErrPermission
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindInvalidTransition:
		return ErrInvalidTransition
	}
	return nil
}

// Error is a classified error with one or more messages meant for the caller.
type Error struct {
	Kind     Kind
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Messages: []string{fmt.Sprintf(format, args...)}}
}

func ValidationError(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func PermissionError(format string, args ...any) *Error {
	return newError(KindPermission, format, args...)
}

func NotFoundError(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func ConflictError(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func InvalidTransitionError(format string, args ...any) *Error {
	return newError(KindInvalidTransition, format, args...)
}

// =============================================================================
// AGGREGATE
// =============================================================================

// Errors is an ordered collection of structured errors.
type Errors []*Error

// Add appends err when it is non-nil.
func (es *Errors) Add(err *Error) {
	if err != nil {
		*es = append(*es, err)
	}
}

func (es Errors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Err returns nil for an empty aggregate, the single member when there is
// exactly one, and the aggregate otherwise.
func (es Errors) Err() error {
	switch len(es) {
	case 0:
		return nil
	case 1:
		return es[0]
	default:
		return es
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the kind of the first structured error found in err's chain,
// or "" when err carries none.
func KindOf(err error) Kind {
	var es Errors
	if errors.As(err, &es) && len(es) > 0 {
		return es[0].Kind
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Messages flattens err into caller-facing strings. Errors without a kind
// yield nothing; the boundary substitutes a generic message for those.
func Messages(err error) []string {
	var es Errors
	if errors.As(err, &es) {
		var out []string
		for _, e := range es {
			out = append(out, e.Messages...)
		}
		return out
	}
	var e *Error
	if errors.As(err, &e) {
		return append([]string(nil), e.Messages...)
	}
	return nil
}

// IsClientError returns true if the error is due to the caller's input or
// authority rather than an infrastructure failure.
func IsClientError(err error) bool {
	return KindOf(err) != ""
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
