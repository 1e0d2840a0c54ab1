package ar

import (
	"errors"
	"fmt"

	"github.com/rhosocial/activerecord-go/dialect/sql"
	"github.com/rhosocial/activerecord-go/typeadapter"
)

// ErrNotFound is returned by FindOrFail when no row matches; Find
// returns a nil record and a nil error instead.
var ErrNotFound = errors.New("ar: record not found")

// ValidationError carries per-field validation failures raised before a
// save is attempted.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ar: validation failed for %d field(s)", len(e.Fields))
}

// NewValidationError builds a ValidationError from one field/reason pair,
// the common case of a single failing validator.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// StaleObjectError is raised by refresh() when the row backing a loaded
// instance has been deleted, and by an optimistic-locked save() when the
// UPDATE's version-guarded WHERE clause matches zero rows.
type StaleObjectError struct {
	Table string
	PK    any
}

func (e *StaleObjectError) Error() string {
	return fmt.Sprintf("ar: stale object: %s(pk=%v) was modified or removed concurrently", e.Table, e.PK)
}

// LifecycleError wraps an error raised by a registered lifecycle handler,
// naming the event that aborted the operation.
type LifecycleError struct {
	Event Event
	Err   error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("ar: lifecycle handler for %s: %v", e.Event, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// ConversionError and UnregisteredAdapterError are re-exported so callers
// handling ar errors never need to import typeadapter directly for the
// common failure modes save()/refresh() can surface.
type ConversionError = typeadapter.ConversionError
type UnregisteredAdapterError = typeadapter.UnregisteredAdapterError

// FeatureNotSupportedError is re-exported for the same reason: a query()
// chain compiled against a dialect lacking RETURNING, CTE, etc. surfaces
// this without the caller importing dialect/sql.
type FeatureNotSupportedError = sql.FeatureNotSupportedError
