package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// ConnectionError wraps a failure to establish or maintain the underlying
// database connection.
type ConnectionError struct{ Err error }

func (e *ConnectionError) Error() string { return fmt.Sprintf("backend: connection: %v", e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// OperationalError wraps a driver-level failure that is not a constraint
// violation, data error, or deadlock (syntax errors, missing relations,
// permission denials, timeouts).
type OperationalError struct{ Err error }

func (e *OperationalError) Error() string { return fmt.Sprintf("backend: operational: %v", e.Err) }
func (e *OperationalError) Unwrap() error { return e.Err }

// IntegrityError wraps a unique, foreign-key, or check constraint
// violation reported by the database.
type IntegrityError struct{ Err error }

func (e *IntegrityError) Error() string { return fmt.Sprintf("backend: integrity: %v", e.Err) }
func (e *IntegrityError) Unwrap() error { return e.Err }

// DataError wraps a value that the database rejected as malformed for its
// target column type (overflow, invalid encoding, out-of-range date).
type DataError struct{ Err error }

func (e *DataError) Error() string { return fmt.Sprintf("backend: data: %v", e.Err) }
func (e *DataError) Unwrap() error { return e.Err }

// DeadlockError wraps a serialization failure or detected deadlock. It is
// convertible to a retryable operation by callers that choose to retry
// the whole transaction.
type DeadlockError struct{ Err error }

func (e *DeadlockError) Error() string { return fmt.Sprintf("backend: deadlock: %v", e.Err) }
func (e *DeadlockError) Unwrap() error { return e.Err }

// TransactionError reports a mis-nested begin/commit/rollback: Commit or
// Rollback called twice on the same scope, or an outermost Commit that
// finds the depth non-zero. A nested isolation-level mismatch is reported
// as NestedIsolationConflict instead.
type TransactionError struct{ Msg string }

func (e *TransactionError) Error() string { return "backend: transaction: " + e.Msg }

// ErrNestedIsolationConflict is returned when a nested Transaction call
// requests an isolation level different from the outermost transaction's.
var ErrNestedIsolationConflict = errors.New("backend: nested transaction requested a different isolation level than the outermost transaction")

// NestedIsolationConflict wraps ErrNestedIsolationConflict with the two
// conflicting levels for diagnostics.
type NestedIsolationConflict struct {
	Outer, Inner string
}

func (e *NestedIsolationConflict) Error() string {
	return fmt.Sprintf("backend: nested transaction requested isolation %q, outermost transaction runs at %q", e.Inner, e.Outer)
}

func (e *NestedIsolationConflict) Is(target error) bool {
	return target == ErrNestedIsolationConflict
}

// PostgreSQL SQLSTATE codes, by class: 23 is integrity constraint
// violation, 40 is transaction rollback (serialization failure or
// detected deadlock).
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// MySQL numeric error codes for the same two classes.
const (
	mysqlDuplicateEntry   = 1062
	mysqlForeignKeyParent = 1451 // cannot delete or update a parent row
	mysqlForeignKeyChild  = 1452 // cannot add or update a child row
	mysqlCheckConstraint  = 3819
	mysqlDeadlockFound    = 1213
	mysqlLockWaitTimeout  = 1205
)

// isIntegrityViolation reports whether err is a *pq.Error or
// *mysql.MySQLError carrying a constraint-violation code. lib/pq and
// go-sql-driver/mysql expose their codes as struct fields (pq.Error.Code,
// mysql.MySQLError.Number), not methods, so the check walks the chain
// with errors.As rather than a duck-typed interface.
func isIntegrityViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation, pgForeignKeyViolation, pgCheckViolation:
			return true
		}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry, mysqlForeignKeyParent, mysqlForeignKeyChild, mysqlCheckConstraint:
			return true
		}
	}
	return false
}

// isDeadlock reports whether err is a *pq.Error or *mysql.MySQLError
// carrying a serialization-failure or deadlock code.
func isDeadlock(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgSerializationFailure, pgDeadlockDetected:
			return true
		}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDeadlockFound, mysqlLockWaitTimeout:
			return true
		}
	}
	return false
}

// looksLikeConstraintViolation inspects a driver error's message for
// constraint-violation keywords. It is the last-resort path for drivers
// that carry no structured error code, such as modernc.org/sqlite.
func looksLikeConstraintViolation(msg string) bool {
	msg = strings.ToLower(msg)
	for _, kw := range []string{"unique", "constraint", "foreign key", "duplicate", "violates"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// looksLikeDeadlock inspects a driver error's message for deadlock or
// serialization-failure keywords, the same last-resort fallback as
// looksLikeConstraintViolation.
func looksLikeDeadlock(msg string) bool {
	msg = strings.ToLower(msg)
	for _, kw := range []string{"deadlock", "serialization failure", "lock wait timeout"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// classify maps a raw driver error into the backend failure taxonomy.
// It checks structured driver error codes first (PostgreSQL SQLSTATE via
// *pq.Error, MySQL error numbers via *mysql.MySQLError) and only falls
// back to message keyword matching for drivers, such as SQLite, that
// carry no portable error code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isDeadlock(err):
		return &DeadlockError{Err: err}
	case isIntegrityViolation(err):
		return &IntegrityError{Err: err}
	}
	msg := err.Error()
	switch {
	case looksLikeDeadlock(msg):
		return &DeadlockError{Err: err}
	case looksLikeConstraintViolation(msg):
		return &IntegrityError{Err: err}
	default:
		return &OperationalError{Err: err}
	}
}
