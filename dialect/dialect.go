// Package dialect provides database dialect abstraction: identifier
// quoting, placeholder style, LIMIT/OFFSET/RETURNING syntax, and feature
// capability flags (CTE, window, JSON, FOR UPDATE). It also defines the
// minimal Driver/Tx contract that the sql package and backend package
// build on.
package dialect

import "context"

// Dialect identifiers, used both as the strings concrete dialects report
// from Name() and historically as database/sql driver names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// Feature is a capability tag a Dialect may or may not support. Expression
// compilation checks these before emitting dialect-specific syntax; an
// unsupported feature fails compilation with FeatureNotSupportedError
// rather than emitting invalid SQL.
type Feature string

const (
	FeatureReturning     Feature = "RETURNING"
	FeatureCTE           Feature = "CTE"
	FeatureRecursiveCTE  Feature = "CTE_RECURSIVE"
	FeatureWindow        Feature = "WINDOW"
	FeatureJSON          Feature = "JSON"
	FeatureForUpdate     Feature = "FOR_UPDATE"
	FeatureSkipLocked    Feature = "SKIP_LOCKED"
	FeatureNowait        Feature = "NOWAIT"
	FeatureOnConflict    Feature = "ON_CONFLICT"
	FeatureMaterializeCTE Feature = "CTE_MATERIALIZED"
)

// Placeholder styles.
type PlaceholderStyle int

const (
	// PlaceholderQuestion renders every placeholder as a bare '?'.
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar renders positional placeholders as '$1', '$2', ...
	PlaceholderDollar
)

// Dialect renders database-specific SQL syntax and exposes capability
// flags. Implementations must be side-effect-free and safe for concurrent
// use; a Dialect carries no connection state.
type Dialect interface {
	// Name returns one of the Postgres/MySQL/SQLite constants.
	Name() string

	// QuoteIdentifier quotes a single SQL identifier (table, column,
	// alias). Composite identifiers (schema.table) must be quoted by the
	// caller part-by-part.
	QuoteIdentifier(name string) string

	// PlaceholderStyle reports the dialect's bound-parameter rendering.
	PlaceholderStyle() PlaceholderStyle

	// Placeholder renders the placeholder for the 1-indexed parameter
	// position idx within a single statement.
	Placeholder(idx int) string

	// Supports reports whether the dialect implements the given feature.
	Supports(feature Feature) bool

	// RenderLimitOffset renders the LIMIT/OFFSET clause. Either pointer
	// may be nil to omit that part.
	RenderLimitOffset(limit, offset *int64) string

	// RenderForUpdate renders a FOR UPDATE clause for the given lock
	// targets (may be empty) and options.
	RenderForUpdate(of []string, nowait, skipLocked bool) string

	// RenderConflictTarget renders the ON CONFLICT target clause for the
	// given column list (may be empty, meaning "any constraint").
	RenderConflictTarget(cols []string) string

	// RenderReturning renders a RETURNING clause for the given already
	//-quoted projection expressions.
	RenderReturning(projections []string) string
}

// ExecQuerier wraps the standard Exec/Query calling convention used by the
// database/sql-compatible driver layer.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
}

// Result mirrors database/sql.Result.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Rows mirrors the subset of database/sql.Rows the decoding layer needs.
type Rows interface {
	Close() error
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Driver is the minimal contract a backend talks to: connect/execute/
// query/transact/close, plus dialect identification. Concrete
// implementations live in dialect/sql.
type Driver interface {
	ExecQuerier
	Dialect() string
	Tx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx extends Driver with the operations needed to finish a transaction.
// Nested savepoint semantics live one layer up, in package backend —
// package dialect/sql's Tx is the flat "one BEGIN, one COMMIT/ROLLBACK"
// primitive a raw database/sql.Tx provides.
type Tx interface {
	Driver
	Commit() error
	Rollback() error
}
