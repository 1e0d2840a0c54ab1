// Package backend wraps a dialect/sql.Driver with transaction-depth and
// savepoint bookkeeping, statement logging, and a driver-error taxonomy
// that upper layers (package query, package ar) can branch on without
// inspecting database/sql's untyped errors.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/rhosocial/activerecord-go/dialect"
)

// StatementKind informs the backend how to shape a statement's result
// and how to log it.
type StatementKind int

const (
	// DML is a data-modifying statement (INSERT/UPDATE/DELETE); Execute
	// returns the affected-row count.
	DML StatementKind = iota
	// Query is a row-producing statement; Execute returns a dialect.Rows
	// iterator via ExecutionResult.Rows.
	Query
	// DDL is a schema-modifying statement; Execute returns nothing beyond
	// success/failure.
	DDL
)

// ExecutionResult is what Execute returns: for DML, Affected and
// LastInsertID are populated; for Query, Rows is populated and the
// caller owns closing it; DDL populates neither.
type ExecutionResult struct {
	Affected     int64
	LastInsertID int64
	Rows         dialect.Rows
}

// Backend is the single execution seam between the compiled Expression
// Tree and a live database connection. The transaction-depth counter and
// savepoint name stack travel in the context that Transaction returns, so
// nested Transaction calls compose correctly regardless of how deeply
// package query or package ar has nested its own logical transactions.
type Backend struct {
	driver  dialect.Driver
	dialect dialect.Dialect
	logger  Logger
}

// New wraps driver for dialect d. The zero Logger is a no-op; attach one
// with SetLogger.
func New(driver dialect.Driver, d dialect.Dialect) *Backend {
	return &Backend{driver: driver, dialect: d, logger: noopLogger{}}
}

// SetLogger attaches a query-event sink. Passing nil restores the no-op
// logger.
func (b *Backend) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	b.logger = l
}

// Dialect returns the backend's target dialect, used by the Expression
// Tree's ToSQL and by package query to compile statements.
func (b *Backend) Dialect() dialect.Dialect { return b.dialect }

// Disconnect closes the underlying driver. Calling Disconnect while a
// transaction is open (depth>0 on ctx) aborts that transaction first by
// rolling it back, matching the spec's connect/disconnect idempotency
// contract.
func (b *Backend) Disconnect(ctx context.Context) error {
	if st := txStateFrom(ctx); st != nil && st.depth > 0 {
		_ = st.driver.Rollback()
	}
	return b.driver.Close()
}

// execQuerier returns the active transaction's driver if ctx carries one,
// else the backend's own top-level driver.
func (b *Backend) execQuerier(ctx context.Context) dialect.ExecQuerier {
	if st := txStateFrom(ctx); st != nil {
		return st.driver
	}
	return b.driver
}

// Execute runs sql with args and shapes the result per kind. Args must
// already be driver-native values (the output of a typeadapter.Registry
// ToDatabase conversion, or primitives the driver accepts as-is);
// Execute never stringifies an unrecognized host type; it is the
// caller's responsibility to have resolved it through the adapter
// registry first.
func (b *Backend) Execute(ctx context.Context, kind StatementKind, sqlText string, args []any) (ExecutionResult, error) {
	start := time.Now()
	ex := b.execQuerier(ctx)

	if kind == Query {
		rows, err := ex.QueryContext(ctx, sqlText, args...)
		b.log(ctx, sqlText, args, start, 0, err)
		if err != nil {
			return ExecutionResult{}, classify(err)
		}
		return ExecutionResult{Rows: rows}, nil
	}

	res, err := ex.ExecContext(ctx, sqlText, args...)
	if err != nil {
		b.log(ctx, sqlText, args, start, 0, err)
		return ExecutionResult{}, classify(err)
	}
	if kind == DDL {
		b.log(ctx, sqlText, args, start, 0, nil)
		return ExecutionResult{}, nil
	}
	affected, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()
	b.log(ctx, sqlText, args, start, affected, nil)
	return ExecutionResult{Affected: affected, LastInsertID: lastID}, nil
}

// ExecuteAndFetchOne runs a query expected to produce at most one row,
// invoking scan on it. It returns (false, nil) when the query produces
// zero rows, never an error for that case.
func (b *Backend) ExecuteAndFetchOne(ctx context.Context, sqlText string, args []any, scan func(dialect.Rows) error) (bool, error) {
	res, err := b.Execute(ctx, Query, sqlText, args)
	if err != nil {
		return false, err
	}
	defer res.Rows.Close()
	if !res.Rows.Next() {
		return false, res.Rows.Err()
	}
	if err := scan(res.Rows); err != nil {
		return false, fmt.Errorf("backend: scan: %w", err)
	}
	return true, nil
}

func (b *Backend) log(ctx context.Context, sqlText string, args []any, start time.Time, affected int64, err error) {
	b.logger.LogQuery(ctx, QueryEvent{
		SQL:      sqlText,
		Args:     args,
		Duration: time.Since(start),
		Affected: affected,
		Err:      err,
	})
}
