package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rhosocial/activerecord-go/dialect"
)

// validIdentifierRe validates bare SQL identifiers (alphanumeric,
// underscores, dots for schema.name) used for session variable names.
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue escapes a string value for use inside a single-quoted
// SQL literal. Used only for session variable values, never for bound
// query parameters, which always go through placeholders.
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// Driver adapts a database/sql.DB to dialect.Driver.
type Driver struct {
	db   *sql.DB
	name string
}

// Open wraps sql.Open and returns a dialect.Driver.
func Open(driverName, dataSourceName string) (*Driver, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	return OpenDB(driverName, db), nil
}

// OpenDB wraps an already-open *sql.DB with a Driver.
func OpenDB(name string, db *sql.DB) *Driver {
	return &Driver{db: db, name: name}
}

// DB returns the underlying *sql.DB.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect implements dialect.Driver.
func (d *Driver) Dialect() string {
	for _, n := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres} {
		if strings.HasPrefix(d.name, n) {
			return n
		}
	}
	return d.name
}

func (d *Driver) ExecContext(ctx context.Context, query string, args ...any) (dialect.Result, error) {
	ex, cf, err := maySetVars(ctx, d.db, d.Dialect())
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	if cf != nil {
		defer cf()
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return res, nil
}

func (d *Driver) QueryContext(ctx context.Context, query string, args ...any) (dialect.Rows, error) {
	ex, cf, err := maySetVars(ctx, d.db, d.Dialect())
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	if cf != nil {
		return rowsWithCloser{rows, cf}, nil
	}
	return rows, nil
}

// Tx starts a transaction with the driver's default isolation level.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with explicit options.
func (d *Driver) BeginTx(ctx context.Context, opts *sql.TxOptions) (dialect.Tx, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &txDriver{tx: tx, name: d.name}, nil
}

// Close closes the underlying *sql.DB.
func (d *Driver) Close() error { return d.db.Close() }

var _ dialect.Driver = (*Driver)(nil)

// txDriver adapts a *sql.Tx to dialect.Tx. Nested-transaction/savepoint
// semantics live one layer up in package backend; this is the flat
// "one BEGIN, one COMMIT/ROLLBACK" primitive.
type txDriver struct {
	tx   *sql.Tx
	name string
}

func (t *txDriver) Dialect() string {
	for _, n := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres} {
		if strings.HasPrefix(t.name, n) {
			return n
		}
	}
	return t.name
}

func (t *txDriver) ExecContext(ctx context.Context, query string, args ...any) (dialect.Result, error) {
	ex, cf, err := maySetVars(ctx, t.tx, t.Dialect())
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: tx exec: set session vars: %w", err)
	}
	if cf != nil {
		defer cf()
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: tx exec: %w", err)
	}
	return res, nil
}

func (t *txDriver) QueryContext(ctx context.Context, query string, args ...any) (dialect.Rows, error) {
	ex, cf, err := maySetVars(ctx, t.tx, t.Dialect())
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: tx query: set session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return nil, fmt.Errorf("dialect/sql: tx query: %w", err)
	}
	if cf != nil {
		return rowsWithCloser{rows, cf}, nil
	}
	return rows, nil
}

func (t *txDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	return nil, fmt.Errorf("dialect/sql: nested Tx() on an existing transaction is not supported; use backend savepoints")
}

func (t *txDriver) Close() error { return nil }

func (t *txDriver) Commit() error   { return t.tx.Commit() }
func (t *txDriver) Rollback() error { return t.tx.Rollback() }

var _ dialect.Tx = (*txDriver)(nil)

// execQuerier is the subset of *sql.DB / *sql.Tx / *sql.Conn that
// maySetVars needs.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ctxVarsKey is the context key for attached session variables.
type ctxVarsKey struct{}

type sessionVar struct{ k, v string }

// WithVar returns a new context that holds a session variable to be set
// before every query executed with it, via SET <name> = '<value>'.
func WithVar(ctx context.Context, name, value string) context.Context {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	vars = append(vars, sessionVar{k: name, v: value})
	return context.WithValue(ctx, ctxVarsKey{}, vars)
}

// WithIntVar calls WithVar with the string form of value.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// VarFromContext returns the named session variable previously attached
// with WithVar.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	for _, v := range vars {
		if v.k == name {
			return v.v, true
		}
	}
	return "", false
}

// maySetVars applies any WithVar-attached session variables on a
// dedicated connection before a statement runs, and returns a cleanup
// function that resets them and releases the connection. Transactions
// (execQuerier already a *sql.Tx) get the variables set directly, no
// separate connection or reset needed since the whole Tx is discarded on
// Commit/Rollback.
func maySetVars(ctx context.Context, ex execQuerier, dialectName string) (execQuerier, func() error, error) {
	vars, _ := ctx.Value(ctxVarsKey{}).([]sessionVar)
	if len(vars) == 0 {
		return ex, nil, nil
	}
	var (
		target execQuerier
		cf     func() error
	)
	switch e := ex.(type) {
	case *sql.Tx:
		target = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		target, cf = conn, conn.Close
	default:
		target = ex
	}
	var reset []string
	seen := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		if !isValidIdentifier(v.k) {
			if cf != nil {
				_ = cf()
			}
			return nil, nil, fmt.Errorf("dialect/sql: invalid session variable name %q", v.k)
		}
		if _, ok := seen[v.k]; !ok {
			switch dialectName {
			case dialect.Postgres:
				reset = append(reset, fmt.Sprintf("RESET %s", v.k))
			case dialect.MySQL:
				reset = append(reset, fmt.Sprintf("SET %s = NULL", v.k))
			}
			seen[v.k] = struct{}{}
		}
		if _, err := target.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", v.k, escapeStringValue(v.v))); err != nil {
			if cf != nil {
				err = errors.Join(err, cf())
			}
			return nil, nil, err
		}
	}
	if cf != nil && len(reset) > 0 {
		inner := cf
		cf = func() error {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			var rerr error
			for _, q := range reset {
				if _, err := target.ExecContext(cleanupCtx, q); err != nil {
					rerr = errors.Join(rerr, err)
				}
			}
			return errors.Join(rerr, inner())
		}
	}
	return target, cf, nil
}

// rowsWithCloser wraps *sql.Rows so that Close also runs a connection
// cleanup callback (resetting session variables and releasing a
// dedicated *sql.Conn back to the pool).
type rowsWithCloser struct {
	*sql.Rows
	closer func() error
}

func (r rowsWithCloser) Close() error {
	return errors.Join(r.Rows.Close(), r.closer())
}

var _ dialect.Rows = rowsWithCloser{}
