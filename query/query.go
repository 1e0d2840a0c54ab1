// Package query implements the generic ActiveQuery builder: a fluent,
// dialect-aware wrapper around dialect/sql's SelectStatement that knows
// how to execute itself against a backend.Backend and hydrate rows into
// Go values.
package query

import (
	"context"
	"fmt"

	"github.com/rhosocial/activerecord-go/backend"
	"github.com/rhosocial/activerecord-go/dialect"
	"github.com/rhosocial/activerecord-go/dialect/sql"
)

// RowScanner hydrates one result row into a T. Callers (typically package
// ar, via reflection over struct tags) supply this; package query never
// inspects T's shape itself.
type RowScanner[T any] func(rows dialect.Rows) (T, error)

// Query is the generic ActiveQuery builder. T is the row/model type that
// All/One/OneOrFail hydrate into; Pluck/Aggregate/ToDict bypass T
// entirely and return raw values, matching spec's "aggregate/raw
// projections force dict_rows" rule.
type Query[T any] struct {
	backend *backend.Backend
	table   string
	stmt    *sql.SelectStatement
	scan    RowScanner[T]
	frames  []*predBuilder
	preload []string
	err     error
}

// New starts a Query reading from table, scanning rows with scan.
func New[T any](b *backend.Backend, table string, scan RowScanner[T]) *Query[T] {
	q := &Query[T]{
		backend: b,
		table:   table,
		stmt:    sql.Select().FromTable(table),
		scan:    scan,
	}
	q.frames = []*predBuilder{{}}
	return q
}

// predBuilder accumulates one precedence scope's combined predicate.
// Where ANDs; OrWhere ORs against the single most-recently-added
// predicate in this scope (atom-adjacent), not the whole conjunction —
// this is the documented resolution of the "or_where" ambiguity: use
// StartOrGroup/EndOrGroup for explicit, unambiguous precedence control.
type predBuilder struct {
	combined sql.Predicate
}

func (pb *predBuilder) and(p sql.Predicate) {
	if pb.combined == nil {
		pb.combined = p
		return
	}
	pb.combined = sql.And(pb.combined, p)
}

func (pb *predBuilder) or(p sql.Predicate) {
	if pb.combined == nil {
		pb.combined = p
		return
	}
	if lp, ok := pb.combined.(sql.LogicalPredicate); ok && lp.Op == "AND" && len(lp.Children) > 0 {
		last := lp.Children[len(lp.Children)-1]
		children := append(append([]sql.Predicate{}, lp.Children[:len(lp.Children)-1]...), sql.Or(last, p))
		pb.combined = sql.LogicalPredicate{Op: "AND", Children: children}
		return
	}
	pb.combined = sql.Or(pb.combined, p)
}

func (q *Query[T]) top() *predBuilder { return q.frames[len(q.frames)-1] }

// Select overrides the projection list; with none, All/One select *.
func (q *Query[T]) Select(exprs ...sql.Expr) *Query[T] {
	q.stmt.Projections = exprs
	return q
}

func (q *Query[T]) Distinct() *Query[T] {
	q.stmt.WithDistinct()
	return q
}

// From replaces the FROM source (a table, subquery, or join chain root).
func (q *Query[T]) From(src sql.Expr) *Query[T] {
	q.stmt.From_(src)
	return q
}

func (q *Query[T]) Join(kind sql.JoinKind, target sql.TableRef, on sql.Predicate) *Query[T] {
	q.stmt.Join(kind, target, on)
	return q
}

func (q *Query[T]) JoinUsing(kind sql.JoinKind, target sql.TableRef, cols ...string) *Query[T] {
	q.stmt.JoinUsing(kind, target, cols...)
	return q
}

// Where ANDs p onto the current precedence scope.
func (q *Query[T]) Where(p sql.Predicate) *Query[T] {
	q.top().and(p)
	return q
}

// OrWhere ORs p against the most recently added predicate in the current
// precedence scope.
func (q *Query[T]) OrWhere(p sql.Predicate) *Query[T] {
	q.top().or(p)
	return q
}

// StartOrGroup opens a new precedence scope; predicates added until the
// matching EndOrGroup combine independently of the enclosing scope, then
// fold into it (via AND) on EndOrGroup.
func (q *Query[T]) StartOrGroup() *Query[T] {
	q.frames = append(q.frames, &predBuilder{})
	return q
}

// EndOrGroup closes the innermost precedence scope, ANDing its combined
// predicate onto the enclosing scope. Calling EndOrGroup without a
// matching StartOrGroup is a caller error; it is a no-op that leaves the
// outermost scope untouched, since the outermost scope is never popped.
func (q *Query[T]) EndOrGroup() *Query[T] {
	if len(q.frames) == 1 {
		return q
	}
	closed := q.frames[len(q.frames)-1]
	q.frames = q.frames[:len(q.frames)-1]
	if closed.combined != nil {
		q.top().and(closed.combined)
	}
	return q
}

func (q *Query[T]) GroupBy(exprs ...sql.Expr) *Query[T] {
	if q.stmt.GroupBy == nil {
		q.stmt.GroupBy = &sql.GroupByHaving{}
	}
	q.stmt.GroupBy.Exprs = exprs
	return q
}

func (q *Query[T]) Having(p sql.Predicate) *Query[T] {
	if q.stmt.GroupBy == nil {
		q.stmt.GroupBy = &sql.GroupByHaving{}
	}
	q.stmt.GroupBy.Having = p
	return q
}

func (q *Query[T]) OrderBy(entries ...sql.OrderByEntry) *Query[T] {
	q.stmt.OrderBy_(entries...)
	return q
}

// Limit sets the row limit. A negative n is rejected per the spec's
// limit/offset invariant.
func (q *Query[T]) Limit(n int64) *Query[T] {
	if n < 0 {
		q.err = fmt.Errorf("query: limit(%d) must be >= 0", n)
		return q
	}
	q.stmt.Limit = &n
	return q
}

func (q *Query[T]) Offset(n int64) *Query[T] {
	if n < 0 {
		q.err = fmt.Errorf("query: offset(%d) must be >= 0", n)
		return q
	}
	q.stmt.Offset = &n
	return q
}

func (q *Query[T]) ForUpdate(of []string, nowait, skipLocked bool) *Query[T] {
	q.stmt.WithForUpdate(sql.ForUpdateClause{Of: of, Nowait: nowait, SkipLocked: skipLocked})
	return q
}

// WithCTE attaches a WITH clause to the query; it panics if ctes is
// empty.
func (q *Query[T]) WithCTE(ctes ...sql.CTEExpression) *Query[T] {
	q.stmt.WithCTE(ctes...)
	return q
}

// Preload records dotted relation paths (e.g. "posts.comments") for
// batch loading. All/One do not resolve them; ar.AllPreloaded runs the
// query and then resolves them one level at a time via package relation,
// never via a SQL join, so parent rows are never multiplied.
func (q *Query[T]) Preload(paths ...string) *Query[T] {
	q.preload = append(q.preload, paths...)
	return q
}

// PreloadPaths returns the relation paths requested via Preload, for the
// caller (package ar) to resolve after fetching rows.
func (q *Query[T]) PreloadPaths() []string { return q.preload }

// compile folds the pending WHERE scopes, still-open StartOrGroup scopes
// included, into the statement's WHERE and returns the statement. Open
// scopes stay open, so the chain can continue after compile.
func (q *Query[T]) compile() (*sql.SelectStatement, error) {
	if q.err != nil {
		return nil, q.err
	}
	var combined sql.Predicate
	for i := len(q.frames) - 1; i >= 0; i-- {
		if p := q.frames[i].combined; p != nil {
			if combined == nil {
				combined = p
			} else {
				combined = sql.And(p, combined)
			}
		}
	}
	if combined != nil {
		q.stmt.Where = combined
	}
	return q.stmt, nil
}

// ToSQL renders the query's current statement without executing it. Safe
// to call at any point in the chain.
func (q *Query[T]) ToSQL() (string, []any, error) {
	stmt, err := q.compile()
	if err != nil {
		return "", nil, err
	}
	return sql.ToSQL(stmt, q.backend.Dialect())
}

// Explain renders "EXPLAIN <query>" and executes it, returning the
// database's plan text as a single string (implementations vary in
// whether this is one row or many; rows are newline-joined).
func (q *Query[T]) Explain(ctx context.Context) (string, error) {
	text, args, err := q.ToSQL()
	if err != nil {
		return "", err
	}
	res, err := q.backend.Execute(ctx, backend.Query, "EXPLAIN "+text, args)
	if err != nil {
		return "", err
	}
	defer res.Rows.Close()
	var out string
	for res.Rows.Next() {
		var line string
		if err := res.Rows.Scan(&line); err != nil {
			return "", err
		}
		if out != "" {
			out += "\n"
		}
		out += line
	}
	return out, res.Rows.Err()
}
