package query

import (
	"context"

	"github.com/rhosocial/activerecord-go/backend"
	"github.com/rhosocial/activerecord-go/dialect"
	"github.com/rhosocial/activerecord-go/dialect/sql"
)

// ToDict switches the row shape from model_rows to dict_rows: the
// returned DictQuery shares this Query's compiled WHERE/JOIN/ORDER BY/
// LIMIT state but its terminal operations return raw column maps
// instead of hydrating T, matching the spec's state machine (model_rows
// --to_dict()--> dict_rows, terminal only).
func (q *Query[T]) ToDict() *DictQuery {
	return &DictQuery{backend: q.backend, stmt: q.stmt, frames: q.frames, err: q.err}
}

// DictQuery is the dict_rows terminal state: every result row decodes to
// a map[string]any keyed by column name, with no model hydration.
type DictQuery struct {
	backend *backend.Backend
	stmt    *sql.SelectStatement
	frames  []*predBuilder
	err     error
}

func (d *DictQuery) compile() (*sql.SelectStatement, error) {
	if d.err != nil {
		return nil, d.err
	}
	combined := d.frames[0].combined
	for _, f := range d.frames[1:] {
		if f.combined != nil {
			combined = sql.And(combined, f.combined)
		}
	}
	clone := *d.stmt
	clone.Where = combined
	return &clone, nil
}

// All executes the query, decoding every row into a map[string]any keyed
// by column name.
func (d *DictQuery) All(ctx context.Context) ([]map[string]any, error) {
	stmt, err := d.compile()
	if err != nil {
		return nil, err
	}
	text, args, err := sql.ToSQL(stmt, d.backend.Dialect())
	if err != nil {
		return nil, err
	}
	res, err := d.backend.Execute(ctx, backend.Query, text, args)
	if err != nil {
		return nil, err
	}
	defer res.Rows.Close()
	return scanDicts(res.Rows)
}

// scanDicts decodes every remaining row of rows into column-name-keyed
// maps. Column values come back as driver-native types (string, int64,
// float64, []byte, bool, time.Time, nil); callers needing host types
// run them back through a typeadapter.Registry themselves.
func scanDicts(rows dialect.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Pluck executes the query selecting only field, returning its values in
// row order without model hydration.
func (q *Query[T]) Pluck(ctx context.Context, field sql.Expr) ([]any, error) {
	stmt, err := q.compile()
	if err != nil {
		return nil, err
	}
	clone := *stmt
	clone.Projections = []sql.Expr{field}
	text, args, err := sql.ToSQL(&clone, q.backend.Dialect())
	if err != nil {
		return nil, err
	}
	res, err := q.backend.Execute(ctx, backend.Query, text, args)
	if err != nil {
		return nil, err
	}
	defer res.Rows.Close()
	var out []any
	for res.Rows.Next() {
		var v any
		if err := res.Rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, res.Rows.Err()
}

// Aggregate replaces the projection list with exprs (typically AggregateCall
// nodes) and returns raw dicts, regardless of model binding, per the
// spec's "aggregate() returns raw dicts" rule.
func (q *Query[T]) Aggregate(ctx context.Context, exprs ...sql.Expr) ([]map[string]any, error) {
	stmt, err := q.compile()
	if err != nil {
		return nil, err
	}
	clone := *stmt
	clone.Projections = exprs
	clone.OrderBy = nil
	text, args, err := sql.ToSQL(&clone, q.backend.Dialect())
	if err != nil {
		return nil, err
	}
	res, err := q.backend.Execute(ctx, backend.Query, text, args)
	if err != nil {
		return nil, err
	}
	defer res.Rows.Close()
	return scanDicts(res.Rows)
}
