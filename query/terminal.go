package query

import (
	"context"
	"errors"

	"github.com/rhosocial/activerecord-go/backend"
	"github.com/rhosocial/activerecord-go/dialect"
	"github.com/rhosocial/activerecord-go/dialect/sql"
)

// ErrNotFound is returned by OneOrFail when the query produces zero rows.
var ErrNotFound = errors.New("query: record not found")

// All executes the query and scans every row into a T.
func (q *Query[T]) All(ctx context.Context) ([]T, error) {
	stmt, err := q.compile()
	if err != nil {
		return nil, err
	}
	text, args, err := sql.ToSQL(stmt, q.backend.Dialect())
	if err != nil {
		return nil, err
	}
	res, err := q.backend.Execute(ctx, backend.Query, text, args)
	if err != nil {
		return nil, err
	}
	defer res.Rows.Close()

	var out []T
	for res.Rows.Next() {
		v, err := q.scan(res.Rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, res.Rows.Err()
}

// One returns the first row, or the zero value and false if none exist.
func (q *Query[T]) One(ctx context.Context) (T, bool, error) {
	var zero T
	one := int64(1)
	q.stmt.Limit = &one
	rows, err := q.All(ctx)
	if err != nil {
		return zero, false, err
	}
	if len(rows) == 0 {
		return zero, false, nil
	}
	return rows[0], true, nil
}

// OneOrFail returns the first row or ErrNotFound.
func (q *Query[T]) OneOrFail(ctx context.Context) (T, error) {
	v, ok, err := q.One(ctx)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, ErrNotFound
	}
	return v, nil
}

// Count executes "SELECT COUNT(*)" over the query's current FROM/WHERE,
// discarding its projection list and ORDER BY/LIMIT.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	stmt, err := q.compile()
	if err != nil {
		return 0, err
	}
	counting := *stmt
	counting.Projections = []sql.Expr{sql.Agg("COUNT", sql.Star())}
	counting.OrderBy = nil
	counting.Limit = nil
	counting.Offset = nil
	text, args, err := sql.ToSQL(&counting, q.backend.Dialect())
	if err != nil {
		return 0, err
	}
	var n int64
	found, err := q.backend.ExecuteAndFetchOne(ctx, text, args, func(r dialect.Rows) error {
		return r.Scan(&n)
	})
	if err != nil || !found {
		return 0, err
	}
	return n, nil
}

// Exists reports whether the query matches at least one row.
func (q *Query[T]) Exists(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	return n > 0, err
}

// Chunk streams results in batches of size, invoking fn for each batch in
// primary-key-independent LIMIT/OFFSET order. Iteration stops at the
// first empty batch, after a batch shorter than size, or when fn returns
// an error.
func (q *Query[T]) Chunk(ctx context.Context, size int64, fn func([]T) error) error {
	if size <= 0 {
		return errChunkSize
	}
	var offset int64
	for {
		limit := size
		batchStmt, err := q.compile()
		if err != nil {
			return err
		}
		clone := *batchStmt
		clone.Limit, clone.Offset = &limit, &offset
		text, args, err := sql.ToSQL(&clone, q.backend.Dialect())
		if err != nil {
			return err
		}
		res, err := q.backend.Execute(ctx, backend.Query, text, args)
		if err != nil {
			return err
		}
		var batch []T
		for res.Rows.Next() {
			v, err := q.scan(res.Rows)
			if err != nil {
				res.Rows.Close()
				return err
			}
			batch = append(batch, v)
		}
		cerr := res.Rows.Err()
		res.Rows.Close()
		if cerr != nil {
			return cerr
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if int64(len(batch)) < size {
			return nil
		}
		offset += size
	}
}

var errChunkSize = errors.New("query: chunk size must be > 0")
