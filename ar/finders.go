package ar

import (
	"context"

	"github.com/rhosocial/activerecord-go/dialect"
	"github.com/rhosocial/activerecord-go/dialect/sql"
	"github.com/rhosocial/activerecord-go/query"
)

// rowScanner builds a query.RowScanner[*T] that hydrates a fresh *T via
// reflection against T's Meta, attaches it as a loaded (not new) record,
// and fires AFTER_FIND.
func rowScanner[T any](ctx context.Context) query.RowScanner[*T] {
	m := metaFor[T]()
	c := configFor[T]()
	return func(rows dialect.Rows) (*T, error) {
		v := new(T)
		if err := scanRowInto(rows, m, c.registry, v); err != nil {
			return nil, err
		}
		base(v).attach(v, false)
		if err := c.hooks.fire(ctx, AfterFind, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Query starts an ActiveQuery bound to T's configured backend and table,
// hydrating rows into *T — the usual entry point, since ActiveRecord
// instances are always accessed by pointer (Base's methods have pointer
// receivers).
func Query[T any](ctx context.Context) *query.Query[*T] {
	c := configFor[T]()
	m := metaFor[T]()
	return query.New[*T](c.backend, m.resolvedTable(c), rowScanner[T](ctx))
}

// conditionsPredicate ANDs together one EQ predicate per map entry. Go
// map iteration order is randomized, which is harmless here since every
// clause is AND-combined and rendering order doesn't change semantics.
func conditionsPredicate(conditions map[string]any) sql.Predicate {
	var combined sql.Predicate
	for col, val := range conditions {
		p := sql.EQ(sql.C(col), val)
		if combined == nil {
			combined = p
		} else {
			combined = sql.And(combined, p)
		}
	}
	return combined
}

// Find looks up T by primary key, returning (nil, nil) if no row matches.
func Find[T any](ctx context.Context, pk any) (*T, error) {
	m := metaFor[T]()
	pkField, err := m.PKField()
	if err != nil {
		return nil, err
	}
	q := Query[T](ctx).Where(sql.EQ(sql.C(pkField.column), pk))
	v, ok, err := q.One(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

// FindOrFail is Find but returns ErrNotFound instead of a nil record.
func FindOrFail[T any](ctx context.Context, pk any) (*T, error) {
	v, err := Find[T](ctx, pk)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

// FindOne returns the first row matching conditions (AND-combined
// equality), or (nil, nil) if none match.
func FindOne[T any](ctx context.Context, conditions map[string]any) (*T, error) {
	q := Query[T](ctx)
	if p := conditionsPredicate(conditions); p != nil {
		q = q.Where(p)
	}
	v, ok, err := q.One(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

// FindAll returns every row matching conditions (AND-combined equality).
// A nil/empty conditions map returns every row.
func FindAll[T any](ctx context.Context, conditions map[string]any) ([]*T, error) {
	q := Query[T](ctx)
	if p := conditionsPredicate(conditions); p != nil {
		q = q.Where(p)
	}
	return q.All(ctx)
}
