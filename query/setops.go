package query

import "github.com/rhosocial/activerecord-go/dialect/sql"

// Union, Intersect, and Except combine q with other into a new Query
// sharing q's backend and scanner. The composite statement carries SetOp,
// not a FROM/WHERE of its own: Where/GroupBy/ForUpdate called on the
// returned Query are not rendered, while OrderBy/Limit/Offset apply to
// the composite result. Nothing blocks further calls on q or other; the
// composite holds their statements by pointer, so later changes to them
// show up in its rendering.
func (q *Query[T]) Union(all bool, other *Query[T]) *Query[T] {
	return q.setOp(func(l, r *sql.SelectStatement) *sql.SelectStatement { return l.UnionWith(all, r) }, other)
}

func (q *Query[T]) Intersect(other *Query[T]) *Query[T] {
	return q.setOp(func(l, r *sql.SelectStatement) *sql.SelectStatement { return l.IntersectWith(r) }, other)
}

func (q *Query[T]) Except(other *Query[T]) *Query[T] {
	return q.setOp(func(l, r *sql.SelectStatement) *sql.SelectStatement { return l.ExceptWith(r) }, other)
}

func (q *Query[T]) setOp(combine func(l, r *sql.SelectStatement) *sql.SelectStatement, other *Query[T]) *Query[T] {
	leftStmt, errL := q.compile()
	rightStmt, errR := other.compile()
	composite := &Query[T]{backend: q.backend, table: q.table, scan: q.scan}
	composite.frames = []*predBuilder{{}}
	if errL != nil {
		composite.err = errL
	} else if errR != nil {
		composite.err = errR
	} else {
		composite.stmt = combine(leftStmt, rightStmt)
	}
	return composite
}
