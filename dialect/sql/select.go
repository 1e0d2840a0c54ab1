package sql

import (
	"github.com/rhosocial/activerecord-go/dialect"
)

// projector is implemented by expression nodes that render a trailing
// "AS alias" in projection position (Column, FunctionCall, AggregateCall,
// WindowCall); other Expr nodes render identically in any position.
type projector interface {
	writeProjection(w *writer) error
}

func writeAsProjection(w *writer, e Expr) error {
	if p, ok := e.(projector); ok {
		return p.writeProjection(w)
	}
	return e.writeSQL(w)
}

// SelectStatement is the compiled form of a SELECT. It is built and
// mutated through the fluent methods below, then rendered via
// writeSQL/ToSQL. All fields are exported so higher layers (package
// query) can inspect or post-process a compiled statement.
type SelectStatement struct {
	With        *WithClause
	Distinct    bool
	Projections []Expr
	From        Expr // TableRef or Subquery
	Joins       []JoinExpression
	Where       Predicate
	GroupBy     *GroupByHaving
	OrderBy     []OrderByEntry
	Limit       *int64
	Offset      *int64
	ForUpdate   *ForUpdateClause
	SetOp       *SetOperation // when set, this statement IS the set operation
}

// Select starts a new SelectStatement with the given projections.
func Select(exprs ...Expr) *SelectStatement {
	return &SelectStatement{Projections: exprs}
}

// As wraps the statement in an aliased Subquery so Select(...) can be
// reused as a plain subquery source (a CTE body goes through
// CTEExpression instead).
func (s *SelectStatement) As(alias string) Subquery {
	return Subquery{Inner: s, Alias: alias}
}

func (s *SelectStatement) WithDistinct() *SelectStatement { s.Distinct = true; return s }

func (s *SelectStatement) From_(src Expr) *SelectStatement { s.From = src; return s }

func (s *SelectStatement) FromTable(name string) *SelectStatement {
	s.From = Table(name)
	return s
}

func (s *SelectStatement) Join(kind JoinKind, right TableRef, on Predicate) *SelectStatement {
	s.Joins = append(s.Joins, JoinExpression{Kind: kind, Right: right, On: on})
	return s
}

func (s *SelectStatement) JoinUsing(kind JoinKind, right TableRef, cols ...string) *SelectStatement {
	s.Joins = append(s.Joins, JoinExpression{Kind: kind, Right: right, Using: cols})
	return s
}

// Where ANDs p onto any existing predicate.
func (s *SelectStatement) Where_(p Predicate) *SelectStatement {
	if s.Where == nil {
		s.Where = p
	} else {
		s.Where = And(s.Where, p)
	}
	return s
}

// GroupHaving sets GROUP BY exprs and an optional HAVING predicate. HAVING
// with an empty exprs list is a compile-time error (checked in writeSQL).
func (s *SelectStatement) GroupHaving(having Predicate, exprs ...Expr) *SelectStatement {
	s.GroupBy = &GroupByHaving{Exprs: exprs, Having: having}
	return s
}

func (s *SelectStatement) OrderBy_(entries ...OrderByEntry) *SelectStatement {
	s.OrderBy = append(s.OrderBy, entries...)
	return s
}

// LimitOffset sets LIMIT/OFFSET. Negative values are rejected by the
// caller (package query) before reaching here; this layer trusts its
// inputs are already validated non-negative.
func (s *SelectStatement) LimitOffset(limit, offset *int64) *SelectStatement {
	s.Limit, s.Offset = limit, offset
	return s
}

func (s *SelectStatement) WithForUpdate(c ForUpdateClause) *SelectStatement {
	s.ForUpdate = &c
	return s
}

// WithCTE attaches a WITH clause to the SELECT; it panics if ctes is
// empty, the same invariant With enforces.
func (s *SelectStatement) WithCTE(ctes ...CTEExpression) *SelectStatement {
	if len(ctes) == 0 {
		panic("sql: WithClause requires at least one CTE")
	}
	s.With = &WithClause{CTEs: ctes, Main: rawMainMarker{s}}
	return s
}

// rawMainMarker lets WithClause.writeSQL call back into the SELECT body
// without re-wrapping it in another WithClause.
type rawMainMarker struct{ s *SelectStatement }

func (m rawMainMarker) writeSQL(w *writer) error { return m.s.writeBody(w) }

func (s *SelectStatement) writeSQL(w *writer) error {
	if s.With != nil {
		return s.With.writeSQL(w)
	}
	return s.writeBody(w)
}

// writeBody renders the statement without its enclosing WithClause. When
// SetOp is set, the operands render as the "(SELECT ...) UNION (SELECT
// ...)" composite and this statement's own ORDER BY/LIMIT/OFFSET — never
// WHERE/GROUP BY/FOR UPDATE, which belong to the operands — apply to the
// composite result, per spec.md §4.5 ("ORDER BY/LIMIT apply to the
// composite").
func (s *SelectStatement) writeBody(w *writer) error {
	if s.SetOp != nil {
		if err := s.SetOp.writeSQL(w); err != nil {
			return err
		}
		if len(s.OrderBy) > 0 {
			w.str(" ORDER BY ")
			for i, o := range s.OrderBy {
				if i > 0 {
					w.str(", ")
				}
				if err := o.writeSQL(w); err != nil {
					return err
				}
			}
		}
		w.str(w.d.RenderLimitOffset(s.Limit, s.Offset))
		return nil
	}
	if s.GroupBy != nil && s.GroupBy.Having != nil && len(s.GroupBy.Exprs) == 0 {
		return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: "HAVING_WITHOUT_GROUP_BY", Path: "group-by"}
	}
	w.str("SELECT ")
	if s.Distinct {
		w.str("DISTINCT ")
	}
	if len(s.Projections) == 0 {
		w.str("*")
	}
	for i, p := range s.Projections {
		if i > 0 {
			w.str(", ")
		}
		if err := writeAsProjection(w, p); err != nil {
			return err
		}
	}
	if s.From != nil {
		w.str(" FROM ")
		if err := s.From.writeSQL(w); err != nil {
			return err
		}
	}
	for _, j := range s.Joins {
		if err := j.writeSQL(w); err != nil {
			return err
		}
	}
	if s.Where != nil {
		w.str(" WHERE ")
		if err := s.Where.writeSQL(w); err != nil {
			return err
		}
	}
	if s.GroupBy != nil && len(s.GroupBy.Exprs) > 0 {
		w.str(" GROUP BY ")
		for i, e := range s.GroupBy.Exprs {
			if i > 0 {
				w.str(", ")
			}
			if err := e.writeSQL(w); err != nil {
				return err
			}
		}
		if s.GroupBy.Having != nil {
			w.str(" HAVING ")
			if err := s.GroupBy.Having.writeSQL(w); err != nil {
				return err
			}
		}
	}
	if len(s.OrderBy) > 0 {
		w.str(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				w.str(", ")
			}
			if err := o.writeSQL(w); err != nil {
				return err
			}
		}
	}
	w.str(w.d.RenderLimitOffset(s.Limit, s.Offset))
	if s.ForUpdate != nil {
		if !w.d.Supports(dialect.FeatureForUpdate) {
			return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureForUpdate, Path: "for-update"}
		}
		if s.ForUpdate.SkipLocked && !w.d.Supports(dialect.FeatureSkipLocked) {
			return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureSkipLocked, Path: "for-update"}
		}
		if s.ForUpdate.Nowait && !w.d.Supports(dialect.FeatureNowait) {
			return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureNowait, Path: "for-update"}
		}
		w.str(w.d.RenderForUpdate(s.ForUpdate.Of, s.ForUpdate.Nowait, s.ForUpdate.SkipLocked))
	}
	return nil
}

// UnionWith/IntersectWith/ExceptWith combine s with other into a new
// composite SelectStatement that holds both operands by pointer, so later
// changes to an operand show up in the composite; ORDER BY/LIMIT on the
// returned statement apply to the composite as a whole.
func (s *SelectStatement) UnionWith(all bool, other *SelectStatement) *SelectStatement {
	kind := Union
	if all {
		kind = UnionAll
	}
	return &SelectStatement{SetOp: &SetOperation{Left: s, Right: other, Kind: kind}}
}

func (s *SelectStatement) IntersectWith(other *SelectStatement) *SelectStatement {
	return &SelectStatement{SetOp: &SetOperation{Left: s, Right: other, Kind: Intersect}}
}

func (s *SelectStatement) ExceptWith(other *SelectStatement) *SelectStatement {
	return &SelectStatement{SetOp: &SetOperation{Left: s, Right: other, Kind: Except}}
}
