package sql

import "github.com/rhosocial/activerecord-go/dialect"

// OrderByEntry is one ORDER BY term. Direction defaults to ascending.
type OrderByEntry struct {
	Expr Expr
	Desc bool
}

// Asc builds an ascending OrderByEntry.
func Asc(e Expr) OrderByEntry { return OrderByEntry{Expr: e} }

// Desc builds a descending OrderByEntry.
func Desc(e Expr) OrderByEntry { return OrderByEntry{Expr: e, Desc: true} }

func (o OrderByEntry) writeSQL(w *writer) error {
	if err := o.Expr.writeSQL(w); err != nil {
		return err
	}
	if o.Desc {
		w.str(" DESC")
	} else {
		w.str(" ASC")
	}
	return nil
}

// GroupByHaving bundles a GROUP BY expression list with its HAVING
// predicate. HAVING is invalid without a non-empty GROUP BY; the
// compiler rejects that combination (see SelectStatement.writeSQL).
type GroupByHaving struct {
	Exprs  []Expr
	Having Predicate
}

// JoinKind names a SQL join type.
type JoinKind string

const (
	InnerJoin JoinKind = "JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
	RightJoin JoinKind = "RIGHT JOIN"
	FullJoin  JoinKind = "FULL JOIN"
)

// JoinExpression joins Right into the FROM clause, qualified by an ON
// predicate or a USING column list (mutually exclusive).
type JoinExpression struct {
	Kind  JoinKind
	Right TableRef
	On    Predicate
	Using []string
}

func (j JoinExpression) writeSQL(w *writer) error {
	w.str(" " + string(j.Kind) + " ")
	if err := j.Right.writeSQL(w); err != nil {
		return err
	}
	switch {
	case j.On != nil:
		w.str(" ON ")
		if err := j.On.writeSQL(w); err != nil {
			return err
		}
	case len(j.Using) > 0:
		w.str(" USING (")
		for i, c := range j.Using {
			if i > 0 {
				w.str(", ")
			}
			w.ident(c)
		}
		w.str(")")
	}
	return nil
}

// ForUpdateClause renders row-level locking for SELECT statements.
type ForUpdateClause struct {
	Of         []string
	Nowait     bool
	SkipLocked bool
}

// CTEExpression names one WITH-clause term.
type CTEExpression struct {
	Name         string
	Columns      []string
	Query        *SelectStatement
	Recursive    bool
	Materialized *bool // nil = dialect default, else forces [NOT] MATERIALIZED
}

func (c CTEExpression) writeSQL(w *writer) error {
	w.ident(c.Name)
	if len(c.Columns) > 0 {
		w.str(" (")
		for i, col := range c.Columns {
			if i > 0 {
				w.str(", ")
			}
			w.ident(col)
		}
		w.str(")")
	}
	w.str(" AS ")
	if c.Materialized != nil {
		if !w.d.Supports(dialect.FeatureMaterializeCTE) {
			return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureMaterializeCTE, Path: "cte:" + c.Name}
		}
		if *c.Materialized {
			w.str("MATERIALIZED ")
		} else {
			w.str("NOT MATERIALIZED ")
		}
	}
	w.str("(")
	if err := c.Query.writeSQL(w); err != nil {
		return err
	}
	w.str(")")
	return nil
}

// WithClause is a non-empty list of CTEs preceding a main statement.
// Recursive CTEs require the target dialect's recursive-CTE feature.
type WithClause struct {
	CTEs []CTEExpression
	Main Node
}

// With builds a WithClause; it panics if ctes is empty. Callers should
// never construct an empty WITH.
func With(main Node, ctes ...CTEExpression) *WithClause {
	if len(ctes) == 0 {
		panic("sql: WithClause requires at least one CTE")
	}
	return &WithClause{CTEs: ctes, Main: main}
}

func (wc *WithClause) writeSQL(w *writer) error {
	w.str("WITH ")
	any := false
	for _, c := range wc.CTEs {
		if c.Recursive {
			any = true
		}
	}
	if any {
		if !w.d.Supports(dialect.FeatureRecursiveCTE) {
			return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureRecursiveCTE, Path: "with"}
		}
		w.str("RECURSIVE ")
	}
	for i, c := range wc.CTEs {
		if i > 0 {
			w.str(", ")
		}
		if err := c.writeSQL(w); err != nil {
			return err
		}
	}
	w.str(" ")
	return wc.Main.writeSQL(w)
}

// SetOperationKind names a set operation.
type SetOperationKind string

const (
	Union        SetOperationKind = "UNION"
	UnionAll     SetOperationKind = "UNION ALL"
	Intersect    SetOperationKind = "INTERSECT"
	Except   SetOperationKind = "EXCEPT"
)

// SetOperation combines two SELECTs. The Expression tree performs no
// column-type or arity validation across the operands — such mismatches
// surface only as a database error at execution time (spec.md §4.3).
type SetOperation struct {
	Left, Right Node
	Kind        SetOperationKind
}

func (s SetOperation) writeSQL(w *writer) error {
	w.str("(")
	if err := s.Left.writeSQL(w); err != nil {
		return err
	}
	w.str(") " + string(s.Kind) + " (")
	if err := s.Right.writeSQL(w); err != nil {
		return err
	}
	w.str(")")
	return nil
}
