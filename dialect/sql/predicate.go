package sql

// Predicate is a boolean-valued Expr: comparisons, LIKE, IN, BETWEEN,
// NULL checks, and their AND/OR/NOT combinations.
type Predicate interface {
	Expr
	isPredicate()
}

// ComparisonPredicate renders "left OP right" for =, <>, <, <=, >, >=.
type ComparisonPredicate struct {
	Left, Right Expr
	Op          string
}

func (ComparisonPredicate) isPredicate() {}

func (c ComparisonPredicate) writeSQL(w *writer) error {
	if err := c.Left.writeSQL(w); err != nil {
		return err
	}
	w.str(" " + c.Op + " ")
	return c.Right.writeSQL(w)
}

func cmp(op string, l, r Expr) ComparisonPredicate { return ComparisonPredicate{l, r, op} }

// wrapVal lets comparison/predicate constructors accept either an Expr or
// a bare host value (auto-wrapped as a Literal), matching the ergonomics
// of the teacher's predicate functions (sql.EQ("name", "john")).
func wrapVal(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Lit(v)
}

// EQ/NEQ/GT/GE/LT/LE build comparison predicates. left is typically a
// Column; right may be an Expr or a bare value.
func EQ(left Expr, right any) ComparisonPredicate  { return cmp("=", left, wrapVal(right)) }
func NEQ(left Expr, right any) ComparisonPredicate { return cmp("<>", left, wrapVal(right)) }
func GT(left Expr, right any) ComparisonPredicate  { return cmp(">", left, wrapVal(right)) }
func GE(left Expr, right any) ComparisonPredicate  { return cmp(">=", left, wrapVal(right)) }
func LT(left Expr, right any) ComparisonPredicate  { return cmp("<", left, wrapVal(right)) }
func LE(left Expr, right any) ComparisonPredicate  { return cmp("<=", left, wrapVal(right)) }

// LogicalPredicate combines children with AND/OR, or negates a single
// child with NOT. A compound AND/OR flattens right-associative chains of
// the same operator for readable SQL output.
type LogicalPredicate struct {
	Op       string // "AND", "OR", "NOT"
	Children []Predicate
}

func (LogicalPredicate) isPredicate() {}

// And flattens nested AND predicates into one node.
func And(preds ...Predicate) LogicalPredicate {
	return LogicalPredicate{Op: "AND", Children: flatten("AND", preds)}
}

// Or flattens nested OR predicates into one node.
func Or(preds ...Predicate) LogicalPredicate {
	return LogicalPredicate{Op: "OR", Children: flatten("OR", preds)}
}

// Not negates a single predicate.
func Not(p Predicate) LogicalPredicate {
	return LogicalPredicate{Op: "NOT", Children: []Predicate{p}}
}

func flatten(op string, preds []Predicate) []Predicate {
	out := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if lp, ok := p.(LogicalPredicate); ok && lp.Op == op {
			out = append(out, lp.Children...)
			continue
		}
		out = append(out, p)
	}
	return out
}

func (l LogicalPredicate) writeSQL(w *writer) error {
	if l.Op == "NOT" {
		w.str("NOT (")
		if err := l.Children[0].writeSQL(w); err != nil {
			return err
		}
		w.str(")")
		return nil
	}
	if len(l.Children) == 0 {
		// An empty AND/OR is vacuously true/false respectively.
		if l.Op == "AND" {
			w.str("(1 = 1)")
		} else {
			w.str("(1 = 0)")
		}
		return nil
	}
	w.str("(")
	for i, c := range l.Children {
		if i > 0 {
			w.str(" " + l.Op + " ")
		}
		if err := c.writeSQL(w); err != nil {
			return err
		}
	}
	w.str(")")
	return nil
}

// LikePredicate renders "expr [NOT] LIKE pattern" (or ILIKE on dialects
// that support it natively; others fold case via a function wrapper
// applied by the caller, see ContainsFold/EqualFold in field.go). The
// expression tree never auto-escapes '%' or '_' — escaping is the
// caller's responsibility.
type LikePredicate struct {
	Expr     Expr
	Pattern  Expr
	Negated  bool
	CaseFold bool
}

func (LikePredicate) isPredicate() {}

func (l LikePredicate) writeSQL(w *writer) error {
	if err := l.Expr.writeSQL(w); err != nil {
		return err
	}
	if l.Negated {
		w.str(" NOT")
	}
	if l.CaseFold {
		w.str(" ILIKE ")
	} else {
		w.str(" LIKE ")
	}
	return l.Pattern.writeSQL(w)
}

// Like builds a LIKE predicate.
func Like(expr Expr, pattern string) LikePredicate {
	return LikePredicate{Expr: expr, Pattern: Lit(pattern)}
}

// ILike builds a case-insensitive LIKE predicate (ILIKE on dialects that
// support it, translated by the caller for the rest).
func ILike(expr Expr, pattern string) LikePredicate {
	return LikePredicate{Expr: expr, Pattern: Lit(pattern), CaseFold: true}
}

// InPredicate renders "expr [NOT] IN (values...)" or "expr [NOT] IN
// (subquery)". An empty value list renders as FALSE (or TRUE when
// negated) to preserve set semantics rather than emitting invalid SQL.
type InPredicate struct {
	Expr    Expr
	Values  []Expr
	Sub     *Subquery
	Negated bool
}

func (InPredicate) isPredicate() {}

// In builds an IN predicate over a literal value list.
func In(expr Expr, values ...any) InPredicate {
	exprs := make([]Expr, len(values))
	for i, v := range values {
		exprs[i] = wrapVal(v)
	}
	return InPredicate{Expr: expr, Values: exprs}
}

// NotIn builds a NOT IN predicate over a literal value list.
func NotIn(expr Expr, values ...any) InPredicate {
	p := In(expr, values...)
	p.Negated = true
	return p
}

// InSubquery builds an IN predicate over a subquery.
func InSubquery(expr Expr, sub Subquery) InPredicate {
	return InPredicate{Expr: expr, Sub: &sub}
}

func (p InPredicate) writeSQL(w *writer) error {
	if p.Sub == nil && len(p.Values) == 0 {
		if p.Negated {
			w.str("(1 = 1)")
		} else {
			w.str("(1 = 0)")
		}
		return nil
	}
	if err := p.Expr.writeSQL(w); err != nil {
		return err
	}
	if p.Negated {
		w.str(" NOT")
	}
	w.str(" IN (")
	if p.Sub != nil {
		if err := p.Sub.Inner.writeSQL(w); err != nil {
			return err
		}
	} else {
		for i, v := range p.Values {
			if i > 0 {
				w.str(", ")
			}
			if err := v.writeSQL(w); err != nil {
				return err
			}
		}
	}
	w.str(")")
	return nil
}

// BetweenPredicate always renders inclusive bounds, matching SQL BETWEEN.
type BetweenPredicate struct {
	Expr, Low, High Expr
	Negated         bool
}

func (BetweenPredicate) isPredicate() {}

// Between builds an inclusive BETWEEN predicate.
func Between(expr Expr, low, high any) BetweenPredicate {
	return BetweenPredicate{Expr: expr, Low: wrapVal(low), High: wrapVal(high)}
}

func (b BetweenPredicate) writeSQL(w *writer) error {
	if err := b.Expr.writeSQL(w); err != nil {
		return err
	}
	if b.Negated {
		w.str(" NOT")
	}
	w.str(" BETWEEN ")
	if err := b.Low.writeSQL(w); err != nil {
		return err
	}
	w.str(" AND ")
	return b.High.writeSQL(w)
}

// IsNullPredicate renders "expr IS [NOT] NULL".
type IsNullPredicate struct {
	Expr    Expr
	Negated bool
}

func (IsNullPredicate) isPredicate() {}

// IsNull builds an IS NULL predicate.
func IsNull(expr Expr) IsNullPredicate { return IsNullPredicate{Expr: expr} }

// NotNull builds an IS NOT NULL predicate.
func NotNull(expr Expr) IsNullPredicate { return IsNullPredicate{Expr: expr, Negated: true} }

func (p IsNullPredicate) writeSQL(w *writer) error {
	if err := p.Expr.writeSQL(w); err != nil {
		return err
	}
	if p.Negated {
		w.str(" IS NOT NULL")
	} else {
		w.str(" IS NULL")
	}
	return nil
}

// RawSQLPredicate is an escape hatch for dialect-specific boolean syntax.
type RawSQLPredicate struct {
	Text   string
	Params []any
}

func (RawSQLPredicate) isPredicate() {}

// RawPredicate builds a RawSQLPredicate.
func RawPredicate(text string, params ...any) RawSQLPredicate {
	return RawSQLPredicate{Text: text, Params: params}
}

func (r RawSQLPredicate) writeSQL(w *writer) error {
	return writeRawSegments(w, r.Text, r.Params)
}
