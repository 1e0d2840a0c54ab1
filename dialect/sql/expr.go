package sql

import (
	"fmt"

	"github.com/rhosocial/activerecord-go/dialect"
)

// Expr is a value expression: a column, a literal, a function call, an
// arithmetic combination, or a subquery — anything that can appear where
// a SQL value is expected.
type Expr interface {
	Node
	// comparisons/arithmetic helpers build Predicate/Expr trees directly;
	// see predicate.go and the arithmetic helpers in this file.
}

// Literal is a parameter-bound scalar value. Literals are never inlined
// into SQL text.
type Literal struct{ Value any }

// Lit wraps a host value as a bound Literal expression.
func Lit(v any) Literal { return Literal{Value: v} }

func (l Literal) writeSQL(w *writer) error {
	w.arg(l.Value)
	return nil
}

// Column references a table column, optionally table-qualified and
// aliased. Alias only takes effect in a projection list; it is ignored
// when Column appears inside a predicate or ORDER BY.
type Column struct {
	Name  string
	Table string
	Alias string
}

// C builds an unqualified column reference.
func C(name string) Column { return Column{Name: name} }

// TC builds a table-qualified column reference.
func TC(table, name string) Column { return Column{Table: table, Name: name} }

// As returns a copy of the column with the given projection alias.
func (c Column) As(alias string) Column { c.Alias = alias; return c }

func (c Column) writeSQL(w *writer) error {
	w.joinIdent(c.Table, c.Name)
	return nil
}

func (c Column) writeProjection(w *writer) error {
	if err := c.writeSQL(w); err != nil {
		return err
	}
	if c.Alias != "" {
		w.str(" AS ")
		w.ident(c.Alias)
	}
	return nil
}

// Wildcard renders "*" or "table.*".
type Wildcard struct{ Table string }

// Star builds a Wildcard, optionally table-qualified.
func Star(table ...string) Wildcard {
	if len(table) > 0 {
		return Wildcard{Table: table[0]}
	}
	return Wildcard{}
}

func (w2 Wildcard) writeSQL(w *writer) error {
	if w2.Table != "" {
		w.ident(w2.Table)
		w.str(".")
	}
	w.str("*")
	return nil
}

// TableRef names a table (or view), optionally aliased, with an optional
// temporal clause (e.g. "FOR SYSTEM_TIME AS OF ...") rendered verbatim.
type TableRef struct {
	Name     string
	Alias    string
	Temporal string
}

// Table builds a TableRef.
func Table(name string) TableRef { return TableRef{Name: name} }

// As returns a copy of the table reference under the given alias.
func (t TableRef) As(alias string) TableRef { t.Alias = alias; return t }

func (t TableRef) writeSQL(w *writer) error {
	w.ident(t.Name)
	if t.Temporal != "" {
		w.str(" " + t.Temporal)
	}
	if t.Alias != "" {
		w.str(" AS ")
		w.ident(t.Alias)
	}
	return nil
}

// refName returns the name a FROM/JOIN source is addressed by in later
// clauses: the alias if set, else the table name.
func (t TableRef) refName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Subquery wraps either a compiled Statement or raw (text, params) as a
// parenthesized value expression; it always forces parenthesization.
type Subquery struct {
	Inner Node
	Raw   string
	Args  []any
	Alias string
}

// Sub wraps another statement as a subquery expression.
func Sub(inner Node) Subquery { return Subquery{Inner: inner} }

// RawSub wraps raw (text, params) as a subquery expression.
func RawSub(text string, args ...any) Subquery { return Subquery{Raw: text, Args: args} }

// As returns a copy of the subquery under the given alias.
func (s Subquery) As(alias string) Subquery { s.Alias = alias; return s }

func (s Subquery) writeSQL(w *writer) error {
	w.str("(")
	if s.Inner != nil {
		if err := s.Inner.writeSQL(w); err != nil {
			return err
		}
	} else {
		w.str(s.Raw)
		for _, a := range s.Args {
			w.args = append(w.args, a)
		}
		// Raw subquery text already contains its own placeholders; we must
		// re-render them to match this writer's placeholder numbering. To
		// keep this invariant simple, raw subqueries are only supported
		// with dialects using '?' placeholders, or must already carry the
		// correct dialect-specific text.
	}
	w.str(")")
	if s.Alias != "" {
		w.str(" AS ")
		w.ident(s.Alias)
	}
	return nil
}

// FunctionCall renders "name(args...)", with optional DISTINCT and alias.
type FunctionCall struct {
	Name     string
	Args     []Expr
	Distinct bool
	Alias    string
}

// Func builds a FunctionCall.
func Func(name string, args ...Expr) FunctionCall {
	return FunctionCall{Name: name, Args: args}
}

// As returns a copy of the call under the given projection alias.
func (f FunctionCall) As(alias string) FunctionCall { f.Alias = alias; return f }

// WithDistinct returns a copy of the call with DISTINCT applied to its
// arguments.
func (f FunctionCall) WithDistinct() FunctionCall { f.Distinct = true; return f }

func (f FunctionCall) writeSQL(w *writer) error {
	w.str(f.Name + "(")
	if f.Distinct {
		w.str("DISTINCT ")
	}
	for i, a := range f.Args {
		if i > 0 {
			w.str(", ")
		}
		if err := a.writeSQL(w); err != nil {
			return err
		}
	}
	w.str(")")
	return nil
}

func (f FunctionCall) writeProjection(w *writer) error {
	if err := f.writeSQL(w); err != nil {
		return err
	}
	if f.Alias != "" {
		w.str(" AS ")
		w.ident(f.Alias)
	}
	return nil
}

// AggregateCall is a FunctionCall with an optional FILTER (WHERE ...)
// clause, e.g. COUNT(*) FILTER (WHERE active).
type AggregateCall struct {
	Name     string
	Args     []Expr
	Distinct bool
	Filter   Predicate
	Alias    string
}

// Agg builds an AggregateCall.
func Agg(name string, args ...Expr) AggregateCall {
	return AggregateCall{Name: name, Args: args}
}

func (a AggregateCall) As(alias string) AggregateCall { a.Alias = alias; return a }

func (a AggregateCall) WithDistinct() AggregateCall { a.Distinct = true; return a }

func (a AggregateCall) WithFilter(p Predicate) AggregateCall { a.Filter = p; return a }

func (a AggregateCall) writeSQL(w *writer) error {
	w.str(a.Name + "(")
	if a.Distinct {
		w.str("DISTINCT ")
	}
	if len(a.Args) == 0 {
		w.str("*")
	}
	for i, arg := range a.Args {
		if i > 0 {
			w.str(", ")
		}
		if err := arg.writeSQL(w); err != nil {
			return err
		}
	}
	w.str(")")
	if a.Filter != nil {
		w.str(" FILTER (WHERE ")
		if err := a.Filter.writeSQL(w); err != nil {
			return err
		}
		w.str(")")
	}
	return nil
}

func (a AggregateCall) writeProjection(w *writer) error {
	if err := a.writeSQL(w); err != nil {
		return err
	}
	if a.Alias != "" {
		w.str(" AS ")
		w.ident(a.Alias)
	}
	return nil
}

// WindowSpec is the OVER(...) clause of a window function call.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByEntry
	Frame       string // e.g. "ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW"
}

// WindowCall renders "function() OVER (...)".
type WindowCall struct {
	Function Expr // FunctionCall or AggregateCall
	Spec     WindowSpec
	Alias    string
}

// Over wraps fn with a window spec.
func Over(fn Expr, spec WindowSpec) WindowCall {
	return WindowCall{Function: fn, Spec: spec}
}

func (wc WindowCall) As(alias string) WindowCall { wc.Alias = alias; return wc }

func (wc WindowCall) writeSQL(w *writer) error {
	if !w.d.Supports(dialect.FeatureWindow) {
		return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureWindow, Path: "window call"}
	}
	if err := wc.Function.writeSQL(w); err != nil {
		return err
	}
	w.str(" OVER (")
	wrote := false
	if len(wc.Spec.PartitionBy) > 0 {
		w.str("PARTITION BY ")
		for i, e := range wc.Spec.PartitionBy {
			if i > 0 {
				w.str(", ")
			}
			if err := e.writeSQL(w); err != nil {
				return err
			}
		}
		wrote = true
	}
	if len(wc.Spec.OrderBy) > 0 {
		if wrote {
			w.str(" ")
		}
		w.str("ORDER BY ")
		for i, o := range wc.Spec.OrderBy {
			if i > 0 {
				w.str(", ")
			}
			if err := o.writeSQL(w); err != nil {
				return err
			}
		}
		wrote = true
	}
	if wc.Spec.Frame != "" {
		if wrote {
			w.str(" ")
		}
		w.str(wc.Spec.Frame)
	}
	w.str(")")
	return nil
}

func (wc WindowCall) writeProjection(w *writer) error {
	if err := wc.writeSQL(w); err != nil {
		return err
	}
	if wc.Alias != "" {
		w.str(" AS ")
		w.ident(wc.Alias)
	}
	return nil
}

// BinaryOp renders "left OP right", parenthesized, for arithmetic and
// string concatenation.
type BinaryOp struct {
	Left, Right Expr
	Op          string
}

// Add/Minus/Mul/Div build common arithmetic BinaryOps.
func Add(l, r Expr) BinaryOp   { return BinaryOp{l, r, "+"} }
func Minus(l, r Expr) BinaryOp { return BinaryOp{l, r, "-"} }
func Mul(l, r Expr) BinaryOp   { return BinaryOp{l, r, "*"} }
func Div(l, r Expr) BinaryOp   { return BinaryOp{l, r, "/"} }

// Concat builds a string-concatenation BinaryOp using the SQL standard
// "||" operator; MySQL callers should use ConcatFunc instead.
func Concat(l, r Expr) BinaryOp { return BinaryOp{l, r, "||"} }

// ConcatFunc renders CONCAT(args...), MySQL's concatenation idiom.
func ConcatFunc(args ...Expr) FunctionCall { return Func("CONCAT", args...) }

func (b BinaryOp) writeSQL(w *writer) error {
	w.str("(")
	if err := b.Left.writeSQL(w); err != nil {
		return err
	}
	w.str(" " + b.Op + " ")
	if err := b.Right.writeSQL(w); err != nil {
		return err
	}
	w.str(")")
	return nil
}

// UnaryOp renders a prefix or postfix unary operator around Operand.
type UnaryOp struct {
	Operand Expr
	Op      string
	Prefix  bool
}

// Neg builds a unary negation.
func Neg(e Expr) UnaryOp { return UnaryOp{Operand: e, Op: "-", Prefix: true} }

func (u UnaryOp) writeSQL(w *writer) error {
	if u.Prefix {
		w.str(u.Op)
	}
	w.str("(")
	if err := u.Operand.writeSQL(w); err != nil {
		return err
	}
	w.str(")")
	if !u.Prefix {
		w.str(u.Op)
	}
	return nil
}

// RawSQLExpression is an escape hatch for dialect-specific syntax the
// tree has no node for. text is emitted verbatim except that each '?'
// in it is replaced by the active dialect's placeholder for the next
// param, so raw expressions use '?' whatever the target dialect; params
// are bound in the order the '?' marks appear.
type RawSQLExpression struct {
	Text   string
	Params []any
}

// Raw builds a RawSQLExpression.
func Raw(text string, params ...any) RawSQLExpression {
	return RawSQLExpression{Text: text, Params: params}
}

func (r RawSQLExpression) writeSQL(w *writer) error {
	return writeRawSegments(w, r.Text, r.Params)
}

// writeRawSegments splits raw text on '?' placeholders and re-renders
// each bound parameter through the active dialect's placeholder style,
// so raw fragments compose correctly regardless of target dialect.
func writeRawSegments(w *writer, text string, params []any) error {
	pi := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '?' {
			if pi >= len(params) {
				return fmt.Errorf("sql: raw expression has more placeholders than params: %q", text)
			}
			w.arg(params[pi])
			pi++
			continue
		}
		w.buf.WriteByte(text[i])
	}
	if pi != len(params) {
		return fmt.Errorf("sql: raw expression bound %d of %d params: %q", pi, len(params), text)
	}
	return nil
}
