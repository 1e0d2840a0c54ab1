package sql

import (
	"strings"

	"github.com/rhosocial/activerecord-go/dialect"
)

// writer accumulates rendered SQL text and bound parameters while walking
// an expression tree. It is the single mutable scratchpad for one ToSQL
// call; nodes themselves remain immutable.
type writer struct {
	d    dialect.Dialect
	buf  strings.Builder
	args []any
}

func newWriter(d dialect.Dialect) *writer {
	return &writer{d: d}
}

func (w *writer) str(s string) { w.buf.WriteString(s) }

func (w *writer) ident(name string) { w.buf.WriteString(w.d.QuoteIdentifier(name)) }

// arg appends v as a bound parameter and writes its placeholder, keeping
// placeholder order in the text identical to parameter order in the tuple.
func (w *writer) arg(v any) {
	w.args = append(w.args, v)
	w.buf.WriteString(w.d.Placeholder(len(w.args)))
}

func (w *writer) joinIdent(parts ...string) {
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if !first {
			w.str(".")
		}
		w.ident(p)
		first = false
	}
}

// Node is any element of the expression tree: a value, a predicate, a
// clause, or a statement. Its sole observable operation is rendering SQL
// text plus bound parameters for a given Dialect.
type Node interface {
	writeSQL(w *writer) error
}

// ToSQL renders n against dialect d, returning SQL text and the parameter
// tuple in left-to-right placeholder order. Calling ToSQL repeatedly on
// the same node with the same dialect yields equal results: nodes are
// immutable and rendering has no side effects beyond the local writer.
func ToSQL(n Node, d dialect.Dialect) (string, []any, error) {
	w := newWriter(d)
	if err := n.writeSQL(w); err != nil {
		return "", nil, err
	}
	return w.buf.String(), w.args, nil
}

// FeatureNotSupportedError is returned at compile time when an Expression
// references a dialect feature (CTE, window, FOR UPDATE, ...) the target
// Dialect does not declare support for.
type FeatureNotSupportedError struct {
	Dialect string
	Feature dialect.Feature
	Path    string
}

func (e *FeatureNotSupportedError) Error() string {
	return "sql: dialect " + e.Dialect + " does not support feature " + string(e.Feature) + " at " + e.Path
}
