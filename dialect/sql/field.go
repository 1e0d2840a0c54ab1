package sql

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// foldCaser performs Unicode-aware case folding for ContainsFold/
// EqualFold, which is closer to database-native case-insensitive
// comparison than a byte-wise strings.ToLower (e.g. Turkish dotless "i").
var foldCaser = cases.Fold()

// StringField is a typed column reference with string-specific predicate
// helpers, generalizing the teacher's generic predicate.StringField to
// this package's Expr/Predicate types.
type StringField string

// Field builds a StringField from a column name.
func Field(name string) StringField { return StringField(name) }

func (f StringField) col() Column { return C(string(f)) }

func (f StringField) EQ(v string) Predicate  { return EQ(f.col(), v) }
func (f StringField) NEQ(v string) Predicate { return NEQ(f.col(), v) }
func (f StringField) GT(v string) Predicate  { return GT(f.col(), v) }
func (f StringField) GE(v string) Predicate  { return GE(f.col(), v) }
func (f StringField) LT(v string) Predicate  { return LT(f.col(), v) }
func (f StringField) LE(v string) Predicate  { return LE(f.col(), v) }

func (f StringField) In(vs ...string) Predicate {
	anys := make([]any, len(vs))
	for i, v := range vs {
		anys[i] = v
	}
	return In(f.col(), anys...)
}

func (f StringField) NotIn(vs ...string) Predicate {
	anys := make([]any, len(vs))
	for i, v := range vs {
		anys[i] = v
	}
	return NotIn(f.col(), anys...)
}

// Contains builds a LIKE "%v%" predicate. The caller is responsible for
// escaping '%'/'_' in v if literal matches are desired.
func (f StringField) Contains(v string) Predicate { return Like(f.col(), "%"+v+"%") }

func (f StringField) HasPrefix(v string) Predicate { return Like(f.col(), v+"%") }

func (f StringField) HasSuffix(v string) Predicate { return Like(f.col(), "%"+v) }

// ContainsFold is a Unicode-case-insensitive Contains: the pattern is
// folded in Go via golang.org/x/text/cases, and compared against a
// LOWER()-wrapped column so both sides fold consistently.
func (f StringField) ContainsFold(v string) Predicate {
	folded := foldCaser.String(v)
	return Like(Func("LOWER", f.col()), "%"+folded+"%")
}

// EqualFold is a Unicode-case-insensitive equality check.
func (f StringField) EqualFold(v string) Predicate {
	folded := foldCaser.String(v)
	return EQ(Func("LOWER", f.col()), folded)
}

func (f StringField) IsNull() Predicate  { return IsNull(f.col()) }
func (f StringField) NotNull() Predicate { return NotNull(f.col()) }
