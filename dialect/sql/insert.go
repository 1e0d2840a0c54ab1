package sql

import (
	"fmt"

	"github.com/rhosocial/activerecord-go/dialect"
)

// OnConflictAction names the action of an ON CONFLICT clause.
type OnConflictAction string

const (
	DoNothing OnConflictAction = "DO NOTHING"
	DoUpdate  OnConflictAction = "DO UPDATE"
)

// OnConflictClause renders "ON CONFLICT [(target)] DO NOTHING" or
// "ON CONFLICT [(target)] DO UPDATE SET ... [WHERE ...]".
type OnConflictClause struct {
	Target      []string
	Action      OnConflictAction
	Assignments []Assignment
	Where       Predicate
}

// Assignment is one "column = expr" pair used by UPDATE SET and
// ON CONFLICT DO UPDATE SET.
type Assignment struct {
	Column string
	Value  Expr
}

// Set builds an Assignment from a column name and a bare value or Expr.
func Set(column string, value any) Assignment {
	return Assignment{Column: column, Value: wrapVal(value)}
}

// InsertStatement renders INSERT INTO t(cols) VALUES (...) | SELECT ...,
// with optional ON CONFLICT and RETURNING.
//
// Columns must match the arity of each VALUES row, or the projection
// arity of a SELECT source; a mismatch is a compile-time defect reported
// as an error, not a panic.
type InsertStatement struct {
	Target     TableRef
	Columns    []string
	Rows       [][]Expr      // VALUES source
	Source     *SelectStatement // SELECT source; mutually exclusive with Rows
	OnConflict *OnConflictClause
	Returning  []Expr
}

// InsertInto starts an InsertStatement.
func InsertInto(table string, columns ...string) *InsertStatement {
	return &InsertStatement{Target: Table(table), Columns: columns}
}

// Values appends one VALUES row; its length must equal len(Columns).
func (i *InsertStatement) Values(vals ...any) *InsertStatement {
	row := make([]Expr, len(vals))
	for idx, v := range vals {
		row[idx] = wrapVal(v)
	}
	i.Rows = append(i.Rows, row)
	return i
}

// FromSelect sets a SELECT source, mutually exclusive with Values rows.
func (i *InsertStatement) FromSelect(sel *SelectStatement) *InsertStatement {
	i.Source = sel
	return i
}

func (i *InsertStatement) OnConflictDoNothing(target ...string) *InsertStatement {
	i.OnConflict = &OnConflictClause{Target: target, Action: DoNothing}
	return i
}

func (i *InsertStatement) OnConflictDoUpdate(target []string, where Predicate, assignments ...Assignment) *InsertStatement {
	i.OnConflict = &OnConflictClause{Target: target, Action: DoUpdate, Assignments: assignments, Where: where}
	return i
}

func (i *InsertStatement) Returning_(exprs ...Expr) *InsertStatement {
	i.Returning = exprs
	return i
}

func (i *InsertStatement) writeSQL(w *writer) error {
	if i.Source == nil && len(i.Rows) == 0 {
		return fmt.Errorf("sql: insert into %s: no VALUES rows and no SELECT source", i.Target.Name)
	}
	for n, row := range i.Rows {
		if len(row) != len(i.Columns) {
			return fmt.Errorf("sql: insert into %s: row %d has %d values, expected %d columns", i.Target.Name, n, len(row), len(i.Columns))
		}
	}
	w.str("INSERT INTO ")
	if err := i.Target.writeSQL(w); err != nil {
		return err
	}
	w.str("(")
	for idx, c := range i.Columns {
		if idx > 0 {
			w.str(", ")
		}
		w.ident(c)
	}
	w.str(") ")
	switch {
	case i.Source != nil:
		if len(i.Source.Projections) != 0 && len(i.Source.Projections) != len(i.Columns) {
			return fmt.Errorf("sql: insert into %s: SELECT source projects %d columns, expected %d", i.Target.Name, len(i.Source.Projections), len(i.Columns))
		}
		if err := i.Source.writeSQL(w); err != nil {
			return err
		}
	default:
		w.str("VALUES ")
		for n, row := range i.Rows {
			if n > 0 {
				w.str(", ")
			}
			w.str("(")
			for idx, v := range row {
				if idx > 0 {
					w.str(", ")
				}
				if err := v.writeSQL(w); err != nil {
					return err
				}
			}
			w.str(")")
		}
	}
	if i.OnConflict != nil {
		if !w.d.Supports(dialect.FeatureOnConflict) {
			return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureOnConflict, Path: "on-conflict"}
		}
		w.str(" ON CONFLICT")
		if t := w.d.RenderConflictTarget(i.OnConflict.Target); t != "" {
			w.str(t)
		}
		w.str(" " + string(i.OnConflict.Action))
		if i.OnConflict.Action == DoUpdate {
			w.str(" SET ")
			for idx, a := range i.OnConflict.Assignments {
				if idx > 0 {
					w.str(", ")
				}
				w.ident(a.Column)
				w.str(" = ")
				if err := a.Value.writeSQL(w); err != nil {
					return err
				}
			}
			if i.OnConflict.Where != nil {
				w.str(" WHERE ")
				if err := i.OnConflict.Where.writeSQL(w); err != nil {
					return err
				}
			}
		}
	}
	if len(i.Returning) > 0 {
		if !w.d.Supports(dialect.FeatureReturning) {
			return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureReturning, Path: "returning"}
		}
		w.str(" RETURNING ")
		for idx, e := range i.Returning {
			if idx > 0 {
				w.str(", ")
			}
			if err := writeAsProjection(w, e); err != nil {
				return err
			}
		}
	}
	return nil
}
