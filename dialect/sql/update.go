package sql

import (
	"fmt"

	"github.com/rhosocial/activerecord-go/dialect"
)

// UpdateStatement renders UPDATE t SET ... [FROM src] [WHERE ...]
// [RETURNING ...].
type UpdateStatement struct {
	Target      TableRef
	Assignments []Assignment
	From        Expr
	Where       Predicate
	Returning   []Expr
}

// Update starts an UpdateStatement.
func Update(table string) *UpdateStatement {
	return &UpdateStatement{Target: Table(table)}
}

func (u *UpdateStatement) SetAll(assignments ...Assignment) *UpdateStatement {
	u.Assignments = append(u.Assignments, assignments...)
	return u
}

func (u *UpdateStatement) From_(src Expr) *UpdateStatement { u.From = src; return u }

func (u *UpdateStatement) Where_(p Predicate) *UpdateStatement {
	if u.Where == nil {
		u.Where = p
	} else {
		u.Where = And(u.Where, p)
	}
	return u
}

func (u *UpdateStatement) Returning_(exprs ...Expr) *UpdateStatement {
	u.Returning = exprs
	return u
}

func (u *UpdateStatement) writeSQL(w *writer) error {
	if len(u.Assignments) == 0 {
		return fmt.Errorf("sql: update %s: no assignments", u.Target.Name)
	}
	w.str("UPDATE ")
	if err := u.Target.writeSQL(w); err != nil {
		return err
	}
	w.str(" SET ")
	for i, a := range u.Assignments {
		if i > 0 {
			w.str(", ")
		}
		w.ident(a.Column)
		w.str(" = ")
		if err := a.Value.writeSQL(w); err != nil {
			return err
		}
	}
	if u.From != nil {
		w.str(" FROM ")
		if err := u.From.writeSQL(w); err != nil {
			return err
		}
	}
	if u.Where != nil {
		w.str(" WHERE ")
		if err := u.Where.writeSQL(w); err != nil {
			return err
		}
	}
	if len(u.Returning) > 0 {
		if !w.d.Supports(dialect.FeatureReturning) {
			return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureReturning, Path: "returning"}
		}
		w.str(" RETURNING ")
		for i, e := range u.Returning {
			if i > 0 {
				w.str(", ")
			}
			if err := writeAsProjection(w, e); err != nil {
				return err
			}
		}
	}
	return nil
}
