package sql

import "github.com/rhosocial/activerecord-go/dialect"

// DeleteStatement renders DELETE FROM t [USING src] [WHERE ...]
// [RETURNING ...].
type DeleteStatement struct {
	Target    TableRef
	Using     Expr
	Where     Predicate
	Returning []Expr
}

// DeleteFrom starts a DeleteStatement.
func DeleteFrom(table string) *DeleteStatement {
	return &DeleteStatement{Target: Table(table)}
}

func (d *DeleteStatement) Using_(src Expr) *DeleteStatement { d.Using = src; return d }

func (d *DeleteStatement) Where_(p Predicate) *DeleteStatement {
	if d.Where == nil {
		d.Where = p
	} else {
		d.Where = And(d.Where, p)
	}
	return d
}

func (d *DeleteStatement) Returning_(exprs ...Expr) *DeleteStatement {
	d.Returning = exprs
	return d
}

func (d *DeleteStatement) writeSQL(w *writer) error {
	w.str("DELETE FROM ")
	if err := d.Target.writeSQL(w); err != nil {
		return err
	}
	if d.Using != nil {
		w.str(" USING ")
		if err := d.Using.writeSQL(w); err != nil {
			return err
		}
	}
	if d.Where != nil {
		w.str(" WHERE ")
		if err := d.Where.writeSQL(w); err != nil {
			return err
		}
	}
	if len(d.Returning) > 0 {
		if !w.d.Supports(dialect.FeatureReturning) {
			return &FeatureNotSupportedError{Dialect: w.d.Name(), Feature: dialect.FeatureReturning, Path: "returning"}
		}
		w.str(" RETURNING ")
		for i, e := range d.Returning {
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
