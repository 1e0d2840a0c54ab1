package ar

import (
	"context"
	"reflect"
	"time"

	"github.com/rhosocial/activerecord-go/backend"
	"github.com/rhosocial/activerecord-go/dialect"
	"github.com/rhosocial/activerecord-go/dialect/sql"
)

// validator is implemented by models with field-level validation beyond
// what struct tags alone express. Save calls it between BeforeValidate
// and AfterValidate when present.
type validator interface{ Validate() error }

// Save runs the full save algorithm: before_validate -> validate ->
// after_validate -> before_save -> (insert | update) -> after_create/
// after_update -> after_save -> reset tracking. A before_* hook or
// validation error aborts the operation before it reaches the database;
// an after_* hook error is returned, with the affected count, after the
// write has already happened, and tracking is not reset.
func (b *Base[T]) Save(ctx context.Context) (int64, error) {
	c := b.config()
	bk := b.backendOrPanic()
	m := b.meta()

	if err := c.hooks.fire(ctx, BeforeValidate, b.self); err != nil {
		return 0, err
	}
	if v, ok := any(b.self).(validator); ok {
		if err := v.Validate(); err != nil {
			return 0, err
		}
	}
	if err := c.hooks.fire(ctx, AfterValidate, b.self); err != nil {
		return 0, err
	}
	if err := c.hooks.fire(ctx, BeforeSave, b.self); err != nil {
		return 0, err
	}

	var affected int64
	var err error
	if b.isNew {
		if err = c.hooks.fire(ctx, BeforeCreate, b.self); err != nil {
			return 0, err
		}
		if affected, err = b.insert(ctx, bk, m); err != nil {
			return 0, err
		}
		if err = c.hooks.fire(ctx, AfterCreate, b.self); err != nil {
			return affected, err
		}
	} else {
		if err = c.hooks.fire(ctx, BeforeUpdate, b.self); err != nil {
			return 0, err
		}
		if affected, err = b.update(ctx, bk, m); err != nil {
			return 0, err
		}
		if err = c.hooks.fire(ctx, AfterUpdate, b.self); err != nil {
			return affected, err
		}
	}

	if err = c.hooks.fire(ctx, AfterSave, b.self); err != nil {
		return affected, err
	}
	b.ResetTracking()
	return affected, nil
}

// mixin hook interfaces. ar.Base type-asserts self against these at the
// appropriate lifecycle point so mixin structs (mixin.CreateTime,
// mixin.UpdateTime, mixin.UUID) can touch their own fields without the
// model author registering an explicit On[T] handler for plumbing that
// belongs to the mixin itself.
type ensuresID interface{ EnsureID() }
type touchesCreated interface{ TouchCreated() }
type touchesUpdated interface{ TouchUpdated() }

func (b *Base[T]) insert(ctx context.Context, bk *backend.Backend, m *Meta) (int64, error) {
	reg := b.config().registry
	table := m.resolvedTable(b.config())

	if v, ok := any(b.self).(ensuresID); ok {
		v.EnsureID()
	}
	if v, ok := any(b.self).(touchesCreated); ok {
		v.TouchCreated()
	}
	if v, ok := any(b.self).(touchesUpdated); ok {
		v.TouchUpdated()
	}

	var cols []string
	var vals []any
	var pkField *fieldMeta
	for i := range m.Fields {
		fm := m.Fields[i]
		if fm.primaryKey {
			pkField = &m.Fields[i]
			if isZero(b.self, fm) {
				continue // left for the database to generate
			}
		}
		if fm.insertOmit && isZero(b.self, fm) {
			continue
		}
		v, err := toNative(b.self, fm, reg)
		if err != nil {
			return 0, err
		}
		cols = append(cols, fm.column)
		vals = append(vals, v)
	}

	stmt := sql.InsertInto(table, cols...).Values(vals...)
	returning := pkField != nil && bk.Dialect().Supports(dialect.FeatureReturning)
	if returning {
		stmt.Returning_(sql.C(pkField.column))
	}

	text, args, err := sql.ToSQL(stmt, bk.Dialect())
	if err != nil {
		return 0, err
	}

	if returning {
		found, err := bk.ExecuteAndFetchOne(ctx, text, args, func(r dialect.Rows) error {
			var native any
			if err := r.Scan(&native); err != nil {
				return err
			}
			return setFromNative(b.self, *pkField, native, reg, m)
		})
		if err != nil {
			return 0, err
		}
		_ = found
		return 1, nil
	}

	res, err := bk.Execute(ctx, backend.DML, text, args)
	if err != nil {
		return 0, err
	}
	if pkField != nil && isZero(b.self, *pkField) && res.LastInsertID != 0 {
		setIntField(b.self, *pkField, res.LastInsertID)
	}
	return res.Affected, nil
}

func (b *Base[T]) update(ctx context.Context, bk *backend.Backend, m *Meta) (int64, error) {
	reg := b.config().registry
	table := m.resolvedTable(b.config())

	if v, ok := any(b.self).(touchesUpdated); ok {
		v.TouchUpdated()
	}

	pkField, err := m.PKField()
	if err != nil {
		return 0, err
	}
	pkNative, err := toNative(b.self, pkField, reg)
	if err != nil {
		return 0, err
	}
	where := sql.EQ(sql.C(pkField.column), pkNative)

	var versionFM *fieldMeta
	var originalVersion any
	if m.version >= 0 {
		versionFM = &m.Fields[m.version]
		if b.original != nil {
			originalVersion = b.original[versionFM.column]
			bumpIntField(b.self, *versionFM, 1)
			where = sql.And(where, sql.EQ(sql.C(versionFM.column), originalVersion))
		}
	}

	dirty := b.DirtyFields()
	if len(dirty) == 0 {
		return 0, nil
	}

	var assignments []sql.Assignment
	for _, col := range dirty {
		fm, ok := m.ColumnField(col)
		if !ok || fm.primaryKey {
			continue
		}
		v, err := toNative(b.self, fm, reg)
		if err != nil {
			return 0, err
		}
		assignments = append(assignments, sql.Set(col, v))
	}
	if len(assignments) == 0 {
		return 0, nil
	}

	stmt := sql.Update(table).SetAll(assignments...).Where_(where)
	text, args, err := sql.ToSQL(stmt, bk.Dialect())
	if err != nil {
		return 0, err
	}

	res, err := bk.Execute(ctx, backend.DML, text, args)
	if err != nil {
		return 0, err
	}
	if res.Affected == 0 {
		pkVal := reflect.ValueOf(b.self).Elem().FieldByIndex(pkField.index).Interface()
		return 0, &StaleObjectError{Table: table, PK: pkVal}
	}
	return res.Affected, nil
}

// Delete removes the instance: for a plain model, a physical DELETE by
// primary key; for a soft-delete model (one whose Meta has a field
// tagged ar:"soft_delete"), assigning the tombstone timestamp and routing
// through Save instead, per spec.md §4.6.
func (b *Base[T]) Delete(ctx context.Context) (int64, error) {
	c := b.config()
	bk := b.backendOrPanic()
	m := b.meta()

	if err := c.hooks.fire(ctx, BeforeDelete, b.self); err != nil {
		return 0, err
	}

	var affected int64
	var err error
	if m.tomb >= 0 {
		tombFM := m.Fields[m.tomb]
		if err = setTombstone(b.self, tombFM); err != nil {
			return 0, err
		}
		affected, err = b.Save(ctx)
	} else {
		affected, err = b.deletePhysical(ctx, bk, m)
	}
	if err != nil {
		return affected, err
	}

	if err = c.hooks.fire(ctx, AfterDelete, b.self); err != nil {
		return affected, err
	}
	return affected, nil
}

func (b *Base[T]) deletePhysical(ctx context.Context, bk *backend.Backend, m *Meta) (int64, error) {
	reg := b.config().registry
	table := m.resolvedTable(b.config())

	pkField, err := m.PKField()
	if err != nil {
		return 0, err
	}
	pkNative, err := toNative(b.self, pkField, reg)
	if err != nil {
		return 0, err
	}

	stmt := sql.DeleteFrom(table).Where_(sql.EQ(sql.C(pkField.column), pkNative))
	text, args, err := sql.ToSQL(stmt, bk.Dialect())
	if err != nil {
		return 0, err
	}
	res, err := bk.Execute(ctx, backend.DML, text, args)
	if err != nil {
		return 0, err
	}
	return res.Affected, nil
}

// Refresh re-reads the row by primary key, replacing field values and the
// dirty-tracking snapshot. If the row no longer exists it returns
// StaleObjectError.
func (b *Base[T]) Refresh(ctx context.Context) error {
	c := b.config()
	bk := b.backendOrPanic()
	m := b.meta()
	reg := c.registry
	table := m.resolvedTable(c)

	pkField, err := m.PKField()
	if err != nil {
		return err
	}
	pkNative, err := toNative(b.self, pkField, reg)
	if err != nil {
		return err
	}

	cols := make([]sql.Expr, len(m.Fields))
	for i, fm := range m.Fields {
		cols[i] = sql.C(fm.column)
	}
	stmt := sql.Select(cols...).FromTable(table).Where_(sql.EQ(sql.C(pkField.column), pkNative))
	text, args, err := sql.ToSQL(stmt, bk.Dialect())
	if err != nil {
		return err
	}

	found, err := bk.ExecuteAndFetchOne(ctx, text, args, func(r dialect.Rows) error {
		return scanRowInto(r, m, reg, b.self)
	})
	if err != nil {
		return err
	}
	if !found {
		pkVal := reflect.ValueOf(b.self).Elem().FieldByIndex(pkField.index).Interface()
		return &StaleObjectError{Table: table, PK: pkVal}
	}

	if err := c.hooks.fire(ctx, AfterFind, b.self); err != nil {
		return err
	}
	b.ResetTracking()
	return nil
}

// bumpIntField adds delta to an integer-kind field, the optimistic-lock
// mixin's version increment.
func bumpIntField(self any, fm fieldMeta, delta int64) {
	rv := reflect.ValueOf(self).Elem().FieldByIndex(fm.index)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		rv.SetInt(rv.Int() + delta)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rv.SetUint(uint64(int64(rv.Uint()) + delta))
	}
}

// setTombstone assigns the current time to fm, supporting time.Time and
// *time.Time tombstone fields (a nullable tombstone is the common case:
// nil means "not deleted").
func setTombstone(self any, fm fieldMeta) error {
	rv := reflect.ValueOf(self).Elem().FieldByIndex(fm.index)
	now := time.Now()
	switch rv.Type() {
	case reflect.TypeOf(time.Time{}):
		rv.Set(reflect.ValueOf(now))
	case reflect.TypeOf(&time.Time{}):
		rv.Set(reflect.ValueOf(&now))
	default:
		rv.Set(reflect.ValueOf(now).Convert(rv.Type()))
	}
	return nil
}
