package ar

import (
	"reflect"

	"github.com/rhosocial/activerecord-go/dialect"
	"github.com/rhosocial/activerecord-go/typeadapter"
)

// toNative converts self's fm field to its database-native representation
// via reg.
func toNative(self any, fm fieldMeta, reg *typeadapter.Registry) (any, error) {
	rv := reflect.ValueOf(self).Elem()
	v := rv.FieldByIndex(fm.index).Interface()
	return reg.ToDatabase(v, fm.affinity)
}

// setFromNative converts native into fm's host type via reg and assigns
// it to self's corresponding field.
func setFromNative(self any, fm fieldMeta, native any, reg *typeadapter.Registry, m *Meta) error {
	rv := reflect.ValueOf(self).Elem()
	field := rv.FieldByIndex(fm.index)
	host, err := reg.FromDatabase(native, fm.affinity, field.Type())
	if err != nil {
		return err
	}
	hv := reflect.ValueOf(host)
	if !hv.IsValid() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if hv.Type() != field.Type() && hv.Type().ConvertibleTo(field.Type()) {
		hv = hv.Convert(field.Type())
	}
	field.Set(hv)
	return nil
}

// scanRowInto decodes one row of rows into dest (a *T), mapping columns
// by name via m.ColumnField so SELECT * column order never has to match
// declaration order.
func scanRowInto[T any](rows dialect.Rows, m *Meta, reg *typeadapter.Registry, dest *T) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return err
	}
	for i, col := range cols {
		fm, ok := m.ColumnField(col)
		if !ok {
			continue
		}
		if err := setFromNative(dest, fm, vals[i], reg, m); err != nil {
			return err
		}
	}
	return nil
}

// setIntField assigns an integer value to fm's field, used for captured
// auto-increment primary keys that don't round-trip through the type
// adapter registry (LastInsertId is already an int64).
func setIntField(self any, fm fieldMeta, v int64) {
	rv := reflect.ValueOf(self).Elem().FieldByIndex(fm.index)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		rv.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rv.SetUint(uint64(v))
	}
}

// isZero reports whether fm's current field value on self is its type's
// zero value, used to decide whether a primary key should be omitted from
// an INSERT (left for the database to generate).
func isZero(self any, fm fieldMeta) bool {
	rv := reflect.ValueOf(self).Elem().FieldByIndex(fm.index)
	return rv.IsZero()
}
