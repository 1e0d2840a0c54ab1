package ar

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/rhosocial/activerecord-go/typeadapter"
)

// fieldMeta describes one mapped struct field.
type fieldMeta struct {
	index       []int // reflect.Value.FieldByIndex path, supports embedded mixins
	column      string
	primaryKey  bool
	version     bool // optimistic-lock mixin contract
	softDelete  bool // soft-delete tombstone mixin contract
	createdAt   bool
	updatedAt   bool
	insertOmit  bool // generated/default-only: omitted from INSERT unless set
	affinity    typeadapter.Affinity
}

// Meta is the reflected shape of one Record type T: its table name, its
// column<->field mapping, and which fields play a mixin role (primary
// key, version, soft-delete tombstone, timestamps). Built once per type
// and cached, matching the design-notes table's "compile-time reflection"
// strategy — the cost of walking struct tags is paid once, not per call.
type Meta struct {
	Type    reflect.Type
	Table   string
	Fields  []fieldMeta
	byCol   map[string]int // column name -> index into Fields
	pk      int            // index into Fields, -1 if none
	version int             // index into Fields, -1 if none
	tomb    int             // index into Fields, -1 if none
	relFields map[string][]int // relation name (rel:"...") -> field index path
}

var metaCache sync.Map // reflect.Type -> *Meta

// metaFor returns the cached Meta for T, building it via reflection on
// first use.
func metaFor[T any]() *Meta {
	var zero T
	t := reflect.TypeOf(zero)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if m, ok := metaCache.Load(t); ok {
		return m.(*Meta)
	}
	m := buildMeta(t)
	actual, _ := metaCache.LoadOrStore(t, m)
	return actual.(*Meta)
}

// buildMeta walks t's fields (recursing into embedded structs, so mixin
// structs like mixin.Time contribute their own tagged fields) and derives
// the column mapping and mixin-role indices from `db:"..."` and
// `ar:"..."` struct tags.
func buildMeta(t reflect.Type) *Meta {
	m := &Meta{Type: t, Table: tableName(t), byCol: map[string]int{}, pk: -1, version: -1, tomb: -1, relFields: map[string][]int{}}
	walkFields(t, nil, m)
	return m
}

func walkFields(t reflect.Type, prefix []int, m *Meta) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int{}, prefix...), i)

		if name, ok := f.Tag.Lookup("rel"); ok {
			m.relFields[name] = index
		}

		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("db") == "" {
			walkFields(f.Type, index, m)
			continue
		}

		col, ok := f.Tag.Lookup("db")
		if !ok || col == "-" {
			continue
		}

		fm := fieldMeta{index: index, column: col}
		for _, tag := range strings.Split(f.Tag.Get("ar"), ",") {
			switch strings.TrimSpace(tag) {
			case "pk":
				fm.primaryKey = true
			case "version":
				fm.version = true
			case "soft_delete":
				fm.softDelete = true
			case "created_at":
				fm.createdAt = true
			case "updated_at":
				fm.updatedAt = true
			case "insert_omit":
				fm.insertOmit = true
			default:
				if rest, ok := strings.CutPrefix(strings.TrimSpace(tag), "affinity="); ok {
					fm.affinity = typeadapter.Affinity(rest)
				}
			}
		}

		fieldIdx := len(m.Fields)
		m.Fields = append(m.Fields, fm)
		m.byCol[col] = fieldIdx
		if fm.primaryKey {
			m.pk = fieldIdx
		}
		if fm.version {
			m.version = fieldIdx
		}
		if fm.softDelete {
			m.tomb = fieldIdx
		}
	}
}

// tableName derives the default table name by snake-casing and
// pluralizing the type name, per spec's "table name defaults via
// inflect pluralization of the type name" rule.
func tableName(t reflect.Type) string {
	return inflect.Pluralize(toSnakeCase(t.Name()))
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Columns returns every mapped column name in field-declaration order.
func (m *Meta) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.column
	}
	return cols
}

// PKField returns the primary-key field, or an error if the type declares
// none (every persistable Record must tag exactly one `ar:"pk"` field).
func (m *Meta) PKField() (fieldMeta, error) {
	if m.pk < 0 {
		return fieldMeta{}, fmt.Errorf("ar: %s has no field tagged ar:\"pk\"", m.Type)
	}
	return m.Fields[m.pk], nil
}

func (m *Meta) field(rv reflect.Value, fm fieldMeta) reflect.Value {
	return rv.FieldByIndex(fm.index)
}

// FieldType returns fm's declared Go type.
func (m *Meta) FieldType(fm fieldMeta) reflect.Type {
	return m.Type.FieldByIndex(fm.index).Type
}

// ColumnField looks up the fieldMeta for column, if mapped.
func (m *Meta) ColumnField(column string) (fieldMeta, bool) {
	i, ok := m.byCol[column]
	if !ok {
		return fieldMeta{}, false
	}
	return m.Fields[i], true
}

// PKColumn returns the primary key's column name, or "" if none.
func (m *Meta) PKColumn() string {
	if m.pk < 0 {
		return ""
	}
	return m.Fields[m.pk].column
}

// relFieldIndex returns the field index path registered for relation
// name, or nil if no field on this type carries rel:"name".
func (m *Meta) relFieldIndex(name string) []int {
	return m.relFields[name]
}
