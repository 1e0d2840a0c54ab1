// Package ar implements the ActiveRecord Model runtime: a generic Base[T]
// embedded into user structs, reflection-driven field/column mapping, the
// save/delete/refresh lifecycle, and the class-level finders built on top
// of package query and package backend.
package ar

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/rhosocial/activerecord-go/backend"
)

// Record is satisfied by any *T that embeds Base[T] and has been attached
// via a finder or New. It names the instance-level contract spec.md §4.6
// describes; models rarely need to hold a Record value directly, since
// *T itself already satisfies it through promoted methods.
type Record interface {
	IsNewRecord() bool
	IsDirty() bool
	DirtyFields() []string
	ResetTracking()
	Save(ctx context.Context) (int64, error)
	Delete(ctx context.Context) (int64, error)
	Refresh(ctx context.Context) error
}

// Base is embedded by value into a model struct to give it the
// ActiveRecord instance contract. T must be the embedding struct itself
// (the CRTP-style self-reference Go requires since a generic embedded
// field cannot discover its outer struct on its own): a model declares
//
//	type User struct {
//		ar.Base[User]
//		ID   int64  `db:"id" ar:"pk"`
//		Name string `db:"name"`
//	}
//
// and finders/New attach self for it; constructing a User by hand and
// calling its ActiveRecord methods without going through New or a finder
// leaves Base unattached: self is nil, IsNewRecord reports false, and the
// methods that read the record's fields panic.
type Base[T any] struct {
	self     *T
	original map[string]any
	isNew    bool
	relMu    sync.Mutex
	relCache map[string]any
}

// New constructs a zero-value T with Base attached and marked as a new
// (unpersisted) record, ready for field assignment and Save.
func New[T any]() *T {
	var v T
	base(&v).attach(&v, true)
	return &v
}

// base locates the embedded Base[T] field on self via reflection. It is
// called on every ActiveRecord method, but the offset is cheap: one
// reflect.ValueOf plus a direct field walk, no map lookup.
func base[T any](self *T) *Base[T] {
	rv := reflect.ValueOf(self).Elem()
	for i := 0; i < rv.NumField(); i++ {
		if b, ok := rv.Field(i).Addr().Interface().(*Base[T]); ok {
			return b
		}
	}
	panic(fmt.Sprintf("ar: %T does not embed ar.Base[%T]", self, *new(T)))
}

func (b *Base[T]) attach(self *T, isNew bool) {
	b.self = self
	b.isNew = isNew
	if !isNew {
		b.original = snapshot(self, metaFor[T]())
	}
}

func (b *Base[T]) config() *typeConfig { return configFor[T]() }
func (b *Base[T]) meta() *Meta         { return metaFor[T]() }

// IsNewRecord reports whether Save has not yet persisted this instance.
func (b *Base[T]) IsNewRecord() bool { return b.isNew }

// DirtyFields lists the columns whose current value differs from the
// last-loaded/last-saved snapshot. A new record's every mapped field is
// dirty.
func (b *Base[T]) DirtyFields() []string {
	m := b.meta()
	current := snapshot(b.self, m)
	if b.isNew || b.original == nil {
		return m.Columns()
	}
	var dirty []string
	for _, fm := range m.Fields {
		if !reflect.DeepEqual(b.original[fm.column], current[fm.column]) {
			dirty = append(dirty, fm.column)
		}
	}
	return dirty
}

// IsDirty reports whether DirtyFields is non-empty.
func (b *Base[T]) IsDirty() bool { return len(b.DirtyFields()) > 0 }

// ResetTracking takes a fresh snapshot of the instance's current field
// values and clears is_new_record, as save()/refresh() do on success.
func (b *Base[T]) ResetTracking() {
	b.original = snapshot(b.self, b.meta())
	b.isNew = false
}

// ClearRelationCache invalidates the lazy-relation cache. With no name
// given it clears every cached relation; with a name it clears only that
// one, per spec's clear_relation_cache(name?) contract.
func (b *Base[T]) ClearRelationCache(name ...string) {
	b.relMu.Lock()
	defer b.relMu.Unlock()
	if len(name) == 0 {
		b.relCache = nil
		return
	}
	for _, n := range name {
		delete(b.relCache, n)
	}
}

func (b *Base[T]) relationCached(name string) (any, bool) {
	b.relMu.Lock()
	defer b.relMu.Unlock()
	v, ok := b.relCache[name]
	return v, ok
}

func (b *Base[T]) cacheRelation(name string, v any) {
	b.relMu.Lock()
	defer b.relMu.Unlock()
	if b.relCache == nil {
		b.relCache = make(map[string]any)
	}
	b.relCache[name] = v
}

// backendOrPanic returns the type's configured backend, panicking with a
// descriptive error if none was ever attached via Configure — mirroring
// the spec's "a model without a backend cannot persist" rule as a loud
// programmer error rather than a silent no-op.
func (b *Base[T]) backendOrPanic() *backend.Backend {
	bk := b.config().backend
	if bk == nil {
		panic(fmt.Sprintf("ar: %T has no backend; call ar.Configure[%T] first", *new(T), *new(T)))
	}
	return bk
}

// snapshot reads every mapped field's current value into a column-keyed
// map, the dirty-tracking baseline compared against on the next
// DirtyFields call.
func snapshot(self any, m *Meta) map[string]any {
	rv := reflect.ValueOf(self).Elem()
	out := make(map[string]any, len(m.Fields))
	for _, fm := range m.Fields {
		out[fm.column] = rv.FieldByIndex(fm.index).Interface()
	}
	return out
}
