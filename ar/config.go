package ar

import (
	"reflect"
	"sync"

	"github.com/rhosocial/activerecord-go/backend"
	"github.com/rhosocial/activerecord-go/typeadapter"
)

// typeConfig is the class-level binding a Record type carries: its
// backend, type adapter registry, table name override, and registered
// lifecycle hooks. Exactly one typeConfig exists per Go type, shared by
// every instance, matching the spec's "configure(connection_config,
// backend_class)" class-level binding.
type typeConfig struct {
	backend   *backend.Backend
	registry  *typeadapter.Registry
	hooks     *hookRegistry
	table     string
	relations map[string]relationDef
}

var configs sync.Map // reflect.Type -> *typeConfig

func configFor[T any]() *typeConfig {
	var zero T
	t := reflect.TypeOf(zero)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if c, ok := configs.Load(t); ok {
		return c.(*typeConfig)
	}
	c := &typeConfig{registry: typeadapter.Builtins(), hooks: newHookRegistry()}
	actual, _ := configs.LoadOrStore(t, c)
	return actual.(*typeConfig)
}

// ConfigOption customizes a type's class-level binding.
type ConfigOption func(*typeConfig)

// WithRegistry overrides the default typeadapter.Builtins() registry.
func WithRegistry(r *typeadapter.Registry) ConfigOption {
	return func(c *typeConfig) { c.registry = r }
}

// WithTable overrides the inflect-derived default table name.
func WithTable(name string) ConfigOption {
	return func(c *typeConfig) { c.table = name }
}

// Configure attaches b as T's backend, the class-level binding every
// instance's save/delete/refresh/query uses. A type that is never
// Configure'd has no backend: Save/Delete/Refresh panic, and a query's
// ToSQL panics too, since it reads the dialect from the backend. A
// Backend built with backend.New(nil, d) carries only a dialect, which
// is enough for ToSQL; nothing can be executed through it.
func Configure[T any](b *backend.Backend, opts ...ConfigOption) {
	c := configFor[T]()
	c.backend = b
	for _, opt := range opts {
		opt(c)
	}
}

// On registers a lifecycle handler for T against ev, firing in
// registration order alongside every other handler registered for ev.
func On[T any](ev Event, h Handler) {
	configFor[T]().hooks.on(ev, h)
}

func (m *Meta) resolvedTable(c *typeConfig) string {
	if c.table != "" {
		return c.table
	}
	return m.Table
}
