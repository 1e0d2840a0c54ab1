// Package typeadapter implements the bidirectional conversion registry
// between host-language values and database-native representations,
// keyed by (host type, column affinity).
package typeadapter

import (
	"fmt"
	"reflect"
)

// Affinity is a coarse column type to which host values map before wire
// encoding. It is database-agnostic; dialects translate it to a concrete
// column type.
type Affinity string

// The minimum committed set of affinities.
const (
	Integer   Affinity = "INTEGER"
	Real      Affinity = "REAL"
	Text      Affinity = "TEXT"
	Blob      Affinity = "BLOB"
	Numeric   Affinity = "NUMERIC"
	Boolean   Affinity = "BOOLEAN"
	Date      Affinity = "DATE"
	Time      Affinity = "TIME"
	Timestamp Affinity = "TIMESTAMP"
	JSON      Affinity = "JSON"
	UUID      Affinity = "UUID"
)

// ToDatabase converts a host value into its database-native representation.
type ToDatabase func(value any) (native any, err error)

// FromDatabase converts a database-native representation back into a host value.
type FromDatabase func(native any) (value any, err error)

// Adapter is a pure, bidirectional conversion pair for one (host type, affinity) key.
type Adapter struct {
	ToDatabase   ToDatabase
	FromDatabase FromDatabase
}

// key identifies an adapter slot.
type key struct {
	hostType reflect.Type
	affinity Affinity
}

// UnregisteredAdapterError is returned when no adapter exists for a
// (host type, affinity) pair and the native/host representations differ.
type UnregisteredAdapterError struct {
	HostType reflect.Type
	Affinity Affinity
}

func (e *UnregisteredAdapterError) Error() string {
	return fmt.Sprintf("typeadapter: no adapter registered for host type %s with affinity %s", e.HostType, e.Affinity)
}

// ConversionError wraps a failure raised by an adapter's conversion function.
type ConversionError struct {
	HostType reflect.Type
	Affinity Affinity
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("typeadapter: conversion failed for host type %s with affinity %s: %v", e.HostType, e.Affinity, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Registry holds adapters keyed by (host type, affinity), plus a default
// affinity per host type used when no exact-match adapter is registered.
//
// Registries are explicit values held per model type (package ar gives
// each type typeadapter.Builtins() unless ar.WithRegistry overrides it),
// per the design policy of avoiding process-wide mutable singletons where
// testability would otherwise suffer.
type Registry struct {
	adapters        map[key]Adapter
	defaultAffinity map[reflect.Type]Affinity
}

// New returns an empty registry. Callers typically start from Builtins()
// instead, which pre-populates the standard host-type set.
func New() *Registry {
	return &Registry{
		adapters:        make(map[key]Adapter),
		defaultAffinity: make(map[reflect.Type]Affinity),
	}
}

// Register installs an adapter for (hostType, affinity), and — if this is
// the first affinity registered for hostType — makes it that type's
// default affinity for fallback lookups.
func (r *Registry) Register(hostType reflect.Type, affinity Affinity, a Adapter) {
	r.adapters[key{hostType, affinity}] = a
	if _, ok := r.defaultAffinity[hostType]; !ok {
		r.defaultAffinity[hostType] = affinity
	}
}

// SetDefaultAffinity overrides the default affinity used for hostType when
// no exact-match adapter exists for a requested affinity.
func (r *Registry) SetDefaultAffinity(hostType reflect.Type, affinity Affinity) {
	r.defaultAffinity[hostType] = affinity
}

// Unregister removes the adapter for (hostType, affinity).
func (r *Registry) Unregister(hostType reflect.Type, affinity Affinity) {
	delete(r.adapters, key{hostType, affinity})
}

// lookup resolves an adapter for (hostType, affinity), falling back to the
// host type's default affinity when no exact match exists.
func (r *Registry) lookup(hostType reflect.Type, affinity Affinity) (Adapter, bool) {
	if a, ok := r.adapters[key{hostType, affinity}]; ok {
		return a, true
	}
	if def, ok := r.defaultAffinity[hostType]; ok && def != affinity {
		if a, ok := r.adapters[key{hostType, def}]; ok {
			return a, true
		}
	}
	return Adapter{}, false
}

// ToDatabase converts value (of some host type) to its database-native
// representation for the given affinity. If no adapter is registered and
// value already satisfies the native representation (pass-through), the
// value is returned unchanged.
func (r *Registry) ToDatabase(value any, affinity Affinity) (any, error) {
	if value == nil {
		return nil, nil
	}
	t := reflect.TypeOf(value)
	a, ok := r.lookup(t, affinity)
	if !ok {
		if isPrimitivePassthrough(value) {
			return value, nil
		}
		return nil, &UnregisteredAdapterError{HostType: t, Affinity: affinity}
	}
	native, err := a.ToDatabase(value)
	if err != nil {
		return nil, &ConversionError{HostType: t, Affinity: affinity, Err: err}
	}
	return native, nil
}

// FromDatabase converts a database-native value back into a host value of
// hostType for the given affinity.
func (r *Registry) FromDatabase(native any, affinity Affinity, hostType reflect.Type) (any, error) {
	if native == nil {
		return reflect.Zero(hostType).Interface(), nil
	}
	a, ok := r.lookup(hostType, affinity)
	if !ok {
		if isPrimitivePassthrough(native) && reflect.TypeOf(native) == hostType {
			return native, nil
		}
		return nil, &UnregisteredAdapterError{HostType: hostType, Affinity: affinity}
	}
	value, err := a.FromDatabase(native)
	if err != nil {
		return nil, &ConversionError{HostType: hostType, Affinity: affinity, Err: err}
	}
	return value, nil
}

// isPrimitivePassthrough reports whether v is a primitive database/sql
// compatible value that needs no adapter (identical host/native form).
func isPrimitivePassthrough(v any) bool {
	switch v.(type) {
	case int64, int32, int, float64, float32, string, bool, []byte:
		return true
	default:
		return false
	}
}
