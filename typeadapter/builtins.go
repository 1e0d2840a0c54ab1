package typeadapter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Decimal is an arbitrary-precision decimal host type. It is intentionally
// a thin string wrapper: exact textual round-tripping is the whole point
// (spec.md §3 requires decimals to compare exactly, never through float64).
type Decimal string

// String implements fmt.Stringer.
func (d Decimal) String() string { return string(d) }

var (
	typeOfDecimal   = reflect.TypeOf(Decimal(""))
	typeOfTime      = reflect.TypeOf(time.Time{})
	typeOfUUID      = reflect.TypeOf(uuid.UUID{})
	typeOfStringMap = reflect.TypeOf(map[string]any{})
	typeOfAnySlice  = reflect.TypeOf([]any{})
)

// Builtins returns a Registry pre-populated with adapters for decimal,
// date, time, date-time, UUID, mapping and sequence host types. Integer,
// floating, boolean, text and byte-string values have no adapter: they
// pass through unchanged, and on the way back only when the native value
// already has the field's exact Go type.
func Builtins() *Registry {
	r := New()

	// Decimal serializes as TEXT to preserve precision exactly.
	r.Register(typeOfDecimal, Text, Adapter{
		ToDatabase:   func(v any) (any, error) { return string(v.(Decimal)), nil },
		FromDatabase: func(v any) (any, error) { return Decimal(toText(v)), nil },
	})
	r.Register(typeOfDecimal, Numeric, Adapter{
		ToDatabase:   func(v any) (any, error) { return string(v.(Decimal)), nil },
		FromDatabase: func(v any) (any, error) { return Decimal(toText(v)), nil },
	})

	// time.Time defaults to ISO-8601 TEXT unless the dialect declares
	// native DATE/TIME/TIMESTAMP support, in which case the caller
	// registers an override adapter for that affinity before use.
	r.Register(typeOfTime, Timestamp, Adapter{
		ToDatabase: func(v any) (any, error) { return v.(time.Time).UTC().Format(time.RFC3339Nano), nil },
		FromDatabase: func(v any) (any, error) {
			return parseTimeText(toText(v))
		},
	})
	r.Register(typeOfTime, Date, Adapter{
		ToDatabase: func(v any) (any, error) { return v.(time.Time).UTC().Format("2006-01-02"), nil },
		FromDatabase: func(v any) (any, error) {
			return time.Parse("2006-01-02", toText(v))
		},
	})
	r.Register(typeOfTime, Time, Adapter{
		ToDatabase: func(v any) (any, error) { return v.(time.Time).UTC().Format("15:04:05.999999999"), nil },
		FromDatabase: func(v any) (any, error) {
			return time.Parse("15:04:05.999999999", toText(v))
		},
	})
	r.SetDefaultAffinity(typeOfTime, Timestamp)

	// UUID serializes as its canonical 36-character text form by default;
	// dialects with native UUID columns register a UUID-affinity override.
	r.Register(typeOfUUID, Text, Adapter{
		ToDatabase:   func(v any) (any, error) { return v.(uuid.UUID).String(), nil },
		FromDatabase: func(v any) (any, error) { return uuid.Parse(toText(v)) },
	})
	r.Register(typeOfUUID, UUID, Adapter{
		ToDatabase:   func(v any) (any, error) { return v.(uuid.UUID).String(), nil },
		FromDatabase: func(v any) (any, error) { return uuid.Parse(toText(v)) },
	})
	r.SetDefaultAffinity(typeOfUUID, UUID)

	// Mapping (object) and ordered sequence host types serialize as JSON
	// TEXT by default.
	jsonAdapter := func(zero func() any) Adapter {
		return Adapter{
			ToDatabase: func(v any) (any, error) {
				b, err := json.Marshal(v)
				if err != nil {
					return nil, err
				}
				return string(b), nil
			},
			FromDatabase: func(v any) (any, error) {
				out := zero()
				if err := json.Unmarshal([]byte(toText(v)), &out); err != nil {
					return nil, err
				}
				return derefAny(out), nil
			},
		}
	}
	r.Register(typeOfStringMap, JSON, jsonAdapter(func() any { m := map[string]any{}; return &m }))
	r.Register(typeOfAnySlice, JSON, jsonAdapter(func() any { s := []any{}; return &s }))
	r.SetDefaultAffinity(typeOfStringMap, JSON)
	r.SetDefaultAffinity(typeOfAnySlice, JSON)

	// Alternate compact BLOB encoding for the same composite host types,
	// offered alongside the default JSON-TEXT form for callers who opt a
	// given field into binary storage.
	msgpackAdapter := func(zero func() any) Adapter {
		return Adapter{
			ToDatabase: func(v any) (any, error) { return msgpack.Marshal(v) },
			FromDatabase: func(v any) (any, error) {
				raw, ok := v.([]byte)
				if !ok {
					return nil, fmt.Errorf("typeadapter: msgpack adapter expects []byte, got %T", v)
				}
				out := zero()
				if err := msgpack.Unmarshal(raw, out); err != nil {
					return nil, err
				}
				return derefAny(out), nil
			},
		}
	}
	r.Register(typeOfStringMap, Blob, msgpackAdapter(func() any { m := map[string]any{}; return &m }))
	r.Register(typeOfAnySlice, Blob, msgpackAdapter(func() any { s := []any{}; return &s }))

	return r
}

func derefAny(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		return rv.Elem().Interface()
	}
	return v
}

func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// parseTimeText parses an ISO-8601 TEXT timestamp, tolerating the
// space-separated "YYYY-MM-DD HH:MM:SS" form some dialects (e.g. SQLite)
// use instead of the "T" separator.
func parseTimeText(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("typeadapter: cannot parse time text %q", s)
}
