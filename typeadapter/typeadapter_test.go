package typeadapter

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsDecimalRoundTrip(t *testing.T) {
	r := Builtins()
	native, err := r.ToDatabase(Decimal("1234.5678"), Text)
	require.NoError(t, err)
	assert.Equal(t, "1234.5678", native)

	value, err := r.FromDatabase(native, Text, typeOfDecimal)
	require.NoError(t, err)
	assert.Equal(t, Decimal("1234.5678"), value)
}

func TestBuiltinsTimeRoundTripMicrosecond(t *testing.T) {
	r := Builtins()
	in := time.Date(2023, 1, 15, 14, 30, 45, 123456000, time.UTC)
	native, err := r.ToDatabase(in, Timestamp)
	require.NoError(t, err)

	out, err := r.FromDatabase(native, Timestamp, typeOfTime)
	require.NoError(t, err)
	got := out.(time.Time)
	assert.Equal(t, in.Truncate(time.Microsecond), got.Truncate(time.Microsecond))
}

func TestBuiltinsUUIDRoundTrip(t *testing.T) {
	r := Builtins()
	id := uuid.New()
	native, err := r.ToDatabase(id, UUID)
	require.NoError(t, err)

	out, err := r.FromDatabase(native, UUID, typeOfUUID)
	require.NoError(t, err)
	assert.Equal(t, id, out)
}

func TestBuiltinsJSONMapRoundTrip(t *testing.T) {
	r := Builtins()
	in := map[string]any{"k": []any{float64(1), float64(2), float64(3)}}
	native, err := r.ToDatabase(in, JSON)
	require.NoError(t, err)
	assert.IsType(t, "", native)

	out, err := r.FromDatabase(native, JSON, typeOfStringMap)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnregisteredAdapterError(t *testing.T) {
	r := New()
	_, err := r.ToDatabase(struct{ X int }{1}, Text)
	require.Error(t, err)
	var uae *UnregisteredAdapterError
	require.ErrorAs(t, err, &uae)
}

func TestPassthroughPrimitives(t *testing.T) {
	r := New()
	native, err := r.ToDatabase(int64(42), Integer)
	require.NoError(t, err)
	assert.Equal(t, int64(42), native)
}

func TestRegistryUnregister(t *testing.T) {
	r := Builtins()
	r.Unregister(typeOfDecimal, Text)
	_, err := r.ToDatabase(Decimal("1.0"), Text)
	require.Error(t, err)
	_ = reflect.TypeOf(0)
}
