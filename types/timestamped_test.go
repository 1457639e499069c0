package types

import (
	"encoding/json"
	"evroam/utility"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampedEquality(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewTimestamped(AdminStatusOperational, t0)
	b := NewTimestamped(AdminStatusOperational, t0.In(time.FixedZone("CET", 3600)))

	assert.True(t, a.Equal(b), "same instant in another zone")
	assert.Equal(t, 0, a.Compare(b))
	assert.False(t, a.Equal(NewTimestamped(AdminStatusOutOfService, t0)))
	assert.False(t, a.Equal(NewTimestamped(AdminStatusOperational, t0.Add(time.Nanosecond))))
}

func TestTimestampedOrdering(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	early := NewTimestamped(OperationalStatusOffline, t0)
	late := NewTimestamped(OperationalStatusAvailable, t0.Add(time.Second))

	assert.True(t, early.Before(late))
	assert.False(t, late.Before(early))
	assert.Equal(t, -1, early.Compare(late))
	assert.Equal(t, 1, late.Compare(early))

	// same instant, value breaks the tie
	x := NewTimestamped(OperationalStatusAvailable, t0)
	y := NewTimestamped(OperationalStatusOffline, t0)
	assert.Equal(t, -1, x.Compare(y))
	assert.Equal(t, 1, y.Compare(x))
	assert.False(t, x.Before(y))
}

func TestTimestampedJSON(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	data, err := json.Marshal(NewTimestamped(AdminStatusPlanned, t0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"Planned","as_of":"2026-03-01T10:00:00Z"}`, string(data))

	var back Timestamped[AdminStatus]
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(NewTimestamped(AdminStatusPlanned, t0)))
}

func TestOptional(t *testing.T) {
	absent := None[any]()
	presentNil := Some[any](nil)

	_, ok := absent.Get()
	assert.False(t, ok)
	v, ok := presentNil.Get()
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "fallback", absent.OrElse("fallback"))
	assert.Nil(t, presentNil.OrElse("fallback"))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseAdminStatus("OutOfService")
	require.NoError(t, err)
	assert.Equal(t, AdminStatusOutOfService, s)

	_, err = ParseAdminStatus("Available")
	assert.ErrorIs(t, err, utility.ErrInvalidStatus, "operational value is not an admin status")

	o, err := ParseOperationalStatus("Degraded")
	require.NoError(t, err)
	assert.Equal(t, OperationalStatusDegraded, o)

	_, err = ParseOperationalStatus("Planned")
	assert.ErrorIs(t, err, utility.ErrInvalidStatus)
}
