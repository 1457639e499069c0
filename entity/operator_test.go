package entity

import (
	"context"
	"evroam/dispatch"
	"evroam/entity/common"
	"evroam/event"
	"evroam/types"
	"evroam/utility"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) Handle(_ context.Context, ev event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) all() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newOperator(t *testing.T, opts ...Option) (*Operator, *dispatch.Dispatcher) {
	t.Helper()
	d := dispatch.New()
	t.Cleanup(func() { goleak.VerifyNone(t) })
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = d.Close(ctx)
	})
	op, err := NewOperator("DE*ABC", d, opts...)
	require.NoError(t, err)
	return op, d
}

func TestAdminStatusScenario(t *testing.T) {
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)
	t15 := t0.Add(30 * time.Minute)

	op, _ := newOperator(t, WithAdminStatus(types.AdminStatusOperational, t0))
	admin := &collector{}
	_, err := op.SubscribeToAdminStatusChanges(admin)
	require.NoError(t, err)

	ev, err := op.UpdateAdminStatusAt(types.AdminStatusOutOfService, t1)
	require.NoError(t, err)
	require.NotNil(t, ev)
	changed := ev.(event.AdminStatusChanged)
	assert.Equal(t, types.NewTimestamped(types.AdminStatusOperational, t0), changed.Old)
	assert.Equal(t, types.NewTimestamped(types.AdminStatusOutOfService, t1), changed.New)

	ev, err = op.UpdateAdminStatusAt(types.AdminStatusOutOfService, t2)
	require.NoError(t, err)
	assert.Nil(t, ev)

	ev, err = op.UpdateAdminStatusAt(types.AdminStatusOperational, t15)
	require.ErrorIs(t, err, utility.ErrOutOfOrderUpdate)
	assert.Nil(t, ev)
	assert.Equal(t, types.NewTimestamped(types.AdminStatusOutOfService, t1), op.AdminStatus())

	require.Eventually(t, func() bool { return admin.len() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, admin.len())
}

func TestDefaultsUseClock(t *testing.T) {
	clock := &fixedClock{now: t0}
	op, _ := newOperator(t, WithClock(clock))

	assert.Equal(t, types.NewTimestamped(types.AdminStatusUnknown, t0), op.AdminStatus())
	assert.Equal(t, types.NewTimestamped(types.OperationalStatusUnknown, t0), op.Status())

	clock.set(t0.Add(time.Minute))
	ev, err := op.UpdateStatus(types.OperationalStatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Minute), ev.Timestamp())
	assert.Equal(t, types.OperationalStatusAvailable, op.Status().Value())
}

func TestInvalidStatusIsRejected(t *testing.T) {
	op, _ := newOperator(t)

	_, err := op.UpdateAdminStatus(types.AdminStatus("Broken"))
	assert.ErrorIs(t, err, utility.ErrInvalidStatus)
	_, err = op.UpdateStatus(types.OperationalStatus("Sleeping"))
	assert.ErrorIs(t, err, utility.ErrInvalidStatus)
	assert.Equal(t, types.AdminStatusUnknown, op.AdminStatus().Value())
}

func TestVariantsReachOnlyTheirSubscribers(t *testing.T) {
	clock := &fixedClock{now: t0}
	op, _ := newOperator(t, WithClock(clock))
	data, admin, status := &collector{}, &collector{}, &collector{}
	_, err := op.SubscribeToDataChanges(data)
	require.NoError(t, err)
	_, err = op.SubscribeToAdminStatusChanges(admin)
	require.NoError(t, err)
	_, err = op.SubscribeToStatusChanges(status)
	require.NoError(t, err)

	clock.set(t0.Add(time.Second))
	_, err = op.SetName("Fast Charge GmbH")
	require.NoError(t, err)
	_, err = op.UpdateStatus(types.OperationalStatusDegraded)
	require.NoError(t, err)
	_, err = op.UpdateStatus(types.OperationalStatusAvailable)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return data.len() == 1 && status.len() == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, admin.len())

	name := data.all()[0].(event.DataChanged)
	assert.Equal(t, PropertyName, name.Property)
	assert.False(t, name.OldValue.IsSet())
	assert.Equal(t, "Fast Charge GmbH", name.NewValue.OrElse(nil))
}

func TestAttributes(t *testing.T) {
	mix := &common.EnergyMix{IsGreenEnergy: true, SupplierName: "Stadtwerke"}
	op, _ := newOperator(t, WithAttributes(Attributes{
		Name:  "Fast Charge GmbH",
		Email: "ops@fastcharge.example",
	}))

	assert.Equal(t, "Fast Charge GmbH", op.Name())
	_, err := op.SetEnergyMix(mix)
	require.NoError(t, err)
	_, err = op.SetDescription([]common.DisplayText{{Language: "en", Text: "Highway chargers"}})
	require.NoError(t, err)

	ev, err := op.SetEnergyMix(&common.EnergyMix{IsGreenEnergy: true, SupplierName: "Stadtwerke"})
	require.NoError(t, err)
	assert.Nil(t, ev, "equal content is not a change")

	attrs := op.Attributes()
	assert.Equal(t, "ops@fastcharge.example", attrs.Email)
	assert.Equal(t, mix, attrs.EnergyMix)
	assert.Len(t, op.Description(), 1)

	_, err = op.ClearProperty(PropertyEmail)
	require.NoError(t, err)
	_, ok := op.Property(PropertyEmail)
	assert.False(t, ok)
}

func TestRetire(t *testing.T) {
	op, d := newOperator(t)
	status := &collector{}
	_, err := op.SubscribeToStatusChanges(status)
	require.NoError(t, err)
	_, err = op.UpdateStatusAt(types.OperationalStatusAvailable, time.Now())
	require.NoError(t, err)

	op.Retire()
	assert.True(t, op.Retired())
	assert.True(t, op.Snapshot().Retired)

	_, err = op.UpdateStatusAt(types.OperationalStatusOffline, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, utility.ErrEntityRetired)
	_, err = op.SubscribeToDataChanges(&collector{})
	assert.ErrorIs(t, err, utility.ErrEntityRetired)

	select {
	case <-d.Drained(op.ID()):
	case <-time.After(time.Second):
		t.Fatal("operator channel did not drain")
	}
	assert.Equal(t, 1, status.len())
	assert.Equal(t, dispatch.StateClosed, d.State(op.ID()))
}

func TestNewOperatorTwiceFails(t *testing.T) {
	_, d := newOperator(t)
	_, err := NewOperator("DE*ABC", d)
	assert.ErrorIs(t, err, utility.ErrAlreadyOpen)
}

func TestDecodeProperty(t *testing.T) {
	value, err := DecodeProperty(PropertyDescription, []byte(`[{"language":"en","text":"Highway chargers"}]`))
	require.NoError(t, err)
	assert.Equal(t, []common.DisplayText{{Language: "en", Text: "Highway chargers"}}, value)

	value, err = DecodeProperty(PropertyEnergyMix, []byte(`{"is_green_energy":true}`))
	require.NoError(t, err)
	assert.Equal(t, &common.EnergyMix{IsGreenEnergy: true}, value)

	value, err = DecodeProperty("parking_fee", []byte(`2.5`))
	require.NoError(t, err)
	assert.Equal(t, 2.5, value)

	_, err = DecodeProperty(PropertyName, []byte(`42`))
	assert.Error(t, err)
}

func TestPropertyNamesAreValidated(t *testing.T) {
	op, _ := newOperator(t, WithClock(&fixedClock{now: t0}))

	for _, name := range []string{"", "a.b", "$set", "energy_mix.is_green_energy", strings.Repeat("x", 65)} {
		ev, err := op.UpdateProperty(name, "x")
		assert.ErrorIs(t, err, utility.ErrInvalidProperty, name)
		assert.Nil(t, ev)
		_, err = op.ClearProperty(name)
		assert.ErrorIs(t, err, utility.ErrInvalidProperty, name)
	}
	assert.Empty(t, op.Properties())

	ev, err := op.UpdateProperty("operator_id", "NL*XYZ")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, event.Ref("DE*ABC"), op.ID())
	assert.Equal(t, map[string]any{"operator_id": "NL*XYZ"}, op.Snapshot().Properties)
	assert.Equal(t, Attributes{}, op.Attributes())
}
