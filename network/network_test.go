package network

import (
	"context"
	"evroam/dispatch"
	"evroam/entity"
	"evroam/event"
	"evroam/models"
	"evroam/types"
	"evroam/utility"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type nopLog struct{}

func (nopLog) FeatureEvent(string, string, string) {}
func (nopLog) Debug(string)                        {}
func (nopLog) Warn(string)                         {}
func (nopLog) Error(string, error)                 {}

type memoryStore struct {
	mu        sync.Mutex
	operators map[string]*models.Operator
	statuses  []*models.OperatorStatus
}

func newMemoryStore() *memoryStore {
	return &memoryStore{operators: make(map[string]*models.Operator)}
}

func (m *memoryStore) GetOperators() ([]*models.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*models.Operator
	for _, op := range m.operators {
		list = append(list, op)
	}
	return list, nil
}

func (m *memoryStore) GetOperatorStatuses() ([]*models.OperatorStatus, error) {
	return m.statuses, nil
}

func (m *memoryStore) SaveOperator(operator *models.Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operators[operator.OperatorId] = operator
	return nil
}

func (m *memoryStore) DeleteOperator(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operators, id)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Handle(_ context.Context, ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) refs() []event.Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []event.Ref
	for _, ev := range r.events {
		refs = append(refs, ev.EntityRef())
	}
	return refs
}

func newNetwork(t *testing.T) *Network {
	t.Helper()
	t.Cleanup(func() { goleak.VerifyNone(t) })
	n := New(dispatch.New(), nopLog{})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, n.Close(ctx))
	})
	return n
}

func TestRegisterAndLookup(t *testing.T) {
	n := newNetwork(t)

	op, err := n.Register(Info{Id: "DE*ABC", Attributes: entity.Attributes{Name: "Fast Charge"}})
	require.NoError(t, err)
	assert.Equal(t, "Fast Charge", op.Name())

	_, err = n.Register(Info{Id: "DE*ABC"})
	assert.ErrorIs(t, err, utility.ErrAlreadyRegistered)

	found, err := n.Lookup("DE*ABC")
	require.NoError(t, err)
	assert.Same(t, op, found)

	_, err = n.Lookup("NL*XYZ")
	assert.ErrorIs(t, err, utility.ErrUnknownEntity)

	_, err = n.Register(Info{Id: "AT*VBD"})
	require.NoError(t, err)
	ops := n.Operators()
	require.Len(t, ops, 2)
	assert.Equal(t, event.Ref("AT*VBD"), ops[0].ID())
	assert.Equal(t, 2, n.Len())
}

func TestListenerReachesCurrentAndFutureOperators(t *testing.T) {
	n := newNetwork(t)
	first, err := n.Register(Info{Id: "AT*VBD"})
	require.NoError(t, err)

	status := &recorder{}
	n.AddListener("status", status, event.VariantStatusChanged)

	second, err := n.Register(Info{Id: "DE*ABC"})
	require.NoError(t, err)

	_, err = first.UpdateStatus(types.OperationalStatusAvailable)
	require.NoError(t, err)
	_, err = second.UpdateStatus(types.OperationalStatusOffline)
	require.NoError(t, err)
	_, err = second.SetName("ignored by the listener")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(status.refs()) == 2 }, time.Second, time.Millisecond)
	assert.ElementsMatch(t, []event.Ref{"AT*VBD", "DE*ABC"}, status.refs())
}

func TestDeregister(t *testing.T) {
	n := newNetwork(t)
	store := newMemoryStore()
	n.SetStore(store)

	op, err := n.Register(Info{Id: "DE*ABC"})
	require.NoError(t, err)
	require.Contains(t, store.operators, "DE*ABC")

	require.NoError(t, n.Deregister("DE*ABC"))
	assert.True(t, op.Retired())
	assert.NotContains(t, store.operators, "DE*ABC")
	assert.ErrorIs(t, n.Deregister("DE*ABC"), utility.ErrUnknownEntity)

	_, err = n.Register(Info{Id: "DE*ABC"})
	assert.NoError(t, err, "a retired id can be registered again")
}

func TestLoadRestoresLastKnownStatus(t *testing.T) {
	n := newNetwork(t)
	store := newMemoryStore()
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.operators["DE*ABC"] = &models.Operator{
		OperatorId: "DE*ABC",
		Attributes: entity.Attributes{Name: "Fast Charge"},
		Properties: map[string]any{"tariff_zone": "north", "bad.name": 1},
	}
	store.statuses = []*models.OperatorStatus{{
		OperatorId:      "DE*ABC",
		AdminStatus:     string(types.AdminStatusOutOfService),
		AdminStatusAsOf: asOf,
	}}
	n.SetStore(store)

	require.NoError(t, n.Load(context.Background(),
		Info{Id: "DE*ABC", Attributes: entity.Attributes{Name: "seed is ignored"}},
		Info{Id: "NL*XYZ"},
	))
	require.Equal(t, 2, n.Len())

	op, err := n.Lookup("DE*ABC")
	require.NoError(t, err)
	assert.Equal(t, "Fast Charge", op.Name())
	assert.Equal(t, types.NewTimestamped(types.AdminStatusOutOfService, asOf), op.AdminStatus())
	assert.Equal(t, map[string]any{"tariff_zone": "north"}, op.Properties())

	_, err = op.UpdateAdminStatusAt(types.AdminStatusOperational, asOf.Add(-time.Minute))
	assert.ErrorIs(t, err, utility.ErrOutOfOrderUpdate)
	assert.Contains(t, store.operators, "NL*XYZ")
}

func TestLoadHonoursContext(t *testing.T) {
	n := newNetwork(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Load(ctx, Info{Id: "DE*ABC"}), context.Canceled)
	assert.Equal(t, 0, n.Len())
}

func TestCloseRetiresOperators(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := New(dispatch.New(), nopLog{})
	op, err := n.Register(Info{Id: "DE*ABC"})
	require.NoError(t, err)
	n.AddListener("all", &recorder{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, n.Close(ctx))
	assert.True(t, op.Retired())
	assert.Equal(t, 0, n.Len())
}
