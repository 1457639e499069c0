// Package register holds the current admin status, operational status and
// properties of one entity and turns accepted writes into change events.
package register

import (
	"evroam/event"
	"evroam/types"
	"evroam/utility"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/go-cmp/cmp"
)

// Publisher receives every event produced by a register. It is called while
// the register still holds the lock of the changed kind and must not block.
type Publisher interface {
	Publish(ev event.Event) error
}

// Observer is notified of writes that did not produce an event.
type Observer interface {
	OnNoOp(ref event.Ref, kind Kind)
	OnOutOfOrder(ref event.Ref, kind Kind)
}

type Option func(*Register)

func WithPublisher(p Publisher) Option {
	return func(r *Register) { r.publisher = p }
}

func WithObserver(o Observer) Option {
	return func(r *Register) { r.observer = o }
}

// WithProperties seeds property values without producing events.
func WithProperties(values map[string]any, asOf time.Time) Option {
	return func(r *Register) {
		for name, value := range values {
			r.properties[name] = propertyState{value: types.Some(value), asOf: asOf}
		}
	}
}

type propertyState struct {
	value types.Optional[any]
	asOf  time.Time
}

// Versions are the independent per-kind write counters.
type Versions struct {
	AdminStatus uint64 `json:"admin_status"`
	Status      uint64 `json:"status"`
	Data        uint64 `json:"data"`
}

// Register is safe for concurrent use. Every kind has its own lock, so admin,
// operational and property writers never contend with each other.
type Register struct {
	ref       event.Ref
	publisher Publisher
	observer  Observer
	retired   atomic.Bool

	adminMu      sync.Mutex
	admin        atomic.Pointer[types.Timestamped[types.AdminStatus]]
	adminVersion atomic.Uint64

	statusMu      sync.Mutex
	status        atomic.Pointer[types.Timestamped[types.OperationalStatus]]
	statusVersion atomic.Uint64

	propsMu     sync.RWMutex
	properties  map[string]propertyState
	dataVersion atomic.Uint64
}

func New(ref event.Ref, admin types.Timestamped[types.AdminStatus], status types.Timestamped[types.OperationalStatus], opts ...Option) *Register {
	r := &Register{
		ref:        ref,
		properties: make(map[string]propertyState),
	}
	r.admin.Store(&admin)
	r.status.Store(&status)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Register) Ref() event.Ref {
	return r.ref
}

func (r *Register) AdminStatus() types.Timestamped[types.AdminStatus] {
	return *r.admin.Load()
}

func (r *Register) Status() types.Timestamped[types.OperationalStatus] {
	return *r.status.Load()
}

func (r *Register) Versions() Versions {
	return Versions{
		AdminStatus: r.adminVersion.Load(),
		Status:      r.statusVersion.Load(),
		Data:        r.dataVersion.Load(),
	}
}

// Retire makes every later write fail with utility.ErrEntityRetired.
func (r *Register) Retire() {
	r.retired.Store(true)
}

func (r *Register) Retired() bool {
	return r.retired.Load()
}

// SetAdminStatus stores value as of ts. It returns a nil event when value
// equals the stored one.
func (r *Register) SetAdminStatus(value types.AdminStatus, ts time.Time) (event.Event, error) {
	r.adminMu.Lock()
	defer r.adminMu.Unlock()

	if r.retired.Load() {
		return nil, utility.ErrEntityRetired
	}
	current := *r.admin.Load()
	if ts.Before(current.AsOf()) {
		r.outOfOrder(KindAdminStatus)
		return nil, &OutOfOrderError{Kind: KindAdminStatus, Stored: current.AsOf(), Given: ts}
	}
	if value == current.Value() {
		r.noOp(KindAdminStatus)
		return nil, nil
	}
	next := types.NewTimestamped(value, ts)
	r.admin.Store(&next)
	ev := event.AdminStatusChanged{
		Time:   ts,
		Entity: r.ref,
		Seq:    r.adminVersion.Add(1),
		Old:    current,
		New:    next,
	}
	return ev, r.publish(ev)
}

// SetStatus is the operational counterpart of SetAdminStatus.
func (r *Register) SetStatus(value types.OperationalStatus, ts time.Time) (event.Event, error) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()

	if r.retired.Load() {
		return nil, utility.ErrEntityRetired
	}
	current := *r.status.Load()
	if ts.Before(current.AsOf()) {
		r.outOfOrder(KindStatus)
		return nil, &OutOfOrderError{Kind: KindStatus, Stored: current.AsOf(), Given: ts}
	}
	if value == current.Value() {
		r.noOp(KindStatus)
		return nil, nil
	}
	next := types.NewTimestamped(value, ts)
	r.status.Store(&next)
	ev := event.StatusChanged{
		Time:   ts,
		Entity: r.ref,
		Seq:    r.statusVersion.Add(1),
		Old:    current,
		New:    next,
	}
	return ev, r.publish(ev)
}

// Property returns the stored value of name and the instant it was set.
func (r *Register) Property(name string) (types.Optional[any], time.Time) {
	r.propsMu.RLock()
	defer r.propsMu.RUnlock()
	state := r.properties[name]
	return state.value, state.asOf
}

// Properties returns the names and values of all set properties.
func (r *Register) Properties() map[string]any {
	r.propsMu.RLock()
	defer r.propsMu.RUnlock()
	values := make(map[string]any, len(r.properties))
	for name, state := range r.properties {
		if v, ok := state.value.Get(); ok {
			values[name] = v
		}
	}
	return values
}

// PropertyNames returns the set property names in sorted order.
func (r *Register) PropertyNames() []string {
	r.propsMu.RLock()
	defer r.propsMu.RUnlock()
	names := make([]string, 0, len(r.properties))
	for name := range r.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetProperty records a data change reported by the caller as old -> new.
// Nothing is emitted when old equals new or new equals the stored value.
func (r *Register) SetProperty(name string, oldValue, newValue types.Optional[any], ts time.Time) (event.Event, error) {
	r.propsMu.Lock()
	defer r.propsMu.Unlock()
	return r.setPropertyLocked(name, oldValue, newValue, ts)
}

// SwapProperty replaces the stored value of name, using it as the old value.
func (r *Register) SwapProperty(name string, newValue types.Optional[any], ts time.Time) (event.Event, error) {
	r.propsMu.Lock()
	defer r.propsMu.Unlock()
	return r.setPropertyLocked(name, r.properties[name].value, newValue, ts)
}

func (r *Register) setPropertyLocked(name string, oldValue, newValue types.Optional[any], ts time.Time) (event.Event, error) {
	if r.retired.Load() {
		return nil, utility.ErrEntityRetired
	}
	if name == "" {
		return nil, fmt.Errorf("property name is required")
	}
	current, known := r.properties[name]
	if known && ts.Before(current.asOf) {
		r.outOfOrder(KindProperty)
		return nil, &OutOfOrderError{Kind: KindProperty, Property: name, Stored: current.asOf, Given: ts}
	}
	if equalValues(oldValue, newValue) || (known && equalValues(current.value, newValue)) {
		r.noOp(KindProperty)
		return nil, nil
	}
	r.properties[name] = propertyState{value: newValue, asOf: ts}
	ev := event.DataChanged{
		Time:     ts,
		Entity:   r.ref,
		Seq:      r.dataVersion.Add(1),
		Property: name,
		OldValue: oldValue,
		NewValue: newValue,
	}
	return ev, r.publish(ev)
}

func (r *Register) publish(ev event.Event) error {
	if r.publisher == nil {
		return nil
	}
	if err := r.publisher.Publish(ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Variant(), err)
	}
	return nil
}

func (r *Register) noOp(kind Kind) {
	if r.observer != nil {
		r.observer.OnNoOp(r.ref, kind)
	}
}

func (r *Register) outOfOrder(kind Kind) {
	if r.observer != nil {
		r.observer.OnOutOfOrder(r.ref, kind)
	}
}

// exportAll lets cmp look into unexported fields of arbitrary property values.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

func equalValues(a, b types.Optional[any]) bool {
	av, aok := a.Get()
	bv, bok := b.Get()
	if aok != bok {
		return false
	}
	if !aok {
		return true
	}
	return cmp.Equal(av, bv, exportAll)
}
