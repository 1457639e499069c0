// Package entity holds the charging station operator as seen by the roaming
// network: its attributes, its admin and operational status, and the
// subscriptions of consumers interested in their changes.
package entity

import (
	"evroam/dispatch"
	"evroam/entity/common"
	"evroam/event"
	"evroam/metrics/counters"
	"evroam/register"
	"evroam/types"
	"fmt"
	"time"
)

// Dispatcher is the part of dispatch.Dispatcher an operator relies on.
type Dispatcher interface {
	Open(ref event.Ref) error
	Subscribe(ref event.Ref, variant event.Variant, handler dispatch.Handler) (*dispatch.Subscription, error)
	Publish(ev event.Event) error
	UnsubscribeAll(ref event.Ref)
}

type Option func(*options)

type options struct {
	clock      Clock
	admin      types.Timestamped[types.AdminStatus]
	status     types.Timestamped[types.OperationalStatus]
	attributes Attributes
	properties map[string]any
}

func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithAdminStatus sets the initial admin status. It defaults to Unknown as of
// the creation time.
func WithAdminStatus(status types.AdminStatus, asOf time.Time) Option {
	return func(o *options) { o.admin = types.NewTimestamped(status, asOf) }
}

func WithStatus(status types.OperationalStatus, asOf time.Time) Option {
	return func(o *options) { o.status = types.NewTimestamped(status, asOf) }
}

func WithAttributes(attributes Attributes) Option {
	return func(o *options) { o.attributes = attributes }
}

// WithProperties sets initial generic properties. Static attributes given by
// WithAttributes take precedence over entries of the same name.
func WithProperties(values map[string]any) Option {
	return func(o *options) { o.properties = values }
}

// Operator is a charging station operator. It owns its status register and
// refers to its channel on the shared dispatcher.
type Operator struct {
	ref        event.Ref
	clock      Clock
	register   *register.Register
	dispatcher Dispatcher
}

func NewOperator(ref event.Ref, dispatcher Dispatcher, opts ...Option) (*Operator, error) {
	if ref == "" {
		return nil, fmt.Errorf("operator id is required")
	}
	o := options{clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	created := o.clock.Now()
	if o.admin.AsOf().IsZero() {
		o.admin = types.NewTimestamped(types.AdminStatusUnknown, created)
	}
	if o.status.AsOf().IsZero() {
		o.status = types.NewTimestamped(types.OperationalStatusUnknown, created)
	}

	values := make(map[string]any, len(o.properties))
	for name, value := range o.properties {
		if ValidatePropertyName(name) != nil || IsAttribute(name) {
			continue
		}
		values[name] = value
	}
	for name, value := range o.attributes.values() {
		values[name] = value
	}

	if err := dispatcher.Open(ref); err != nil {
		return nil, err
	}
	return &Operator{
		ref:        ref,
		clock:      o.clock,
		dispatcher: dispatcher,
		register: register.New(ref, o.admin, o.status,
			register.WithPublisher(dispatcher),
			register.WithObserver(metricsObserver{}),
			register.WithProperties(values, created),
		),
	}, nil
}

func (op *Operator) ID() event.Ref {
	return op.ref
}

func (op *Operator) AdminStatus() types.Timestamped[types.AdminStatus] {
	return op.register.AdminStatus()
}

func (op *Operator) Status() types.Timestamped[types.OperationalStatus] {
	return op.register.Status()
}

// UpdateAdminStatus stamps the change with the operator clock. A nil event
// means the status was already set.
func (op *Operator) UpdateAdminStatus(status types.AdminStatus) (event.Event, error) {
	return op.UpdateAdminStatusAt(status, op.clock.Now())
}

func (op *Operator) UpdateAdminStatusAt(status types.AdminStatus, ts time.Time) (event.Event, error) {
	if !status.IsValid() {
		_, err := types.ParseAdminStatus(string(status))
		return nil, err
	}
	return op.register.SetAdminStatus(status, ts)
}

func (op *Operator) UpdateStatus(status types.OperationalStatus) (event.Event, error) {
	return op.UpdateStatusAt(status, op.clock.Now())
}

func (op *Operator) UpdateStatusAt(status types.OperationalStatus, ts time.Time) (event.Event, error) {
	if !status.IsValid() {
		_, err := types.ParseOperationalStatus(string(status))
		return nil, err
	}
	return op.register.SetStatus(status, ts)
}

// UpdateProperty sets a named attribute. A nil value is stored as a present nil.
func (op *Operator) UpdateProperty(name string, value any) (event.Event, error) {
	return op.UpdatePropertyAt(name, value, op.clock.Now())
}

func (op *Operator) UpdatePropertyAt(name string, value any, ts time.Time) (event.Event, error) {
	if err := ValidatePropertyName(name); err != nil {
		return nil, err
	}
	return op.register.SwapProperty(name, types.Some(value), ts)
}

// ClearProperty removes a named attribute.
func (op *Operator) ClearProperty(name string) (event.Event, error) {
	if err := ValidatePropertyName(name); err != nil {
		return nil, err
	}
	return op.register.SwapProperty(name, types.None[any](), op.clock.Now())
}

// Properties returns the generic properties, those that are not static
// attributes.
func (op *Operator) Properties() map[string]any {
	values := op.register.Properties()
	for name := range values {
		if IsAttribute(name) {
			delete(values, name)
		}
	}
	return values
}

func (op *Operator) Property(name string) (any, bool) {
	value, _ := op.register.Property(name)
	return value.Get()
}

func (op *Operator) Attributes() Attributes {
	return attributesFrom(op.register.Properties())
}

func (op *Operator) Name() string {
	return op.Attributes().Name
}

func (op *Operator) SetName(name string) (event.Event, error) {
	return op.UpdateProperty(PropertyName, name)
}

func (op *Operator) Description() []common.DisplayText {
	return op.Attributes().Description
}

func (op *Operator) SetDescription(description []common.DisplayText) (event.Event, error) {
	return op.UpdateProperty(PropertyDescription, description)
}

func (op *Operator) SetHomepage(url string) (event.Event, error) {
	return op.UpdateProperty(PropertyHomepage, url)
}

func (op *Operator) SetHotline(phone string) (event.Event, error) {
	return op.UpdateProperty(PropertyHotline, phone)
}

func (op *Operator) SetEmail(email string) (event.Event, error) {
	return op.UpdateProperty(PropertyEmail, email)
}

func (op *Operator) SetLogo(url string) (event.Event, error) {
	return op.UpdateProperty(PropertyLogo, url)
}

func (op *Operator) SetEnergyMix(mix *common.EnergyMix) (event.Event, error) {
	return op.UpdateProperty(PropertyEnergyMix, mix)
}

func (op *Operator) Subscribe(variant event.Variant, handler dispatch.Handler) (*dispatch.Subscription, error) {
	return op.dispatcher.Subscribe(op.ref, variant, handler)
}

func (op *Operator) SubscribeToDataChanges(handler dispatch.Handler) (*dispatch.Subscription, error) {
	return op.Subscribe(event.VariantDataChanged, handler)
}

func (op *Operator) SubscribeToAdminStatusChanges(handler dispatch.Handler) (*dispatch.Subscription, error) {
	return op.Subscribe(event.VariantAdminStatusChanged, handler)
}

func (op *Operator) SubscribeToStatusChanges(handler dispatch.Handler) (*dispatch.Subscription, error) {
	return op.Subscribe(event.VariantStatusChanged, handler)
}

// Retire stops accepting writes and tears down every subscription of the
// operator. Events already queued are still delivered.
func (op *Operator) Retire() {
	op.register.Retire()
	op.dispatcher.UnsubscribeAll(op.ref)
}

func (op *Operator) Retired() bool {
	return op.register.Retired()
}

// Snapshot is a point-in-time copy of an operator.
type Snapshot struct {
	ID          event.Ref                                  `json:"id"`
	AdminStatus types.Timestamped[types.AdminStatus]       `json:"admin_status"`
	Status      types.Timestamped[types.OperationalStatus] `json:"status"`
	Attributes  Attributes                                 `json:"attributes"`
	Properties  map[string]any                             `json:"properties,omitempty"`
	Versions    register.Versions                          `json:"versions"`
	Retired     bool                                       `json:"retired,omitempty"`
}

func (op *Operator) Snapshot() Snapshot {
	return Snapshot{
		ID:          op.ref,
		AdminStatus: op.register.AdminStatus(),
		Status:      op.register.Status(),
		Attributes:  op.Attributes(),
		Properties:  op.Properties(),
		Versions:    op.register.Versions(),
		Retired:     op.register.Retired(),
	}
}

type metricsObserver struct{}

func (metricsObserver) OnNoOp(_ event.Ref, kind register.Kind) {
	counters.CountNoOp(string(kind))
}

func (metricsObserver) OnOutOfOrder(_ event.Ref, kind register.Kind) {
	counters.CountRejected(string(kind))
}
