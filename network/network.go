// Package network keeps the set of operators known to the roaming network and
// attaches service-wide listeners to each of them.
package network

import (
	"context"
	"evroam/dispatch"
	"evroam/entity"
	"evroam/event"
	"evroam/internal"
	"evroam/metrics/counters"
	"evroam/models"
	"evroam/types"
	"evroam/utility"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Store interface {
	GetOperators() ([]*models.Operator, error)
	GetOperatorStatuses() ([]*models.OperatorStatus, error)
	SaveOperator(operator *models.Operator) error
	DeleteOperator(id string) error
}

// Info describes an operator to register. Unset statuses start as Unknown.
type Info struct {
	Id          event.Ref
	Attributes  entity.Attributes
	Properties  map[string]any
	AdminStatus types.Optional[types.Timestamped[types.AdminStatus]]
	Status      types.Optional[types.Timestamped[types.OperationalStatus]]
}

type listener struct {
	name     string
	handler  dispatch.Handler
	variants []event.Variant
}

type Network struct {
	mu         sync.RWMutex
	operators  map[event.Ref]*entity.Operator
	listeners  []listener
	dispatcher *dispatch.Dispatcher
	store      Store
	clock      entity.Clock
	log        internal.LogHandler
}

func New(dispatcher *dispatch.Dispatcher, log internal.LogHandler) *Network {
	return &Network{
		operators:  make(map[event.Ref]*entity.Operator),
		dispatcher: dispatcher,
		clock:      entity.SystemClock,
		log:        log,
	}
}

func (n *Network) Dispatcher() *dispatch.Dispatcher {
	return n.dispatcher
}

func (n *Network) SetStore(store Store) {
	n.store = store
}

// SetClock replaces the time source handed to operators registered afterwards.
func (n *Network) SetClock(clock entity.Clock) {
	n.clock = clock
}

func (n *Network) Clock() entity.Clock {
	return n.clock
}

// Register adds an operator and subscribes every listener to it.
func (n *Network) Register(info Info) (*entity.Operator, error) {
	op, err := n.register(info)
	if err != nil {
		return nil, err
	}
	if n.store != nil {
		record := &models.Operator{
			OperatorId:   string(op.ID()),
			RegisteredAt: n.clock.Now(),
			Attributes:   op.Attributes(),
			Properties:   op.Properties(),
		}
		if err := n.store.SaveOperator(record); err != nil {
			n.log.Error(fmt.Sprintf("save operator %s", op.ID()), err)
		}
	}
	return op, nil
}

func (n *Network) register(info Info) (*entity.Operator, error) {
	if info.Id == "" {
		return nil, fmt.Errorf("register: empty operator id: %w", utility.ErrUnknownEntity)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.operators[info.Id]; ok {
		return nil, fmt.Errorf("register %s: %w", info.Id, utility.ErrAlreadyRegistered)
	}

	opts := []entity.Option{
		entity.WithClock(n.clock),
		entity.WithAttributes(info.Attributes),
		entity.WithProperties(info.Properties),
	}
	if admin, ok := info.AdminStatus.Get(); ok {
		opts = append(opts, entity.WithAdminStatus(admin.Value(), admin.AsOf()))
	}
	if status, ok := info.Status.Get(); ok {
		opts = append(opts, entity.WithStatus(status.Value(), status.AsOf()))
	}
	op, err := entity.NewOperator(info.Id, n.dispatcher, opts...)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", info.Id, err)
	}
	for _, l := range n.listeners {
		n.attach(op, l)
	}
	n.operators[info.Id] = op
	counters.ObserveOperators(len(n.operators))
	n.log.FeatureEvent("network", string(info.Id), "registered")
	return op, nil
}

func (n *Network) attach(op *entity.Operator, l listener) {
	for _, variant := range l.variants {
		if _, err := op.Subscribe(variant, l.handler); err != nil {
			n.log.Error(fmt.Sprintf("subscribe %s to %s of %s", l.name, variant, op.ID()), err)
		}
	}
}

// AddListener subscribes handler to the given variants of every current and
// future operator. No variants means all of them.
func (n *Network) AddListener(name string, handler dispatch.Handler, variants ...event.Variant) {
	if len(variants) == 0 {
		variants = event.AllVariants()
	}
	l := listener{name: name, handler: dispatch.WithName(name, handler), variants: variants}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
	for _, op := range n.operators {
		n.attach(op, l)
	}
	n.log.FeatureEvent("network", "", fmt.Sprintf("listener %s added", name))
}

func (n *Network) Lookup(ref event.Ref) (*entity.Operator, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	op, ok := n.operators[ref]
	if !ok {
		return nil, fmt.Errorf("lookup %s: %w", ref, utility.ErrUnknownEntity)
	}
	return op, nil
}

// Deregister retires the operator. Queued events still reach its listeners.
func (n *Network) Deregister(ref event.Ref) error {
	n.mu.Lock()
	op, ok := n.operators[ref]
	if ok {
		delete(n.operators, ref)
		counters.ObserveOperators(len(n.operators))
	}
	n.mu.Unlock()
	if !ok {
		return fmt.Errorf("deregister %s: %w", ref, utility.ErrUnknownEntity)
	}

	op.Retire()
	if n.store != nil {
		if err := n.store.DeleteOperator(string(ref)); err != nil {
			n.log.Error(fmt.Sprintf("delete operator %s", ref), err)
		}
	}
	n.log.FeatureEvent("network", string(ref), "deregistered")
	return nil
}

// Operators returns the registered operators sorted by id.
func (n *Network) Operators() []*entity.Operator {
	n.mu.RLock()
	list := make([]*entity.Operator, 0, len(n.operators))
	for _, op := range n.operators {
		list = append(list, op)
	}
	n.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID() < list[j].ID() })
	return list
}

func (n *Network) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.operators)
}

// Load registers the operators kept in the store with their last known status,
// then the seeds the store does not know about.
func (n *Network) Load(ctx context.Context, seeds ...Info) error {
	known := make(map[event.Ref]bool)
	if n.store != nil {
		records, err := n.store.GetOperators()
		if err != nil {
			return fmt.Errorf("load operators: %w", err)
		}
		statuses, err := n.store.GetOperatorStatuses()
		if err != nil {
			return fmt.Errorf("load operator status: %w", err)
		}
		byId := make(map[string]*models.OperatorStatus, len(statuses))
		for _, s := range statuses {
			byId[s.OperatorId] = s
		}
		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			info := infoFromRecord(record, byId[record.OperatorId])
			if _, err := n.register(info); err != nil {
				n.log.Error("restore operator", err)
				continue
			}
			known[info.Id] = true
		}
	}
	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if known[seed.Id] {
			continue
		}
		if _, err := n.Register(seed); err != nil {
			n.log.Error("seed operator", err)
		}
	}
	n.log.FeatureEvent("network", "", fmt.Sprintf("loaded %d operators", n.Len()))
	return nil
}

func infoFromRecord(record *models.Operator, status *models.OperatorStatus) Info {
	info := Info{
		Id:         event.Ref(record.OperatorId),
		Attributes: record.Attributes,
		Properties: record.Properties,
	}
	if status == nil {
		return info
	}
	if admin, err := types.ParseAdminStatus(status.AdminStatus); err == nil && !status.AdminStatusAsOf.IsZero() {
		info.AdminStatus = types.Some(types.NewTimestamped(admin, status.AdminStatusAsOf))
	}
	if operational, err := types.ParseOperationalStatus(status.Status); err == nil && !status.StatusAsOf.IsZero() {
		info.Status = types.Some(types.NewTimestamped(operational, status.StatusAsOf))
	}
	return info
}

// Close retires every operator and waits for queued events to be delivered.
func (n *Network) Close(ctx context.Context) error {
	n.mu.Lock()
	operators := n.operators
	n.operators = make(map[event.Ref]*entity.Operator)
	n.mu.Unlock()

	for _, op := range operators {
		op.Retire()
	}
	counters.ObserveOperators(0)
	start := time.Now()
	err := n.dispatcher.Close(ctx)
	n.log.FeatureEvent("network", "", fmt.Sprintf("closed %d operators in %s", len(operators), time.Since(start)))
	return err
}
