// Package dispatch fans change events out to subscribed handlers.
//
// Every entity has its own channel with a subscription table per event
// variant. Every subscription owns a FIFO mailbox served by one goroutine, so
// a publisher never waits for handlers, a slow handler only delays itself, and
// each handler sees the events of an entity in the order they were published.
package dispatch

import (
	"context"
	"evroam/event"
	"evroam/metrics/counters"
	"evroam/utility"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Option func(*Dispatcher)

func WithReporter(r Reporter) Option {
	return func(d *Dispatcher) { d.reporter = r }
}

// WithHandlerTimeout bounds the context passed to every handler call.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.handlerTimeout = timeout }
}

// WithReleaseTimeout bounds how long Release waits for a running handler to
// return after its context was cancelled.
func WithReleaseTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.releaseTimeout = timeout }
}

func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

type Dispatcher struct {
	mu       sync.RWMutex
	channels map[event.Ref]*channel

	reporter       Reporter
	handlerTimeout time.Duration
	releaseTimeout time.Duration
	log            zerolog.Logger

	// dequeued is called by a delivery goroutine between taking an event
	// from its mailbox and calling the handler. Tests only.
	dequeued func(*Subscription)
}

const defaultReleaseTimeout = 5 * time.Second

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channels:       make(map[event.Ref]*channel),
		releaseTimeout: defaultReleaseTimeout,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open creates the channel of an entity. A retired channel of the same ref is
// replaced; its draining subscriptions finish independently.
func (d *Dispatcher) Open(ref event.Ref) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.channels[ref]; ok && c.getState() == StateActive {
		return fmt.Errorf("open %s: %w", ref, utility.ErrAlreadyOpen)
	}
	d.channels[ref] = newChannel(ref)
	return nil
}

func (d *Dispatcher) lookup(ref event.Ref) (*channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.channels[ref]
	return c, ok
}

// Subscribe registers handler for events of variant on ref.
func (d *Dispatcher) Subscribe(ref event.Ref, variant event.Variant, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("subscribe %s: nil handler", ref)
	}
	if !variant.IsValid() {
		return nil, fmt.Errorf("subscribe %s: invalid variant %d", ref, variant)
	}
	c, ok := d.lookup(ref)
	if !ok {
		return nil, fmt.Errorf("subscribe %s: %w", ref, utility.ErrUnknownEntity)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		id:      utility.NewUUID(),
		ref:     ref,
		variant: variant,
		handler: handler,
		name:    handlerName(handler),
		owner:   c,
		d:       d,
		ctx:     ctx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if !c.add(s) {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", ref, utility.ErrEntityRetired)
	}
	counters.ObserveSubscription(variant.String(), 1)
	go s.run()

	d.log.Debug().
		Str("operator_id", string(ref)).
		Str("variant", variant.String()).
		Str("subscription", s.id).
		Str("handler", s.name).
		Msg("subscribed")
	return s, nil
}

// Publish hands ev to every subscriber of its entity and variant and returns
// without waiting for any handler.
func (d *Dispatcher) Publish(ev event.Event) error {
	if ev == nil {
		return nil
	}
	c, ok := d.lookup(ev.EntityRef())
	if !ok {
		return fmt.Errorf("publish %s: %w", ev.EntityRef(), utility.ErrUnknownEntity)
	}
	if _, ok := c.publish(ev); !ok {
		return fmt.Errorf("publish %s: %w", ev.EntityRef(), utility.ErrEntityRetired)
	}
	counters.CountPublished(ev.Variant().String())
	return nil
}

// UnsubscribeAll retires the channel of ref. Events already queued are still
// delivered; once every mailbox is empty the channel is closed. Calling it
// again, or for an unknown ref, does nothing.
func (d *Dispatcher) UnsubscribeAll(ref event.Ref) {
	c, ok := d.lookup(ref)
	if !ok {
		return
	}
	subs, ok := c.retire()
	if !ok {
		return
	}
	for _, s := range subs {
		s.drain()
	}
	d.log.Debug().Str("operator_id", string(ref)).Int("subscriptions", len(subs)).Msg("draining")

	go func() {
		for _, s := range subs {
			<-s.done
		}
		c.close()
		d.log.Debug().Str("operator_id", string(ref)).Msg("closed")
	}()
}

// State reports the lifecycle state of the channel of ref.
func (d *Dispatcher) State(ref event.Ref) State {
	c, ok := d.lookup(ref)
	if !ok {
		return StateUnknown
	}
	return c.getState()
}

// Drained returns a channel closed when ref reaches StateClosed, or nil for
// an unknown ref.
func (d *Dispatcher) Drained(ref event.Ref) <-chan struct{} {
	c, ok := d.lookup(ref)
	if !ok {
		return nil
	}
	return c.drained
}

func (d *Dispatcher) SubscriberCount(ref event.Ref, variant event.Variant) int {
	c, ok := d.lookup(ref)
	if !ok {
		return 0
	}
	return c.count(variant)
}

// Close retires every channel and waits for them to drain. When ctx ends
// first, the remaining subscriptions are released, which cancels the context
// of running handlers, and ctx.Err is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.RLock()
	channels := make([]*channel, 0, len(d.channels))
	for _, c := range d.channels {
		channels = append(channels, c)
	}
	d.mu.RUnlock()

	var pending []*Subscription
	for _, c := range channels {
		subs, ok := c.retire()
		if !ok {
			continue
		}
		for _, s := range subs {
			s.drain()
		}
		pending = append(pending, subs...)
		go func() {
			for _, s := range subs {
				<-s.done
			}
			c.close()
		}()
	}

	for i, s := range pending {
		select {
		case <-s.done:
		case <-ctx.Done():
			for _, rest := range pending[i:] {
				rest.stop()
			}
			return ctx.Err()
		}
	}
	for _, c := range channels {
		select {
		case <-c.drained:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (d *Dispatcher) handlerFailed(failure *HandlerFailure) {
	d.log.Warn().
		Err(failure.Err).
		Str("operator_id", string(failure.Ref)).
		Str("variant", failure.Variant.String()).
		Str("subscription", failure.SubscriptionID).
		Str("handler", failure.Handler).
		Uint64("sequence", failure.Sequence).
		Msg("handler failed")
	if d.reporter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Msg("failure reporter panicked")
		}
	}()
	d.reporter.HandlerFailed(failure)
}
