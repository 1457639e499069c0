package dispatch

import (
	"context"
	"evroam/event"
	"evroam/metrics/counters"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// Subscription is a handle on one registered handler. Events for it are kept
// in a FIFO mailbox and delivered one at a time by a dedicated goroutine.
type Subscription struct {
	id      string
	ref     event.Ref
	variant event.Variant
	handler Handler
	name    string
	owner   *channel
	d       *Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	queue    []event.Event
	released bool
	draining bool
	inflight chan struct{} // non-nil while a dequeued event is being delivered
	wake     chan struct{}
	done     chan struct{}
}

type deliveryKey struct{}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) EntityRef() event.Ref {
	return s.ref
}

func (s *Subscription) Variant() event.Variant {
	return s.variant
}

// Done is closed when the delivery goroutine has exited, including any
// handler call that was running when Release was invoked.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Release deregisters the handler. Queued events are dropped and the handler
// context is cancelled. A delivery already taken from the mailbox is either
// skipped or allowed to return before Release does, so no handler call runs
// after Release returns. The wait is bounded by the release timeout.
// A handler releasing its own subscription must use ReleaseFrom. Release is
// idempotent.
func (s *Subscription) Release() {
	s.ReleaseFrom(context.Background())
}

// ReleaseFrom is Release for callers holding a context. Given the context a
// handler was called with, it does not wait for that same call.
func (s *Subscription) ReleaseFrom(ctx context.Context) {
	s.owner.remove(s)
	inflight := s.stop()
	if inflight == nil || ctx.Value(deliveryKey{}) == s {
		return
	}
	timeout := s.d.releaseTimeout
	if timeout <= 0 {
		timeout = defaultReleaseTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-inflight:
	case <-timer.C:
		s.d.log.Warn().
			Str("operator_id", string(s.ref)).
			Str("subscription", s.id).
			Str("handler", s.name).
			Msg("release gave up waiting for handler")
	}
}

// stop marks the subscription released and returns the channel closed when
// the delivery in progress, if any, has finished.
func (s *Subscription) stop() <-chan struct{} {
	s.mu.Lock()
	inflight := s.inflight
	if s.released {
		s.mu.Unlock()
		return inflight
	}
	s.released = true
	dropped := len(s.queue)
	s.queue = nil
	s.mu.Unlock()

	counters.ObserveQueued(-dropped)
	s.cancel()
	s.signal()
	return inflight
}

// drain lets the mailbox empty and then ends the goroutine.
func (s *Subscription) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) enqueue(ev event.Event) bool {
	s.mu.Lock()
	if s.released || s.draining {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	counters.ObserveQueued(1)
	s.signal()
	return true
}

func (s *Subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next blocks until an event is available. It returns false when the
// subscription was released, or when it is draining and the mailbox is empty.
func (s *Subscription) next() (event.Event, bool) {
	for {
		s.mu.Lock()
		if s.released {
			s.mu.Unlock()
			return nil, false
		}
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.inflight = make(chan struct{})
			s.mu.Unlock()
			counters.ObserveQueued(-1)
			return ev, true
		}
		if s.draining {
			s.mu.Unlock()
			return nil, false
		}
		s.mu.Unlock()
		<-s.wake
	}
}

func (s *Subscription) run() {
	defer close(s.done)
	defer counters.ObserveSubscription(s.variant.String(), -1)
	defer s.cancel()

	for {
		ev, ok := s.next()
		if !ok {
			return
		}
		s.deliver(ev)

		s.mu.Lock()
		close(s.inflight)
		s.inflight = nil
		s.mu.Unlock()
	}
}

func (s *Subscription) deliver(ev event.Event) {
	if s.d.dequeued != nil {
		s.d.dequeued(s)
	}
	if s.ctx.Err() != nil {
		// released after the event was taken
		return
	}
	ctx := context.WithValue(s.ctx, deliveryKey{}, s)
	if s.d.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.d.handlerTimeout)
		defer cancel()
	}

	started := time.Now()
	err := s.invoke(ctx, ev)
	elapsed := time.Since(started).Seconds()
	if err == nil {
		counters.CountDelivered(s.variant.String(), elapsed)
		return
	}
	counters.CountFailure(s.variant.String(), s.name, elapsed)
	s.d.handlerFailed(&HandlerFailure{
		Ref:            s.ref,
		Variant:        s.variant,
		SubscriptionID: s.id,
		Handler:        s.name,
		Sequence:       ev.Sequence(),
		Err:            err,
	})
}

func (s *Subscription) invoke(ctx context.Context, ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return s.handler.Handle(ctx, ev)
}
