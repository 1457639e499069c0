package dispatch

import (
	"evroam/event"
	"sync"
)

// State of one entity's dispatch channel.
type State int32

const (
	// StateUnknown is reported for entities that were never opened.
	StateUnknown State = iota
	StateActive
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateDraining:
		return "Draining"
	case StateClosed:
		return "Closed"
	}
	return "Unknown"
}

// channel is the per-entity subscription table.
type channel struct {
	ref     event.Ref
	mu      sync.Mutex
	state   State
	subs    map[event.Variant][]*Subscription
	drained chan struct{}
}

func newChannel(ref event.Ref) *channel {
	return &channel{
		ref:     ref,
		state:   StateActive,
		subs:    make(map[event.Variant][]*Subscription),
		drained: make(chan struct{}),
	}
}

func (c *channel) getState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *channel) add(s *Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return false
	}
	c.subs[s.variant] = append(c.subs[s.variant], s)
	return true
}

func (c *channel) remove(s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.subs[s.variant]
	for i, sub := range list {
		if sub == s {
			c.subs[s.variant] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(c.subs[s.variant]) == 0 {
		delete(c.subs, s.variant)
	}
}

// publish enqueues ev for every subscriber of its variant in subscription
// order and reports how many mailboxes accepted it.
func (c *channel) publish(ev event.Event) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return 0, false
	}
	accepted := 0
	for _, s := range c.subs[ev.Variant()] {
		if s.enqueue(ev) {
			accepted++
		}
	}
	return accepted, true
}

func (c *channel) count(variant event.Variant) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs[variant])
}

// retire moves the channel to Draining and returns the subscriptions it held.
// It returns false if the channel was already retired.
func (c *channel) retire() ([]*Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return nil, false
	}
	c.state = StateDraining
	var all []*Subscription
	for _, variant := range event.AllVariants() {
		all = append(all, c.subs[variant]...)
	}
	c.subs = make(map[event.Variant][]*Subscription)
	return all, true
}

func (c *channel) close() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	close(c.drained)
}
