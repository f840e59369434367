package event

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// BusConfig configures bus behavior.
type BusConfig struct {
	// BufferSize is the channel buffer size per subscription.
	// Default: 64
	BufferSize int

	// OnDrop is called when a subscriber's buffer is full and an
	// event is dropped. Publish never blocks the executor.
	OnDrop func(evt Event, subscriberID string)
}

// DefaultBusConfig provides reasonable defaults.
var DefaultBusConfig = BusConfig{
	BufferSize: 64,
}

// Bus is an in-memory fan-out event bus. Publish is non-blocking:
// slow subscribers drop events rather than stalling the workflow.
type Bus struct {
	config BusConfig

	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	byType        map[string]map[string]*Subscription // event type -> subscription ID -> subscription
	wildcards     map[string]*Subscription            // subscriptions for all events

	nextID atomic.Int64
	closed atomic.Bool
}

// NewBus creates a new in-memory event bus.
func NewBus(config BusConfig) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBusConfig.BufferSize
	}
	return &Bus{
		config:        config,
		subscriptions: make(map[string]*Subscription),
		byType:        make(map[string]map[string]*Subscription),
		wildcards:     make(map[string]*Subscription),
	}
}

// Subscription is a registered event consumer. Events are delivered
// on the channel returned by Events.
type Subscription struct {
	id     string
	types  []string // empty = all types
	events chan Event
	bus    *Bus

	// mu orders sends against close: Publish may still hold a
	// reference to an unsubscribed subscription.
	mu     sync.Mutex
	closed bool
}

// Events returns the delivery channel. The channel is closed when
// the subscription is removed or the bus closes.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.bus.remove(s)
}

// remove unregisters the subscription. Caller holds bus.mu.
func (b *Bus) remove(s *Subscription) {
	delete(b.subscriptions, s.id)
	delete(b.wildcards, s.id)
	for _, t := range s.types {
		if typeSubs, ok := b.byType[t]; ok {
			delete(typeSubs, s.id)
		}
	}
	s.close()
}

// close shuts the delivery channel exactly once.
func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// send delivers the event without blocking. It reports false when the
// event was dropped because the buffer is full. Sends to a closed
// subscription are discarded, not counted as drops.
func (s *Subscription) send(evt Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.events <- evt:
		return true
	default:
		return false
	}
}

// Subscribe creates a subscription for specific event types.
// With no types, the subscription receives all events.
func (b *Bus) Subscribe(types ...string) *Subscription {
	if b.closed.Load() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id:     strconv.FormatInt(b.nextID.Add(1), 10),
		types:  types,
		events: make(chan Event, b.config.BufferSize),
		bus:    b,
	}

	b.subscriptions[sub.id] = sub

	if len(types) == 0 {
		b.wildcards[sub.id] = sub
	} else {
		for _, t := range types {
			if b.byType[t] == nil {
				b.byType[t] = make(map[string]*Subscription)
			}
			b.byType[t][sub.id] = sub
		}
	}

	return sub
}

// Publish delivers an event to all matching subscribers. A full
// subscriber buffer drops the event and invokes OnDrop.
func (b *Bus) Publish(evt Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	subs := b.matching(evt.Type)
	b.mu.RUnlock()

	for _, sub := range subs {
		if !sub.send(evt) && b.config.OnDrop != nil {
			b.config.OnDrop(evt, sub.id)
		}
	}
}

// matching returns all subscriptions for an event type. Caller holds
// bus.mu for reading.
func (b *Bus) matching(eventType string) []*Subscription {
	subs := make([]*Subscription, 0, len(b.wildcards))
	if typeSubs, ok := b.byType[eventType]; ok {
		for _, sub := range typeSubs {
			subs = append(subs, sub)
		}
	}
	for _, sub := range b.wildcards {
		subs = append(subs, sub)
	}
	return subs
}

// Close shuts down the bus and closes all subscription channels.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscriptions {
		b.remove(sub)
	}
	return nil
}
