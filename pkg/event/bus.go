// Package event carries strongly typed domain events from the protocol
// engine to subscribers.
package event

import (
	"log"
	"sync"

	"github.com/ZentaChain/ntlink/pkg/metrics"
)

// Event is anything posted on the bus. Name identifies the concrete type.
type Event interface {
	Name() string
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Bus fans events out to subscribers. Subscribers run on the posting
// goroutine, in subscription order; a panicking subscriber is logged and
// the rest still run.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	byName map[string][]subscriber
	all    []subscriber

	metrics *metrics.Metrics
}

func NewBus(m *metrics.Metrics) *Bus {
	return &Bus{byName: make(map[string][]subscriber), metrics: m}
}

// Subscribe registers fn for events of type T and returns a function that
// removes it
func Subscribe[T Event](b *Bus, fn func(T)) (unsubscribe func()) {
	var zero T
	name := zero.Name()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.byName[name] = append(b.byName[name], subscriber{id: id, fn: func(e Event) {
		if typed, ok := e.(T); ok {
			fn(typed)
		}
	}})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byName[name] = without(b.byName[name], id)
	}
}

// SubscribeAll registers fn for every event
func (b *Bus) SubscribeAll(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscriber{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = without(b.all, id)
	}
}

// Post delivers e to its subscribers
func (b *Bus) Post(e Event) {
	b.mu.RLock()
	subs := make([]subscriber, 0, len(b.byName[e.Name()])+len(b.all))
	subs = append(subs, b.byName[e.Name()]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()

	b.metrics.EventPosted(e.Name())
	for _, s := range subs {
		deliver(s, e)
	}
}

func deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [event] subscriber panicked on %s: %v", e.Name(), r)
		}
	}()
	s.fn(e)
}

func without(subs []subscriber, id uint64) []subscriber {
	out := make([]subscriber, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
