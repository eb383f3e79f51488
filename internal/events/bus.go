package events

import "sync"

// Handler receives published events.
type Handler func(Event)

// Bus fans published events out to subscribers. Delivery happens on a single
// dispatch goroutine, so handlers never run concurrently with each other.
// Publish never blocks; events beyond the queue buffer are dropped.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription

	queue chan Event
	done  chan struct{}
}

// subscription pairs a handler with its type filter. A nil filter matches
// every event.
type subscription struct {
	types   map[EventType]bool
	handler Handler
}

// NewBus creates a bus and starts its dispatch goroutine.
func NewBus() *Bus {
	b := &Bus{
		subs:  make(map[int]subscription),
		queue: make(chan Event, 100),
		done:  make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Bus) loop() {
	for {
		select {
		case e := <-b.queue:
			b.fanOut(e)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) fanOut(e Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.types == nil || sub.types[e.Type] {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}

// Subscribe registers a handler for every event and returns a function that
// removes it.
func (b *Bus) Subscribe(h Handler) func() {
	return b.add(nil, h)
}

// SubscribeType registers a handler for the named event types only.
func (b *Bus) SubscribeType(h Handler, types ...EventType) func() {
	filter := make(map[EventType]bool, len(types))
	for _, t := range types {
		filter[t] = true
	}
	return b.add(filter, h)
}

func (b *Bus) add(types map[EventType]bool, h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{types: types, handler: h}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish queues an event for delivery. When the queue is full the event is
// dropped rather than blocking the publisher.
func (b *Bus) Publish(e Event) {
	select {
	case b.queue <- e:
	default:
	}
}

// Close stops the dispatch goroutine. Publishing after Close stays safe but
// delivers nothing.
func (b *Bus) Close() {
	close(b.done)
}
