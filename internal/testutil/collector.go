package testutil

import (
	"sync"
	"time"

	"github.com/hedworth/mcpline/internal/events"
)

// EventCollector is a thread-safe event collector for test assertions.
// Subscribe its Handler to an event bus and then query collected events.
type EventCollector struct {
	mu     sync.Mutex
	events []events.Event
	states map[string][]string
	cond   *sync.Cond
}

// NewEventCollector creates a new EventCollector.
func NewEventCollector() *EventCollector {
	ec := &EventCollector{
		states: make(map[string][]string),
	}
	ec.cond = sync.NewCond(&ec.mu)
	return ec
}

// Handler returns a function suitable for bus.Subscribe.
func (c *EventCollector) Handler(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, e)
	if e.Type == events.EventStateChanged {
		c.states[e.Server] = append(c.states[e.Server], e.NewState)
	}
	c.cond.Broadcast()
}

// Events returns a snapshot of every collected event.
func (c *EventCollector) Events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Event, len(c.events))
	copy(out, c.events)
	return out
}

// States returns the state transitions seen for a server, in order.
func (c *EventCollector) States(server string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.states[server]))
	copy(out, c.states[server])
	return out
}

// WaitForState blocks until the server has reached the given state or the
// timeout expires. Returns whether the state was seen.
func (c *EventCollector) WaitForState(server, state string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	// Wake the cond periodically so the deadline is honored even with no
	// new events arriving.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.cond.Broadcast()
			}
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		for _, s := range c.states[server] {
			if s == state {
				return true
			}
		}
		if time.Now().After(deadline) {
			return false
		}
		c.cond.Wait()
	}
}
