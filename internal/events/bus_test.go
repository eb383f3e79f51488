package events

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func waitForEvents(t *testing.T, count func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %d", want, count())
}

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var got1, got2 []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		got1 = append(got1, e)
		mu.Unlock()
	})
	bus.Subscribe(func(e Event) {
		mu.Lock()
		got2 = append(got2, e)
		mu.Unlock()
	})

	bus.Publish(NewStateChangedEvent("srv", "disconnected", "connecting"))

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		if len(got1) < len(got2) {
			return len(got1)
		}
		return len(got2)
	}
	waitForEvents(t, count, 1)

	mu.Lock()
	defer mu.Unlock()
	if got1[0].NewState != "connecting" || got2[0].NewState != "connecting" {
		t.Errorf("event not fanned out to all handlers")
	}
	if got1[0].Type != EventStateChanged {
		t.Errorf("wrong event type: %s", got1[0].Type)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var kept, removed []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		kept = append(kept, e)
		mu.Unlock()
	})
	unsubscribe := bus.Subscribe(func(e Event) {
		mu.Lock()
		removed = append(removed, e)
		mu.Unlock()
	})

	unsubscribe()
	bus.Publish(NewDiagnosticEvent("srv", "a line"))

	waitForEvents(t, func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(kept)
	}, 1)

	mu.Lock()
	defer mu.Unlock()
	if len(removed) != 0 {
		t.Errorf("unsubscribed handler still received %d events", len(removed))
	}
	if kept[0].Line != "a line" {
		t.Errorf("unexpected event: %+v", kept[0])
	}
}

func TestBus_SubscribeType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var all, errsOnly []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		all = append(all, e)
		mu.Unlock()
	})
	bus.SubscribeType(func(e Event) {
		mu.Lock()
		errsOnly = append(errsOnly, e)
		mu.Unlock()
	}, EventConnectError)

	bus.Publish(NewDiagnosticEvent("srv", "noise"))
	bus.Publish(NewConnectErrorEvent("srv", errors.New("dial failed")))
	bus.Publish(NewStateChangedEvent("srv", "connecting", "errored"))

	waitForEvents(t, func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(all)
	}, 3)

	mu.Lock()
	defer mu.Unlock()
	if len(errsOnly) != 1 {
		t.Fatalf("typed handler received %d events, want 1", len(errsOnly))
	}
	if errsOnly[0].Type != EventConnectError {
		t.Errorf("typed handler received %s", errsOnly[0].Type)
	}
}

func TestBus_PublishAfterCloseDoesNotBlock(t *testing.T) {
	bus := NewBus()
	bus.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			bus.Publish(NewDiagnosticEvent("srv", "x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked after Close")
	}
}

func TestEventType_String(t *testing.T) {
	names := map[EventType]string{
		EventStateChanged: "state_changed",
		EventNotification: "notification",
		EventDiagnostic:   "diagnostic",
		EventConnectError: "connect_error",
		EventType(99):     "unknown",
	}
	for typ, want := range names {
		if typ.String() != want {
			t.Errorf("EventType(%d).String() = %q, want %q", typ, typ.String(), want)
		}
	}
}
