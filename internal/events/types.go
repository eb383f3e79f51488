// Package events provides the event system for mcpline.
package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event.
type EventType int

const (
	EventStateChanged EventType = iota
	EventNotification
	EventDiagnostic
	EventConnectError
)

func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventNotification:
		return "notification"
	case EventDiagnostic:
		return "diagnostic"
	case EventConnectError:
		return "connect_error"
	default:
		return "unknown"
	}
}

// Event is a single occurrence on a connection.
type Event struct {
	Type      EventType
	Server    string
	Timestamp time.Time

	// StateChanged
	OldState string
	NewState string

	// Notification
	Method string
	Params json.RawMessage

	// Diagnostic: one stderr line from a process server.
	Line string

	// ConnectError
	Err error
}

// NewStateChangedEvent reports a connection state transition.
func NewStateChangedEvent(server, oldState, newState string) Event {
	return Event{
		Type:      EventStateChanged,
		Server:    server,
		Timestamp: time.Now(),
		OldState:  oldState,
		NewState:  newState,
	}
}

// NewNotificationEvent reports an inbound server notification.
func NewNotificationEvent(server, method string, params json.RawMessage) Event {
	return Event{
		Type:      EventNotification,
		Server:    server,
		Timestamp: time.Now(),
		Method:    method,
		Params:    params,
	}
}

// NewDiagnosticEvent reports one line of server diagnostic output.
func NewDiagnosticEvent(server, line string) Event {
	return Event{
		Type:      EventDiagnostic,
		Server:    server,
		Timestamp: time.Now(),
		Line:      line,
	}
}

// NewConnectErrorEvent reports a failed connection attempt.
func NewConnectErrorEvent(server string, err error) Event {
	return Event{
		Type:      EventConnectError,
		Server:    server,
		Timestamp: time.Now(),
		Err:       err,
	}
}
