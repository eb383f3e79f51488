package conn

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned by SendRequest when a request's deadline fires
	// before its response arrives. The connection itself is unaffected.
	ErrTimeout = errors.New("request timed out")

	// ErrConnectionClosed is returned to every request still pending when
	// the connection is explicitly disconnected.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrNotConnected is returned by SendRequest when the connection is not
	// in a state that allows requests.
	ErrNotConnected = errors.New("not connected")
)

// HandshakeError reports a failed initialize exchange: an error response, a
// timeout, or no compatible protocol version. The connection is Errored and
// a fresh Connect is required to retry.
type HandshakeError struct {
	Server string
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake with %s failed: %v", e.Server, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// TransportError reports a mid-session transport failure. Every request
// pending when the transport dies fails with one.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport closed"
	}
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
