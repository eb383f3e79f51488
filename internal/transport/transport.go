// Package transport abstracts the channels that carry protocol messages to a
// server: a child process speaking newline-delimited JSON over its stdio, or
// an SSE socket bound to a URL.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/hedworth/mcpline/internal/protocol"
)

var (
	// ErrNotConnected is returned by Send before Connect or after teardown.
	ErrNotConnected = errors.New("transport not connected")

	// ErrAlreadyConnected is returned by a second Connect call.
	ErrAlreadyConnected = errors.New("transport already connected")
)

// ConnectError wraps a failure to establish the underlying channel.
type ConnectError struct {
	Target string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// CloseInfo describes why a transport's channel terminated.
type CloseInfo struct {
	// Err is the underlying I/O or process error, if any.
	Err error
	// ExitCode is the child process exit code for process transports, -1 otherwise.
	ExitCode int
}

// Transport is a bidirectional message channel to one server.
//
// Messages delivers inbound messages in arrival order and is closed on
// teardown. Closed delivers exactly one CloseInfo when the underlying channel
// terminates, whether by Disconnect or by the peer going away.
type Transport interface {
	// Connect establishes the underlying channel. Calling it twice is an error.
	Connect(ctx context.Context) error

	// Send serializes and writes one message. Fails with ErrNotConnected if
	// the channel is not up.
	Send(ctx context.Context, msg protocol.Message) error

	// Messages returns the inbound message stream (FIFO).
	Messages() <-chan protocol.Message

	// Closed returns a channel that delivers exactly one value when the
	// underlying channel terminates.
	Closed() <-chan CloseInfo

	// Disconnect tears the channel down. Safe to call at any time; a no-op
	// when already down.
	Disconnect() error
}
