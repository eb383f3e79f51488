package mcptest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hedworth/mcpline/internal/protocol"
	"github.com/hedworth/mcpline/internal/transport"
)

// ScriptTransport is an in-memory Transport for connection tests. Tests
// deliver inbound messages with Deliver, observe outbound ones with Sent,
// and simulate transport death with Fail. An optional OnSend hook acts as
// the scripted server.
type ScriptTransport struct {
	// OnSend, when set, is invoked synchronously for every outbound
	// message. Set it before Connect.
	OnSend func(msg protocol.Message)

	// ConnectErr makes Connect fail.
	ConnectErr error

	mu        sync.Mutex
	connected bool
	down      bool
	sent      []protocol.Message

	msgs   chan protocol.Message
	closed chan transport.CloseInfo
}

// NewScriptTransport creates an unconnected script transport.
func NewScriptTransport() *ScriptTransport {
	return &ScriptTransport{
		msgs:   make(chan protocol.Message, 64),
		closed: make(chan transport.CloseInfo, 1),
	}
}

func (s *ScriptTransport) Connect(ctx context.Context) error {
	if s.ConnectErr != nil {
		return &transport.ConnectError{Target: "script", Err: s.ConnectErr}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return transport.ErrAlreadyConnected
	}
	s.connected = true
	return nil
}

func (s *ScriptTransport) Send(ctx context.Context, msg protocol.Message) error {
	s.mu.Lock()
	if !s.connected || s.down {
		s.mu.Unlock()
		return transport.ErrNotConnected
	}
	s.sent = append(s.sent, msg)
	hook := s.OnSend
	s.mu.Unlock()

	if hook != nil {
		hook(msg)
	}
	return nil
}

func (s *ScriptTransport) Messages() <-chan protocol.Message {
	return s.msgs
}

func (s *ScriptTransport) Closed() <-chan transport.CloseInfo {
	return s.closed
}

// Disconnect marks the transport down and reports a deliberate close.
func (s *ScriptTransport) Disconnect() error {
	s.deliverClose(transport.CloseInfo{ExitCode: -1})
	return nil
}

// Deliver injects one inbound message, as if the server had sent it.
func (s *ScriptTransport) Deliver(msg protocol.Message) {
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if !down {
		s.msgs <- msg
	}
}

// Fail simulates the transport dying mid-session.
func (s *ScriptTransport) Fail(err error, exitCode int) {
	s.deliverClose(transport.CloseInfo{Err: err, ExitCode: exitCode})
}

func (s *ScriptTransport) deliverClose(info transport.CloseInfo) {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		return
	}
	s.down = true
	s.mu.Unlock()
	s.closed <- info
}

// Sent returns a snapshot of every outbound message so far.
func (s *ScriptTransport) Sent() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Message, len(s.sent))
	copy(out, s.sent)
	return out
}

// LastSent returns the most recent outbound message.
func (s *ScriptTransport) LastSent() (protocol.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return protocol.Message{}, false
	}
	return s.sent[len(s.sent)-1], true
}

// AutoInitialize scripts the handshake: initialize requests are answered
// with the given version list and the initialized notification is ignored.
// Other requests are left for the test to answer via Deliver.
func (s *ScriptTransport) AutoInitialize(versions []string) {
	prev := s.OnSend
	s.OnSend = func(msg protocol.Message) {
		if msg.IsRequest() && msg.Method == "initialize" {
			result := map[string]any{
				"serverInfo":   map[string]string{"name": "script-server", "version": "0.0.1"},
				"capabilities": map[string]any{},
			}
			if len(versions) > 0 {
				result["protocolVersion"] = versions[0]
				result["protocolVersions"] = versions
			}
			raw, _ := json.Marshal(result)
			resp, _ := protocol.NewResponse(msg.ID, json.RawMessage(raw))
			s.Deliver(resp)
			return
		}
		if prev != nil {
			prev(msg)
		}
	}
}
