// Package conn implements the client side of a server connection: the
// lifecycle state machine, the initialize handshake with protocol version
// negotiation, and correlated request/response dispatch over a transport.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hedworth/mcpline/internal/events"
	"github.com/hedworth/mcpline/internal/protocol"
	"github.com/hedworth/mcpline/internal/transport"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
	StateErrored
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateErrored:
		return "errored"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	// DefaultRequestTimeout bounds a request that names no deadline of its own.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultHandshakeTimeout bounds the initialize exchange.
	DefaultHandshakeTimeout = 15 * time.Second
)

// Dialer builds a fresh transport for one connection attempt. Every Connect
// call dials anew; transports are never reused across attempts.
type Dialer func() (transport.Transport, error)

// NotificationHandler receives server-initiated notifications.
type NotificationHandler func(method string, params json.RawMessage)

// ClientInfo identifies this client during the handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo is the server identity reported in the initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Conn is one logical connection to a server. It owns the transport for the
// current attempt, correlates responses to requests by id, answers the few
// requests servers may send back, and fans notifications out to observers.
type Conn struct {
	server     string
	dial       Dialer
	bus        *events.Bus
	logger     *slog.Logger
	clientInfo ClientInfo

	requestTimeout   time.Duration
	handshakeTimeout time.Duration

	mu         sync.Mutex
	state      State
	transport  transport.Transport
	pending    map[string]*pendingRequest
	handlers   []NotificationHandler
	version    protocol.Version
	features   protocol.FeatureSet
	serverInfo ServerInfo
	caps       map[string]json.RawMessage
	lastClose  transport.CloseInfo
}

type pendingRequest struct {
	ch    chan pendingResult
	timer *time.Timer
}

type pendingResult struct {
	msg protocol.Message
	err error
}

// Option configures a Conn.
type Option func(*Conn)

// WithBus publishes lifecycle and notification events to the given bus.
func WithBus(bus *events.Bus) Option {
	return func(c *Conn) { c.bus = bus }
}

// WithLogger sets the connection logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) { c.logger = logger }
}

// WithRequestTimeout overrides the default per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithHandshakeTimeout overrides the initialize deadline.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}

// WithClientInfo sets the identity sent during the handshake.
func WithClientInfo(info ClientInfo) Option {
	return func(c *Conn) { c.clientInfo = info }
}

// New creates a connection for the named server. It does not dial; call
// Connect.
func New(server string, dial Dialer, opts ...Option) *Conn {
	c := &Conn{
		server:           server,
		dial:             dial,
		logger:           slog.Default(),
		clientInfo:       ClientInfo{Name: "mcpline", Version: "dev"},
		requestTimeout:   DefaultRequestTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		state:            StateDisconnected,
		pending:          make(map[string]*pendingRequest),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("server", server)
	return c
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Server returns the server name this connection was created for.
func (c *Conn) Server() string { return c.server }

// NegotiatedVersion returns the protocol version agreed during the
// handshake. Zero before Connect succeeds.
func (c *Conn) NegotiatedVersion() protocol.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Features returns the feature set of the negotiated version.
func (c *Conn) Features() protocol.FeatureSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.features
}

// Supports reports whether the negotiated version carries the named feature.
// Unknown names are never supported.
func (c *Conn) Supports(feature string) bool {
	return c.Features().Supports(feature)
}

// ServerInfo returns the identity the server reported during the handshake.
func (c *Conn) ServerInfo() ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// Capabilities returns the raw capability map from the initialize result.
func (c *Conn) Capabilities() map[string]json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

// LastClose returns the close details from the most recent transport
// teardown. Meaningful after the connection has dropped.
func (c *Conn) LastClose() transport.CloseInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastClose
}

// OnNotification registers a handler for server notifications and returns a
// function that removes it.
func (c *Conn) OnNotification(h NotificationHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
	idx := len(c.handlers) - 1
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.handlers) {
			c.handlers[idx] = nil
		}
	}
}

// initializeParams is the body of the handshake request. protocolVersion
// names our most preferred version for servers that only read the singular
// field; protocolVersions carries the full preference list.
type initializeParams struct {
	ProtocolVersion  string         `json:"protocolVersion"`
	ProtocolVersions []string       `json:"protocolVersions"`
	ClientInfo       ClientInfo     `json:"clientInfo"`
	Capabilities     map[string]any `json:"capabilities"`
}

type initializeResult struct {
	ProtocolVersion  string                     `json:"protocolVersion"`
	ProtocolVersions []string                   `json:"protocolVersions"`
	ServerInfo       ServerInfo                 `json:"serverInfo"`
	Capabilities     map[string]json.RawMessage `json:"capabilities"`
}

// Connect dials a fresh transport and runs the initialize handshake. Calling
// it while an attempt or session is already underway is a logged no-op; only
// Disconnected and Errored connections accept a new attempt.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected && c.state != StateErrored {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("connect ignored", "state", state.String())
		return nil
	}
	c.setStateLocked(StateConnecting)
	c.pending = make(map[string]*pendingRequest)
	c.mu.Unlock()

	t, err := c.dial()
	if err != nil {
		c.failConnect(err)
		return err
	}

	if err := t.Connect(ctx); err != nil {
		c.failConnect(err)
		return err
	}

	c.mu.Lock()
	c.transport = t
	c.mu.Unlock()

	go c.dispatchLoop(t)

	if err := c.handshake(ctx, t); err != nil {
		t.Disconnect()
		c.failConnect(err)
		return err
	}

	c.mu.Lock()
	if c.state == StateTerminated {
		// Disconnect raced the handshake; Terminated is final.
		c.mu.Unlock()
		t.Disconnect()
		return ErrConnectionClosed
	}
	c.setStateLocked(StateConnected)
	c.mu.Unlock()
	return nil
}

func (c *Conn) handshake(ctx context.Context, t transport.Transport) error {
	versions := make([]string, len(protocol.SupportedVersions))
	for i, v := range protocol.SupportedVersions {
		versions[i] = string(v)
	}
	params := initializeParams{
		ProtocolVersion:  versions[0],
		ProtocolVersions: versions,
		ClientInfo:       c.clientInfo,
		Capabilities:     map[string]any{},
	}

	hctx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()

	msg, err := c.roundTrip(hctx, t, "initialize", params, c.handshakeTimeout)
	if err != nil {
		return &HandshakeError{Server: c.server, Err: err}
	}
	if msg.Error != nil {
		return &HandshakeError{Server: c.server, Err: msg.Error}
	}

	var result initializeResult
	if err := json.Unmarshal(msg.Result, &result); err != nil {
		return &HandshakeError{Server: c.server, Err: fmt.Errorf("malformed initialize result: %w", err)}
	}

	offered := result.ProtocolVersions
	if len(offered) == 0 && result.ProtocolVersion != "" {
		offered = []string{result.ProtocolVersion}
	}
	version, features, err := protocol.Negotiate(offered)
	if err != nil {
		return &HandshakeError{Server: c.server, Err: err}
	}

	c.mu.Lock()
	c.version = version
	c.features = features
	c.serverInfo = result.ServerInfo
	c.caps = result.Capabilities
	c.mu.Unlock()

	note, err := protocol.NewNotification("notifications/initialized", nil)
	if err != nil {
		return &HandshakeError{Server: c.server, Err: err}
	}
	if err := t.Send(ctx, note); err != nil {
		return &HandshakeError{Server: c.server, Err: err}
	}

	c.logger.Info("handshake complete",
		"version", string(version),
		"serverName", result.ServerInfo.Name,
		"serverVersion", result.ServerInfo.Version)
	return nil
}

func (c *Conn) failConnect(err error) {
	c.mu.Lock()
	if c.state == StateTerminated {
		// Disconnect already ended the connection mid-attempt;
		// Terminated is final and must not be overwritten.
		c.mu.Unlock()
		c.logger.Debug("connect attempt abandoned", "error", err)
		return
	}
	c.transport = nil
	c.setStateLocked(StateErrored)
	c.failPendingLocked(&TransportError{Err: err})
	c.mu.Unlock()

	c.logger.Warn("connect failed", "error", err)
	if c.bus != nil {
		c.bus.Publish(events.NewConnectErrorEvent(c.server, err))
	}
}

// SendRequest issues a correlated request and waits for its response, the
// per-request deadline, or connection teardown, whichever comes first. A
// response carrying an error object is returned as a *protocol.Error.
func (c *Conn) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.state != StateConnected && c.state != StateAuthenticated {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w (state %s)", ErrNotConnected, state)
	}
	t := c.transport
	c.mu.Unlock()

	msg, err := c.roundTrip(ctx, t, method, params, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	if msg.Error != nil {
		return nil, msg.Error
	}
	return msg.Result, nil
}

// Notify sends a fire-and-forget notification to the server.
func (c *Conn) Notify(ctx context.Context, method string, params any) error {
	c.mu.Lock()
	if c.state != StateConnected && c.state != StateAuthenticated {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrNotConnected, state)
	}
	t := c.transport
	c.mu.Unlock()

	note, err := protocol.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("encoding %s params: %w", method, err)
	}
	return t.Send(ctx, note)
}

// roundTrip registers a pending entry, sends the request, and waits for
// exactly one resolution: the correlated response, the deadline timer, the
// caller's context, or teardown.
func (c *Conn) roundTrip(ctx context.Context, t transport.Transport, method string, params any, timeout time.Duration) (protocol.Message, error) {
	id := uuid.New().String()
	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("encoding %s params: %w", method, err)
	}

	p := &pendingRequest{ch: make(chan pendingResult, 1)}
	c.mu.Lock()
	c.pending[id] = p
	p.timer = time.AfterFunc(timeout, func() { c.expire(id) })
	c.mu.Unlock()

	if err := t.Send(ctx, req); err != nil {
		c.abandon(id)
		if errors.Is(err, transport.ErrNotConnected) {
			return protocol.Message{}, &TransportError{Err: err}
		}
		return protocol.Message{}, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case res := <-p.ch:
		return res.msg, res.err
	case <-ctx.Done():
		c.abandon(id)
		return protocol.Message{}, ctx.Err()
	}
}

// abandon removes a pending entry without delivering anything to it.
func (c *Conn) abandon(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[id]; ok {
		p.timer.Stop()
		delete(c.pending, id)
	}
}

// expire fires a request's deadline. Membership in the pending map decides
// the race with a late response: whoever deletes the entry first wins, so
// each request resolves exactly once.
func (c *Conn) expire(id string) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	c.logger.Warn("request timed out", "id", id)
	p.ch <- pendingResult{err: ErrTimeout}
}

// dispatchLoop routes every inbound message for one transport's lifetime and
// tears the connection down when the transport closes. The message channel
// may close before Closed fires (process exit drains stdout first), so a
// closed channel is parked at nil rather than treated as teardown.
func (c *Conn) dispatchLoop(t transport.Transport) {
	msgs := t.Messages()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			c.dispatch(msg)
		case info := <-t.Closed():
			// Responses the transport buffered before closing still
			// belong to their callers; deliver them first.
			for msgs != nil {
				select {
				case msg, ok := <-msgs:
					if !ok {
						msgs = nil
						continue
					}
					c.dispatch(msg)
				default:
					msgs = nil
				}
			}
			c.handleClosed(t, info)
			return
		}
	}
}

func (c *Conn) dispatch(msg protocol.Message) {
	switch {
	case msg.IsResponse():
		c.resolve(msg)
	case msg.IsRequest():
		c.handleServerRequest(msg)
	case msg.IsNotification():
		c.handleNotification(msg)
	default:
		c.logger.Warn("dropping malformed message")
	}
}

// resolve delivers a response to its pending request. Responses with no
// pending entry, including late arrivals after a timeout, are dropped.
func (c *Conn) resolve(msg protocol.Message) {
	c.mu.Lock()
	p, ok := c.pending[msg.ID]
	if ok {
		p.timer.Stop()
		delete(c.pending, msg.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("dropping unmatched response", "id", msg.ID)
		return
	}
	p.ch <- pendingResult{msg: msg}
}

// handleServerRequest answers the requests a server may send to the client.
// Only ping is implemented; anything else gets a method-not-found error.
func (c *Conn) handleServerRequest(msg protocol.Message) {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return
	}

	var reply protocol.Message
	switch msg.Method {
	case "ping":
		reply, _ = protocol.NewResponse(msg.ID, struct{}{})
	default:
		c.logger.Debug("rejecting server request", "method", msg.Method)
		reply = protocol.NewErrorResponse(msg.ID, protocol.CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", msg.Method))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.Send(ctx, reply); err != nil {
		c.logger.Warn("failed to answer server request", "method", msg.Method, "error", err)
	}
}

func (c *Conn) handleNotification(msg protocol.Message) {
	c.logger.Debug("notification", "method", msg.Method)

	c.mu.Lock()
	handlers := make([]NotificationHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			h(msg.Method, msg.Params)
		}
	}
	if c.bus != nil {
		c.bus.Publish(events.NewNotificationEvent(c.server, msg.Method, msg.Params))
	}
}

// handleClosed reacts to transport teardown: every pending request fails
// with a TransportError and the connection returns to Disconnected, unless
// it was deliberately terminated.
func (c *Conn) handleClosed(t transport.Transport, info transport.CloseInfo) {
	c.mu.Lock()
	if c.transport != t {
		// A newer attempt already replaced this transport.
		c.mu.Unlock()
		return
	}
	c.transport = nil
	c.lastClose = info
	err := info.Err
	if err == nil {
		err = errors.New("transport closed")
	}
	c.failPendingLocked(&TransportError{Err: err})
	if c.state != StateTerminated {
		c.setStateLocked(StateDisconnected)
	}
	c.mu.Unlock()

	if info.Err != nil {
		c.logger.Warn("connection lost", "error", info.Err, "exitCode", info.ExitCode)
	} else {
		c.logger.Debug("connection closed", "exitCode", info.ExitCode)
	}
}

// failPendingLocked resolves every pending request with err. Caller holds mu.
func (c *Conn) failPendingLocked(err error) {
	for id, p := range c.pending {
		p.timer.Stop()
		delete(c.pending, id)
		p.ch <- pendingResult{err: err}
	}
}

// MarkAuthenticated records that an external authentication step completed.
func (c *Conn) MarkAuthenticated() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return fmt.Errorf("cannot mark authenticated from state %s", c.state)
	}
	c.setStateLocked(StateAuthenticated)
	return nil
}

// Disconnect tears the connection down: pending requests fail with
// ErrConnectionClosed and the transport is shut down. Idempotent.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	t := c.transport
	c.transport = nil
	c.failPendingLocked(ErrConnectionClosed)
	if c.state != StateTerminated {
		c.setStateLocked(StateTerminated)
	}
	c.mu.Unlock()

	if t != nil {
		return t.Disconnect()
	}
	return nil
}

// setStateLocked transitions the state and publishes the change. Caller
// holds mu.
func (c *Conn) setStateLocked(next State) {
	if c.state == next {
		return
	}
	prev := c.state
	c.state = next
	c.logger.Debug("state change", "from", prev.String(), "to", next.String())
	if c.bus != nil {
		c.bus.Publish(events.NewStateChangedEvent(c.server, prev.String(), next.String()))
	}
}
