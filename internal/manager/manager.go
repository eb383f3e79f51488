// Package manager supervises one connection per enabled server and keeps
// the set in sync with the config file, reloading on change.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hedworth/mcpline/internal/config"
	"github.com/hedworth/mcpline/internal/conn"
	"github.com/hedworth/mcpline/internal/creds"
	"github.com/hedworth/mcpline/internal/events"
	"github.com/hedworth/mcpline/internal/transport"
)

// Options parameterizes a Manager.
type Options struct {
	// ConfigPath is the file to watch for reloads. Empty disables watching.
	ConfigPath string
	TokenStore creds.Store
	Bus        *events.Bus
	Logger     *slog.Logger
	ClientInfo conn.ClientInfo
}

// Manager owns the live connections for the enabled servers of a config.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	cfg   *config.Config
	conns map[string]*conn.Conn

	reloadCh chan *config.Config
}

// New creates a manager for the given config. No connections are started;
// call ConnectAll.
func New(cfg *config.Config, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		cfg:      cfg,
		conns:    make(map[string]*conn.Conn),
		reloadCh: make(chan *config.Config, 1),
	}
}

// Get returns the connection for a server name.
func (m *Manager) Get(name string) (*conn.Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[name]
	return c, ok
}

// Conns returns a snapshot of the current connections.
func (m *Manager) Conns() map[string]*conn.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*conn.Conn, len(m.conns))
	for name, c := range m.conns {
		out[name] = c
	}
	return out
}

// ConnectAll connects every enabled server. Failures are collected rather
// than aborting: one bad server must not keep the rest down.
func (m *Manager) ConnectAll(ctx context.Context) error {
	m.mu.Lock()
	servers := m.cfg.ServerEntries()
	m.mu.Unlock()

	var errs []error
	for _, srv := range servers {
		if !srv.IsEnabled() {
			continue
		}
		if err := m.Connect(ctx, srv.Name); err != nil {
			m.logger.Warn("server failed to connect", "server", srv.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", srv.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Connect starts (or restarts) the connection for one named server.
func (m *Manager) Connect(ctx context.Context, name string) error {
	m.mu.Lock()
	srv := m.cfg.FindServerByName(name)
	if srv == nil {
		m.mu.Unlock()
		return fmt.Errorf("unknown server %q", name)
	}
	c, exists := m.conns[name]
	if !exists {
		c = m.newConn(*srv)
		m.conns[name] = c
	}
	m.mu.Unlock()

	return c.Connect(ctx)
}

func (m *Manager) newConn(srv config.ServerConfig) *conn.Conn {
	name := srv.Name
	dial := func() (transport.Transport, error) {
		m.mu.Lock()
		current := m.cfg.FindServerByName(name)
		m.mu.Unlock()
		if current == nil {
			return nil, fmt.Errorf("server %q removed from config", name)
		}
		return transport.New(*current, transport.Options{
			TokenStore: m.opts.TokenStore,
			Logger:     m.logger,
			OnStderrLine: func(line string) {
				if m.opts.Bus != nil {
					m.opts.Bus.Publish(events.NewDiagnosticEvent(name, line))
				}
			},
		})
	}

	opts := []conn.Option{
		conn.WithLogger(m.logger),
		conn.WithClientInfo(m.opts.ClientInfo),
	}
	if m.opts.Bus != nil {
		opts = append(opts, conn.WithBus(m.opts.Bus))
	}
	if d := srv.RequestTimeout(); d > 0 {
		opts = append(opts, conn.WithRequestTimeout(d))
	}
	return conn.New(name, dial, opts...)
}

// StopAll disconnects every connection and forgets them.
func (m *Manager) StopAll() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]*conn.Conn)
	m.mu.Unlock()

	for name, c := range conns {
		if err := c.Disconnect(); err != nil {
			m.logger.Warn("error stopping server", "server", name, "error", err)
		}
	}
}
