package main

import (
	"context"
	"fmt"

	"github.com/hedworth/mcpline/internal/conn"
	"github.com/hedworth/mcpline/internal/creds"
	"github.com/hedworth/mcpline/internal/transport"
)

// connectServer dials one named server from the config and runs the
// handshake. The caller must call the returned stop function.
func connectServer(ctx context.Context, configPath, name string) (*conn.Conn, func(), error) {
	logger := setupLogger()

	cfg, err := loadConfigFrom(configPath)
	if err != nil {
		return nil, nil, err
	}
	srv := cfg.FindServerByName(name)
	if srv == nil {
		return nil, nil, fmt.Errorf("unknown server %q, see 'mcpline list'", name)
	}

	store, err := creds.NewStore()
	if err != nil {
		logger.Warn("token store unavailable", "error", err)
	}

	dial := func() (transport.Transport, error) {
		return transport.New(*srv, transport.Options{
			TokenStore: store,
			Logger:     logger,
		})
	}

	opts := []conn.Option{
		conn.WithLogger(logger),
		conn.WithClientInfo(conn.ClientInfo{Name: "mcpline", Version: version}),
	}
	if d := srv.RequestTimeout(); d > 0 {
		opts = append(opts, conn.WithRequestTimeout(d))
	}

	c := conn.New(name, dial, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, nil, err
	}
	stop := func() { _ = c.Disconnect() }
	return c, stop, nil
}
