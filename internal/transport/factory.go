package transport

import (
	"fmt"
	"log/slog"

	"github.com/hedworth/mcpline/internal/config"
	"github.com/hedworth/mcpline/internal/creds"
)

// Options parameterizes transport construction beyond the server config.
type Options struct {
	// TokenStore resolves bearer tokens for socket servers. May be nil.
	TokenStore creds.Store
	Logger     *slog.Logger

	// OnStderrLine receives diagnostic stderr lines from process servers.
	// Ignored for socket servers.
	OnStderrLine func(line string)
}

// New selects and builds the transport variant for a server config. An
// explicit kind always wins. Without one, a command selects the process
// transport and a URL the socket transport; a config carrying both defaults
// to the process transport, which is the documented behavior for ambiguous
// entries, not an accident of field ordering.
func New(srv config.ServerConfig, opts Options) (Transport, error) {
	switch {
	case srv.Kind == config.ServerKindProcess, srv.Kind == "" && srv.Command != "":
		if srv.Command == "" {
			return nil, fmt.Errorf("server %q: process transport requires a command", srv.Name)
		}
		return NewProcessTransport(ProcessConfig{
			Command: srv.Command,
			Args:    srv.Args,
			Cwd:     srv.Cwd,
			Env:     srv.Env,
			Logger:  opts.Logger,

			OnStderrLine: opts.OnStderrLine,
		}), nil

	case srv.Kind == config.ServerKindSocket, srv.Kind == "" && srv.URL != "":
		if srv.URL == "" {
			return nil, fmt.Errorf("server %q: socket transport requires a url", srv.Name)
		}
		token, err := creds.Resolve(opts.TokenStore, srv.Name, srv.BearerTokenEnvVar)
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", srv.Name, err)
		}
		return NewSocketTransport(SocketConfig{
			URL:         srv.URL,
			Headers:     srv.Headers,
			BearerToken: token,
			Logger:      opts.Logger,
		}), nil

	case srv.Kind != "":
		return nil, fmt.Errorf("server %q: unknown transport kind %q", srv.Name, srv.Kind)

	default:
		return nil, fmt.Errorf("server %q: config must set either command or url", srv.Name)
	}
}
