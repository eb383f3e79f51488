// Package config provides configuration schema and persistence for mcpline.
package config

import (
	"time"
)

// SchemaVersion is the current config schema version.
const SchemaVersion = 1

// ServerKind selects the transport variant for a server.
type ServerKind string

const (
	ServerKindProcess ServerKind = "process"
	ServerKindSocket  ServerKind = "socket"
)

// ServerConfig describes one configured server. Process servers set Command;
// socket servers set URL. Field names are compatible with the common
// mcpServers format for easy copy/paste.
type ServerConfig struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Kind    ServerKind        `json:"kind,omitempty"`
	Enabled *bool             `json:"enabled,omitempty"` // nil treated as true
	Command string            `json:"command,omitempty"` // process only
	Args    []string          `json:"args,omitempty"`    // process only
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// Socket-specific fields.
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// BearerTokenEnvVar names an environment variable holding a bearer
	// token for socket servers. Tokens themselves are never persisted here.
	BearerTokenEnvVar string `json:"bearerTokenEnv,omitempty"`

	// RequestTimeoutSeconds overrides the default per-request deadline.
	RequestTimeoutSeconds int `json:"requestTimeoutSeconds,omitempty"`
}

// IsEnabled reports whether the server should be connected.
func (s ServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// IsProcess reports whether the server runs as a child process.
func (s ServerConfig) IsProcess() bool {
	if s.Kind != "" {
		return s.Kind == ServerKindProcess
	}
	return s.Command != ""
}

// IsSocket reports whether the server is reached over a URL.
func (s ServerConfig) IsSocket() bool {
	if s.Kind != "" {
		return s.Kind == ServerKindSocket
	}
	return s.Command == "" && s.URL != ""
}

// RequestTimeout returns the configured per-request deadline, or zero when
// the connection default should apply.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// Config is the root configuration structure.
type Config struct {
	SchemaVersion int                     `json:"schemaVersion"`
	Servers       map[string]ServerConfig `json:"servers"`
	LastModified  time.Time               `json:"lastModified,omitempty"`
}

// NewConfig creates an empty configuration.
func NewConfig() *Config {
	return &Config{
		SchemaVersion: SchemaVersion,
		Servers:       make(map[string]ServerConfig),
	}
}

// ServerEntries returns the configured servers as a slice.
func (c *Config) ServerEntries() []ServerConfig {
	entries := make([]ServerConfig, 0, len(c.Servers))
	for _, srv := range c.Servers {
		entries = append(entries, srv)
	}
	return entries
}
