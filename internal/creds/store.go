// Package creds stores bearer tokens for socket servers. Token acquisition
// and refresh are someone else's job; this package only keeps what it is
// handed and gives it back.
package creds

import (
	"fmt"
	"os"
	"strings"
)

// Store persists bearer tokens keyed by server name.
type Store interface {
	// Get returns the stored token for a server, or "" if none is stored.
	Get(serverName string) (string, error)
	// Set stores a token for a server, replacing any existing one.
	Set(serverName, token string) error
	// Delete removes a server's token. Not an error if absent.
	Delete(serverName string) error
}

// NewStore returns the keyring-backed store when the system keychain is
// available, falling back to the file store otherwise.
func NewStore() (Store, error) {
	if ks, err := NewKeyringStore(); err == nil {
		return ks, nil
	}
	return NewFileStore()
}

// Resolve returns the bearer token for a server: the configured environment
// variable wins, then the store. Returns "" when neither is set.
func Resolve(store Store, serverName, tokenEnvVar string) (string, error) {
	if tokenEnvVar != "" {
		val, ok := os.LookupEnv(tokenEnvVar)
		if !ok || strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("bearer token env var %s is not set", tokenEnvVar)
		}
		if strings.ContainsAny(val, "\r\n") {
			return "", fmt.Errorf("bearer token env var %s must not contain newlines", tokenEnvVar)
		}
		return val, nil
	}
	if store == nil {
		return "", nil
	}
	return store.Get(serverName)
}
