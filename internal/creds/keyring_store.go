package creds

import (
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// keyringService is the service name used in the system keychain.
const keyringService = "mcpline"

// KeyringStore stores tokens in the system keychain.
type KeyringStore struct {
	mu sync.RWMutex
}

// NewKeyringStore creates a keyring-backed token store.
// Returns an error if the keyring is not available.
func NewKeyringStore() (*KeyringStore, error) {
	// Test keyring availability by trying to read a non-existent key
	_, err := keyring.Get(keyringService, "_test_availability")
	if err != nil && err != keyring.ErrNotFound {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	return &KeyringStore{}, nil
}

// Get retrieves the token for a server.
func (s *KeyringStore) Get(serverName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, err := keyring.Get(keyringService, serverName)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return token, nil
}

// Set stores the token for a server.
func (s *KeyringStore) Set(serverName, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Set(keyringService, serverName, token); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// Delete removes the token for a server.
func (s *KeyringStore) Delete(serverName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Delete(keyringService, serverName); err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
