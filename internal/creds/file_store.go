package creds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	tokensDir  = ".config/mcpline"
	tokensFile = ".tokens.json"
)

// FileStore stores tokens in a 0600 JSON file. Used when no system keychain
// is available.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a file-based token store at the default path.
func NewFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	return &FileStore{path: filepath.Join(home, tokensDir, tokensFile)}, nil
}

// NewFileStoreAt creates a file store at a specific path (for testing).
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Get retrieves the token for a server.
func (s *FileStore) Get(serverName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens, err := s.load()
	if err != nil {
		return "", err
	}
	return tokens[serverName], nil
}

// Set stores the token for a server.
func (s *FileStore) Set(serverName, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return err
	}
	tokens[serverName] = token
	return s.save(tokens)
}

// Delete removes the token for a server.
func (s *FileStore) Delete(serverName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := tokens[serverName]; !ok {
		return nil
	}
	delete(tokens, serverName)
	return s.save(tokens)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("read tokens: %w", err)
	}

	var tokens map[string]string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse tokens: %w", err)
	}
	if tokens == nil {
		tokens = make(map[string]string)
	}
	return tokens, nil
}

func (s *FileStore) save(tokens map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create tokens dir: %w", err)
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}

	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("write temp tokens: %w", err)
	}
	if err := os.Rename(tmpFile, s.path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("rename tokens: %w", err)
	}
	return nil
}
