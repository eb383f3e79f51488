package creds

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SetGetDelete(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), ".tokens.json"))

	if err := store.Set("srv", "tok-123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get("srv")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "tok-123" {
		t.Errorf("expected 'tok-123', got %q", got)
	}

	if err := store.Delete("srv"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = store.Get("srv")
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty token after delete, got %q", got)
	}

	// Deleting a missing token is not an error.
	if err := store.Delete("never-stored"); err != nil {
		t.Errorf("Delete of missing token: %v", err)
	}
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tokens.json")
	store := NewFileStoreAt(path)

	if err := store.Set("srv", "secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file must be 0600, got %o", perm)
	}
}

func TestResolve_EnvVarWins(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), ".tokens.json"))
	if err := store.Set("srv", "stored-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	t.Setenv("MCPLINE_TEST_TOKEN", "env-token")
	got, err := Resolve(store, "srv", "MCPLINE_TEST_TOKEN")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "env-token" {
		t.Errorf("env var must win over store, got %q", got)
	}
}

func TestResolve_FallsBackToStore(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), ".tokens.json"))
	if err := store.Set("srv", "stored-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := Resolve(store, "srv", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "stored-token" {
		t.Errorf("expected stored token, got %q", got)
	}
}

func TestResolve_NamedEnvVarUnset(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), ".tokens.json"))

	if _, err := Resolve(store, "srv", "MCPLINE_TEST_TOKEN_UNSET"); err == nil {
		t.Error("expected error when named env var is unset")
	}
}

func TestResolve_RejectsNewlines(t *testing.T) {
	t.Setenv("MCPLINE_TEST_TOKEN", "bad\ntoken")
	if _, err := Resolve(nil, "srv", "MCPLINE_TEST_TOKEN"); err == nil {
		t.Error("expected error for token containing newline")
	}
}

func TestResolve_NoSources(t *testing.T) {
	got, err := Resolve(nil, "srv", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}
