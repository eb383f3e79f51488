package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hedworth/mcpline/internal/testutil"
)

func TestLoad_NonExistentFile(t *testing.T) {
	testutil.SetupTestHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SchemaVersion != SchemaVersion {
		t.Errorf("expected schema version %d, got %d", SchemaVersion, cfg.SchemaVersion)
	}
	if len(cfg.Servers) != 0 {
		t.Errorf("expected 0 servers, got %d", len(cfg.Servers))
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	home := testutil.SetupTestHome(t)

	configJSON := `{
		"schemaVersion": 1,
		"servers": {
			"ab12": {
				"name": "Test Server",
				"kind": "process",
				"command": "echo"
			}
		}
	}`
	configPath := filepath.Join(home, ".config", "mcpline", "config.json")
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	srv, ok := cfg.Servers["ab12"]
	if !ok {
		t.Fatal("expected server 'ab12' to exist")
	}
	if srv.ID != "ab12" {
		t.Errorf("expected ID backfilled from map key, got %q", srv.ID)
	}
	if srv.Kind != ServerKindProcess {
		t.Errorf("expected kind 'process', got %q", srv.Kind)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	home := testutil.SetupTestHome(t)

	configPath := filepath.Join(home, ".config", "mcpline", "config.json")
	if err := os.WriteFile(configPath, []byte("{invalid"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	testutil.SetupTestHome(t)

	cfg := NewConfig()
	id, err := cfg.AddServer(ServerConfig{
		Name:    "roundtrip",
		Command: "server-bin",
		Args:    []string{"--flag"},
		Env:     map[string]string{"KEY": "value"},

		RequestTimeoutSeconds: 60,
	})
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	srv, ok := loaded.Servers[id]
	if !ok {
		t.Fatalf("server %q missing after roundtrip", id)
	}
	if srv.Command != "server-bin" || srv.Env["KEY"] != "value" {
		t.Errorf("server fields lost in roundtrip: %+v", srv)
	}
	if srv.RequestTimeoutSeconds != 60 {
		t.Errorf("timeout lost in roundtrip: %d", srv.RequestTimeoutSeconds)
	}
	if loaded.LastModified.IsZero() {
		t.Error("expected LastModified to be set on save")
	}
}

func TestSaveTo_LeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := NewConfig()
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config not written: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestAddServer_DuplicateName(t *testing.T) {
	cfg := NewConfig()
	if _, err := cfg.AddServer(ServerConfig{Name: "dup", Command: "echo"}); err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	if _, err := cfg.AddServer(ServerConfig{Name: "dup", Command: "echo"}); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestAddServer_InfersKind(t *testing.T) {
	cfg := NewConfig()

	id1, err := cfg.AddServer(ServerConfig{Name: "p", Command: "echo"})
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	if cfg.Servers[id1].Kind != ServerKindProcess {
		t.Errorf("expected process kind inferred, got %q", cfg.Servers[id1].Kind)
	}

	id2, err := cfg.AddServer(ServerConfig{Name: "s", URL: "https://example.com/mcp"})
	if err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	if cfg.Servers[id2].Kind != ServerKindSocket {
		t.Errorf("expected socket kind inferred, got %q", cfg.Servers[id2].Kind)
	}
}

func TestDeleteServerByName(t *testing.T) {
	cfg := NewConfig()
	if _, err := cfg.AddServer(ServerConfig{Name: "gone", Command: "echo"}); err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	if err := cfg.DeleteServerByName("gone"); err != nil {
		t.Fatalf("DeleteServerByName: %v", err)
	}
	if len(cfg.Servers) != 0 {
		t.Error("server not deleted")
	}
	if err := cfg.DeleteServerByName("gone"); err == nil {
		t.Error("expected error deleting missing server")
	}
}

func TestGenerateID_Valid(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if err := ValidateID(id); err != nil {
			t.Fatalf("generated invalid id %q: %v", id, err)
		}
	}
}

func TestValidateID(t *testing.T) {
	if err := ValidateID("ab12"); err != nil {
		t.Errorf("expected 'ab12' valid: %v", err)
	}
	for _, bad := range []string{"", "abc", "abcde", "AB12", "a.b1"} {
		if err := ValidateID(bad); err == nil {
			t.Errorf("expected %q invalid", bad)
		}
	}
}

func TestServerConfig_IsEnabled(t *testing.T) {
	srv := ServerConfig{}
	if !srv.IsEnabled() {
		t.Error("nil Enabled must default to true")
	}
	off := false
	srv.Enabled = &off
	if srv.IsEnabled() {
		t.Error("expected disabled")
	}
}
