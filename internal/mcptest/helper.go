// Package mcptest provides test infrastructure for exercising the client
// against scripted servers, both as real subprocesses and in memory.
package mcptest

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/hedworth/mcpline/internal/mcptest/fakeserver"
)

// FakeServerConfig aliases fakeserver.Config for convenience.
type FakeServerConfig = fakeserver.Config

// Tool aliases fakeserver.Tool for convenience.
type Tool = fakeserver.Tool

// RPCError aliases fakeserver.RPCError for convenience.
type RPCError = fakeserver.RPCError

const (
	helperEnv    = "GO_WANT_HELPER_PROCESS"
	helperCfgEnv = "FAKE_SERVER_CFG"
)

// HelperCommand returns the argv and environment for spawning the current
// test binary as a fake server. Callers pass these to a process transport:
//
//	argv, env := mcptest.HelperCommand(t, cfg)
//
// The spawning package must define its own TestHelperProcess that calls
// RunHelperProcess.
func HelperCommand(t *testing.T, cfg FakeServerConfig) (command string, args []string, env map[string]string) {
	t.Helper()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal fake server config: %v", err)
	}
	return os.Args[0], []string{"-test.run=TestHelperProcess", "--"}, map[string]string{
		helperEnv:    "1",
		helperCfgEnv: string(cfgJSON),
	}
}

// RunHelperProcess implements the fake server when the test binary is
// re-executed as a subprocess. Packages using HelperCommand call this from
// their own TestHelperProcess:
//
//	func TestHelperProcess(t *testing.T) {
//	    mcptest.RunHelperProcess(t)
//	}
func RunHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	cfgJSON := os.Getenv(helperCfgEnv)
	if cfgJSON == "" {
		os.Exit(2)
	}

	var cfg fakeserver.Config
	if err := json.Unmarshal([]byte(cfgJSON), &cfg); err != nil {
		os.Exit(2)
	}

	if err := fakeserver.Serve(context.Background(), os.Stdin, os.Stdout, cfg); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
