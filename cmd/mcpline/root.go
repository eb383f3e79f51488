package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hedworth/mcpline/internal/config"
)

// Version information (set at build time via ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

var rootDebug bool

var rootCmd = &cobra.Command{
	Use:   "mcpline",
	Short: "Client for line-framed JSON-RPC servers",
	Long: `mcpline connects to MCP servers over child-process pipes or HTTP/SSE
sockets, negotiates a protocol version, and exposes their tools.

Use 'mcpline add' to register a server and 'mcpline tools' to inspect it.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Suppress errors from being printed twice
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging to stderr")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger builds the process-wide logger. Debug output goes to stderr so
// it never corrupts command output on stdout.
func setupLogger() *slog.Logger {
	level := slog.LevelWarn
	if rootDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfigFrom loads the config at path, or the default location when
// path is empty.
func loadConfigFrom(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// saveConfigTo saves the config to path, or the default location when path
// is empty.
func saveConfigTo(cfg *config.Config, path string) error {
	if path != "" {
		return config.SaveTo(cfg, path)
	}
	return config.Save(cfg)
}
