package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hedworth/mcpline/internal/config"
	"github.com/hedworth/mcpline/internal/conn"
	"github.com/hedworth/mcpline/internal/creds"
	"github.com/hedworth/mcpline/internal/events"
	"github.com/hedworth/mcpline/internal/manager"
)

var (
	serveConfigPath string
	serveQuiet      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run all enabled servers and keep them connected",
	Long: `Connect every enabled server and keep the connections alive, reloading
when the config file changes. Lifecycle events and server diagnostics are
printed to stdout until interrupted.

Examples:
  mcpline serve
  mcpline serve --quiet`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to config file (default: ~/.config/mcpline/config.json)")
	serveCmd.Flags().BoolVarP(&serveQuiet, "quiet", "q", false, "Only print connect errors")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfigFrom(serveConfigPath)
	if err != nil {
		return err
	}

	configPath := serveConfigPath
	if configPath == "" {
		configPath, err = config.ConfigPath()
		if err != nil {
			return err
		}
	}

	store, err := creds.NewStore()
	if err != nil {
		logger.Warn("token store unavailable", "error", err)
	}

	bus := events.NewBus()
	defer bus.Close()

	if serveQuiet {
		// Quiet still surfaces attempts that never came up.
		unsubscribe := bus.SubscribeType(printEvent, events.EventConnectError)
		defer unsubscribe()
	} else {
		unsubscribe := bus.Subscribe(printEvent)
		defer unsubscribe()
	}

	m := manager.New(cfg, manager.Options{
		ConfigPath: configPath,
		TokenStore: store,
		Bus:        bus,
		Logger:     logger,
		ClientInfo: conn.ClientInfo{Name: "mcpline", Version: version},
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := m.ConnectAll(ctx); err != nil {
		logger.Warn("some servers failed to connect", "error", err)
	}
	defer m.StopAll()

	fmt.Printf("Serving %d configured servers; press Ctrl-C to stop\n", len(cfg.Servers))
	m.Run(ctx)
	return nil
}

func printEvent(e events.Event) {
	ts := e.Timestamp.Format("15:04:05")
	switch e.Type {
	case events.EventStateChanged:
		fmt.Printf("%s [%s] %s -> %s\n", ts, e.Server, e.OldState, e.NewState)
	case events.EventNotification:
		fmt.Printf("%s [%s] notification %s\n", ts, e.Server, e.Method)
	case events.EventDiagnostic:
		fmt.Printf("%s [%s] stderr: %s\n", ts, e.Server, e.Line)
	case events.EventConnectError:
		fmt.Printf("%s [%s] connect error: %v\n", ts, e.Server, e.Err)
	}
}
