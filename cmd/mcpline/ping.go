package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pingConfigPath string

var pingCmd = &cobra.Command{
	Use:   "ping <server>",
	Short: "Check that a server is reachable and responsive",
	Long: `Connect to a server, run the handshake, and send a ping.

Examples:
  mcpline ping my-server`,
	Args: cobra.ExactArgs(1),
	RunE: runPing,
}

func init() {
	pingCmd.Flags().StringVarP(&pingConfigPath, "config", "c", "", "Path to config file (default: ~/.config/mcpline/config.json)")

	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, stop, err := connectServer(ctx, pingConfigPath, args[0])
	if err != nil {
		return err
	}
	defer stop()

	start := time.Now()
	if err := c.Ping(ctx); err != nil {
		return err
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	info := c.ServerInfo()
	fmt.Printf("%s: ok in %s (protocol %s, server %s %s)\n",
		args[0], elapsed, c.NegotiatedVersion(), info.Name, info.Version)
	return nil
}
