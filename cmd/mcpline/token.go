package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hedworth/mcpline/internal/creds"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage stored bearer tokens",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <server>",
	Short: "Store a bearer token for a server",
	Long: `Store a bearer token for a socket server. The token is read from stdin
so it never appears in shell history.

Examples:
  echo -n "$TOKEN" | mcpline token set my-server`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenSet,
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete <server>",
	Short: "Delete a server's stored bearer token",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenDelete,
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenDeleteCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read token from stdin: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return fmt.Errorf("empty token")
	}

	store, err := creds.NewStore()
	if err != nil {
		return fmt.Errorf("token store unavailable: %w", err)
	}
	if err := store.Set(args[0], token); err != nil {
		return err
	}
	fmt.Printf("Stored token for %q\n", args[0])
	return nil
}

func runTokenDelete(cmd *cobra.Command, args []string) error {
	store, err := creds.NewStore()
	if err != nil {
		return fmt.Errorf("token store unavailable: %w", err)
	}
	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted token for %q\n", args[0])
	return nil
}
