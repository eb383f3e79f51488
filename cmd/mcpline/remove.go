package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hedworth/mcpline/internal/creds"
)

var removeConfigPath string

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a configured server",
	Long: `Remove a server from the configuration.

Any stored bearer token for the server is deleted as well.

Examples:
  mcpline remove my-server`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().StringVarP(&removeConfigPath, "config", "c", "", "Path to config file (default: ~/.config/mcpline/config.json)")

	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadConfigFrom(removeConfigPath)
	if err != nil {
		return err
	}

	if err := cfg.DeleteServerByName(name); err != nil {
		return err
	}
	if err := saveConfigTo(cfg, removeConfigPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	// Token cleanup is best effort; a missing store is not an error.
	if store, storeErr := creds.NewStore(); storeErr == nil {
		if delErr := store.Delete(name); delErr != nil {
			fmt.Printf("Warning: could not delete stored token: %v\n", delErr)
		}
	}

	fmt.Printf("Removed server %q\n", name)
	return nil
}
