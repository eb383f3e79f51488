package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hedworth/mcpline/internal/config"
)

var (
	addEnvFlags   []string
	addCwd        string
	addConfigPath string
	addURL        string
	addBearerEnv  string
	addTimeout    int
	addDisabled   bool
)

var addCmd = &cobra.Command{
	Use:   "add <name> [<url> | -- <command> [args...]]",
	Short: "Add a new server",
	Long: `Add a new server to the configuration.

For process servers, the command and arguments follow the -- separator.
For socket servers, provide the URL as a positional argument (or use --url).

Examples:
  # Process server
  mcpline add context7 -- npx -y @upstash/context7-mcp
  mcpline add my-server --env FOO=bar --env BAZ=qux -- ./server --flag

  # Socket server with bearer token from the environment
  mcpline add figma https://mcp.figma.com/mcp --bearer-env FIGMA_TOKEN`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringArrayVarP(&addEnvFlags, "env", "e", nil, "Environment variable (KEY=VALUE), can be repeated")
	addCmd.Flags().StringVar(&addCwd, "cwd", "", "Working directory for the server")
	addCmd.Flags().StringVarP(&addConfigPath, "config", "c", "", "Path to config file (default: ~/.config/mcpline/config.json)")
	addCmd.Flags().StringVar(&addURL, "url", "", "Server URL for socket transport")
	addCmd.Flags().StringVar(&addBearerEnv, "bearer-env", "", "Environment variable containing bearer token")
	addCmd.Flags().IntVar(&addTimeout, "timeout", 0, "Per-request timeout in seconds (0 = default)")
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false, "Add the server without enabling it")

	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if addURL != "" {
		return runAddSocket(cmd, args)
	}

	// URL as second positional arg, no -- separator
	dashIdx := cmd.ArgsLenAtDash()
	if dashIdx == -1 && len(args) >= 2 && isURL(args[1]) {
		addURL = args[1]
		return runAddSocket(cmd, args[:1])
	}

	return runAddProcess(cmd, args)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func runAddProcess(cmd *cobra.Command, args []string) error {
	dashIdx := cmd.ArgsLenAtDash()
	if dashIdx == -1 {
		return fmt.Errorf("missing -- separator\n\nUsage: mcpline add <name> -- <command> [args...]")
	}
	if dashIdx < 1 {
		return fmt.Errorf("missing server name\n\nUsage: mcpline add <name> -- <command> [args...]")
	}
	name := args[0]

	cmdArgs := args[dashIdx:]
	if len(cmdArgs) < 1 {
		return fmt.Errorf("missing command after --\n\nUsage: mcpline add <name> -- <command> [args...]")
	}

	env, err := parseEnvFlags(addEnvFlags)
	if err != nil {
		return err
	}

	cfg, err := loadConfigFrom(addConfigPath)
	if err != nil {
		return err
	}

	srv := config.ServerConfig{
		Name:    name,
		Kind:    config.ServerKindProcess,
		Command: cmdArgs[0],
		Args:    cmdArgs[1:],
		Cwd:     addCwd,
		Env:     env,

		RequestTimeoutSeconds: addTimeout,
	}
	if addDisabled {
		enabled := false
		srv.Enabled = &enabled
	}

	id, err := cfg.AddServer(srv)
	if err != nil {
		return err
	}
	if err := saveConfigTo(cfg, addConfigPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Added process server %q (id %s)\n", name, id)
	return nil
}

func runAddSocket(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("missing server name\n\nUsage: mcpline add <name> <url>")
	}
	name := args[0]

	cfg, err := loadConfigFrom(addConfigPath)
	if err != nil {
		return err
	}

	srv := config.ServerConfig{
		Name: name,
		Kind: config.ServerKindSocket,
		URL:  addURL,

		BearerTokenEnvVar:     addBearerEnv,
		RequestTimeoutSeconds: addTimeout,
	}
	if addDisabled {
		enabled := false
		srv.Enabled = &enabled
	}

	id, err := cfg.AddServer(srv)
	if err != nil {
		return err
	}
	if err := saveConfigTo(cfg, addConfigPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Added socket server %q (id %s)\n", name, id)
	return nil
}

// parseEnvFlags parses repeated KEY=VALUE flags into a map.
func parseEnvFlags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env value %q, expected KEY=VALUE", f)
		}
		env[key] = value
	}
	return env, nil
}
