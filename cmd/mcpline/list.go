package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hedworth/mcpline/internal/config"
)

var (
	listJSON       bool
	listConfigPath string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured servers",
	Long: `List all configured servers.

By default, outputs a human-readable table. Use --json for machine-readable output.

Examples:
  mcpline list
  mcpline list --json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().StringVarP(&listConfigPath, "config", "c", "", "Path to config file (default: ~/.config/mcpline/config.json)")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFrom(listConfigPath)
	if err != nil {
		return err
	}

	servers := cfg.ServerEntries()
	sort.Slice(servers, func(i, j int) bool {
		return servers[i].Name < servers[j].Name
	})

	if listJSON {
		return listOutputJSON(servers)
	}
	return listOutputTable(servers)
}

func listOutputJSON(servers []config.ServerConfig) error {
	type serverView struct {
		Name    string            `json:"name"`
		Kind    string            `json:"kind"`
		Command string            `json:"command,omitempty"`
		Args    []string          `json:"args,omitempty"`
		URL     string            `json:"url,omitempty"`
		Cwd     string            `json:"cwd,omitempty"`
		Env     map[string]string `json:"env,omitempty"`
		Enabled bool              `json:"enabled"`
	}

	views := make([]serverView, len(servers))
	for i, srv := range servers {
		views[i] = serverView{
			Name:    srv.Name,
			Kind:    string(srv.Kind),
			Command: srv.Command,
			Args:    srv.Args,
			URL:     srv.URL,
			Cwd:     srv.Cwd,
			Env:     srv.Env,
			Enabled: srv.IsEnabled(),
		}
	}

	out, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func listOutputTable(servers []config.ServerConfig) error {
	if len(servers) == 0 {
		fmt.Println("No servers configured. Add one with 'mcpline add'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tTARGET\tENABLED")
	for _, srv := range servers {
		target := srv.URL
		if srv.IsProcess() {
			target = strings.TrimSpace(srv.Command + " " + strings.Join(srv.Args, " "))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", srv.Name, srv.Kind, target, srv.IsEnabled())
	}
	return w.Flush()
}
