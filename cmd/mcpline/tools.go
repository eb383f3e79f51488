package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	toolsJSON       bool
	toolsConfigPath string
)

var toolsCmd = &cobra.Command{
	Use:   "tools <server>",
	Short: "List the tools a server advertises",
	Long: `Connect to a server and list the tools it advertises.

Examples:
  mcpline tools my-server
  mcpline tools my-server --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Output as JSON")
	toolsCmd.Flags().StringVarP(&toolsConfigPath, "config", "c", "", "Path to config file (default: ~/.config/mcpline/config.json)")

	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, stop, err := connectServer(ctx, toolsConfigPath, args[0])
	if err != nil {
		return err
	}
	defer stop()

	tools, err := c.ListTools(ctx)
	if err != nil {
		return err
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	if toolsJSON {
		out, err := json.MarshalIndent(tools, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(tools) == 0 {
		fmt.Println("Server advertises no tools.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, tool := range tools {
		fmt.Fprintf(w, "%s\t%s\n", tool.Name, tool.Description)
	}
	return w.Flush()
}
