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
	resourcesJSON       bool
	resourcesConfigPath string
)

var resourcesCmd = &cobra.Command{
	Use:   "resources <server>",
	Short: "List the resources a server advertises",
	Long: `Connect to a server and list the resources it advertises. Requires a
server speaking a protocol version with resource support.

Examples:
  mcpline resources my-server`,
	Args: cobra.ExactArgs(1),
	RunE: runResources,
}

func init() {
	resourcesCmd.Flags().BoolVar(&resourcesJSON, "json", false, "Output as JSON")
	resourcesCmd.Flags().StringVarP(&resourcesConfigPath, "config", "c", "", "Path to config file (default: ~/.config/mcpline/config.json)")

	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, stop, err := connectServer(ctx, resourcesConfigPath, args[0])
	if err != nil {
		return err
	}
	defer stop()

	resources, err := c.ListResources(ctx)
	if err != nil {
		return err
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].URI < resources[j].URI })

	if resourcesJSON {
		out, err := json.MarshalIndent(resources, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(resources) == 0 {
		fmt.Println("Server advertises no resources.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "URI\tNAME\tTYPE")
	for _, r := range resources {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.URI, r.Name, r.MimeType)
	}
	return w.Flush()
}
