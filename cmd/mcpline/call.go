package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	callArgsJSON   string
	callConfigPath string
	callRawOutput  bool
)

var callCmd = &cobra.Command{
	Use:   "call <server> <tool>",
	Short: "Invoke a tool on a server",
	Long: `Connect to a server and invoke one of its tools.

Arguments are passed as a JSON object via --args.

Examples:
  mcpline call my-server echo --args '{"text":"hello"}'
  mcpline call my-server list_files`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVarP(&callArgsJSON, "args", "a", "", "Tool arguments as a JSON object")
	callCmd.Flags().StringVarP(&callConfigPath, "config", "c", "", "Path to config file (default: ~/.config/mcpline/config.json)")
	callCmd.Flags().BoolVar(&callRawOutput, "raw", false, "Print raw content blocks instead of extracted text")

	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	server, tool := args[0], args[1]

	var toolArgs json.RawMessage
	if callArgsJSON != "" {
		if !json.Valid([]byte(callArgsJSON)) {
			return fmt.Errorf("--args is not valid JSON")
		}
		toolArgs = json.RawMessage(callArgsJSON)
	}

	c, stop, err := connectServer(ctx, callConfigPath, server)
	if err != nil {
		return err
	}
	defer stop()

	result, err := c.CallTool(ctx, tool, toolArgs)
	if err != nil {
		return err
	}

	if callRawOutput {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		for _, block := range result.Content {
			var text struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}
			if err := json.Unmarshal(block, &text); err == nil && text.Type == "text" {
				fmt.Println(text.Text)
				continue
			}
			raw, _ := json.Marshal(block)
			fmt.Println(string(raw))
		}
	}

	if result.IsError {
		return fmt.Errorf("tool %s reported an error", tool)
	}
	return nil
}
