package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"relay/internal/app"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
)

var (
	toolsArgsJSON string
	toolsArgs     []string
)

// toolsCmd groups the tool inspection commands.
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List and call the tools of a server",
	Long: `Starts a private copy of the server, performs the MCP handshake, runs one
request and stops the server again. Servers run by 'relay serve' are not affected.`,
}

var toolsListCmd = &cobra.Command{
	Use:   "list <server-id>",
	Short: "List the tools a server offers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			var result *mcp.ListToolsResult
			err := withSpinner("Listing tools...", func() error {
				var listErr error
				result, listErr = services.Inspector.ListTools(ctx, args[0])
				return listErr
			})
			if err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			return printer.Tools(result.Tools)
		})
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <server-id> <tool>",
	Short: "Call a tool",
	Long: `Calls a tool with arguments given as a JSON object (--args) or as KEY=VALUE
pairs (--arg). VALUE is decoded as JSON when possible and used as a string otherwise.

Examples:
  relay tools call filesystem read_file --arg path=/etc/hosts
  relay tools call memory create_entities --args '{"entities": []}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolArgs, err := parseToolArgs(toolsArgsJSON, toolsArgs)
		if err != nil {
			return err
		}

		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			var result *mcp.CallToolResult
			err := withSpinner("Calling "+args[1]+"...", func() error {
				var callErr error
				result, callErr = services.Inspector.CallTool(ctx, args[0], args[1], toolArgs)
				return callErr
			})
			if err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			if err := printer.ToolResult(result); err != nil {
				return err
			}
			if result.IsError {
				return fmt.Errorf("tool %s reported an error", args[1])
			}
			return nil
		})
	},
}

// parseToolArgs merges the --args object with --arg pairs; pairs win.
func parseToolArgs(raw string, pairs []string) (map[string]any, error) {
	out := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
	}
	values, err := parseKeyValues(pairs)
	if err != nil {
		return nil, err
	}
	for key, value := range values {
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			out[key] = decoded
			continue
		}
		out[key] = value
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd, toolsCallCmd)

	toolsCallCmd.Flags().StringVar(&toolsArgsJSON, "args", "", "Tool arguments as a JSON object")
	toolsCallCmd.Flags().StringArrayVar(&toolsArgs, "arg", nil, "Tool argument KEY=VALUE (repeatable)")
}
