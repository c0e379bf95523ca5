package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"relay/internal/app"
	"relay/internal/exporter"

	"github.com/spf13/cobra"
)

var (
	importFrom   string
	importClaude bool
)

var serverImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import servers from an MCP client configuration",
	Long: `Creates a disabled server for every entry of the mcpServers object in a client
configuration file (--from, or - for stdin) or in the Claude Desktop
configuration (--claude).

A name that is already used in the profile gets a -2, -3 ... suffix. Entries
that cannot be imported are reported and do not stop the others.

Examples:
  relay server import --claude
  relay server import --from ~/.cursor/mcp.json --profile work`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (importFrom == "") == !importClaude {
			return errors.New("exactly one of --from or --claude is required")
		}
		if serverProfile == "all" {
			return errors.New("--profile all is not supported for import")
		}

		data, source, err := readImportSource(cmd)
		if err != nil {
			return err
		}
		doc, err := exporter.ParseDocument(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", source, err)
		}

		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			profile, err := resolveProfileFlag(ctx, services, serverProfile)
			if err != nil {
				return err
			}
			result, err := services.Manager.Import(ctx, doc, profile)
			if err != nil {
				return err
			}

			failed := make([]string, 0, len(result.Failed))
			for name := range result.Failed {
				failed = append(failed, name)
			}
			sort.Strings(failed)
			for _, name := range failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to import %s: %v\n", name, result.Failed[name])
			}

			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Imported %d servers from %s", len(result.Imported), source)
			for from, to := range result.Renamed {
				printer.Success("Renamed %s to %s", from, to)
			}
			if len(result.Imported) > 0 {
				if err := printer.Servers(result.Imported, nil); err != nil {
					return err
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d servers failed to import", len(failed), len(doc.MCPServers))
			}
			return nil
		})
	},
}

func readImportSource(cmd *cobra.Command) ([]byte, string, error) {
	switch {
	case importClaude:
		path, err := exporter.ClaudeDesktopConfigPath()
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read Claude Desktop configuration: %w", err)
		}
		return data, path, nil
	case importFrom == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, "stdin", nil
	default:
		data, err := os.ReadFile(importFrom)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", importFrom, err)
		}
		return data, importFrom, nil
	}
}

func init() {
	serverCmd.AddCommand(serverImportCmd)
	serverImportCmd.Flags().StringVar(&importFrom, "from", "", "Client configuration file to read, or - for stdin")
	serverImportCmd.Flags().BoolVar(&importClaude, "claude", false, "Read the Claude Desktop configuration")
	serverImportCmd.Flags().StringVar(&serverProfile, "profile", "", "Profile id (default: the active profile)")
}
