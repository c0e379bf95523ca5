package cmd

import (
	"context"
	"errors"

	"relay/internal/app"
	"relay/internal/exporter"

	"github.com/spf13/cobra"
)

var (
	exportFormat         string
	exportProfile        string
	exportWrite          bool
	exportTarget         string
	exportIncludeSecrets bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export enabled servers as an MCP client configuration",
	Long: `Prints the enabled servers of a profile in the mcpServers format understood by
desktop MCP clients (json) or as a TOML table (toml).

With --write the servers replace the mcpServers section of the Claude Desktop
configuration (or --target); other settings in that file are kept.
Secret values are only included with --include-secrets.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := exporter.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		if exportWrite && format != exporter.FormatJSON {
			return errors.New("--write only supports the json format")
		}

		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			profile, err := resolveProfileFlag(ctx, services, exportProfile)
			if err != nil {
				return err
			}
			defs, err := services.Store.ListEnabledServers(ctx, profile)
			if err != nil {
				return err
			}
			if exportIncludeSecrets {
				for i, def := range defs {
					env, err := services.Injector.Resolve(def.ID, def.Secrets, def.Env)
					if err != nil {
						return err
					}
					defs[i].Env = env
				}
			}
			doc := exporter.Build(defs)

			if !exportWrite {
				data, err := exporter.Render(doc, format)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			target := exportTarget
			if target == "" {
				if target, err = exporter.ClaudeDesktopConfigPath(); err != nil {
					return err
				}
			}
			if err := exporter.WriteClaudeDesktop(target, doc); err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Wrote %d servers to %s", len(doc.MCPServers), target)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format (json, toml)")
	exportCmd.Flags().StringVar(&exportProfile, "profile", "", "Profile id, or all (default: the active profile)")
	exportCmd.Flags().BoolVar(&exportWrite, "write", false, "Write into the desktop client configuration")
	exportCmd.Flags().StringVar(&exportTarget, "target", "", "Configuration file written by --write")
	exportCmd.Flags().BoolVar(&exportIncludeSecrets, "include-secrets", false, "Include secret values from the vault (use with caution)")
}
