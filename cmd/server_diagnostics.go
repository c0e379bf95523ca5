package cmd

import (
	"context"
	"errors"

	"relay/internal/app"
	"relay/internal/diagnostics"

	"github.com/spf13/cobra"
)

var serverTestCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Test that a server starts and answers the handshake",
	Long: `Starts the server privately, sends the initialize handshake and stops it again.
On failure relay prints the first stderr lines, missing binaries and hints.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			def, err := services.Manager.Get(ctx, args[0])
			if err != nil {
				return err
			}

			var result diagnostics.ConnectionTestResult
			_ = withSpinner("Testing "+def.DisplayName()+"...", func() error {
				result = services.Diagnostics.TestConnection(ctx, def)
				return nil
			})

			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			if err := printer.ConnectionTest(result); err != nil {
				return err
			}
			if !result.Success {
				return errors.New("connection test failed")
			}
			return nil
		})
	},
}

var serverDepsCmd = &cobra.Command{
	Use:   "deps <id>",
	Short: "Check that the binaries a server needs are installed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			def, err := services.Manager.Get(ctx, args[0])
			if err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			return printer.Dependencies(services.Diagnostics.CheckDependencies(def.Command, def.Args))
		})
	},
}

var serverConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Find servers that run the same command",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			profile, err := resolveProfileFlag(ctx, services, serverProfile)
			if err != nil {
				return err
			}
			defs, err := services.Manager.List(ctx, profile)
			if err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			return printer.Conflicts(diagnostics.DetectConflicts(defs))
		})
	},
}

func init() {
	serverCmd.AddCommand(serverTestCmd, serverDepsCmd, serverConflictsCmd)
	serverConflictsCmd.Flags().StringVar(&serverProfile, "profile", "", "Profile id, or all (default: the active profile)")
}
