package cmd

import (
	"fmt"

	"relay/internal/app"

	"github.com/spf13/cobra"
)

// serveServerLogs prints every line supervised servers write.
var serveServerLogs bool

// serveCmd starts the supervisor for the active profile.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the enabled servers of the active profile",
	Long: `Starts every enabled server of the active profile and keeps them running
until relay is interrupted (Ctrl+C or SIGTERM).

While serving, relay watches the server and profile definitions in the
configuration directory. Adding, enabling, disabling or editing a server and
switching the active profile from another terminal take effect immediately:

  relay profile switch work      # stops the current servers, starts work's
  relay server restart github    # restarts one server

Configuration:
  relay loads config.yaml from $HOME/.config/relay unless --config-path is set.
  The directory contains:
  - config.yaml (main configuration)
  - servers/ (server definitions)
  - profiles/ (profile definitions)
  - settings/ (the active profile)
  - secrets.yaml (the secret vault, mode 0600)

On shutdown every server receives SIGTERM and is killed if it has not exited
within the configured grace period.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(rootDebug, false, rootConfigPath)
	cfg.Output = cmd.OutOrStdout()
	cfg.ServerLogs = serveServerLogs

	ctx := commandContext(cmd)
	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	return application.Run(ctx)
}

// init registers the serve command and its flags with the root command.
// This is called automatically when the package is imported.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveServerLogs, "server-logs", false, "Print the stdout and stderr lines of supervised servers")
}
