package cmd

import (
	"errors"
	"os"

	"relay/internal/api"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
// These follow common conventions so scripts can tell failures apart.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeNotFound indicates an unknown server or profile.
	ExitCodeNotFound = 2
	// ExitCodeServerFailed indicates the server could not be started or did
	// not answer the protocol in time.
	ExitCodeServerFailed = 3
)

// Global flags shared by every subcommand.
var (
	rootConfigPath string
	rootDebug      bool
	rootOutput     string
	rootQuiet      bool
)

// rootCmd represents the base command for the relay application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Supervise local MCP servers and inspect their tools",
	Long: `relay keeps the Model Context Protocol servers on your machine in one place.

It stores server definitions grouped into profiles, starts the servers of the
active profile, injects their secrets from a local vault and lets you list and
call their tools from the terminal. The export command writes the definitions
into the configuration of desktop MCP clients.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	// This is useful for providing cleaner error output to the user.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
// This can be used by other commands to access the build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "relay version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if api.IsNotFound(err) {
		return ExitCodeNotFound
	}

	var streamErr *api.StreamError
	if api.IsSpawnError(err) || api.IsTimeout(err) || api.IsProtocolError(err) || errors.As(err, &streamErr) {
		return ExitCodeServerFailed
	}

	return ExitCodeError
}

// init is a special Go function that is executed when the package is initialized.
// It is used here to add subcommands and global flags to the root command.
func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", "", "Configuration directory (default $HOME/.config/relay)")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&rootOutput, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "Suppress non-essential output")
}
