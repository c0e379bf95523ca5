package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"relay/internal/app"
	"relay/internal/formatting"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// openApplication bootstraps the services for a one-shot command. Logging
// is discarded unless --debug is set so it does not mix with the output.
func openApplication(cmd *cobra.Command) (*app.Application, error) {
	cfg := app.NewConfig(rootDebug, !rootDebug, rootConfigPath)
	application, err := app.NewApplication(commandContext(cmd), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

// withServices runs fn with bootstrapped services and closes them afterwards.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, services *app.Services) error) error {
	application, err := openApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()
	return fn(commandContext(cmd), application.Services())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newPrinter creates a printer honouring --output and --quiet.
func newPrinter(cmd *cobra.Command) (*formatting.Printer, error) {
	format, err := formatting.ParseOutputFormat(rootOutput)
	if err != nil {
		return nil, err
	}
	return formatting.NewPrinter(cmd.OutOrStdout(), formatting.Options{
		Format: format,
		Quiet:  rootQuiet,
	}), nil
}

// withSpinner runs fn while a spinner is shown on stderr. The spinner is
// skipped for quiet and structured output.
func withSpinner(suffix string, fn func() error) error {
	if rootQuiet || rootOutput != string(formatting.FormatTable) {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	err := fn()
	if err != nil {
		s.FinalMSG = text.FgRed.Sprint("❌ "+strings.TrimSuffix(suffix, "...")+" failed") + "\n"
	}
	s.Stop()
	return err
}

// parseKeyValues parses KEY=VALUE pairs.
func parseKeyValues(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid value %q, expected KEY=VALUE", pair)
		}
		out[key] = value
	}
	return out, nil
}
