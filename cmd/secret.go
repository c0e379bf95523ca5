package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"relay/internal/app"
	"relay/internal/config"
	"relay/internal/mcpserver"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// secretCmd groups the secret vault commands.
var secretCmd = &cobra.Command{
	Use:     "secret",
	Aliases: []string{"secrets"},
	Short:   "Manage server secrets",
	Long: `Secrets are environment variables whose values live in the local vault
instead of the server definition. They are injected when the server starts.`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <server-id> <KEY> [value]",
	Short: "Store a secret value",
	Long: `Stores the value of KEY for a server and adds KEY to the server's secrets.
Without a value argument the value is read from the first line of stdin:

  echo "$GITHUB_TOKEN" | relay secret set github GITHUB_TOKEN`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		serverID, key := args[0], args[1]
		if err := config.ValidateEnvKey("key", key); err != nil {
			return err
		}

		var value string
		if len(args) == 3 {
			value = args[2]
		} else {
			line, err := readSecretLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			value = line
		}

		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			def, err := services.Manager.Get(ctx, serverID)
			if err != nil {
				return err
			}
			if err := services.Vault.Set(serverID, key, value); err != nil {
				return fmt.Errorf("failed to store secret %s: %w", key, err)
			}
			// Saving the definition even when KEY is already declared lets a
			// running serve restart the server with the new value.
			keys := slices.Clone(def.Secrets)
			if !slices.Contains(keys, key) {
				keys = append(keys, key)
			}
			if _, err := services.Manager.Update(ctx, serverID, mcpserver.ServerUpdate{Secrets: &keys}); err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Stored secret %s for server %s", key, serverID)
			return nil
		})
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:     "delete <server-id> <KEY>",
	Aliases: []string{"rm"},
	Short:   "Delete a secret value",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		serverID, key := args[0], args[1]
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			def, err := services.Manager.Get(ctx, serverID)
			if err != nil {
				return err
			}
			if err := services.Vault.Delete(serverID, key); err != nil {
				return fmt.Errorf("failed to delete secret %s: %w", key, err)
			}
			if slices.Contains(def.Secrets, key) {
				keys := slices.DeleteFunc(slices.Clone(def.Secrets), func(k string) bool { return k == key })
				if _, err := services.Manager.Update(ctx, serverID, mcpserver.ServerUpdate{Secrets: &keys}); err != nil {
					return err
				}
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Deleted secret %s of server %s", key, serverID)
			return nil
		})
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list <server-id>",
	Short: "List the secrets of a server and whether they have a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			def, err := services.Manager.Get(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(def.Secrets) == 0 && !rootQuiet {
				fmt.Fprintln(out, text.FgYellow.Sprint("No secrets declared"))
			}
			for _, key := range def.Secrets {
				_, ok, err := services.Vault.Get(def.ID, key)
				if err != nil {
					return fmt.Errorf("failed to read secret %s: %w", key, err)
				}
				status := text.FgGreen.Sprint("stored")
				if !ok {
					status = text.FgRed.Sprint("missing")
				}
				fmt.Fprintf(out, "%s\t%s\n", key, status)
			}
			return nil
		})
	},
}

// readSecretLine reads the first line of r without its line ending.
func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read secret from stdin: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no secret value given")
	}
	return line, nil
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd, secretListCmd)
}
