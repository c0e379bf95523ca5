package cmd

import (
	"context"
	"fmt"

	"relay/internal/api"
	"relay/internal/app"
	"relay/internal/mcpserver"

	"github.com/spf13/cobra"
)

var (
	serverProfile     string
	serverName        string
	serverDescription string
	serverCategory    string
	serverEnv         []string
	serverSecrets     []string
	serverEnable      bool
	serverClearArgs   bool
)

// serverCmd groups the commands managing server definitions.
var serverCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"servers"},
	Short:   "Manage MCP server definitions",
	Long: `Create, inspect, edit and remove the MCP servers relay supervises.

Changes are persisted in the configuration directory. A running 'relay serve'
picks them up and starts, stops or restarts the affected servers.`,
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List servers",
	Long:  `Lists the servers of a profile (--profile) or of every profile (--profile all).`,
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
			return printer.Servers(defs, nil)
		})
	},
}

var serverShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one server definition",
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
			return printer.Server(def, false)
		})
	},
}

var serverAddCmd = &cobra.Command{
	Use:   "add <name> <command> [-- args...]",
	Short: "Add a server",
	Long: `Adds a server definition. Arguments after -- are passed to the command.

Examples:
  relay server add Filesystem npx -- -y @modelcontextprotocol/server-filesystem ~/src
  relay server add GitHub npx --secret GITHUB_TOKEN --enable -- -y @modelcontextprotocol/server-github`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := parseKeyValues(serverEnv)
		if err != nil {
			return err
		}
		def := api.ServerDefinition{
			Name:        args[0],
			Command:     args[1],
			Args:        args[2:],
			Description: serverDescription,
			Category:    serverCategory,
			Env:         env,
			Secrets:     serverSecrets,
			ProfileID:   serverProfile,
		}

		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			created, err := services.Manager.Create(ctx, def)
			if err != nil {
				return err
			}
			if serverEnable {
				if created, err = services.Manager.SetEnabled(ctx, created.ID, true); err != nil {
					return err
				}
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Added server %s (%s)", created.Name, created.ID)
			return printer.Server(created, false)
		})
	},
}

var serverUpdateCmd = &cobra.Command{
	Use:   "update <id> [-- args...]",
	Short: "Edit a server",
	Long: `Edits the fields given as flags. Arguments after -- replace the command arguments;
--clear-args removes them. --env replaces the whole environment.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var upd mcpserver.ServerUpdate
		flags := cmd.Flags()
		if flags.Changed("name") {
			upd.Name = &serverName
		}
		if flags.Changed("description") {
			upd.Description = &serverDescription
		}
		if flags.Changed("category") {
			upd.Category = &serverCategory
		}
		if flags.Changed("command") {
			command, _ := flags.GetString("command")
			upd.Command = &command
		}
		if flags.Changed("profile") {
			upd.ProfileID = &serverProfile
		}
		if flags.Changed("secret") {
			upd.Secrets = &serverSecrets
		}
		if flags.Changed("env") {
			env, err := parseKeyValues(serverEnv)
			if err != nil {
				return err
			}
			upd.Env = env
		}
		if len(args) > 1 || serverClearArgs {
			newArgs := append([]string{}, args[1:]...)
			upd.Args = &newArgs
		}

		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			def, err := services.Manager.Update(ctx, args[0], upd)
			if err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Updated server %s", def.ID)
			return printer.Server(def, false)
		})
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a server and its secrets",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			if err := services.Manager.Delete(ctx, args[0]); err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Removed server %s", args[0])
			return nil
		})
	},
}

func newToggleCmd(use string, enabled bool) *cobra.Command {
	short := "Enable a server"
	if !enabled {
		short = "Disable a server"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, services *app.Services) error {
				def, err := services.Manager.SetEnabled(ctx, args[0], enabled)
				if err != nil {
					return err
				}
				printer, err := newPrinter(cmd)
				if err != nil {
					return err
				}
				printer.Success("Server %s %sd", def.ID, use)
				return nil
			})
		},
	}
}

var serverRestartCmd = &cobra.Command{
	Use:   "restart <id>",
	Short: "Restart a server run by relay serve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			def, err := services.Manager.RequestRestart(ctx, args[0])
			if err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Requested restart of server %s", def.ID)
			return nil
		})
	},
}

// resolveProfileFlag maps the --profile flag to a profile id: empty means
// the active profile and "all" means every profile.
func resolveProfileFlag(ctx context.Context, services *app.Services, flag string) (string, error) {
	switch flag {
	case "all":
		return "", nil
	case "":
		active, err := services.Store.ActiveProfile(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to read active profile: %w", err)
		}
		return active, nil
	default:
		if _, err := services.Store.GetProfile(ctx, flag); err != nil {
			return "", err
		}
		return flag, nil
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.AddCommand(serverListCmd, serverShowCmd, serverAddCmd, serverUpdateCmd, serverRemoveCmd,
		newToggleCmd("enable", true), newToggleCmd("disable", false), serverRestartCmd)

	serverListCmd.Flags().StringVar(&serverProfile, "profile", "", "Profile id, or all (default: the active profile)")

	for _, c := range []*cobra.Command{serverAddCmd, serverUpdateCmd} {
		c.Flags().StringVar(&serverProfile, "profile", "", "Profile id (default: the active profile)")
		c.Flags().StringVar(&serverDescription, "description", "", "Description")
		c.Flags().StringVar(&serverCategory, "category", "", "Category (default: other)")
		c.Flags().StringArrayVarP(&serverEnv, "env", "e", nil, "Environment variable KEY=VALUE (repeatable)")
		c.Flags().StringArrayVar(&serverSecrets, "secret", nil, "Name of a variable stored in the secret vault (repeatable)")
	}
	serverAddCmd.Flags().BoolVar(&serverEnable, "enable", false, "Enable the server right away")
	serverUpdateCmd.Flags().StringVar(&serverName, "name", "", "Display name")
	serverUpdateCmd.Flags().String("command", "", "Executable to run")
	serverUpdateCmd.Flags().BoolVar(&serverClearArgs, "clear-args", false, "Remove all command arguments")
}
