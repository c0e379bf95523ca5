package cmd

import (
	"context"
	"fmt"

	"relay/internal/app"
	"relay/internal/store"

	"github.com/spf13/cobra"
)

// profileCmd groups the profile commands.
var profileCmd = &cobra.Command{
	Use:     "profile",
	Aliases: []string{"profiles"},
	Short:   "Manage profiles",
	Long: `Profiles group servers. Only the servers of the active profile are started
by 'relay serve'; switching profiles stops the old set before starting the new one.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			profiles, err := services.Store.ListProfiles(ctx)
			if err != nil {
				return err
			}
			active, err := services.Store.ActiveProfile(ctx)
			if err != nil {
				return err
			}
			defs, err := services.Store.ListServers(ctx, "")
			if err != nil {
				return err
			}
			counts := make(map[string]int)
			for _, def := range defs {
				counts[def.ProfileID]++
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			return printer.Profiles(profiles, active, counts)
		})
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			profile, err := store.CreateProfile(ctx, services.Store, args[0])
			if err != nil {
				return err
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Created profile %s (%s)", profile.Name, profile.ID)
			return nil
		})
	},
}

var profileActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Print the active profile id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			active, err := services.Store.ActiveProfile(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), active)
			return nil
		})
	},
}

var profileSwitchCmd = &cobra.Command{
	Use:   "switch <id>",
	Short: "Make a profile active",
	Long: `Persists the active profile. A running 'relay serve' stops the servers of the
previous profile and starts the enabled servers of this one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			profile, err := services.Store.GetProfile(ctx, args[0])
			if err != nil {
				return err
			}
			if err := services.Store.SetActiveProfile(ctx, profile.ID); err != nil {
				return fmt.Errorf("failed to persist active profile: %w", err)
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			printer.Success("Switched to profile %s", profile.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd, profileCreateCmd, profileActiveCmd, profileSwitchCmd)
}
