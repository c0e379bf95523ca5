package cmd

import (
	"context"
	"fmt"

	"relay/internal/api"
	"relay/internal/app"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage [server-id...]",
	Short: "Measure the context cost of server tool catalogs",
	Long: `Fetches the tool catalog of each server (all enabled servers of the active
profile when none are given) and reports the traffic it took: bytes in both
directions, message counts and an estimate of the tokens the catalog adds to a
model's context.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, services *app.Services) error {
			ids := args
			if len(ids) == 0 {
				active, err := services.Store.ActiveProfile(ctx)
				if err != nil {
					return err
				}
				defs, err := services.Store.ListEnabledServers(ctx, active)
				if err != nil {
					return err
				}
				for _, def := range defs {
					ids = append(ids, def.ID)
				}
			}

			var failed int
			snapshots := make([]api.UsageSnapshot, 0, len(ids))
			for _, id := range ids {
				err := withSpinner("Measuring "+id+"...", func() error {
					_, err := services.Inspector.ListTools(ctx, id)
					return err
				})
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, err)
					continue
				}
				if snapshot, ok := services.Meter.Snapshot(id); ok {
					snapshots = append(snapshots, snapshot)
				}
			}

			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			if err := printer.Usage(snapshots); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d servers could not be measured", failed, len(ids))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}
