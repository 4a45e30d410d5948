package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"outpost/internal/config"
	"outpost/internal/store"
	"outpost/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync sweep against the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				engine := syncer.NewEngine(cfg, st, nil, nil)
				summary, err := engine.SyncAll(cmd.Context())
				if err != nil {
					return err
				}
				printSummary(cmd, summary)
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Reset failed records and sweep again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				engine := syncer.NewEngine(cfg, st, nil, nil)
				resurrected, summary, err := engine.RetrySweep(cmd.Context())
				if err != nil {
					return err
				}
				if resurrected == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed records to retry")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %d failed record(s)\n", resurrected)
				printSummary(cmd, summary)
				return nil
			})
		},
	}
}

func printSummary(cmd *cobra.Command, summary syncer.Summary) {
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Table", "Synced", "Failed"},
		[][]string{
			{"events", fmt.Sprint(summary.Events.Synced), fmt.Sprint(summary.Events.Failed)},
			{"media", fmt.Sprint(summary.Media.Synced), fmt.Sprint(summary.Media.Failed)},
		},
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
}
