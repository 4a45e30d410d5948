package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"outpost/internal/config"
	"outpost/internal/store"
)

func newTrackerCommand(ctx *commandContext) *cobra.Command {
	trackerCmd := &cobra.Command{
		Use:   "tracker",
		Short: "Inspect and manage the sync ledger",
	}
	trackerCmd.AddCommand(newTrackerStatsCommand(ctx))
	trackerCmd.AddCommand(newTrackerResetCommand(ctx))
	return trackerCmd
}

func newTrackerStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger counts by table and status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				stats, err := st.SyncStats(cmd.Context())
				if err != nil {
					return err
				}
				events, media, err := st.UnsyncedCounts(cmd.Context())
				if err != nil {
					return err
				}

				if len(stats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Ledger is empty")
				} else {
					rows := make([][]string, 0, len(stats))
					for _, stat := range stats {
						rows = append(rows, []string{stat.TableName, string(stat.Status), strconv.FormatInt(int64(stat.Count), 10)})
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderTable(
						[]string{"Table", "Status", "Count"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignRight},
					))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Awaiting upload: %d event(s), %d media\n", events, media)
				return nil
			})
		},
	}
}

func newTrackerResetCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the entire sync ledger so everything resynchronizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("this deletes all sync history and resynchronizes everything; pass --force to confirm")
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				deleted, err := st.ResetTracking(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d ledger record(s); next sweep resynchronizes everything\n", deleted)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm the destructive reset")
	return cmd
}
