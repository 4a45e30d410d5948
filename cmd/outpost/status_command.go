package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"outpost/internal/config"
	"outpost/internal/daemon"
	"outpost/internal/store"
)

const (
	ansiReset = "\x1b[0m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and sync ledger status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if status, err := fetchDaemonStatus(cfg); err == nil {
				printDaemonStatus(cmd, status)
				return nil
			}

			// Daemon not reachable: answer from the store directly.
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				events, media, err := st.UnsyncedCounts(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderRunning(false))
				fmt.Fprintf(cmd.OutOrStdout(), "Device:          %s\n", cfg.Device.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Database:        %s\n", cfg.DatabasePath())
				fmt.Fprintf(cmd.OutOrStdout(), "Unsynced events: %d\n", events)
				fmt.Fprintf(cmd.OutOrStdout(), "Unsynced media:  %d\n", media)
				return nil
			})
		},
	}
}

func fetchDaemonStatus(cfg *config.Config) (*daemon.Status, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + cfg.Paths.APIBind + "/api/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon status returned HTTP %d", resp.StatusCode)
	}
	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func printDaemonStatus(cmd *cobra.Command, status *daemon.Status) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderRunning(status.Running))
	fmt.Fprintf(out, "Device:          %s\n", status.DeviceID)
	fmt.Fprintf(out, "Database:        %s\n", status.DatabasePath)
	fmt.Fprintf(out, "Queue depth:     %d\n", status.QueueDepth)
	fmt.Fprintf(out, "Unsynced events: %d\n", status.UnsyncedEvents)
	fmt.Fprintf(out, "Unsynced media:  %d\n", status.UnsyncedMedia)
	if status.LastSweepAt != nil {
		synced, failed := status.LastSweep.Total()
		fmt.Fprintf(out, "Last sweep:      %s (%d synced, %d failed)\n",
			status.LastSweepAt.Local().Format(time.RFC3339), synced, failed)
	}
	if len(status.SyncStats) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"Table", "Status", "Count"},
			statRows(status.SyncStats),
			[]columnAlignment{alignLeft, alignLeft, alignRight},
		))
	}
}

func statRows(stats []store.SyncStat) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, stat := range stats {
		rows = append(rows, []string{stat.TableName, string(stat.Status), strconv.FormatInt(int64(stat.Count), 10)})
	}
	return rows
}

func renderRunning(running bool) string {
	label := "Daemon:          stopped"
	color := ansiRed
	if running {
		label = "Daemon:          running"
		color = ansiGreen
	}
	if stdoutIsTerminal() {
		return color + label + ansiReset
	}
	return label
}
