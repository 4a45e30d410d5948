package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"outpost/internal/capture"
	"outpost/internal/logging"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Camera utilities",
	}
	captureCmd.AddCommand(newCaptureTestCommand(ctx))
	return captureCmd
}

func newCaptureTestCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Record one clip through the configured backend chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			chain := capture.ChainFromConfig(cfg, logging.NewNop())
			data, err := chain.Capture(cmd.Context(), "capture-test")
			if err != nil {
				return fmt.Errorf("capture test: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Captured %d bytes (%s, %ds)\n",
				len(data),
				fmt.Sprintf("%dx%d", cfg.Capture.Width, cfg.Capture.Height),
				cfg.Capture.DurationSeconds)

			if outputPath != "" {
				if err := os.WriteFile(outputPath, data, 0o644); err != nil {
					return fmt.Errorf("write clip: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clip written to %s\n", outputPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the captured clip to a file")
	return cmd
}
