package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepMaxAge time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stale session directories from the temp root",
	Long: `Remove session directories older than the configured stale age.

Only entries carrying the service's prefix are considered, so the command is
safe to run against a shared temp directory and alongside a live server.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().DurationVar(&sweepMaxAge, "max-age", 0, "override STALE_MAX_AGE for this run")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ws, err := newWorkspace(cfg, logger)
	if err != nil {
		return err
	}
	maxAge := cfg.Cleanup.StaleMaxAge
	if sweepMaxAge > 0 {
		maxAge = sweepMaxAge
	}
	res, err := ws.Sweep(maxAge)
	if err != nil {
		logger.Warn("sweep left entries behind", "remaining", res.Remaining, "error", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleaned=%d remaining=%d\n", res.Cleaned, res.Remaining)
	return nil
}
