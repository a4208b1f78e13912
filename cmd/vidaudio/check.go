package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vidaudio/internal/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that yt-dlp and ffmpeg can be run",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	client, transcoder := newTools(cfg)
	h := pipeline.NewDependencies(client, transcoder).Check(cmd.Context())

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "yt-dlp\t%s\t%s\n", cfg.Tools.YtdlpPath, orMissing(h.YtdlpVersion))
	fmt.Fprintf(w, "ffmpeg\t%s\t%s\n", cfg.Tools.FFmpegPath, orMissing(h.FFmpegVersion))
	_ = w.Flush()

	if !h.Available {
		return errors.New(h.Message)
	}
	return nil
}

func orMissing(v string) string {
	if v == "" {
		return "missing"
	}
	return v
}
