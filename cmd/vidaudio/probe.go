package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"vidaudio/internal/media"
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Print a video's metadata without downloading it",
	Long: `Run the metadata probe for a single URL and print the result as JSON.

The allow-list applies as it does for the HTTP service. The duration limit is
reported but not enforced.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	client, _ := newTools(cfg)
	req, err := media.NewValidator(cfg.Limits.AllowedDomains).Validate(media.VideoRequest{URL: args[0]})
	if err != nil {
		return err
	}
	info, err := client.Probe(cmd.Context(), req.URL)
	if err != nil {
		return err
	}

	out := struct {
		media.VideoInfo
		WithinLimit bool `json:"within_duration_limit"`
	}{
		VideoInfo:   info,
		WithinLimit: info.DurationSeconds <= cfg.Limits.MaxDurationSeconds,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
