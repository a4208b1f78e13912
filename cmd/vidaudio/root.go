package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"vidaudio/internal/config"
	"vidaudio/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vidaudio",
	Short: "Extract audio tracks from online videos over HTTP",
	Long: `vidaudio fetches a video with yt-dlp, extracts its audio with ffmpeg and
returns the audio together with the video's metadata.

Every request works inside its own temporary directory, which is removed
when the request finishes, whatever the outcome.

Example:
  vidaudio serve --config vidaudio.yaml
  vidaudio probe https://www.youtube.com/watch?v=dQw4w9WgXcQ`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (environment variables override it)")
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger = logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	return nil
}
