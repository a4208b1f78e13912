package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vidaudio/internal/api"
	"vidaudio/internal/serverutil"
)

var skipDependencyCheck bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Run the HTTP service until SIGINT or SIGTERM.

yt-dlp and ffmpeg are verified once at startup; a sweep of stale session
directories left by a previous run happens before the listener opens.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&skipDependencyCheck, "skip-dependency-check", false, "start even if yt-dlp or ffmpeg cannot be run")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.deps.EnsureDependencies(ctx); err != nil {
		if !skipDependencyCheck {
			return fmt.Errorf("%w (use --skip-dependency-check to start anyway)", err)
		}
		logger.Warn("⚠️  starting without verified dependencies", "error", err)
	}

	if res, err := a.workspace.Sweep(cfg.Cleanup.StaleMaxAge); err != nil {
		logger.Warn("startup sweep incomplete", "cleaned", res.Cleaned, "remaining", res.Remaining, "error", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(a.handler(logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting vidaudio",
		"version", version,
		"addr", srv.Addr,
		"temp_dir", a.workspace.Root(),
		"fetch_mode", a.ytdlp.Mode(),
		"max_duration_seconds", cfg.Limits.MaxDurationSeconds,
		"allowed_domains", cfg.Limits.AllowedDomains,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serverutil.Run(gctx, serverutil.Config{
			Server:          srv,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			Logger:          logger,
		})
	})
	g.Go(func() error {
		return a.janitor(logger).Run(gctx)
	})
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
