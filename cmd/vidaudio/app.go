package main

import (
	"context"
	"log/slog"

	"vidaudio/internal/api"
	"vidaudio/internal/config"
	"vidaudio/internal/ffmpeg"
	"vidaudio/internal/logging"
	"vidaudio/internal/media"
	"vidaudio/internal/pipeline"
	"vidaudio/internal/sessions"
	"vidaudio/internal/workspace"
	"vidaudio/internal/ytdlp"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg       *config.Config
	ytdlp     *ytdlp.Client
	ffmpeg    *ffmpeg.Transcoder
	workspace *workspace.Manager
	ledger    sessions.Store
	service   *pipeline.Service
	deps      *pipeline.Dependencies
	closers   []func() error
}

func audioFormat(c *config.Config) media.AudioFormat {
	return media.AudioFormat{
		Codec:      media.DefaultAudioFormat.Codec,
		Bitrate:    c.Audio.Bitrate,
		SampleRate: c.Audio.SampleRate,
	}
}

// newTools builds the external tool adapters without touching disk or network.
func newTools(c *config.Config) (*ytdlp.Client, *ffmpeg.Transcoder) {
	transcoder := ffmpeg.New(ffmpeg.WithPath(c.Tools.FFmpegPath))
	client := ytdlp.New(
		ytdlp.WithBinary(c.Tools.YtdlpPath),
		ytdlp.WithFFmpegLocation(c.Tools.FFmpegLocation),
		ytdlp.WithCookiesFile(c.Tools.CookiesFile),
		ytdlp.WithMode(ytdlp.Mode(c.Audio.FetchMode)),
		ytdlp.WithTranscoder(transcoder),
	)
	return client, transcoder
}

func newWorkspace(c *config.Config, log *slog.Logger) (*workspace.Manager, error) {
	return workspace.NewManager(c.Server.TempDir, workspace.WithLogger(logging.WithComponent(log, "workspace")))
}

func buildApp(ctx context.Context, c *config.Config, log *slog.Logger) (*app, error) {
	client, transcoder := newTools(c)
	ws, err := newWorkspace(c, log)
	if err != nil {
		return nil, err
	}

	ledger, closeLedger := sessions.Open(ctx, sessions.RedisConfig{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TTL:      c.Redis.SessionTTL,
	}, logging.WithComponent(log, "sessions"))

	svc := pipeline.New(
		media.NewValidator(c.Limits.AllowedDomains),
		client, client, ws,
		pipeline.Limits{
			MaxDurationSeconds: c.Limits.MaxDurationSeconds,
			MaxFileSizeBytes:   c.MaxFileSizeBytes(),
			Format:             audioFormat(c),
		},
		pipeline.WithLedger(ledger),
		pipeline.WithLogger(logging.WithComponent(log, "pipeline")),
	)

	return &app{
		cfg:       c,
		ytdlp:     client,
		ffmpeg:    transcoder,
		workspace: ws,
		ledger:    ledger,
		service:   svc,
		deps:      pipeline.NewDependencies(client, transcoder),
		closers:   []func() error{closeLedger},
	}, nil
}

func (a *app) handler(log *slog.Logger) *api.Handler {
	return api.NewHandler(a.service, a.deps, api.Options{
		Version:        version,
		ResponseMode:   a.cfg.Audio.ResponseMode,
		Encoding:       a.cfg.Audio.Encoding,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RateLimitRPS:   a.cfg.RateLimit.RPS,
		RateLimitBurst: a.cfg.RateLimit.Burst,
		StaleMaxAge:    a.cfg.Cleanup.StaleMaxAge,
	}, logging.WithComponent(log, "http"))
}

// janitor sweeps the workspace and, for the in-memory ledger, prunes expired records.
func (a *app) janitor(log *slog.Logger) *workspace.Janitor {
	j := workspace.NewJanitor(a.workspace, a.cfg.Cleanup.SweepInterval, a.cfg.Cleanup.StaleMaxAge, logging.WithComponent(log, "janitor"))
	if mem, ok := a.ledger.(*sessions.MemoryStore); ok {
		j.AlsoPrune(mem)
	}
	return j
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}
