// Package pipeline runs one request through validate, probe, fetch and deliver
// inside a scoped workspace session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vidaudio/internal/media"
	"vidaudio/internal/sessions"
	"vidaudio/internal/workspace"
)

// Limits are the per-deployment policy knobs.
type Limits struct {
	MaxDurationSeconds int64
	MaxFileSizeBytes   int64
	Format             media.AudioFormat
}

// Outcome is what a successful run hands to the deliver callback. The artifact
// path is only valid until deliver returns.
type Outcome struct {
	SessionID string
	Info      media.VideoInfo
	Artifact  media.AudioArtifact
}

// DeliverFunc writes the outcome to the client. It runs inside the session
// scope; the artifact is deleted as soon as it returns.
type DeliverFunc func(ctx context.Context, out Outcome) error

type Service struct {
	validator *media.Validator
	prober    media.Prober
	fetcher   media.Fetcher
	workspace *workspace.Manager
	ledger    sessions.Store
	limits    Limits
	logger    *slog.Logger
	stats     Stats
}

type Option func(*Service)

func WithLedger(store sessions.Store) Option {
	return func(s *Service) { s.ledger = store }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(validator *media.Validator, prober media.Prober, fetcher media.Fetcher, ws *workspace.Manager, limits Limits, opts ...Option) *Service {
	if limits.Format.Codec == "" {
		limits.Format = media.DefaultAudioFormat
	}
	s := &Service{
		validator: validator,
		prober:    prober,
		fetcher:   fetcher,
		workspace: ws,
		limits:    limits,
		logger:    slog.Default(),
		stats:     Stats{startedAt: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Limits() Limits { return s.limits }

// Stats exposes the live counters.
func (s *Service) Stats() *Stats { return &s.stats }

// Workspace returns the manager backing the sessions.
func (s *Service) Workspace() *workspace.Manager { return s.workspace }

// Ledger returns the session store, nil when none is configured.
func (s *Service) Ledger() sessions.Store { return s.ledger }

// Info validates the request and probes metadata. No duration limit applies
// and nothing is written to disk.
func (s *Service) Info(ctx context.Context, req media.VideoRequest) (media.VideoInfo, error) {
	req, err := s.validator.Validate(req)
	if err != nil {
		return media.VideoInfo{}, err
	}
	return s.prober.Probe(ctx, req.URL)
}

// Process runs the full pipeline. Validation and the duration check happen
// before any session exists; everything after runs inside a session that is
// removed on every exit path, panics included.
func (s *Service) Process(ctx context.Context, req media.VideoRequest, deliver DeliverFunc) (err error) {
	s.stats.active.Add(1)
	defer s.stats.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			s.stats.failed.Add(1)
			panic(r)
		}
		if err != nil {
			s.stats.failed.Add(1)
		} else {
			s.stats.completed.Add(1)
		}
	}()

	req, err = s.validator.Validate(req)
	if err != nil {
		return err
	}

	info, err := s.prober.Probe(ctx, req.URL)
	if err != nil {
		s.logger.Warn("metadata probe failed", "url", req.URL, "error", err)
		return err
	}
	if limit := s.limits.MaxDurationSeconds; limit > 0 && info.DurationSeconds > limit {
		s.logger.Info("rejecting video over duration limit", "url", req.URL, "duration", info.DurationSeconds, "limit", limit)
		return media.DurationExceeded(info.DurationSeconds, limit)
	}

	return s.workspace.WithSession(ctx, func(ctx context.Context, sess *workspace.Session) (err error) {
		logger := s.logger.With("session_id", sess.ID())
		rec := sessions.Record{
			ID:        sess.ID(),
			URL:       req.URL,
			Style:     req.Style,
			Status:    sessions.StatusProcessing,
			Title:     info.Title,
			Duration:  info.DurationSeconds,
			CreatedAt: sess.CreatedAt(),
		}
		s.record(ctx, logger, rec)

		var size int64
		defer func() {
			if r := recover(); r != nil {
				s.finish(ctx, logger, rec, 0, media.InternalFault(fmt.Errorf("panic: %v", r)))
				panic(r)
			}
			s.finish(ctx, logger, rec, size, err)
		}()

		logger.Info("🎬 fetching audio", "url", req.URL, "title", info.Title, "duration", info.DurationSeconds)
		path, err := s.fetcher.FetchAudio(ctx, sess, req.URL, media.Constraints{
			MaxFileSizeBytes: s.limits.MaxFileSizeBytes,
			Format:           s.limits.Format,
		})
		if err != nil {
			return err
		}

		size, err = s.checkArtifact(path)
		if err != nil {
			return err
		}

		out := Outcome{
			SessionID: sess.ID(),
			Info:      info,
			Artifact: media.AudioArtifact{
				Path:      path,
				SizeBytes: size,
				Format:    s.limits.Format,
				SessionID: sess.ID(),
			},
		}
		return deliver(ctx, out)
	})
}

func (s *Service) checkArtifact(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, media.RetrievalFailed("audio extraction produced no output", err)
	}
	size := fi.Size()
	if size == 0 {
		return 0, media.RetrievalFailed("audio extraction produced an empty file", nil)
	}
	if limit := s.limits.MaxFileSizeBytes; limit > 0 && size > limit {
		return size, media.SizeExceeded(size, limit)
	}
	return size, nil
}

func (s *Service) finish(ctx context.Context, logger *slog.Logger, rec sessions.Record, size int64, err error) {
	rec.CompletedAt = time.Now()
	rec.SizeBytes = size
	if err == nil {
		rec.Status = sessions.StatusCompleted
		logger.Info("✅ session completed", "size", size)
	} else {
		e := media.AsError(err)
		rec.Status = sessions.StatusFailed
		rec.ErrorKind = string(e.Kind)
		rec.Error = e.Message
		if errors.Is(err, context.Canceled) {
			logger.Info("session cancelled by client")
		} else {
			logger.Error("❌ session failed", "kind", e.Kind, "error", err)
		}
	}
	s.record(ctx, logger, rec)
}

func (s *Service) record(ctx context.Context, logger *slog.Logger, rec sessions.Record) {
	if s.ledger == nil {
		return
	}
	// Ledger writes outlive a cancelled request so the failure stays visible.
	if err := s.ledger.Save(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("failed to record session", "error", err)
	}
}
