// Package api exposes the extraction pipeline over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"vidaudio/internal/logging"
	"vidaudio/internal/pipeline"
)

// HealthChecker reports on the external tools.
type HealthChecker interface {
	Check(ctx context.Context) pipeline.Health
}

// Options are the HTTP-facing settings.
type Options struct {
	Version        string
	ResponseMode   string // "binary" or "json"
	Encoding       string // "hex" or "base64"
	AllowedOrigins []string
	RateLimitRPS   float64 // 0 disables
	RateLimitBurst int
	StaleMaxAge    time.Duration
}

type Handler struct {
	svc     *pipeline.Service
	health  HealthChecker
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewHandler(svc *pipeline.Service, health HealthChecker, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ResponseMode == "" {
		opts.ResponseMode = shapeBinary
	}
	if opts.Encoding == "" {
		opts.Encoding = encodingHex
	}
	if opts.StaleMaxAge <= 0 {
		opts.StaleMaxAge = time.Hour
	}
	h := &Handler{svc: svc, health: health, opts: opts, logger: logger}
	if opts.RateLimitRPS > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), max(opts.RateLimitBurst, 1))
	}
	return h
}

// NewRouter wires routes and the middleware chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logging.RequestLogger(h.logger))
	r.Use(h.recoverer)
	r.Use(cors(h.opts.AllowedOrigins))

	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Get("/metrics", h.handleMetrics)
	r.Get("/sessions/{id}", h.handleSession)
	r.Post("/cleanup", h.handleCleanup)

	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/process", h.handleProcess)
		r.Post("/api/video/transcribe", h.handleProcess)
		r.Post("/info", h.handleInfo)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}
