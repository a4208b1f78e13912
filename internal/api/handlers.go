package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vidaudio/internal/logging"
	"vidaudio/internal/media"
	"vidaudio/internal/pipeline"
	"vidaudio/internal/sessions"
)

// commitWriter notes whether anything reached the client, so a late failure
// is not answered with a second set of headers.
type commitWriter struct {
	http.ResponseWriter
	committed bool
}

func (c *commitWriter) WriteHeader(code int) {
	c.committed = true
	c.ResponseWriter.WriteHeader(code)
}

func (c *commitWriter) Write(p []byte) (int, error) {
	c.committed = true
	return c.ResponseWriter.Write(p)
}

func (c *commitWriter) Unwrap() http.ResponseWriter { return c.ResponseWriter }

// POST /process
func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context(), h.logger)

	req, err := media.DecodeRequest(http.MaxBytesReader(w, r.Body, media.MaxRequestBody))
	if err != nil {
		writeError(w, err)
		return
	}

	shape := chooseShape(r, h.opts.ResponseMode)
	cw := &commitWriter{ResponseWriter: w}
	err = h.svc.Process(r.Context(), req, func(_ context.Context, out pipeline.Outcome) error {
		if shape == shapeJSON {
			return writeAudioJSON(cw, out, h.opts.Encoding)
		}
		return writeBinary(cw, out)
	})
	if err == nil {
		return
	}
	if cw.committed {
		logger.Warn("response interrupted after headers were sent", "error", err)
		return
	}
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// Client is gone; nobody is listening for an error body.
		return
	}
	writeError(w, err)
}

// POST /info
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	req, err := media.DecodeRequest(http.MaxBytesReader(w, r.Body, media.MaxRequestBody))
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := h.svc.Info(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"video_info": info,
	})
}

type healthBody struct {
	Status                string `json:"status"`
	DependenciesAvailable bool   `json:"dependenciesAvailable"`
	YtdlpVersion          string `json:"ytdlp_version,omitempty"`
	FFmpegVersion         string `json:"ffmpeg_version,omitempty"`
	Message               string `json:"message"`
}

// GET /health
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	res := h.health.Check(r.Context())
	body := healthBody{
		Status:                "healthy",
		DependenciesAvailable: res.Available,
		YtdlpVersion:          res.YtdlpVersion,
		FFmpegVersion:         res.FFmpegVersion,
		Message:               res.Message,
	}
	status := http.StatusOK
	if !res.Available {
		body.Status = "unhealthy"
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, body)
}

// GET /
func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	limits := h.svc.Limits()
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "vidaudio",
		"version": h.opts.Version,
		"endpoints": map[string]string{
			"health":   "GET /health",
			"process":  "POST /process",
			"info":     "POST /info",
			"cleanup":  "POST /cleanup",
			"sessions": "GET /sessions/{id}",
			"metrics":  "GET /metrics",
		},
		"limits": map[string]any{
			"max_duration_seconds": limits.MaxDurationSeconds,
			"max_file_size_bytes":  limits.MaxFileSizeBytes,
		},
	})
}

// POST /cleanup
func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Workspace().Sweep(h.opts.StaleMaxAge)
	if err != nil {
		logging.WithContext(r.Context(), h.logger).Warn("cleanup left entries behind", "error", err)
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /sessions/{id}
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ledger := h.svc.Ledger()
	if ledger == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: sessions.ErrNotFound.Error()})
		return
	}
	rec, err := ledger.Get(r.Context(), id)
	if errors.Is(err, sessions.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: sessions.ErrNotFound.Error()})
		return
	}
	if err != nil {
		logging.WithContext(r.Context(), h.logger).Error("session lookup failed", "session_id", id, "error", err)
		writeError(w, media.InternalFault(err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /metrics
func (h *Handler) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats().Snapshot())
}
