package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"vidaudio/internal/logging"
	"vidaudio/internal/media"
)

const requestIDHeader = "X-Request-Id"

// requestID propagates or assigns X-Request-Id and stores it for logging.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// recoverer turns a panic into an InternalFault response. Workspace cleanup
// has already run by the time the panic reaches here. A panic after the
// response started is only logged.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := &commitWriter{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.WithContext(r.Context(), h.logger).Error("panic serving request",
				"panic", fmt.Sprint(rec), "committed", cw.committed, "stack", string(debug.Stack()))
			if !cw.committed {
				writeError(w, media.InternalFault(fmt.Errorf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(cw, r)
	})
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			writeError(w, media.RateLimited())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cors allows every origin when the list holds "*", otherwise only listed ones.
func cors(allowed []string) func(http.Handler) http.Handler {
	origins := map[string]struct{}{}
	for _, o := range allowed {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = struct{}{}
		}
	}
	_, allowAll := origins["*"]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else if _, ok := origins[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				} else {
					writeJSON(w, http.StatusForbidden, errorBody{Error: "CORS origin denied"})
					return
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, X-Request-Id")
			w.Header().Set("Access-Control-Expose-Headers", exposedHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
