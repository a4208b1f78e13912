// Package serverutil runs an http.Server until its context is cancelled and
// then shuts it down gracefully.
package serverutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds graceful shutdown when the context is cancelled.
const DefaultShutdownTimeout = 10 * time.Second

type Config struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
	// Ready, when set, must be buffered; it receives the bound address once the
	// listener is open.
	Ready chan<- net.Addr
}

// Run listens on Server.Addr and blocks until the server stops. Cancelling
// ctx starts a shutdown bounded by ShutdownTimeout; in-flight requests see
// their contexts cancelled when the bound elapses.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Server == nil {
		return fmt.Errorf("server is required")
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	if cfg.Ready != nil {
		cfg.Ready <- ln.Addr()
		close(cfg.Ready)
	}
	logger.Info("🚀 server listening", "addr", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- cfg.Server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("🛑 graceful shutdown initiated", "timeout", timeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	shutdownErr := cfg.Server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		// Force-close so handlers blocked on subprocesses are released.
		_ = cfg.Server.Close()
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if shutdownErr == nil {
		logger.Info("✅ graceful shutdown completed")
	}
	return shutdownErr
}
