package workspace

import (
	"context"
	"log/slog"
	"time"
)

// Ticker is the subset of *time.Ticker the janitor needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// Pruner is anything holding expiring entries that the janitor should trim
// alongside the workspace, such as the in-memory session ledger.
type Pruner interface {
	Prune() int
}

// Janitor sweeps the workspace on an interval.
type Janitor struct {
	manager   *Manager
	interval  time.Duration
	maxAge    time.Duration
	logger    *slog.Logger
	pruners   []Pruner
	newTicker func(time.Duration) Ticker
}

func NewJanitor(m *Manager, interval, maxAge time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		manager:  m,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		newTicker: func(d time.Duration) Ticker {
			return timeTicker{t: time.NewTicker(d)}
		},
	}
}

// AlsoPrune registers p to run after every sweep.
func (j *Janitor) AlsoPrune(p Pruner) *Janitor {
	if p != nil {
		j.pruners = append(j.pruners, p)
	}
	return j
}

// Run blocks until ctx is done. A non-positive interval disables the janitor
// and Run returns immediately.
func (j *Janitor) Run(ctx context.Context) error {
	if j == nil || j.manager == nil || j.interval <= 0 {
		return nil
	}
	ticker := j.newTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("workspace janitor started", "interval", j.interval, "max_age", j.maxAge)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if _, err := j.manager.Sweep(j.maxAge); err != nil {
				j.logger.Error("workspace sweep failed", "error", err)
			}
			for _, p := range j.pruners {
				if n := p.Prune(); n > 0 {
					j.logger.Debug("pruned expired entries", "count", n)
				}
			}
		}
	}
}
