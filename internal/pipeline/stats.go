package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats counts sessions across the life of the process.
type Stats struct {
	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	startedAt time.Time
}

// Snapshot is a point-in-time copy of Stats, shaped for /metrics.
type Snapshot struct {
	Active        int64   `json:"active_sessions"`
	Completed     int64   `json:"completed_sessions"`
	Failed        int64   `json:"failed_sessions"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Active:        s.active.Load(),
		Completed:     s.completed.Load(),
		Failed:        s.failed.Load(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
}
