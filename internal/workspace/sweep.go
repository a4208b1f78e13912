package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SweepResult reports what a sweep removed and what it left behind.
type SweepResult struct {
	Cleaned   int `json:"cleaned"`
	Remaining int `json:"remaining"`
}

// Sweep removes prefixed entries under the root whose modification time is
// strictly older than maxAge. Entries without the prefix are never touched.
// Per-entry failures are counted as remaining and joined into the returned error.
func (m *Manager) Sweep(maxAge time.Duration) (SweepResult, error) {
	var res SweepResult
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return res, fmt.Errorf("read workspace root: %w", err)
	}

	now := m.now()
	var errs []error
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), m.prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			res.Remaining++
			errs = append(errs, err)
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			res.Remaining++
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.root, entry.Name())); err != nil {
			res.Remaining++
			errs = append(errs, err)
			continue
		}
		res.Cleaned++
	}

	if res.Cleaned > 0 {
		m.logger.Info("🧹 swept stale workspace entries", "cleaned", res.Cleaned, "remaining", res.Remaining)
	}
	return res, errors.Join(errs...)
}
