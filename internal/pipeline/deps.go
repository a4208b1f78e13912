package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// VersionReporter is implemented by the yt-dlp and ffmpeg adapters.
type VersionReporter interface {
	Version(ctx context.Context) (string, error)
}

// Health is the result of one dependency check.
type Health struct {
	Available     bool
	YtdlpVersion  string
	FFmpegVersion string
	Message       string
}

// Dependencies verifies the external tools.
type Dependencies struct {
	ytdlp  VersionReporter
	ffmpeg VersionReporter

	once sync.Once
	err  error
}

func NewDependencies(ytdlp, ffmpeg VersionReporter) *Dependencies {
	return &Dependencies{ytdlp: ytdlp, ffmpeg: ffmpeg}
}

// EnsureDependencies verifies both tools once per process. Later calls return
// the first result without re-running the tools.
func (d *Dependencies) EnsureDependencies(ctx context.Context) error {
	d.once.Do(func() {
		h := d.Check(ctx)
		if !h.Available {
			d.err = fmt.Errorf("dependencies unavailable: %s", h.Message)
		}
	})
	return d.err
}

// Check queries both tools concurrently on every call. It holds no state.
func (d *Dependencies) Check(ctx context.Context) Health {
	var (
		h   Health
		g   errgroup.Group
		ytE error
		ffE error
	)
	// A plain Group: one tool failing must not cancel the other's probe.
	g.Go(func() error {
		h.YtdlpVersion, ytE = d.ytdlp.Version(ctx)
		return ytE
	})
	g.Go(func() error {
		h.FFmpegVersion, ffE = d.ffmpeg.Version(ctx)
		return ffE
	})
	_ = g.Wait()

	switch {
	case ytE != nil && ffE != nil:
		h.Message = "yt-dlp and ffmpeg are not available"
	case ytE != nil:
		h.Message = "yt-dlp is not available"
	case ffE != nil:
		h.Message = "ffmpeg is not available"
	default:
		h.Available = true
		h.Message = "all dependencies available"
	}
	return h
}
