package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type fakeTool struct {
	version string
	err     error
	calls   atomic.Int32
}

func (f *fakeTool) Version(context.Context) (string, error) {
	f.calls.Add(1)
	return f.version, f.err
}

func TestDependenciesCheck(t *testing.T) {
	missing := errors.New("not found")
	tests := []struct {
		name      string
		ytdlp     *fakeTool
		ffmpeg    *fakeTool
		available bool
		message   string
	}{
		{"both present", &fakeTool{version: "2025.01.15"}, &fakeTool{version: "6.1.1"}, true, "all dependencies available"},
		{"ytdlp missing", &fakeTool{err: missing}, &fakeTool{version: "6.1.1"}, false, "yt-dlp is not available"},
		{"ffmpeg missing", &fakeTool{version: "2025.01.15"}, &fakeTool{err: missing}, false, "ffmpeg is not available"},
		{"both missing", &fakeTool{err: missing}, &fakeTool{err: missing}, false, "yt-dlp and ffmpeg are not available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDependencies(tt.ytdlp, tt.ffmpeg)
			h := d.Check(context.Background())
			if h.Available != tt.available || h.Message != tt.message {
				t.Fatalf("health = %+v", h)
			}
			if h.YtdlpVersion != tt.ytdlp.version || h.FFmpegVersion != tt.ffmpeg.version {
				t.Fatalf("versions = %q / %q", h.YtdlpVersion, h.FFmpegVersion)
			}
		})
	}
}

func TestCheckIsRepeatable(t *testing.T) {
	yt, ff := &fakeTool{version: "1"}, &fakeTool{version: "2"}
	d := NewDependencies(yt, ff)
	first := d.Check(context.Background())
	second := d.Check(context.Background())
	if first != second {
		t.Fatalf("check results differ: %+v vs %+v", first, second)
	}
	if yt.calls.Load() != 2 || ff.calls.Load() != 2 {
		t.Fatalf("expected a fresh probe per call, got %d/%d", yt.calls.Load(), ff.calls.Load())
	}
}

func TestEnsureDependenciesRunsOnce(t *testing.T) {
	yt, ff := &fakeTool{err: errors.New("missing")}, &fakeTool{version: "6.0"}
	d := NewDependencies(yt, ff)
	for i := 0; i < 3; i++ {
		if err := d.EnsureDependencies(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	}
	if yt.calls.Load() != 1 {
		t.Fatalf("yt-dlp probed %d times, want 1", yt.calls.Load())
	}
}
