// Package pipelinetest provides in-process Prober and Fetcher doubles that
// behave like the yt-dlp adapter without running any external tool.
package pipelinetest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"vidaudio/internal/media"
)

// Prober returns canned metadata per URL.
type Prober struct {
	mu    sync.Mutex
	infos map[string]media.VideoInfo
	errs  map[string]error
	calls []string
}

func NewProber() *Prober {
	return &Prober{infos: map[string]media.VideoInfo{}, errs: map[string]error{}}
}

// Video registers metadata for url.
func (p *Prober) Video(url string, info media.VideoInfo) *Prober {
	p.mu.Lock()
	p.infos[url] = info
	p.mu.Unlock()
	return p
}

// Fail makes probing url return err.
func (p *Prober) Fail(url string, err error) *Prober {
	p.mu.Lock()
	p.errs[url] = err
	p.mu.Unlock()
	return p
}

func (p *Prober) Probe(ctx context.Context, url string) (media.VideoInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, url)
	if err := ctx.Err(); err != nil {
		return media.VideoInfo{}, media.ExtractionFailed("metadata extraction was cancelled", err)
	}
	if err, ok := p.errs[url]; ok {
		return media.VideoInfo{}, err
	}
	info, ok := p.infos[url]
	if !ok {
		return media.VideoInfo{}, media.ExtractionFailed("unsupported video URL", fmt.Errorf("no stub for %s", url))
	}
	return info, nil
}

func (p *Prober) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Fetcher writes Size bytes of filler audio into the session, or returns Err.
// Hook, when set, runs after the file is written and may fail the fetch.
type Fetcher struct {
	Size int64
	Err  error
	Hook func(dir media.Workdir) error

	mu    sync.Mutex
	calls int
	dirs  []string
}

func (f *Fetcher) FetchAudio(ctx context.Context, dir media.Workdir, _ string, c media.Constraints) (string, error) {
	f.mu.Lock()
	f.calls++
	f.dirs = append(f.dirs, dir.Dir())
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", media.RetrievalFailed("audio extraction failed", err)
	}
	if f.Err != nil {
		// Leave a partial download behind like a failed yt-dlp run would.
		_ = os.WriteFile(dir.Path("video.mp4.part"), []byte("partial"), 0o600)
		return "", f.Err
	}
	codec := c.Format.Codec
	if codec == "" {
		codec = media.DefaultAudioFormat.Codec
	}
	out := dir.Path("audio." + codec)
	if err := os.WriteFile(out, make([]byte, f.Size), 0o600); err != nil {
		return "", err
	}
	if f.Hook != nil {
		if err := f.Hook(dir); err != nil {
			return "", err
		}
	}
	return out, nil
}

func (f *Fetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Dirs returns the session directories the fetcher was handed.
func (f *Fetcher) Dirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dirs...)
}

var (
	_ media.Prober  = (*Prober)(nil)
	_ media.Fetcher = (*Fetcher)(nil)
)
