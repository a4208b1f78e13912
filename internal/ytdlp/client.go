// Package ytdlp adapts the yt-dlp command line tool to the media.Prober and
// media.Fetcher capabilities.
package ytdlp

import (
	"bytes"
	"context"
	"fmt"

	"vidaudio/internal/execx"
	"vidaudio/internal/media"
)

// Mode selects how FetchAudio produces the audio file.
type Mode string

const (
	// ModeCombined lets yt-dlp select the best audio stream and run ffmpeg itself.
	ModeCombined Mode = "combined"
	// ModeTwoStep downloads the full media, then transcodes it with our own ffmpeg call.
	ModeTwoStep Mode = "two-step"
)

// Transcoder is the ffmpeg capability the two-step mode needs.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, format media.AudioFormat) error
}

// Client runs yt-dlp.
type Client struct {
	binaryPath     string
	ffmpegLocation string
	cookiesFile    string
	mode           Mode
	runner         execx.Runner
	transcoder     Transcoder
}

type Option func(*Client)

// WithBinary sets the yt-dlp executable.
func WithBinary(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.binaryPath = path
		}
	}
}

// WithFFmpegLocation is forwarded as --ffmpeg-location in combined mode.
func WithFFmpegLocation(path string) Option {
	return func(c *Client) { c.ffmpegLocation = path }
}

// WithCookiesFile is forwarded as --cookies on every invocation.
func WithCookiesFile(path string) Option {
	return func(c *Client) { c.cookiesFile = path }
}

func WithMode(mode Mode) Option {
	return func(c *Client) {
		if mode != "" {
			c.mode = mode
		}
	}
}

// WithRunner sets a custom command runner (for testing)
func WithRunner(runner execx.Runner) Option {
	return func(c *Client) { c.runner = runner }
}

// WithTranscoder sets the transcoder used by ModeTwoStep.
func WithTranscoder(t Transcoder) Option {
	return func(c *Client) { c.transcoder = t }
}

func New(opts ...Option) *Client {
	c := &Client{
		binaryPath: "yt-dlp",
		mode:       ModeCombined,
		runner:     execx.ExecRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode reports the configured fetch mode.
func (c *Client) Mode() Mode { return c.mode }

// Version returns `yt-dlp --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, c.binaryPath, "--version")
	if err != nil {
		return "", fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	return string(bytes.TrimSpace(out)), nil
}

func (c *Client) commonArgs() []string {
	args := []string{"--no-warnings", "--no-playlist"}
	if c.cookiesFile != "" {
		args = append(args, "--cookies", c.cookiesFile)
	}
	return args
}

var (
	_ media.Prober  = (*Client)(nil)
	_ media.Fetcher = (*Client)(nil)
)
