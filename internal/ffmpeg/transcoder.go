// Package ffmpeg wraps the ffmpeg binary for audio extraction.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"vidaudio/internal/execx"
	"vidaudio/internal/media"
)

// Transcoder extracts an audio track from a media file using ffmpeg.
type Transcoder struct {
	ffmpegPath string
	runner     execx.Runner
}

// Option is a functional option for configuring Transcoder
type Option func(*Transcoder)

// WithPath sets a custom ffmpeg executable path
func WithPath(path string) Option {
	return func(t *Transcoder) {
		if path != "" {
			t.ffmpegPath = path
		}
	}
}

// WithRunner sets a custom command runner (for testing)
func WithRunner(runner execx.Runner) Option {
	return func(t *Transcoder) {
		t.runner = runner
	}
}

func New(opts ...Option) *Transcoder {
	t := &Transcoder{
		ffmpegPath: "ffmpeg",
		runner:     execx.ExecRunner{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Args builds the ffmpeg argument list for extracting audio from inputPath.
func Args(inputPath, outputPath string, format media.AudioFormat) []string {
	args := []string{
		"-y",
		"-nostdin",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", format.Bitrate,
	}
	if format.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(format.SampleRate))
	}
	return append(args, outputPath)
}

// Transcode writes the audio track of inputPath to outputPath in the given format.
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string, format media.AudioFormat) error {
	if _, err := t.runner.Run(ctx, t.ffmpegPath, Args(inputPath, outputPath, format)...); err != nil {
		return fmt.Errorf("ffmpeg audio extraction failed: %w", err)
	}
	return nil
}

// Version returns the first line of `ffmpeg -version`.
func (t *Transcoder) Version(ctx context.Context) (string, error) {
	out, err := t.runner.Run(ctx, t.ffmpegPath, "-version")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	line, _, _ := bytes.Cut(bytes.TrimSpace(out), []byte("\n"))
	return parseVersion(string(line)), nil
}

// parseVersion pulls "6.1.1" out of "ffmpeg version 6.1.1-3ubuntu5 Copyright ...".
func parseVersion(line string) string {
	fields := strings.Fields(line)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			v, _, _ := strings.Cut(fields[i+1], "-")
			return v
		}
	}
	return line
}
