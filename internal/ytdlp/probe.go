package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vidaudio/internal/execx"
	"vidaudio/internal/media"
)

// Probe dumps the video's metadata without downloading any media.
func (c *Client) Probe(ctx context.Context, videoURL string) (media.VideoInfo, error) {
	args := append([]string{"-J", "--skip-download"}, c.commonArgs()...)
	args = append(args, videoURL)

	out, err := c.runner.Run(ctx, c.binaryPath, args...)
	if err != nil {
		return media.VideoInfo{}, media.ExtractionFailed(describeFailure(err), err)
	}

	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return media.VideoInfo{}, media.ExtractionFailed("failed to fetch video metadata", errors.New("yt-dlp returned no metadata"))
	}
	var raw media.RawInfo
	if err := json.Unmarshal(out, &raw); err != nil {
		return media.VideoInfo{}, media.ExtractionFailed("failed to fetch video metadata", err)
	}
	if raw.Duration != nil && !media.ValidDuration(*raw.Duration) {
		return media.VideoInfo{}, media.ExtractionFailed("failed to fetch video metadata", fmt.Errorf("implausible duration %g", *raw.Duration))
	}
	return media.NewVideoInfo(raw), nil
}

// describeFailure turns yt-dlp's stderr into a client-safe message.
func describeFailure(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "metadata extraction was cancelled"
	}
	var cmdErr *execx.CommandError
	if !errors.As(err, &cmdErr) {
		return "failed to fetch video metadata"
	}
	msg := strings.ToLower(cmdErr.Stderr)
	switch {
	case strings.Contains(msg, "unsupported url"):
		return "unsupported video URL"
	case strings.Contains(msg, "private video"):
		return "video is private"
	case strings.Contains(msg, "video unavailable"), strings.Contains(msg, "has been removed"):
		return "video is unavailable or has been removed"
	case strings.Contains(msg, "sign in to confirm"):
		return "video requires sign-in"
	case strings.Contains(msg, "http error 403"):
		return "access forbidden by the video host"
	case cmdErr.ExitCode() == -1 && cmdErr.Stderr == "":
		return "metadata extractor is not available"
	default:
		return "failed to fetch video metadata"
	}
}
