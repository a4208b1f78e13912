package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"vidaudio/internal/media"
)

const (
	audioBase = "audio"
	videoBase = "video"
)

var maxFilesizeRe = regexp.MustCompile(`larger than max-filesize \((\d+) bytes > (\d+) bytes\)`)

// FetchAudio produces <dir>/audio.<codec> for videoURL according to the client's mode.
func (c *Client) FetchAudio(ctx context.Context, dir media.Workdir, videoURL string, cons media.Constraints) (string, error) {
	format := cons.Format
	if format.Codec == "" {
		format = media.DefaultAudioFormat
	}
	switch c.mode {
	case ModeTwoStep:
		return c.fetchTwoStep(ctx, dir, videoURL, cons.MaxFileSizeBytes, format)
	default:
		return c.fetchCombined(ctx, dir, videoURL, cons.MaxFileSizeBytes, format)
	}
}

// CombinedArgs builds the single yt-dlp invocation that downloads the best audio
// stream and converts it through ffmpeg.
func (c *Client) CombinedArgs(outputTemplate, videoURL string, maxBytes int64, format media.AudioFormat) []string {
	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", format.Codec,
		"--audio-quality", strings.ToUpper(format.Bitrate),
	}
	if format.SampleRate > 0 {
		args = append(args, "--postprocessor-args", "ExtractAudio:-ar "+strconv.Itoa(format.SampleRate))
	}
	if c.ffmpegLocation != "" {
		args = append(args, "--ffmpeg-location", c.ffmpegLocation)
	}
	args = append(args, c.commonArgs()...)
	if maxBytes > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(maxBytes, 10))
	}
	return append(args, "-o", outputTemplate, videoURL)
}

// DownloadArgs builds the yt-dlp invocation that fetches the full media file.
func (c *Client) DownloadArgs(outputTemplate, videoURL string, maxBytes int64) []string {
	args := []string{"-f", "best[ext=mp4]/best"}
	args = append(args, c.commonArgs()...)
	if maxBytes > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(maxBytes, 10))
	}
	return append(args, "-o", outputTemplate, videoURL)
}

func (c *Client) fetchCombined(ctx context.Context, dir media.Workdir, videoURL string, maxBytes int64, format media.AudioFormat) (string, error) {
	output := dir.Path(audioBase + "." + format.Codec)
	template := filepath.Join(dir.Dir(), audioBase+".%(ext)s")

	stdout, err := c.runner.Run(ctx, c.binaryPath, c.CombinedArgs(template, videoURL, maxBytes, format)...)
	if err != nil {
		return "", media.RetrievalFailed("audio extraction failed", err)
	}
	if err := checkOutput(output, stdout); err != nil {
		return "", err
	}
	return output, nil
}

func (c *Client) fetchTwoStep(ctx context.Context, dir media.Workdir, videoURL string, maxBytes int64, format media.AudioFormat) (string, error) {
	if c.transcoder == nil {
		return "", media.RetrievalFailed("audio extraction failed", errors.New("no transcoder configured"))
	}
	template := filepath.Join(dir.Dir(), videoBase+".%(ext)s")
	stdout, err := c.runner.Run(ctx, c.binaryPath, c.DownloadArgs(template, videoURL, maxBytes)...)
	if err != nil {
		return "", media.RetrievalFailed("video download failed", err)
	}

	video, err := findDownloaded(dir.Dir(), videoBase)
	if err != nil {
		if sizeErr := maxFilesizeError(stdout); sizeErr != nil {
			return "", sizeErr
		}
		return "", media.RetrievalFailed("video download failed", err)
	}
	dir.Path(filepath.Base(video))

	output := dir.Path(audioBase + "." + format.Codec)
	if err := c.transcoder.Transcode(ctx, video, output, format); err != nil {
		return "", media.RetrievalFailed("audio extraction failed", err)
	}
	if err := checkOutput(output, nil); err != nil {
		return "", err
	}
	// The intermediate video is not needed past this point.
	if err := os.Remove(video); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", media.RetrievalFailed("audio extraction failed", fmt.Errorf("remove intermediate video: %w", err))
	}
	return output, nil
}

// checkOutput fails when the expected audio is missing or empty.
func checkOutput(path string, stdout []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		if sizeErr := maxFilesizeError(stdout); sizeErr != nil {
			return sizeErr
		}
		return media.RetrievalFailed("audio extraction produced no output", err)
	}
	if info.Size() == 0 {
		return media.RetrievalFailed("audio extraction produced an empty file", nil)
	}
	return nil
}

// maxFilesizeError recognises yt-dlp aborting a download over --max-filesize,
// which it reports on stdout with a zero exit status.
func maxFilesizeError(stdout []byte) error {
	m := maxFilesizeRe.FindSubmatch(stdout)
	if m == nil {
		return nil
	}
	measured, _ := strconv.ParseInt(string(m[1]), 10, 64)
	limit, _ := strconv.ParseInt(string(m[2]), 10, 64)
	return media.SizeExceeded(measured, limit)
}

// findDownloaded locates the file yt-dlp wrote for base, skipping partial downloads.
func findDownloaded(dir, base string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, base+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		return m, nil
	}
	return "", fmt.Errorf("no %s file produced", base)
}
