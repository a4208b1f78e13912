package media

import (
	"math"
	"unicode/utf8"
)

// DescriptionExcerptLimit caps the description carried on VideoInfo.
const DescriptionExcerptLimit = 200

// VideoRequest is the validated body of a /process call.
type VideoRequest struct {
	URL   string `json:"url"`
	Style string `json:"style,omitempty"`
}

// VideoInfo is what the info probe learned about a video. Read-only downstream.
type VideoInfo struct {
	Title              string `json:"title"`
	DurationSeconds    int64  `json:"duration"`
	Uploader           string `json:"uploader"`
	ViewCount          int64  `json:"view_count"`
	LikeCount          int64  `json:"like_count"`
	DescriptionExcerpt string `json:"description"`
}

// AudioFormat is the fixed output format of a deployment.
type AudioFormat struct {
	Codec      string `json:"format"`
	Bitrate    string `json:"bitrate"`
	SampleRate int    `json:"sample_rate"`
}

// DefaultAudioFormat matches what the extraction services historically produced.
var DefaultAudioFormat = AudioFormat{Codec: "mp3", Bitrate: "192k", SampleRate: 44100}

// AudioArtifact is the transcoded audio for a single session. Path never leaves the process.
type AudioArtifact struct {
	Path      string      `json:"-"`
	SizeBytes int64       `json:"size"`
	Format    AudioFormat `json:"format"`
	SessionID string      `json:"session_id"`
}

// Constraints are handed to a Fetcher along with the URL.
type Constraints struct {
	MaxFileSizeBytes int64
	Format           AudioFormat
}

// RawInfo mirrors the subset of the downloader's JSON dump we care about.
type RawInfo struct {
	Title       string   `json:"title"`
	Duration    *float64 `json:"duration"`
	Uploader    string   `json:"uploader"`
	ViewCount   *int64   `json:"view_count"`
	LikeCount   *int64   `json:"like_count"`
	Description *string  `json:"description"`
}

// NewVideoInfo normalises a raw dump: unknown names become "Unknown", negative or
// missing counters become zero, fractional durations round up. Durations past
// the int64 range saturate so they still fail any duration limit.
func NewVideoInfo(raw RawInfo) VideoInfo {
	info := VideoInfo{
		Title:    raw.Title,
		Uploader: raw.Uploader,
	}
	if info.Title == "" {
		info.Title = "Unknown"
	}
	if info.Uploader == "" {
		info.Uploader = "Unknown"
	}
	if raw.Duration != nil && *raw.Duration > 0 {
		if d := math.Ceil(*raw.Duration); d >= math.MaxInt64 {
			info.DurationSeconds = math.MaxInt64
		} else {
			info.DurationSeconds = int64(d)
		}
	}
	if raw.ViewCount != nil && *raw.ViewCount > 0 {
		info.ViewCount = *raw.ViewCount
	}
	if raw.LikeCount != nil && *raw.LikeCount > 0 {
		info.LikeCount = *raw.LikeCount
	}
	if raw.Description != nil {
		info.DescriptionExcerpt = Excerpt(*raw.Description, DescriptionExcerptLimit)
	}
	return info
}

// ValidDuration reports whether d is a duration a probe can sensibly report.
func ValidDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d < math.MaxInt64
}

// Excerpt returns at most limit runes of s.
func Excerpt(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
