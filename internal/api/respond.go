package api

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"vidaudio/internal/media"
	"vidaudio/internal/pipeline"
)

const (
	shapeBinary = "binary"
	shapeJSON   = "json"

	encodingHex    = "hex"
	encodingBase64 = "base64"

	headerDuration  = "X-Video-Duration"
	headerTitle     = "X-Video-Title"
	headerUploader  = "X-Video-Uploader"
	headerSessionID = "X-Session-Id"
)

var exposedHeaders = strings.Join([]string{headerDuration, headerTitle, headerUploader, headerSessionID, "Content-Disposition", requestIDHeader}, ", ")

type errorBody struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Kind    media.Kind     `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type audioBody struct {
	Size       int64  `json:"size"`
	Format     string `json:"format"`
	Bitrate    string `json:"bitrate"`
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Data       string `json:"data"`
}

type processBody struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"session_id"`
	VideoInfo media.VideoInfo `json:"video_info"`
	Audio     audioBody       `json:"audio"`
}

// statusFor is the single mapping from error kind to HTTP status.
func statusFor(kind media.Kind) int {
	switch kind {
	case media.KindInvalidRequest, media.KindUnsupportedPlatform:
		return http.StatusBadRequest
	case media.KindDurationExceeded, media.KindSizeExceeded:
		return http.StatusRequestEntityTooLarge
	case media.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the error envelope. Only the client-safe message
// leaves the process; causes stay in the logs.
func writeError(w http.ResponseWriter, err error) {
	e := media.AsError(err)
	body := errorBody{Error: e.Message, Kind: e.Kind}
	switch e.Kind {
	case media.KindDurationExceeded:
		body.Details = map[string]any{"duration": e.Measured, "max_duration": e.Limit}
	case media.KindSizeExceeded:
		body.Details = map[string]any{"size": e.Measured, "max_size": e.Limit}
	}
	writeJSON(w, statusFor(e.Kind), body)
}

// chooseShape picks binary or JSON: ?format= wins, then Accept, then the default.
func chooseShape(r *http.Request, fallback string) string {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case shapeJSON:
		return shapeJSON
	case shapeBinary, "mp3", "audio":
		return shapeBinary
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch {
		case mt == "application/json":
			return shapeJSON
		case strings.HasPrefix(mt, "audio/"), mt == "application/octet-stream":
			return shapeBinary
		}
	}
	return fallback
}

func contentType(codec string) string {
	if codec == "mp3" || codec == "" {
		return "audio/mpeg"
	}
	if t := mime.TypeByExtension("." + codec); t != "" {
		return t
	}
	return "application/octet-stream"
}

// writeBinary streams the artifact with metadata in headers.
func writeBinary(w http.ResponseWriter, out pipeline.Outcome) error {
	f, err := os.Open(out.Artifact.Path)
	if err != nil {
		return media.RetrievalFailed("audio file is not readable", err)
	}
	defer f.Close()

	codec := out.Artifact.Format.Codec
	if codec == "" {
		codec = media.DefaultAudioFormat.Codec
	}
	h := w.Header()
	h.Set("Content-Type", contentType(codec))
	h.Set("Content-Length", strconv.FormatInt(out.Artifact.SizeBytes, 10))
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"audio_%s.%s\"", out.SessionID, codec))
	h.Set(headerDuration, strconv.FormatInt(out.Info.DurationSeconds, 10))
	h.Set(headerTitle, url.QueryEscape(out.Info.Title))
	h.Set(headerUploader, url.QueryEscape(out.Info.Uploader))
	h.Set(headerSessionID, out.SessionID)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("stream audio: %w", err)
	}
	return nil
}

// writeAudioJSON embeds the artifact bytes as hex or base64 text.
func writeAudioJSON(w http.ResponseWriter, out pipeline.Outcome, encoding string) error {
	data, err := os.ReadFile(out.Artifact.Path)
	if err != nil {
		return media.RetrievalFailed("audio file is not readable", err)
	}
	var encoded string
	if encoding == encodingBase64 {
		encoded = base64.StdEncoding.EncodeToString(data)
	} else {
		encoding = encodingHex
		encoded = hex.EncodeToString(data)
	}
	writeJSON(w, http.StatusOK, processBody{
		Success:   true,
		SessionID: out.SessionID,
		VideoInfo: out.Info,
		Audio: audioBody{
			Size:       out.Artifact.SizeBytes,
			Format:     out.Artifact.Format.Codec,
			Bitrate:    out.Artifact.Format.Bitrate,
			SampleRate: out.Artifact.Format.SampleRate,
			Encoding:   encoding,
			Data:       encoded,
		},
	})
	return nil
}
