package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// envReader overlays environment values, remembering every parse failure.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	e := &envReader{lookup: lookup}

	e.strVar("PORT", &cfg.Server.Port)
	e.strVar("TEMP_DIR", &cfg.Server.TempDir)
	e.durationVar("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	e.listVar("ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)

	e.int64Var("MAX_DURATION_SECONDS", &cfg.Limits.MaxDurationSeconds)
	e.int64Var("MAX_FILE_SIZE_MB", &cfg.Limits.MaxFileSizeMB)
	e.listVar("ALLOWED_DOMAINS", &cfg.Limits.AllowedDomains)

	e.strVar("AUDIO_BITRATE", &cfg.Audio.Bitrate)
	e.intVar("AUDIO_SAMPLE_RATE", &cfg.Audio.SampleRate)
	e.strVar("FETCH_MODE", &cfg.Audio.FetchMode)
	e.strVar("RESPONSE_MODE", &cfg.Audio.ResponseMode)
	e.strVar("AUDIO_ENCODING", &cfg.Audio.Encoding)

	e.durationVar("STALE_MAX_AGE", &cfg.Cleanup.StaleMaxAge)
	e.durationVar("SWEEP_INTERVAL", &cfg.Cleanup.SweepInterval)

	e.strVar("YTDLP_PATH", &cfg.Tools.YtdlpPath)
	e.strVar("FFMPEG_PATH", &cfg.Tools.FFmpegPath)
	e.strVar("FFMPEG_LOCATION", &cfg.Tools.FFmpegLocation)
	e.strVar("COOKIES_FILE", &cfg.Tools.CookiesFile)

	e.strVar("REDIS_ADDR", &cfg.Redis.Addr)
	e.strVar("REDIS_PASSWORD", &cfg.Redis.Password)
	e.intVar("REDIS_DB", &cfg.Redis.DB)
	e.durationVar("SESSION_TTL", &cfg.Redis.SessionTTL)

	e.floatVar("RATE_LIMIT_RPS", &cfg.RateLimit.RPS)
	e.intVar("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	e.strVar("LOG_LEVEL", &cfg.Log.Level)
	e.strVar("LOG_FORMAT", &cfg.Log.Format)

	if len(e.errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(e.errs...))
	}
	return nil
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (e *envReader) strVar(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) int64Var(key string, dst *int64) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) floatVar(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

// durationVar accepts Go durations ("90s") and bare integers as seconds.
func (e *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		*dst = time.Duration(n) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}

// listVar splits a comma separated value, dropping blanks.
func (e *envReader) listVar(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
