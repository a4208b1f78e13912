// Package config loads service settings from built-in defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is loaded once at startup and not mutated afterwards.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Limits    LimitsConfig    `yaml:"limits"`
	Audio     AudioConfig     `yaml:"audio"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Tools     ToolsConfig     `yaml:"tools"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	TempDir         string        `yaml:"temp_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LimitsConfig struct {
	MaxDurationSeconds int64    `yaml:"max_duration_seconds"`
	MaxFileSizeMB      int64    `yaml:"max_file_size_mb"`
	AllowedDomains     []string `yaml:"allowed_domains"`
}

type AudioConfig struct {
	Bitrate      string `yaml:"bitrate"`
	SampleRate   int    `yaml:"sample_rate"`
	FetchMode    string `yaml:"fetch_mode"`
	ResponseMode string `yaml:"response_mode"`
	Encoding     string `yaml:"encoding"`
}

type CleanupConfig struct {
	StaleMaxAge   time.Duration `yaml:"stale_max_age"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type ToolsConfig struct {
	YtdlpPath      string `yaml:"ytdlp_path"`
	FFmpegPath     string `yaml:"ffmpeg_path"`
	FFmpegLocation string `yaml:"ffmpeg_location"`
	CookiesFile    string `yaml:"cookies_file"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	FetchModeCombined = "combined"
	FetchModeTwoStep  = "two-step"

	ResponseBinary = "binary"
	ResponseJSON   = "json"

	EncodingHex    = "hex"
	EncodingBase64 = "base64"
)

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			TempDir:         filepath.Join(os.TempDir(), "vidaudio"),
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Limits: LimitsConfig{
			MaxDurationSeconds: 600,
			MaxFileSizeMB:      100,
		},
		Audio: AudioConfig{
			Bitrate:      "192k",
			SampleRate:   44100,
			FetchMode:    FetchModeCombined,
			ResponseMode: ResponseBinary,
			Encoding:     EncodingHex,
		},
		Cleanup: CleanupConfig{
			StaleMaxAge:   time.Hour,
			SweepInterval: 15 * time.Minute,
		},
		Tools: ToolsConfig{
			YtdlpPath:  "yt-dlp",
			FFmpegPath: "ffmpeg",
		},
		Redis: RedisConfig{
			SessionTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads .env (when present) into the process environment, then layers
// the YAML file at path (optional) and the environment over the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var bitrateRe = regexp.MustCompile(`^[1-9][0-9]*k$`)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(strings.TrimSpace(c.Server.Port) != "", "PORT must not be empty")
	check(strings.TrimSpace(c.Server.TempDir) != "", "TEMP_DIR must not be empty")
	check(c.Server.ShutdownTimeout > 0, "SHUTDOWN_TIMEOUT must be positive")
	check(c.Limits.MaxDurationSeconds > 0, "MAX_DURATION_SECONDS must be positive, got %d", c.Limits.MaxDurationSeconds)
	check(c.Limits.MaxFileSizeMB > 0, "MAX_FILE_SIZE_MB must be positive, got %d", c.Limits.MaxFileSizeMB)
	check(bitrateRe.MatchString(c.Audio.Bitrate), "AUDIO_BITRATE must look like 192k, got %q", c.Audio.Bitrate)
	check(c.Audio.SampleRate >= 0, "AUDIO_SAMPLE_RATE must not be negative")
	check(oneOf(c.Audio.FetchMode, FetchModeCombined, FetchModeTwoStep), "FETCH_MODE must be %q or %q, got %q", FetchModeCombined, FetchModeTwoStep, c.Audio.FetchMode)
	check(oneOf(c.Audio.ResponseMode, ResponseBinary, ResponseJSON), "RESPONSE_MODE must be %q or %q, got %q", ResponseBinary, ResponseJSON, c.Audio.ResponseMode)
	check(oneOf(c.Audio.Encoding, EncodingHex, EncodingBase64), "AUDIO_ENCODING must be %q or %q, got %q", EncodingHex, EncodingBase64, c.Audio.Encoding)
	check(c.Cleanup.StaleMaxAge > 0, "STALE_MAX_AGE must be positive")
	check(c.Cleanup.SweepInterval >= 0, "SWEEP_INTERVAL must not be negative")
	check(c.Redis.SessionTTL >= 0, "SESSION_TTL must not be negative")
	check(c.RateLimit.RPS >= 0, "RATE_LIMIT_RPS must not be negative")
	check(c.RateLimit.RPS == 0 || c.RateLimit.Burst >= 1, "RATE_LIMIT_BURST must be at least 1 when rate limiting is on")
	check(strings.TrimSpace(c.Tools.YtdlpPath) != "", "YTDLP_PATH must not be empty")
	check(strings.TrimSpace(c.Tools.FFmpegPath) != "", "FFMPEG_PATH must not be empty")

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}

// MaxFileSizeBytes converts the MB limit to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.Limits.MaxFileSizeMB * 1024 * 1024
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
