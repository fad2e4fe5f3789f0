package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chatterbox daemon.
type Config struct {
	BindHost        string
	Port            int
	ShutdownTimeout time.Duration

	MetricsNamespace string

	// Python worker holding the warm TTS model.
	WorkerPython string
	WorkerScript string

	// Synthesis defaults; /speak may override max chunk size per request.
	MaxChunkChars  int
	SilenceSeconds float64

	// Preload loads the model before the listener starts so the first
	// /speak is not abnormally slow.
	Preload bool

	PIDFile string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindHost:         envOrDefault("CHATTERBOX_BIND_HOST", "127.0.0.1"),
		Port:             7865,
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "chatterbox"),
		WorkerPython:     stringsTrimSpace("CHATTERBOX_PYTHON"),
		WorkerScript:     envOrDefault("CHATTERBOX_WORKER_SCRIPT", "scripts/chatterbox_worker.py"),
		MaxChunkChars:    200,
		SilenceSeconds:   0.2,
		Preload:          true,
		PIDFile:          stringsTrimSpace("CHATTERBOX_PID_FILE"),
		ShutdownTimeout:  10 * time.Second,
	}
	var err error
	cfg.Port, err = intFromEnv("CHATTERBOX_PORT", cfg.Port)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxChunkChars, err = intFromEnv("CHATTERBOX_MAX_CHUNK_CHARS", cfg.MaxChunkChars)
	if err != nil {
		return Config{}, err
	}
	cfg.SilenceSeconds, err = floatFromEnv("CHATTERBOX_SILENCE_SECONDS", cfg.SilenceSeconds)
	if err != nil {
		return Config{}, err
	}
	cfg.Preload, err = boolFromEnv("CHATTERBOX_PRELOAD", cfg.Preload)
	if err != nil {
		return Config{}, err
	}

	if cfg.PIDFile == "" {
		cfg.PIDFile = defaultPIDFile()
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("CHATTERBOX_PORT must be in 1..65535")
	}
	if cfg.MaxChunkChars <= 0 {
		return Config{}, fmt.Errorf("CHATTERBOX_MAX_CHUNK_CHARS must be positive")
	}
	if cfg.SilenceSeconds < 0 {
		return Config{}, fmt.Errorf("CHATTERBOX_SILENCE_SECONDS must be >= 0")
	}
	if cfg.ShutdownTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be at least 1s")
	}

	return cfg, nil
}

// BindAddr joins host and port for the HTTP listener.
func (c Config) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.BindHost, c.Port)
}

// Silence returns the inter-chunk silence as a duration.
func (c Config) Silence() time.Duration {
	return time.Duration(c.SilenceSeconds * float64(time.Second))
}

func defaultPIDFile() string {
	base := stringsTrimSpace("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "outloud", "chatterbox.pid")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "outloud", "chatterbox.pid")
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
