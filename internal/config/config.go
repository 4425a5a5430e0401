// Package config loads runtime parameters from the environment with an
// optional config-file overlay. Environment variable names are kept
// compatible with the original VoxScribe deployment surface.
package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime parameters for the service.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// APIKey gates all API routes when non-empty (bearer token).
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key"`
	// MaxWorkers is the inference worker ceiling.
	MaxWorkers int `json:"max_workers" yaml:"max_workers" toml:"max_workers"`
	// TorchThreads is the per-job internal compute parallelism handed to
	// the inference backend. MaxWorkers x TorchThreads should not exceed
	// available cores.
	TorchThreads int `json:"torch_threads" yaml:"torch_threads" toml:"torch_threads"`
	// Device is auto, cpu, or gpu (cuda accepted as an alias).
	Device string `json:"device" yaml:"device" toml:"device"`
	// EnableModelCache keeps loaded models resident for reuse.
	EnableModelCache bool `json:"enable_model_cache" yaml:"enable_model_cache" toml:"enable_model_cache"`
	// MaxFileSize is the upload ceiling in bytes.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size" toml:"max_file_size"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// MaxQueueDepth bounds the worker queue (0 = pool default).
	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	// JobTimeout is the per-job ceiling (0 = none).
	JobTimeout time.Duration `json:"job_timeout" yaml:"job_timeout" toml:"job_timeout"`
	// DefaultModel is used when a request omits the model field.
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	// ModelsDir holds the ggml model assets.
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// WhisperBin is the whisper.cpp CLI binary.
	WhisperBin string `json:"whisper_bin" yaml:"whisper_bin" toml:"whisper_bin"`
	// Warmup pre-resolves DefaultModel at startup.
	Warmup bool `json:"warmup" yaml:"warmup" toml:"warmup"`
}

// Default returns the baseline configuration before any overlay.
func Default() Config {
	return Config{
		Addr:             ":8080",
		MaxWorkers:       runtime.NumCPU(),
		TorchThreads:     1,
		Device:           "auto",
		EnableModelCache: true,
		MaxFileSize:      50 << 20,
		LogLevel:         "info",
		DefaultModel:     "base",
		ModelsDir:        "~/models/whisper",
		WhisperBin:       "whisper-cli",
	}
}

// Load builds the effective configuration: defaults, then the optional
// file at path, then environment variables (env wins).
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be positive, got %d", c.MaxWorkers)
	}
	if c.TorchThreads <= 0 {
		return fmt.Errorf("TORCH_THREADS must be positive, got %d", c.TorchThreads)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxFileSize)
	}
	if c.MaxQueueDepth < 0 {
		return fmt.Errorf("MAX_QUEUE_DEPTH must not be negative, got %d", c.MaxQueueDepth)
	}
	if c.JobTimeout < 0 {
		return fmt.Errorf("JOB_TIMEOUT must not be negative, got %s", c.JobTimeout)
	}
	switch strings.ToLower(c.Device) {
	case "auto", "cpu", "gpu", "cuda":
	default:
		return fmt.Errorf("WHISPER_DEVICE must be auto, cpu, or gpu, got %q", c.Device)
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

// parseTimeout accepts a Go duration ("90s") or plain seconds ("90").
func parseTimeout(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs) * time.Second, nil
}
