package config

import (
	"fmt"
	"os"
	"strconv"
)

// applyEnv overlays recognized environment variables onto c.
func (c *Config) applyEnv() error {
	if v := os.Getenv("VOXSCRIBE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("VOXSCRIBE_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_WORKERS: %w", err)
		}
		c.MaxWorkers = n
	}
	if v := os.Getenv("TORCH_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TORCH_THREADS: %w", err)
		}
		c.TorchThreads = n
	}
	if v := os.Getenv("WHISPER_DEVICE"); v != "" {
		c.Device = v
	}
	if v := os.Getenv("ENABLE_MODEL_CACHE"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("ENABLE_MODEL_CACHE: %w", err)
		}
		c.EnableModelCache = b
	}
	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_FILE_SIZE: %w", err)
		}
		c.MaxFileSize = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MAX_QUEUE_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_QUEUE_DEPTH: %w", err)
		}
		c.MaxQueueDepth = n
	}
	if v := os.Getenv("JOB_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("JOB_TIMEOUT: %w", err)
		}
		c.JobTimeout = d
	}
	if v := os.Getenv("DEFAULT_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("MODELS_DIR"); v != "" {
		c.ModelsDir = v
	}
	if v := os.Getenv("WHISPER_BIN"); v != "" {
		c.WhisperBin = v
	}
	if v := os.Getenv("VOXSCRIBE_WARMUP"); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("VOXSCRIBE_WARMUP: %w", err)
		}
		c.Warmup = b
	}
	return nil
}
