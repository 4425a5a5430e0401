package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"voxscribed/internal/common/fsutil"
	"voxscribed/internal/config"
	"voxscribed/internal/coordinator"
	"voxscribed/internal/engine"
	"voxscribed/internal/httpapi"
	"voxscribed/internal/pool"
	"voxscribed/internal/registry"
)

func newRootCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:           "voxscribed",
		Short:         "Whisper transcription API server",
		Long:          "voxscribed serves speech transcription over HTTP with a bounded inference worker pool and a deduplicating model cache.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "optional config file (.yaml, .json, .toml)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func run(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	if cfg.MaxWorkers*cfg.TorchThreads > runtime.NumCPU() {
		log.Warn().
			Int("max_workers", cfg.MaxWorkers).
			Int("torch_threads", cfg.TorchThreads).
			Int("num_cpu", runtime.NumCPU()).
			Msg("MAX_WORKERS x TORCH_THREADS exceeds available cores; throughput will degrade")
	}

	modelsDir, err := fsutil.ExpandHome(cfg.ModelsDir)
	if err != nil {
		return err
	}

	loader := engine.NewSubprocessLoader(engine.SubprocessConfig{
		Bin:       cfg.WhisperBin,
		ModelsDir: modelsDir,
		Threads:   cfg.TorchThreads,
		Log:       log,
	})
	device, _ := registry.ParseDevice(cfg.Device)

	reg := registry.New(registry.Config{
		Loader:       loader,
		CacheEnabled: cfg.EnableModelCache,
		Log:          log,
	})
	workers := pool.New(pool.Config{
		Workers:    cfg.MaxWorkers,
		QueueDepth: cfg.MaxQueueDepth,
		Log:        log,
	})
	coord := coordinator.New(reg, workers, coordinator.Options{
		MaxFileSize:  cfg.MaxFileSize,
		JobTimeout:   cfg.JobTimeout,
		DefaultModel: cfg.DefaultModel,
		Device:       device,
		Log:          log,
	})

	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(coord, httpapi.Config{
		MaxUploadBytes: cfg.MaxFileSize,
		APIKey:         cfg.APIKey,
		Log:            log,
	})

	if cfg.Warmup {
		// Pre-resolve the default model in the background; requests that
		// arrive meanwhile simply join the in-flight load.
		go func() {
			key := registry.ModelKey{Name: cfg.DefaultModel, Device: device}
			h, err := reg.Resolve(baseCtx, key)
			if err != nil {
				log.Warn().Err(err).Str("model", cfg.DefaultModel).Msg("warmup load failed")
				return
			}
			h.Release()
			log.Info().Str("model", cfg.DefaultModel).Msg("warmup load done")
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", modelsDir).Msg("voxscribed listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	baseCancel()
	workers.Close()
	reg.EvictAll()
	return nil
}
