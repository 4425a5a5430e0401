package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"voxscribed/internal/coordinator"
	"voxscribed/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Transcribe(ctx context.Context, req coordinator.Request) (types.TranscribeResponse, error)
	ModelNames() []string
	Health() types.HealthResponse
}

// Config carries HTTP-layer tunables.
type Config struct {
	// MaxUploadBytes bounds the multipart body before any parsing.
	MaxUploadBytes int64
	// APIKey enables the bearer-token gate when non-empty.
	APIKey string
	Log    zerolog.Logger
}

// multipartFormOverhead covers boundary markers and the small text
// fields accompanying the file part.
const multipartFormOverhead = 64 << 10

// NewMux builds the router with all routes and middleware.
func NewMux(svc Service, cfg Config) http.Handler {
	log := cfg.Log.With().Str("component", "httpapi").Logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	r.Use(authMiddleware(cfg.APIKey))

	// @Summary Welcome
	// @Produce json
	// @Success 200 {object} map[string]string
	// @Router / [get]
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "VoxScribe API: speech recognition powered by Whisper",
		})
	})

	// @Summary List supported model names
	// @Produce json
	// @Success 200 {object} types.ModelsResponse
	// @Router /models [get]
	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.ModelNames()})
	})

	// @Summary Readiness, worker utilization, and cache contents
	// @Produce json
	// @Success 200 {object} types.HealthResponse
	// @Router /health [get]
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Health())
	})

	// @Summary Transcribe an uploaded audio file
	// @Accept mpfd
	// @Produce json
	// @Param file formData file true "audio file (mp3, wav, m4a, flac, ogg, webm)"
	// @Param model formData string false "whisper model name" default(base)
	// @Param language formData string false "ISO 639-1 language hint"
	// @Param task formData string false "transcribe or translate" default(transcribe)
	// @Param return_segments formData boolean false "include per-segment detail"
	// @Success 200 {object} types.TranscribeResponse
	// @Failure 400 {object} types.ErrorResponse
	// @Failure 429 {object} types.ErrorResponse
	// @Failure 503 {object} types.ErrorResponse
	// @Router /transcribe [post]
	r.Post("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		handleTranscribe(svc, cfg, log, w, r)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func handleTranscribe(svc Service, cfg Config, log zerolog.Logger, w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Bound the body before touching the multipart reader so an oversize
	// upload is refused without buffering it, let alone queueing it.
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes+multipartFormOverhead)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		if maxBytesExceeded(err) {
			writeError(w, http.StatusBadRequest, "validation", "file exceeds maximum allowed size")
			return
		}
		writeError(w, http.StatusBadRequest, "validation", "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "file field is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, cfg.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "could not read uploaded file")
		return
	}
	if int64(len(audio)) > cfg.MaxUploadBytes {
		writeError(w, http.StatusBadRequest, "validation", "file exceeds maximum allowed size")
		return
	}

	req := coordinator.Request{
		Filename:       header.Filename,
		Audio:          audio,
		Model:          r.FormValue("model"),
		Language:       r.FormValue("language"),
		Task:           r.FormValue("task"),
		ReturnSegments: formBool(r.FormValue("return_segments")),
	}

	// Join the server base context so shutdown cancels in-flight awaits
	// along with client disconnects.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	rid := middleware.GetReqID(r.Context())
	log.Info().Str("request_id", rid).Str("model", req.Model).Int("bytes", len(audio)).Msg("transcribe start")

	resp, err := svc.Transcribe(ctx, req)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			// Client gone or shutting down; nothing useful to write.
			return
		}
		status, kind := classify(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("queue_full")
		}
		log.Error().Str("request_id", rid).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("transcribe end")
		writeError(w, status, kind, err.Error())
		return
	}

	log.Info().Str("request_id", rid).Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("transcribe end")
	writeJSON(w, http.StatusOK, resp)
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func maxBytesExceeded(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
