package engine

import (
	"context"

	"voxscribed/pkg/types"
)

// Request carries one decoded upload into the backend.
type Request struct {
	// Audio is the raw uploaded file content.
	Audio []byte
	// Ext is the original file extension (".wav", ".mp3", ...) so the
	// backend can hand the codec a correctly suffixed temp file.
	Ext string
	// Language is an optional ISO 639-1 hint; empty means auto-detect.
	Language string
	// Task is "transcribe" or "translate".
	Task string
}

// Result is the backend's output for one request. Segments are always
// populated; callers decide whether to expose them.
type Result struct {
	Text     string
	Language string
	Segments []types.Segment
}

// Transcriber is a loaded, reusable speech model. Implementations must be
// safe for concurrent Transcribe calls; Close releases the model's
// resources and is called at most once.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
	Close() error
}

// Loader produces a ready Transcriber for a model name on a device
// ("cpu" or "gpu"). Loading is expensive; the registry dedupes calls.
type Loader func(ctx context.Context, model, device string) (Transcriber, error)
