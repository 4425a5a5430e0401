// Package coordinator is the async-facing entry point for transcription.
// It validates cheaply, resolves a model handle through the registry,
// hands the blocking inference call to the bounded worker pool, and
// awaits the outcome without occupying a worker for invalid input.
package coordinator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"voxscribed/internal/engine"
	"voxscribed/internal/pool"
	"voxscribed/internal/registry"
	"voxscribed/pkg/types"
)

// allowedExtensions is the upload format allow-list.
var allowedExtensions = []string{".mp3", ".wav", ".m4a", ".flac", ".ogg", ".webm"}

func extensionAllowed(ext string) bool {
	for _, e := range allowedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Options carries coordinator tunables.
type Options struct {
	// MaxFileSize is the upload ceiling in bytes.
	MaxFileSize int64
	// JobTimeout is the per-job ceiling (0 = none).
	JobTimeout time.Duration
	// DefaultModel is used when a request omits the model field.
	DefaultModel string
	// Device is the configured device for all jobs.
	Device registry.Device
	Log    zerolog.Logger
}

// Request is one decoded transcription request.
type Request struct {
	Filename       string
	Audio          []byte
	Model          string
	Language       string
	Task           string
	ReturnSegments bool
}

// Coordinator wires the registry and the pool together per job.
type Coordinator struct {
	reg  *registry.Registry
	pool *pool.Pool
	opts Options
	log  zerolog.Logger

	started time.Time

	completed atomic.Uint64
	failed    atomic.Uint64
	timedOut  atomic.Uint64
}

func New(reg *registry.Registry, p *pool.Pool, opts Options) *Coordinator {
	if opts.DefaultModel == "" {
		opts.DefaultModel = "base"
	}
	if opts.Device == "" {
		opts.Device = registry.DeviceAuto
	}
	return &Coordinator{
		reg:     reg,
		pool:    p,
		opts:    opts,
		log:     opts.Log.With().Str("component", "coordinator").Logger(),
		started: time.Now(),
	}
}

// Transcribe runs one job through the full pipeline. Every exit path
// releases the model handle and the worker slot.
func (c *Coordinator) Transcribe(ctx context.Context, req Request) (types.TranscribeResponse, error) {
	model := req.Model
	if model == "" {
		model = c.opts.DefaultModel
	}
	j := newJob(model, c.log)

	if err := c.validate(req, model); err != nil {
		c.finish(j, stateFailed, err)
		return types.TranscribeResponse{}, err
	}
	j.to(stateValidated)

	key := registry.ModelKey{Name: model, Device: c.opts.Device}
	j.to(stateQueuedForLoad)
	h, err := c.resolve(ctx, key)
	if err != nil {
		err = c.classifyResolve(err)
		c.finish(j, stateFailed, err)
		return types.TranscribeResponse{}, err
	}
	j.to(stateModelReady)

	// The job context covers queue wait plus execution; expiry stops the
	// await and, best effort, the inference call itself.
	jobCtx := ctx
	cancel := context.CancelFunc(func() {})
	if c.opts.JobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, c.opts.JobTimeout)
	}
	defer cancel()

	var result engine.Result
	task := func() error {
		// Release the handle from the worker, not the awaiting request:
		// a timed-out job must keep its ref until inference returns.
		defer h.Release()
		j.to(stateExecuting)
		start := time.Now()
		r, terr := h.Transcriber().Transcribe(jobCtx, engine.Request{
			Audio:    req.Audio,
			Ext:      strings.ToLower(filepath.Ext(req.Filename)),
			Language: req.Language,
			Task:     taskOrDefault(req.Task),
		})
		if terr != nil {
			return terr
		}
		inferenceDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
		result = r
		return nil
	}

	pending, err := c.pool.Submit(task)
	if err != nil {
		// Never ran; the worker defer will not fire.
		h.Release()
		err = ErrCapacity(err)
		c.finish(j, stateFailed, err)
		return types.TranscribeResponse{}, err
	}
	j.to(stateQueuedForExec)

	if err := pending.Wait(jobCtx); err != nil {
		return types.TranscribeResponse{}, c.finishWait(j, ctx, err)
	}

	c.finish(j, stateCompleted, nil)
	return buildResponse(result, req.ReturnSegments), nil
}

func (c *Coordinator) validate(req Request, model string) error {
	if len(req.Audio) == 0 {
		return ErrValidation("file is empty")
	}
	if c.opts.MaxFileSize > 0 && int64(len(req.Audio)) > c.opts.MaxFileSize {
		return ErrValidation("file exceeds maximum allowed size")
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !extensionAllowed(ext) {
		return ErrValidation("unsupported file format " + ext + "; allowed: " + strings.Join(allowedExtensions, ", "))
	}
	if !engine.Supported(model) {
		return ErrValidation("model " + model + " is not available; see GET /models")
	}
	switch taskOrDefault(req.Task) {
	case "transcribe", "translate":
	default:
		return ErrValidation("task must be transcribe or translate")
	}
	return nil
}

// resolve retries a failed load at most once per triggering request.
func (c *Coordinator) resolve(ctx context.Context, key registry.ModelKey) (*registry.Handle, error) {
	h, err := c.reg.Resolve(ctx, key)
	if err != nil && registry.IsLoadError(err) && ctx.Err() == nil {
		loadRetriesTotal.Inc()
		c.log.Warn().Err(err).Str("model", key.Name).Msg("retrying model load")
		h, err = c.reg.Resolve(ctx, key)
	}
	return h, err
}

func (c *Coordinator) classifyResolve(err error) error {
	switch {
	case registry.IsUnknownDevice(err):
		return ErrValidation(err.Error())
	case registry.IsLoadError(err):
		return ErrModelLoad(err)
	default:
		return err
	}
}

// finishWait classifies a Wait failure. err is either a context error
// (timeout or client gone) or the task's own error.
func (c *Coordinator) finishWait(j *job, callerCtx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) && callerCtx.Err() == nil:
		out := ErrTimeout(c.opts.JobTimeout)
		c.finish(j, stateTimedOut, out)
		return out
	case callerCtx.Err() != nil:
		// Originating connection dropped; the worker slot is reclaimed
		// once the in-flight call returns.
		c.finish(j, stateFailed, callerCtx.Err())
		return callerCtx.Err()
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		// The task saw the job context expire before the awaiter did.
		out := ErrTimeout(c.opts.JobTimeout)
		c.finish(j, stateTimedOut, out)
		return out
	case engine.IsBadInput(err):
		out := ErrInference(err, true)
		c.finish(j, stateFailed, out)
		return out
	default:
		out := ErrInference(err, false)
		c.finish(j, stateFailed, out)
		return out
	}
}

func (c *Coordinator) finish(j *job, state jobState, err error) {
	j.to(state)
	switch state {
	case stateCompleted:
		c.completed.Add(1)
		jobsTotal.WithLabelValues("completed").Inc()
		j.log.Info().Dur("dur", time.Since(j.submittedAt)).Msg("job completed")
	case stateTimedOut:
		c.timedOut.Add(1)
		jobsTotal.WithLabelValues("timed_out").Inc()
		j.log.Error().Err(err).Dur("dur", time.Since(j.submittedAt)).Msg("job timed out")
	default:
		c.failed.Add(1)
		jobsTotal.WithLabelValues("failed").Inc()
		j.log.Error().Err(err).Dur("dur", time.Since(j.submittedAt)).Msg("job failed")
	}
}

// ModelNames returns the supported model set for GET /models.
func (c *Coordinator) ModelNames() []string { return engine.ModelNames() }

// Health reports readiness, pool utilization, and cache contents.
func (c *Coordinator) Health() types.HealthResponse {
	return types.HealthResponse{
		Ready:          true,
		Pool:           c.pool.Stats(),
		LoadedModels:   c.reg.Loaded(),
		LoadsTotal:     c.reg.LoadsTotal(),
		EvictionsTotal: c.reg.EvictionsTotal(),
		Jobs: types.JobCounters{
			Completed: c.completed.Load(),
			Failed:    c.failed.Load(),
			TimedOut:  c.timedOut.Load(),
		},
		UptimeSeconds: int64(time.Since(c.started).Seconds()),
	}
}

func taskOrDefault(task string) string {
	if task == "" {
		return "transcribe"
	}
	return task
}

func buildResponse(res engine.Result, withSegments bool) types.TranscribeResponse {
	out := types.TranscribeResponse{Text: res.Text, Language: res.Language}
	if withSegments {
		out.Segments = res.Segments
		if out.Segments == nil {
			out.Segments = []types.Segment{}
		}
	}
	return out
}
