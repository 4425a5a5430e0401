package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voxscribed/internal/engine"
	"voxscribed/internal/pool"
	"voxscribed/internal/registry"
	"voxscribed/pkg/types"
)

// stubTranscriber observes concurrency and serves canned results.
type stubTranscriber struct {
	delay   time.Duration
	err     error
	result  engine.Result
	calls   atomic.Int32
	running atomic.Int32
	peak    atomic.Int32
}

func (s *stubTranscriber) Transcribe(ctx context.Context, req engine.Request) (engine.Result, error) {
	s.calls.Add(1)
	n := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		old := s.peak.Load()
		if n <= old || s.peak.CompareAndSwap(old, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return engine.Result{}, ctx.Err()
		}
	}
	if s.err != nil {
		return engine.Result{}, s.err
	}
	return s.result, nil
}

func (s *stubTranscriber) Close() error { return nil }

type env struct {
	coord  *Coordinator
	reg    *registry.Registry
	pool   *pool.Pool
	tr     *stubTranscriber
	loads  *atomic.Int32
	loadFn func() error // optional per-load failure hook
}

func newEnv(t *testing.T, workers, depth int, opts Options, tr *stubTranscriber) *env {
	t.Helper()
	e := &env{tr: tr, loads: &atomic.Int32{}}
	loader := func(ctx context.Context, model, device string) (engine.Transcriber, error) {
		e.loads.Add(1)
		if e.loadFn != nil {
			if err := e.loadFn(); err != nil {
				return nil, err
			}
		}
		return tr, nil
	}
	e.reg = registry.New(registry.Config{
		Loader:       loader,
		CacheEnabled: true,
		Prober:       func() registry.Device { return registry.DeviceCPU },
		Log:          zerolog.Nop(),
	})
	e.pool = pool.New(pool.Config{Workers: workers, QueueDepth: depth, Log: zerolog.Nop()})
	t.Cleanup(e.pool.Close)
	opts.Log = zerolog.Nop()
	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = 1 << 20
	}
	e.coord = New(e.reg, e.pool, opts)
	return e
}

func wavRequest(audio []byte) Request {
	return Request{Filename: "clip.wav", Audio: audio, Model: "tiny"}
}

func TestTranscribeSuccess(t *testing.T) {
	tr := &stubTranscriber{result: engine.Result{
		Text:     "hello world",
		Language: "en",
		Segments: []types.Segment{{Start: 0, End: 1.2, Text: "hello world"}},
	}}
	e := newEnv(t, 2, 8, Options{}, tr)

	resp, err := e.coord.Transcribe(context.Background(), wavRequest([]byte("riff")))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if resp.Text != "hello world" || resp.Language != "en" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Segments != nil {
		t.Fatalf("segments returned without return_segments")
	}

	req := wavRequest([]byte("riff"))
	req.ReturnSegments = true
	resp, err = e.coord.Transcribe(context.Background(), req)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(resp.Segments) != 1 {
		t.Fatalf("expected segments, got %+v", resp)
	}
}

func TestValidationRejectsBeforePool(t *testing.T) {
	tr := &stubTranscriber{}
	e := newEnv(t, 1, 4, Options{MaxFileSize: 16}, tr)

	cases := []struct {
		name string
		req  Request
	}{
		{"empty file", wavRequest(nil)},
		{"oversize file", wavRequest(make([]byte, 17))},
		{"bad extension", Request{Filename: "clip.exe", Audio: []byte("x"), Model: "tiny"}},
		{"unknown model", Request{Filename: "clip.wav", Audio: []byte("x"), Model: "enormous"}},
		{"bad task", Request{Filename: "clip.wav", Audio: []byte("x"), Model: "tiny", Task: "summarize"}},
	}
	for _, tc := range cases {
		_, err := e.coord.Transcribe(context.Background(), tc.req)
		if err == nil || !IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	if got := e.loads.Load(); got != 0 {
		t.Fatalf("invalid input triggered %d model loads", got)
	}
	if got := tr.calls.Load(); got != 0 {
		t.Fatalf("invalid input reached the transcriber %d times", got)
	}
	if s := e.pool.Stats(); s.Busy != 0 || s.Queued != 0 {
		t.Fatalf("invalid input touched the pool: %+v", s)
	}
}

func TestBurstSharedModelSingleLoadAndCeiling(t *testing.T) {
	tr := &stubTranscriber{delay: 30 * time.Millisecond, result: engine.Result{Text: "ok"}}
	e := newEnv(t, 2, 16, Options{}, tr)

	const jobs = 10
	var wg sync.WaitGroup
	errs := make([]error, jobs)
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.coord.Transcribe(context.Background(), wavRequest([]byte("riff")))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("job %d: %v", i, err)
		}
	}
	if got := e.loads.Load(); got != 1 {
		t.Fatalf("expected exactly 1 load event, got %d", got)
	}
	if got := tr.peak.Load(); got > 2 {
		t.Fatalf("observed %d concurrent inferences with ceiling 2", got)
	}
	if got := e.coord.Health().Jobs.Completed; got != jobs {
		t.Fatalf("completed=%d", got)
	}
}

func TestLoadFailureSurfacesAfterRetry(t *testing.T) {
	tr := &stubTranscriber{}
	e := newEnv(t, 1, 4, Options{}, tr)
	e.loadFn = func() error { return errors.New("asset missing") }

	_, err := e.coord.Transcribe(context.Background(), wavRequest([]byte("riff")))
	if err == nil || !IsModelLoad(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
	if got := e.loads.Load(); got != 2 {
		t.Fatalf("expected 1 retry (2 attempts), got %d", got)
	}
	if got := e.coord.Health().Jobs.Failed; got != 1 {
		t.Fatalf("failed=%d", got)
	}
}

func TestLoadRetrySucceeds(t *testing.T) {
	tr := &stubTranscriber{result: engine.Result{Text: "ok"}}
	e := newEnv(t, 1, 4, Options{}, tr)
	var attempts atomic.Int32
	e.loadFn = func() error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}

	resp, err := e.coord.Transcribe(context.Background(), wavRequest([]byte("riff")))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestJobTimeout(t *testing.T) {
	tr := &stubTranscriber{delay: 500 * time.Millisecond, result: engine.Result{Text: "slow"}}
	e := newEnv(t, 1, 4, Options{JobTimeout: 30 * time.Millisecond}, tr)

	start := time.Now()
	_, err := e.coord.Transcribe(context.Background(), wavRequest([]byte("riff")))
	if err == nil || !IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if d := time.Since(start); d > 300*time.Millisecond {
		t.Fatalf("timeout took %s", d)
	}
	if got := e.coord.Health().Jobs.TimedOut; got != 1 {
		t.Fatalf("timed_out=%d", got)
	}

	// The worker slot and handle are reclaimed once the call returns.
	deadline := time.Now().Add(time.Second)
	for {
		s := e.pool.Stats()
		if s.Busy == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("worker slot never reclaimed: %+v", s)
		}
		time.Sleep(5 * time.Millisecond)
	}
	for _, m := range e.reg.Loaded() {
		if m.Refs != 0 {
			t.Fatalf("handle ref leaked: %+v", m)
		}
	}
}

func TestInferenceErrorClassification(t *testing.T) {
	tr := &stubTranscriber{err: engine.ErrBadInput("could not decode audio")}
	e := newEnv(t, 1, 4, Options{}, tr)

	_, err := e.coord.Transcribe(context.Background(), wavRequest([]byte("riff")))
	ok, client := IsInference(err)
	if !ok || !client {
		t.Fatalf("expected client inference error, got %v", err)
	}

	tr2 := &stubTranscriber{err: errors.New("cuda out of memory")}
	e2 := newEnv(t, 1, 4, Options{}, tr2)
	_, err = e2.coord.Transcribe(context.Background(), wavRequest([]byte("riff")))
	ok, client = IsInference(err)
	if !ok || client {
		t.Fatalf("expected server inference error, got %v", err)
	}
}

func TestQueueFullMapsToCapacity(t *testing.T) {
	tr := &stubTranscriber{delay: 200 * time.Millisecond, result: engine.Result{Text: "ok"}}
	e := newEnv(t, 1, 1, Options{}, tr)

	var wg sync.WaitGroup
	var capacityErrs atomic.Int32
	const jobs = 6
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.coord.Transcribe(context.Background(), wavRequest([]byte("riff"))); err != nil {
				if !IsCapacity(err) {
					t.Errorf("expected capacity error, got %v", err)
					return
				}
				capacityErrs.Add(1)
			}
		}()
	}
	wg.Wait()

	if capacityErrs.Load() == 0 {
		t.Fatalf("expected at least one capacity rejection with 1 worker and queue depth 1")
	}
}

func TestCallerCancelPropagates(t *testing.T) {
	tr := &stubTranscriber{delay: time.Second, result: engine.Result{Text: "ok"}}
	e := newEnv(t, 1, 4, Options{}, tr)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := e.coord.Transcribe(ctx, wavRequest([]byte("riff")))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestDefaultModelApplied(t *testing.T) {
	tr := &stubTranscriber{result: engine.Result{Text: "ok"}}
	e := newEnv(t, 1, 4, Options{DefaultModel: "tiny"}, tr)

	req := Request{Filename: "clip.wav", Audio: []byte("riff")}
	if _, err := e.coord.Transcribe(context.Background(), req); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	loaded := e.reg.Loaded()
	if len(loaded) != 1 || loaded[0].Name != "tiny" {
		t.Fatalf("loaded=%v", loaded)
	}
}

func TestModelNames(t *testing.T) {
	tr := &stubTranscriber{}
	e := newEnv(t, 1, 1, Options{}, tr)
	names := e.coord.ModelNames()
	if len(names) == 0 {
		t.Fatalf("expected model names")
	}
	found := false
	for _, n := range names {
		if n == "base" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected base in %v", names)
	}
}
