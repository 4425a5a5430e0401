package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"voxscribed/internal/engine"
	"voxscribed/pkg/types"
)

// ModelKey identifies a cacheable model+device combination.
type ModelKey struct {
	Name   string
	Device Device
}

// entry tracks one key's lifecycle in the cache. While done is open a
// load is in flight; waiters block on it and share the outcome. Failed
// loads never stay in the map, so the next Resolve retries.
type entry struct {
	done   chan struct{}
	handle *Handle
	err    error
}

// Config carries Registry construction options.
type Config struct {
	// Loader performs the expensive model load.
	Loader engine.Loader
	// CacheEnabled keeps loaded handles for reuse. When false every
	// Resolve loads fresh and the handle closes after its job releases it.
	CacheEnabled bool
	// Prober resolves DeviceAuto; DefaultProber if nil.
	Prober DeviceProber
	// Eviction policy consulted after each load; ManualOnly if nil.
	Eviction EvictionPolicy
	Log      zerolog.Logger
}

// Registry resolves ModelKeys to loaded handles, deduplicating
// concurrent loads per key. It owns the handles it hands out.
type Registry struct {
	loader engine.Loader
	cache  bool
	prober DeviceProber
	policy EvictionPolicy

	probeOnce sync.Once
	probed    Device

	mu      sync.Mutex
	entries map[ModelKey]*entry

	loads     atomic.Uint64
	evictions atomic.Uint64

	log zerolog.Logger
}

func New(cfg Config) *Registry {
	prober := cfg.Prober
	if prober == nil {
		prober = DefaultProber
	}
	policy := cfg.Eviction
	if policy == nil {
		policy = ManualOnly{}
	}
	return &Registry{
		loader:  cfg.Loader,
		cache:   cfg.CacheEnabled,
		prober:  prober,
		policy:  policy,
		entries: make(map[ModelKey]*entry),
		log:     cfg.Log.With().Str("component", "registry").Logger(),
	}
}

// normalize resolves DeviceAuto using the memoized probe.
func (r *Registry) normalize(key ModelKey) (ModelKey, error) {
	d, ok := ParseDevice(string(key.Device))
	if !ok {
		return key, unknownDeviceError{device: string(key.Device)}
	}
	if d == DeviceAuto {
		r.probeOnce.Do(func() {
			r.probed = r.prober()
			r.log.Info().Str("device", string(r.probed)).Msg("device probe")
		})
		d = r.probed
	}
	key.Device = d
	return key, nil
}

// Resolve returns the cached handle for key, loading it on first use.
// Concurrent calls for an unresolved key trigger exactly one load; the
// others suspend until it finishes (or their context ends). The caller
// owns one reference and must call Handle.Release when done.
func (r *Registry) Resolve(ctx context.Context, key ModelKey) (*Handle, error) {
	key, err := r.normalize(key)
	if err != nil {
		return nil, err
	}

	if !r.cache {
		h, err := r.load(ctx, key)
		if err != nil {
			return nil, err
		}
		// Acquire before detach: with zero refs detach would close the
		// transcriber before the caller ever used it.
		h.acquire()
		h.detach()
		return h, nil
	}

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{done: make(chan struct{})}
		r.entries[key] = e
		r.mu.Unlock()
		return r.doLoad(ctx, key, e)
	}
	r.mu.Unlock()

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	e.handle.acquire()
	return e.handle, nil
}

// doLoad runs the single in-flight load for key and publishes the
// outcome to waiters.
func (r *Registry) doLoad(ctx context.Context, key ModelKey, e *entry) (*Handle, error) {
	// Detach the load from the first caller's cancellation: the outcome
	// is shared with every waiter on this key.
	h, err := r.load(context.WithoutCancel(ctx), key)
	if err != nil {
		e.err = err
		r.mu.Lock()
		if r.entries[key] == e {
			delete(r.entries, key)
		}
		r.mu.Unlock()
		close(e.done)
		return nil, err
	}

	e.handle = h
	// The loader's caller takes its ref before any detach can run, so an
	// eviction racing the load never closes the handle pre-use.
	h.acquire()
	r.mu.Lock()
	evicted := r.entries[key] != e
	r.mu.Unlock()
	if evicted {
		// Evicted while loading; hand out a transient handle.
		h.detach()
	}
	close(e.done)

	r.applyPolicy()
	return h, nil
}

func (r *Registry) load(ctx context.Context, key ModelKey) (*Handle, error) {
	r.log.Info().Str("model", key.Name).Str("device", string(key.Device)).Msg("loading model")
	tr, err := r.loader(ctx, key.Name, string(key.Device))
	if err != nil {
		r.log.Error().Err(err).Str("model", key.Name).Str("device", string(key.Device)).Msg("model load failed")
		return nil, loadError{key: key, err: err}
	}
	r.loads.Add(1)
	return newHandle(key, tr), nil
}

// Evict removes key from the cache. In-flight jobs holding the handle
// finish normally; the transcriber closes when the last one releases.
// A load in progress for key is orphaned: its waiters get a transient
// handle and the next Resolve starts fresh.
func (r *Registry) Evict(key ModelKey) bool {
	key, err := r.normalize(key)
	if err != nil {
		return false
	}
	r.mu.Lock()
	e, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-e.done:
		if e.handle != nil {
			e.handle.detach()
		}
	default:
		// load still in flight; doLoad detaches on completion
	}
	r.evictions.Add(1)
	r.log.Info().Str("model", key.Name).Str("device", string(key.Device)).Msg("evicted model")
	return true
}

// EvictAll drops every cached handle. Used at shutdown.
func (r *Registry) EvictAll() {
	r.mu.Lock()
	keys := make([]ModelKey, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	for _, k := range keys {
		r.Evict(k)
	}
}

// Loaded lists the keys currently held by the cache, for /health.
func (r *Registry) Loaded() []types.LoadedModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.LoadedModel, 0, len(r.entries))
	for k, e := range r.entries {
		select {
		case <-e.done:
		default:
			continue // still loading
		}
		if e.handle == nil {
			continue
		}
		out = append(out, types.LoadedModel{
			Name:   k.Name,
			Device: string(k.Device),
			Refs:   e.handle.Refs(),
		})
	}
	return out
}

// LoadsTotal reports completed model loads.
func (r *Registry) LoadsTotal() uint64 { return r.loads.Load() }

// EvictionsTotal reports evictions performed.
func (r *Registry) EvictionsTotal() uint64 { return r.evictions.Load() }
