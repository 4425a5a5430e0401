package registry

import (
	"sync"

	"voxscribed/internal/engine"
)

// Handle is a ref-counted wrapper around a loaded Transcriber. The
// registry owns handles; jobs share them read-only. A handle removed
// from the cache closes its transcriber once the last user releases it,
// so eviction never interrupts in-flight inference.
type Handle struct {
	key ModelKey
	tr  engine.Transcriber

	mu       sync.Mutex
	refs     int
	detached bool // no longer cached; close on last release
	closed   bool
}

func newHandle(key ModelKey, tr engine.Transcriber) *Handle {
	return &Handle{key: key, tr: tr}
}

// Key returns the ModelKey this handle was loaded for.
func (h *Handle) Key() ModelKey { return h.key }

// Transcriber exposes the loaded model for inference.
func (h *Handle) Transcriber() engine.Transcriber { return h.tr }

func (h *Handle) acquire() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

// Release drops the caller's reference. Must be called exactly once per
// Resolve, after the job is done with the handle.
func (h *Handle) Release() {
	h.mu.Lock()
	if h.refs > 0 {
		h.refs--
	}
	shouldClose := h.detached && h.refs == 0 && !h.closed
	if shouldClose {
		h.closed = true
	}
	h.mu.Unlock()
	if shouldClose {
		_ = h.tr.Close()
	}
}

// detach marks the handle as uncached. If no job is using it the
// transcriber closes immediately; otherwise the last Release closes it.
func (h *Handle) detach() {
	h.mu.Lock()
	h.detached = true
	shouldClose := h.refs == 0 && !h.closed
	if shouldClose {
		h.closed = true
	}
	h.mu.Unlock()
	if shouldClose {
		_ = h.tr.Close()
	}
}

// Refs reports current users, for health reporting.
func (h *Handle) Refs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}
