package registry

import "voxscribed/pkg/types"

// EvictionPolicy picks cache victims after each completed load. The
// default is manual-only: nothing is evicted unless an operator (or
// shutdown) asks for it.
type EvictionPolicy interface {
	// Victims inspects the current cache contents and returns keys to
	// evict. Keys with active refs are still evicted safely: their
	// handles close once the last user releases.
	Victims(loaded []types.LoadedModel) []ModelKey
}

// ManualOnly is the default policy; it never volunteers victims.
type ManualOnly struct{}

func (ManualOnly) Victims([]types.LoadedModel) []ModelKey { return nil }

// MaxEntries evicts arbitrary idle entries until the cache holds at most
// N. Zero or negative N disables it.
type MaxEntries struct{ N int }

func (p MaxEntries) Victims(loaded []types.LoadedModel) []ModelKey {
	if p.N <= 0 || len(loaded) <= p.N {
		return nil
	}
	var victims []ModelKey
	for _, m := range loaded {
		if len(loaded)-len(victims) <= p.N {
			break
		}
		if m.Refs > 0 {
			continue
		}
		victims = append(victims, ModelKey{Name: m.Name, Device: Device(m.Device)})
	}
	return victims
}

// applyPolicy runs the configured policy once, after a load completes.
func (r *Registry) applyPolicy() {
	if r.policy == nil {
		return
	}
	for _, k := range r.policy.Victims(r.Loaded()) {
		r.Evict(k)
	}
}
