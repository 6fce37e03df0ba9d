package providers

import (
	"sort"

	"github.com/yourusername/datacollector/internal/models"
)

// Registry is an ordered, immutable set of adapters built once at startup.
// It replaces the implicit provider ordering the teacher expressed as
// if-chains with an explicit priority(timeframe) lookup.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry from the given adapters. The adapter order
// passed in does not matter; Supporting sorts by Priority/ID on each call.
func NewRegistry(adapters ...Adapter) *Registry {
	cp := make([]Adapter, len(adapters))
	copy(cp, adapters)
	return &Registry{adapters: cp}
}

// All returns every registered adapter, in registration order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Supporting returns the adapters that declare support for tf, ordered by
// Priority(tf) ascending, with lexicographic ID as the deterministic
// tie-break (spec step 4.4.7).
func (r *Registry) Supporting(tf models.Timeframe) []Adapter {
	var out []Adapter
	for _, a := range r.adapters {
		if a.Capabilities().supports(tf) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Priority(tf), out[j].Priority(tf)
		if pi != pj {
			return pi < pj
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// ByID looks up a registered adapter by identifier.
func (r *Registry) ByID(id string) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}
