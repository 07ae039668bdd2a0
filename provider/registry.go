package provider

import "fmt"

// Registry resolves provider kinds to their adapters. It models the closed
// set of supported providers as an explicitly owned object instead of
// runtime string branching at call sites.
type Registry struct {
	providers map[Kind]Provider
	fallback  Kind
}

// NewRegistry creates a registry whose Resolve falls back to the given kind
// when asked for an empty tag.
func NewRegistry(fallback Kind) *Registry {
	return &Registry{
		providers: make(map[Kind]Provider),
		fallback:  fallback,
	}
}

// Register adds or replaces the adapter for its kind.
func (r *Registry) Register(p Provider) {
	r.providers[p.Kind()] = p
}

// Resolve returns the adapter for the kind, defaulting to the registry's
// fallback for an empty tag.
func (r *Registry) Resolve(kind Kind) (Provider, error) {
	if kind == "" {
		kind = r.fallback
	}
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown provider kind %q", kind)
	}
	return p, nil
}

// Fallback returns the registry's default provider kind.
func (r *Registry) Fallback() Kind { return r.fallback }
