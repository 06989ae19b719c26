// Package guard holds the configured authentication guards. A guard
// ("web", "api", ...) partitions roles and permissions into disjoint
// namespaces; it is a partition key, not a stored entity.
package guard

import "sort"

// Registry is the immutable set of configured guards.
type Registry struct {
	def    string
	guards map[string]struct{}
	sorted []string
}

// NewRegistry builds a registry. The default guard is always a member.
// Blank names are ignored.
func NewRegistry(defaultGuard string, guards ...string) *Registry {
	r := &Registry{def: defaultGuard, guards: make(map[string]struct{}, len(guards)+1)}
	for _, g := range append([]string{defaultGuard}, guards...) {
		if g == "" {
			continue
		}
		if _, ok := r.guards[g]; ok {
			continue
		}
		r.guards[g] = struct{}{}
		r.sorted = append(r.sorted, g)
	}
	sort.Strings(r.sorted)
	return r
}

// Default returns the default guard.
func (r *Registry) Default() string { return r.def }

// List returns every configured guard, sorted.
func (r *Registry) List() []string {
	out := make([]string, len(r.sorted))
	copy(out, r.sorted)
	return out
}

// Has reports whether g is configured.
func (r *Registry) Has(g string) bool {
	_, ok := r.guards[g]
	return ok
}

// Resolve returns g, or the default guard when g is empty.
func (r *Registry) Resolve(g string) string {
	if g == "" {
		return r.def
	}
	return g
}
