// Package targets holds the fixed matrix of platform targets and resolves the
// subset a declaration enables.
package targets

import (
	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/util/sets"
)

// Descriptor describes one platform target.
type Descriptor struct {
	// ID is the platform triple, e.g. "x86_64-unknown-linux-musl".
	ID string `json:"id"`
	// DefaultEnabled reports whether the target is built when no override names it.
	DefaultEnabled bool `json:"default_enabled"`
	// Toolchain names the package in the resolved package set that provides the
	// compiler and linker for this target.
	Toolchain string `json:"toolchain"`
}

// Registry is an immutable, ordered table of known targets. The declaration order
// of the table is the order of every resolved set.
type Registry struct {
	descriptors []Descriptor
	index       map[string]int
}

// NewRegistry builds a registry from descriptors in the given order. Duplicate
// identifiers keep their first position.
func NewRegistry(descriptors ...Descriptor) Registry {
	r := Registry{
		descriptors: make([]Descriptor, 0, len(descriptors)),
		index:       make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		if _, dup := r.index[d.ID]; dup {
			continue
		}
		r.index[d.ID] = len(r.descriptors)
		r.descriptors = append(r.descriptors, d)
	}
	return r
}

// Lookup returns the descriptor registered under id.
func (r Registry) Lookup(id string) (Descriptor, bool) {
	i, ok := r.index[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// Len returns the number of registered targets.
func (r Registry) Len() int {
	return len(r.descriptors)
}

// Has reports whether id is a registered target.
func (r Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// All returns a copy of every registered descriptor in declaration order.
func (r Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Defaults returns the default-enabled descriptors in declaration order.
func (r Registry) Defaults() []Descriptor {
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		if d.DefaultEnabled {
			out = append(out, d)
		}
	}
	return out
}

// Unknown returns the override keys that reference no registered target, sorted.
func (r Registry) Unknown(overrides map[string]bool) []string {
	unknown := sets.New[string]()
	for id := range overrides {
		if !r.Has(id) {
			unknown.Add(id)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return sets.Sorted(unknown)
}

// Resolve applies overrides to the registry's default-enabled set. An explicit
// false disables a target, an explicit true enables it, absence keeps the default.
// Unknown override keys fail instead of being ignored.
func Resolve(reg Registry, overrides map[string]bool) ([]Descriptor, error) {
	if unknown := reg.Unknown(overrides); len(unknown) > 0 {
		return nil, perrors.UnknownTarget(unknown...)
	}

	out := make([]Descriptor, 0, len(reg.descriptors))
	for _, d := range reg.descriptors {
		enabled := d.DefaultEnabled
		if v, ok := overrides[d.ID]; ok {
			enabled = v
		}
		if enabled {
			out = append(out, d)
		}
	}
	return out, nil
}
