// Package pkgs defines the concrete package definitions the compiler composes:
// the builtin base set, and declarative overlays loaded from a declaration.
package pkgs

import (
	"maps"
	"slices"

	"git.home.luguber.info/inful/buildplan/internal/overlay"
)

// Package is one entry of a package set.
type Package struct {
	Name    string            `json:"name"`
	Version string            `json:"version,omitempty"`
	Inputs  []string          `json:"inputs,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Ref returns the name@version reference used in plans.
func (p Package) Ref() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "@" + p.Version
}

// clone returns a deep copy so overlays never share slices or maps with the
// definitions they derive from.
func (p Package) clone() Package {
	out := p
	out.Inputs = slices.Clone(p.Inputs)
	out.Attrs = maps.Clone(p.Attrs)
	return out
}

// Set is a package set keyed by package name.
type Set = overlay.Set[Package]

// Compose folds declarative overlays over base.
func Compose(base Set, specs []OverlaySpec) (Set, error) {
	return overlay.Compose(base, Overlays(specs))
}
