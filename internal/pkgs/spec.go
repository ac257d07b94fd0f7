package pkgs

import (
	"fmt"
	"maps"
	"strings"

	"git.home.luguber.info/inful/buildplan/internal/overlay"
)

// OverlaySpec is the declarative form of an overlay as written in a declaration.
type OverlaySpec struct {
	Name     string                 `yaml:"name" json:"name"`
	Packages map[string]PackageSpec `yaml:"packages" json:"packages"`
}

// PackageSpec describes one package an overlay defines.
//
// From optionally names the package this definition derives from, either
// "prev.<name>" (the set before this overlay) or "final.<name>" (the composed
// result). Version and Inputs replace the inherited values when set; Attrs are
// merged over the inherited attributes.
type PackageSpec struct {
	From    string            `yaml:"from,omitempty" json:"from,omitempty"`
	Version string            `yaml:"version,omitempty" json:"version,omitempty"`
	Inputs  []string          `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Attrs   map[string]string `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// Scope selects which view a From reference reads.
type Scope string

const (
	ScopePrev  Scope = "prev"
	ScopeFinal Scope = "final"
)

// ParseRef splits a From reference into its scope and package name.
func ParseRef(ref string) (Scope, string, error) {
	scope, name, ok := strings.Cut(ref, ".")
	if !ok || name == "" {
		return "", "", fmt.Errorf("reference %q must be prev.<name> or final.<name>", ref)
	}
	switch Scope(scope) {
	case ScopePrev, ScopeFinal:
		return Scope(scope), name, nil
	default:
		return "", "", fmt.Errorf("reference %q has unknown scope %q", ref, scope)
	}
}

// Overlays converts declarative specs into overlay functions, preserving order.
func Overlays(specs []OverlaySpec) []overlay.Overlay[Package] {
	out := make([]overlay.Overlay[Package], 0, len(specs))
	for _, spec := range specs {
		out = append(out, fromSpec(spec))
	}
	return out
}

func fromSpec(spec OverlaySpec) overlay.Overlay[Package] {
	return overlay.Overlay[Package]{
		Name: spec.Name,
		Apply: func(final, prev overlay.View[Package]) map[string]overlay.Thunk[Package] {
			out := make(map[string]overlay.Thunk[Package], len(spec.Packages))
			for name, ps := range spec.Packages {
				out[name] = definition(name, ps, final, prev)
			}
			return out
		},
	}
}

func definition(name string, ps PackageSpec, final, prev overlay.View[Package]) overlay.Thunk[Package] {
	return func() (Package, error) {
		pkg := Package{Name: name}
		if ps.From != "" {
			scope, from, err := ParseRef(ps.From)
			if err != nil {
				return Package{}, err
			}
			src := prev
			if scope == ScopeFinal {
				src = final
			}
			inherited, err := src.Get(from)
			if err != nil {
				return Package{}, err
			}
			pkg = inherited.clone()
			pkg.Name = name
		}
		if ps.Version != "" {
			pkg.Version = ps.Version
		}
		if ps.Inputs != nil {
			pkg.Inputs = append([]string(nil), ps.Inputs...)
		}
		if len(ps.Attrs) > 0 {
			if pkg.Attrs == nil {
				pkg.Attrs = make(map[string]string, len(ps.Attrs))
			}
			maps.Copy(pkg.Attrs, ps.Attrs)
		}
		// Inputs must exist in the composed set.
		for _, in := range pkg.Inputs {
			if _, err := final.Get(in); err != nil {
				return Package{}, err
			}
		}
		return pkg, nil
	}
}
