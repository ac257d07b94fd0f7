package targets

import (
	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/pkgs"
)

// Bound is a resolved target paired with the toolchain package that serves it.
type Bound struct {
	Descriptor
	ToolchainRef string
}

// Toolchains maps each registered target's toolchain package to the target triple.
func (r Registry) Toolchains() map[string]string {
	out := make(map[string]string, len(r.descriptors))
	for _, d := range r.descriptors {
		out[d.Toolchain] = d.ID
	}
	return out
}

// BindToolchains looks up every target's toolchain requirement in the composed
// package set, preserving the order of resolved.
func BindToolchains(resolved []Descriptor, set pkgs.Set) ([]Bound, error) {
	out := make([]Bound, 0, len(resolved))
	for _, d := range resolved {
		p, ok := set[d.Toolchain]
		if !ok {
			return nil, perrors.UnresolvedPackage(d.Toolchain, "target "+d.ID)
		}
		out = append(out, Bound{Descriptor: d, ToolchainRef: p.Ref()})
	}
	return out, nil
}
