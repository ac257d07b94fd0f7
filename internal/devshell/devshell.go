// Package devshell merges the base development tools with a declaration's extra
// tools into one shell specification.
package devshell

import (
	"strings"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/pkgs"
	"git.home.luguber.info/inful/buildplan/internal/util/sets"
)

// Spec is the de-duplicated set of tool names a shell provides. Tools are kept
// sorted only so encodings are stable; consumers must not rely on order.
type Spec struct {
	Tools []string `json:"tools"`
}

// Tool is a shell tool bound to a package of the composed set.
type Tool struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

// Resolved is a Spec whose tools have been bound to packages.
type Resolved struct {
	Tools []Tool `json:"tools"`
}

// Compose returns the union of base and extra. Blank names are dropped.
func Compose(base, extra []string) Spec {
	return Spec{Tools: sets.Sorted(toolSet(base).Union(toolSet(extra)))}
}

func toolSet(names []string) sets.Set[string] {
	s := sets.New[string]()
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			s.Add(name)
		}
	}
	return s
}

// Has reports whether the shell provides name.
func (s Spec) Has(name string) bool {
	for _, t := range s.Tools {
		if t == name {
			return true
		}
	}
	return false
}

// Resolve binds every tool to its package in set.
func Resolve(spec Spec, set pkgs.Set) (Resolved, error) {
	out := Resolved{Tools: make([]Tool, 0, len(spec.Tools))}
	for _, name := range spec.Tools {
		p, ok := set[name]
		if !ok {
			return Resolved{}, perrors.UnresolvedPackage(name, "devshell")
		}
		out.Tools = append(out.Tools, Tool{Name: name, Ref: p.Ref()})
	}
	return out, nil
}

// Refs returns the package references of a resolved shell.
func (r Resolved) Refs() []string {
	out := make([]string, len(r.Tools))
	for i, t := range r.Tools {
		out[i] = t.Ref
	}
	return out
}
