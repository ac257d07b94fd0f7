package source

import (
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/text/unicode/norm"
)

const globMeta = "*?[{"

// IsGlob reports whether pattern uses glob syntax rather than a literal path prefix.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, globMeta)
}

type rule struct {
	pattern string
	literal string
	glob    glob.Glob
}

func (r rule) match(rel string) bool {
	if r.glob != nil {
		return r.glob.Match(rel)
	}
	return rel == r.literal || strings.HasPrefix(rel, r.literal+"/")
}

// Exclusions is a compiled, order-independent set of exclusion patterns.
type Exclusions struct {
	rules []rule
}

// CompileExclusions validates and compiles patterns. Patterns are relative to the
// workspace root; absolute patterns and patterns escaping the root are rejected.
func CompileExclusions(patterns []string) (*Exclusions, error) {
	e := &Exclusions{rules: make([]rule, 0, len(patterns))}
	for _, p := range patterns {
		r, err := compileRule(p)
		if err != nil {
			return nil, err
		}
		e.rules = append(e.rules, r)
	}
	return e, nil
}

func compileRule(raw string) (rule, error) {
	p := norm.NFC.String(strings.TrimSpace(raw))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimRight(p, "/")
	switch {
	case p == "" || p == ".":
		return rule{}, fmt.Errorf("pattern %q excludes the whole workspace", raw)
	case strings.HasPrefix(p, "/"):
		return rule{}, fmt.Errorf("pattern %q must be relative to the workspace root", raw)
	case escapesRoot(p):
		return rule{}, fmt.Errorf("pattern %q escapes the workspace root", raw)
	}

	if IsGlob(p) {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return rule{}, fmt.Errorf("pattern %q: %w", raw, err)
		}
		return rule{pattern: raw, glob: g}, nil
	}

	clean := path.Clean(p)
	if clean == "." {
		return rule{}, fmt.Errorf("pattern %q excludes the whole workspace", raw)
	}
	return rule{pattern: raw, literal: clean}, nil
}

// escapesRoot reports whether the ".." components of p climb above its first
// component. Glob metacharacters never form a ".." component, so the check
// applies to globs and literals alike.
func escapesRoot(p string) bool {
	depth := 0
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}

// Match reports whether the slash-separated relative path is excluded by any
// pattern. Descendants of a matched directory are excluded by the walk.
func (e *Exclusions) Match(rel string) bool {
	if e == nil {
		return false
	}
	for _, r := range e.rules {
		if r.match(rel) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (e *Exclusions) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// IsReserved reports whether the slash-separated relative path lies inside a
// version-control or tool state directory, which is never part of the source.
func IsReserved(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if reservedNames[part] {
			return true
		}
	}
	return false
}

// Covers reports whether rel is left out of every filtered tree: it is reserved,
// or it or one of its ancestor directories matches a pattern.
func (e *Exclusions) Covers(rel string) bool {
	if IsReserved(rel) {
		return true
	}
	for p := rel; p != "." && p != ""; p = path.Dir(p) {
		if e.Match(p) {
			return true
		}
	}
	return false
}
