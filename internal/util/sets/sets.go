// Package sets provides a small generic set used where membership and a stable
// sorted listing are all that is needed.
package sets

import (
	"cmp"
	"maps"
	"slices"
)

// Set is a hash set for comparable keys.
type Set[T comparable] map[T]struct{}

// New creates a set pre-populated with vals.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	s.Add(vals...)
	return s
}

// Add inserts vals into the set.
func (s Set[T]) Add(vals ...T) {
	for _, v := range vals {
		s[v] = struct{}{}
	}
}

// Has returns true if v is present.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Union returns a new set holding every member of s and other.
func (s Set[T]) Union(other Set[T]) Set[T] {
	out := make(Set[T], len(s)+len(other))
	maps.Copy(out, s)
	maps.Copy(out, other)
	return out
}

// Sorted returns the members of s in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	return slices.Sorted(maps.Keys(s))
}
