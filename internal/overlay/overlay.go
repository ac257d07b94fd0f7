package overlay

import (
	"maps"
	"slices"
	"strconv"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
)

// Set maps package names to definitions.
type Set[V any] map[string]V

// Clone returns a shallow copy of s.
func (s Set[V]) Clone() Set[V] {
	return maps.Clone(s)
}

// View gives read access to a package set while it is being composed.
type View[V any] interface {
	// Get forces the definition of name.
	Get(name string) (V, error)
	// Has reports whether any visible layer defines name, without forcing it.
	Has(name string) bool
}

// Thunk defers the evaluation of one definition.
type Thunk[V any] func() (V, error)

// Value wraps an already-known value in a Thunk.
func Value[V any](v V) Thunk[V] {
	return func() (V, error) { return v, nil }
}

// Overlay is one named transformation. Apply must be pure: it may only capture the
// views and must not force them outside the returned thunks.
type Overlay[V any] struct {
	Name  string
	Apply func(final, prev View[V]) map[string]Thunk[V]
}

const baseLayer = "base"

type cellState int

const (
	statePending cellState = iota
	stateInProgress
	stateDone
)

type cell[V any] struct {
	thunk Thunk[V]
	state cellState
	value V
	err   error
}

type layer[V any] struct {
	name  string
	cells map[string]*cell[V]
}

type composition[V any] struct {
	layers []*layer[V]
}

// Compose folds overlays left to right over base and returns the fully evaluated
// result. Composing no overlays returns a copy of base.
func Compose[V any](base Set[V], overlays []Overlay[V]) (Set[V], error) {
	c := &composition[V]{}

	bl := &layer[V]{name: baseLayer, cells: make(map[string]*cell[V], len(base))}
	for name, v := range base {
		bl.cells[name] = &cell[V]{state: stateDone, value: v}
	}
	c.layers = append(c.layers, bl)

	final := &view[V]{c: c, depth: -1, requester: "final"}
	for i, o := range overlays {
		name := o.Name
		if name == "" {
			name = "overlay-" + strconv.Itoa(i)
		}
		// prev sees base plus the overlays folded so far; the current layer is
		// appended only after Apply returns, so it never observes itself.
		prev := &view[V]{c: c, depth: len(c.layers), requester: name}
		l := &layer[V]{name: name, cells: map[string]*cell[V]{}}
		if o.Apply != nil {
			for pkg, th := range o.Apply(&requesterView[V]{final, name}, prev) {
				if th == nil {
					continue
				}
				l.cells[pkg] = &cell[V]{thunk: th}
			}
		}
		c.layers = append(c.layers, l)
	}

	out := make(Set[V])
	for _, name := range c.names() {
		v, err := final.get(name, "compose")
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func (c *composition[V]) names() []string {
	seen := map[string]struct{}{}
	for _, l := range c.layers {
		for name := range l.cells {
			seen[name] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// lookup finds the top-most layer below depth (exclusive) defining name. A
// negative depth searches every layer.
func (c *composition[V]) lookup(name string, depth int) (*layer[V], *cell[V]) {
	top := len(c.layers)
	if depth >= 0 && depth < top {
		top = depth
	}
	for i := top - 1; i >= 0; i-- {
		if cl, ok := c.layers[i].cells[name]; ok {
			return c.layers[i], cl
		}
	}
	return nil, nil
}

func (c *composition[V]) force(l *layer[V], cl *cell[V], name string) (V, error) {
	switch cl.state {
	case stateDone:
		return cl.value, cl.err
	case stateInProgress:
		var zero V
		return zero, perrors.OverlayCycle(name, l.name)
	}

	cl.state = stateInProgress
	v, err := cl.thunk()
	if err != nil {
		if _, ok := perrors.As(err); !ok {
			err = perrors.OverlayFailed(l.name, err).WithContext("package", name)
		}
	}
	cl.value, cl.err, cl.state = v, err, stateDone
	cl.thunk = nil
	return v, err
}

type view[V any] struct {
	c         *composition[V]
	depth     int
	requester string
}

func (v *view[V]) Get(name string) (V, error) {
	return v.get(name, v.requester)
}

func (v *view[V]) get(name, requester string) (V, error) {
	l, cl := v.c.lookup(name, v.depth)
	if cl == nil {
		var zero V
		return zero, perrors.UnresolvedPackage(name, requester)
	}
	return v.c.force(l, cl, name)
}

func (v *view[V]) Has(name string) bool {
	_, cl := v.c.lookup(name, v.depth)
	return cl != nil
}

// requesterView tags final lookups with the overlay that performed them so an
// unresolved error names the culprit.
type requesterView[V any] struct {
	*view[V]
	requester string
}

func (r *requesterView[V]) Get(name string) (V, error) {
	return r.view.get(name, r.requester)
}
