// Package overlay composes an ordered list of package-set transformations over a
// base set.
//
// Each overlay receives two views:
//
//   - prev: the set produced by the base and every overlay before it.
//   - final: a lazy reference to the fully composed result.
//
// An overlay returns thunks rather than values. A thunk is evaluated at most once,
// the first time its name is forced through final (or through prev by a later
// overlay). Evaluation tracks an in-progress marker per cell, so a definition that
// needs its own final value is reported as a cycle instead of recursing, and a
// name that no layer defines is reported as unresolved instead of producing a zero
// value.
//
// Compose forces every cell before returning, so the result never holds pending
// definitions.
package overlay
