// Package history keeps a local record of compiled build plans so repeated
// compilations of a declaration can be compared over time.
package history

import (
	"context"
	"time"

	"git.home.luguber.info/inful/buildplan/internal/plan"
)

// Entry is one recorded compilation.
type Entry struct {
	ID          int64
	Declaration string
	Hash        string
	Fingerprint string
	Targets     []string
	RecordedAt  time.Time
	Plan        *plan.BuildPlan
}

// Store defines the interface for persisting and retrieving plans.
type Store interface {
	// Record stores p for declaration. Recording a plan identical to the latest
	// one for the same declaration is a no-op and returns the existing entry.
	Record(ctx context.Context, declaration string, p *plan.BuildPlan) (Entry, bool, error)

	// Latest returns the most recent entry for declaration.
	Latest(ctx context.Context, declaration string) (Entry, error)

	// List returns up to limit entries for declaration, newest first. An empty
	// declaration lists every declaration.
	List(ctx context.Context, declaration string, limit int) ([]Entry, error)

	// ByHash returns the newest entry whose plan hash is hash.
	ByHash(ctx context.Context, hash string) (Entry, error)

	// Close closes the store and releases resources.
	Close() error
}
