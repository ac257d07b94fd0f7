// Package watch re-runs a callback when a workspace or its declaration changes.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/logfields"
	"git.home.luguber.info/inful/buildplan/internal/source"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Root is the workspace directory; it is watched recursively.
	Root string
	// Declaration is the declaration file. Its directory is watched too.
	Declaration string
	// Exclude uses the declaration's exclusion patterns to ignore noise such as
	// build output. Nil ignores nothing beyond the reserved directories.
	Exclude *source.Exclusions
	// Ignore lists files the caller writes itself, such as the plan output.
	Ignore   []string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher monitors file system events and triggers debounced callbacks.
type Watcher struct {
	root        string
	declaration string
	exclude     *source.Exclusions
	ignore      map[string]bool
	debounce    time.Duration
	logger      *slog.Logger
	fs          *fsnotify.Watcher
}

// New creates a watcher and registers every non-excluded directory under root.
func New(opts Options) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, perrors.FileSystemError("resolve", opts.Root, err)
	}
	w := &Watcher{
		root:     root,
		exclude:  opts.Exclude,
		ignore:   make(map[string]bool, len(opts.Ignore)),
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}
	for _, p := range opts.Ignore {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, perrors.FileSystemError("resolve", p, err)
		}
		w.ignore[abs] = true
	}
	if opts.Declaration != "" {
		if w.declaration, err = filepath.Abs(opts.Declaration); err != nil {
			return nil, perrors.FileSystemError("resolve", opts.Declaration, err)
		}
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	w.fs, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, perrors.FileSystemError("watch", root, err)
	}
	if err := w.addTree(root); err != nil {
		_ = w.fs.Close()
		return nil, err
	}
	if w.declaration != "" {
		// Watch the directory rather than the file: editors replace files on save.
		if err := w.fs.Add(filepath.Dir(w.declaration)); err != nil {
			_ = w.fs.Close()
			return nil, perrors.FileSystemError("watch", filepath.Dir(w.declaration), err)
		}
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			if _, ok := w.relevantPath(p); !ok {
				return filepath.SkipDir
			}
		}
		return w.fs.Add(p)
	})
	if err != nil {
		return perrors.FileSystemError("watch", dir, err)
	}
	return nil
}

// relevantPath reports whether an event on p can change the compiled plan, and
// the slash-separated path relative to root when p lies inside it.
func (w *Watcher) relevantPath(p string) (string, bool) {
	if p == w.declaration {
		return "", true
	}
	if w.ignore[p] {
		return "", false
	}
	rel, err := filepath.Rel(w.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.exclude.Covers(rel) {
		return rel, false
	}
	return rel, true
}

// Run blocks until ctx is done, calling onChange once per burst of relevant
// events. Errors from onChange are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	defer func() { _ = w.fs.Close() }()

	w.logger.Info("Watching for changes", logfields.Path(w.root))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			rel, relevant := w.relevantPath(ev.Name)
			if !relevant {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", logfields.Path(rel), logfields.Error(err))
					}
				}
			}
			w.logger.Debug("Change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", logfields.Error(err))
		case <-timer.C:
			if err := onChange(ctx); err != nil {
				if errors.Is(err, context.Canceled) || perrors.IsCategory(err, perrors.CategoryCanceled) {
					return nil
				}
				w.logger.Error("Rebuild after change failed", logfields.Error(err))
			}
		}
	}
}
