// Package source applies exclusion rules to a workspace and produces the filtered
// file tree used for fingerprinting and as build input.
package source

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"golang.org/x/text/unicode/norm"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/logfields"
)

// StateDir holds the tool's own state, such as the plan history database.
const StateDir = ".buildplan"

// reservedNames are never part of a source snapshot, at any depth.
var reservedNames = map[string]bool{
	".git":   true,
	StateDir: true,
}

// Kind classifies a file entry.
type Kind uint8

const (
	KindRegular Kind = iota
	KindExecutable
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindExecutable:
		return "executable"
	case KindSymlink:
		return "symlink"
	default:
		return "regular"
	}
}

// File is one entry of a filtered tree.
type File struct {
	// Path is the slash-separated, NFC-normalized path relative to the root.
	Path string
	Kind Kind
	// Abs is the on-disk location.
	Abs string
}

// Tree is a filtered view of a workspace, sorted by relative path.
type Tree struct {
	Root  string
	Files []File
}

// Paths returns the relative paths of every file.
func (t *Tree) Paths() []string {
	out := make([]string, len(t.Files))
	for i, f := range t.Files {
		out[i] = f.Path
	}
	return out
}

// Options tunes Filter.
type Options struct {
	// RespectGitignore adds the workspace's .gitignore rules to the exclusions.
	RespectGitignore bool
}

// Filter walks root and returns every file not matched by an exclusion pattern.
// A matched directory removes all of its descendants. Patterns naming paths that
// do not exist are ignored.
func Filter(ctx context.Context, root string, patterns []string, opts Options) (*Tree, error) {
	excl, err := CompileExclusions(patterns)
	if err != nil {
		return nil, perrors.ConfigInvalid("exclude", err.Error())
	}
	return FilterCompiled(ctx, root, excl, opts)
}

// FilterCompiled is Filter with pre-compiled exclusions.
func FilterCompiled(ctx context.Context, root string, excl *Exclusions, opts Options) (*Tree, error) {
	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, perrors.FileSystemError("resolve", root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, perrors.FileSystemError("stat", root, err)
	}
	if !info.IsDir() {
		return nil, perrors.ConfigInvalid("root", "not a directory")
	}

	var ignore gitignore.Matcher
	if opts.RespectGitignore {
		ps, err := gitignore.ReadPatterns(osfs.New(root), nil)
		if err != nil {
			return nil, perrors.FileSystemError("read gitignore", root, err)
		}
		ignore = gitignore.NewMatcher(ps)
	}

	tree := &Tree{Root: root}
	seen := make(map[string]string)
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = norm.NFC.String(filepath.ToSlash(rel))

		if reservedNames[d.Name()] || excl.Match(rel) ||
			(ignore != nil && ignore.Match(strings.Split(rel, "/"), d.IsDir())) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		var kind Kind
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			kind = KindSymlink
		case d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if fi.Mode().Perm()&0o111 != 0 {
				kind = KindExecutable
			}
		default:
			slog.Debug("Skipping special file", logfields.Path(rel))
			return nil
		}

		if prev, dup := seen[rel]; dup {
			return &normalizationCollision{rel: rel, first: prev, second: p}
		}
		seen[rel] = p
		tree.Files = append(tree.Files, File{Path: rel, Kind: kind, Abs: p})
		return nil
	})
	if walkErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, perrors.Canceled("filter", ctxErr)
		}
		return nil, perrors.FileSystemError("walk", root, walkErr)
	}

	sort.Slice(tree.Files, func(i, j int) bool { return tree.Files[i].Path < tree.Files[j].Path })
	return tree, nil
}

type normalizationCollision struct {
	rel, first, second string
}

func (e *normalizationCollision) Error() string {
	return "paths " + e.first + " and " + e.second + " normalize to " + e.rel
}
