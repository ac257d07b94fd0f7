package commands

import (
	"fmt"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/fingerprint"
	"git.home.luguber.info/inful/buildplan/internal/source"
)

// FingerprintCmd implements the 'fingerprint' command.
type FingerprintCmd struct {
	Root      string   `arg:"" optional:"" type:"existingdir" help:"Workspace to fingerprint (default: the declaration's root)"`
	Exclude   []string `short:"e" help:"Exclusion patterns (replaces the declaration's)"`
	Gitignore bool     `help:"Also exclude paths ignored by .gitignore"`
	List      bool     `short:"l" help:"List the files that are part of the snapshot"`
	Hex       bool     `help:"Print the digest as hex instead of SRI form"`
}

func (f *FingerprintCmd) Run(g *Global, root *CLI) error {
	dir, patterns, opts := f.Root, f.Exclude, source.Options{RespectGitignore: f.Gitignore}
	if dir == "" {
		decl, err := loadDeclaration(root)
		if err != nil {
			return err
		}
		dir = decl.Root
		if patterns == nil {
			patterns = decl.Exclude
		}
		opts.RespectGitignore = opts.RespectGitignore || decl.Source.RespectGitignore
	}

	fp, tree, err := fingerprint.Dir(g.Context, dir, patterns, opts)
	if err != nil {
		return err
	}
	g.Recorder.ObserveSourceFiles(len(tree.Files))

	if f.List {
		for _, file := range tree.Files {
			if _, err := fmt.Fprintf(g.Out, "%s\t%s\n", file.Kind, file.Path); err != nil {
				return perrors.FileSystemError("write", "stdout", err)
			}
		}
	}
	out := fp.String()
	if f.Hex {
		out = fp.Hex()
	}
	_, err = fmt.Fprintln(g.Out, out)
	return err
}
