package commands

import (
	"context"
	"os"
	"time"

	"git.home.luguber.info/inful/buildplan/internal/config"
	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/logfields"
	"git.home.luguber.info/inful/buildplan/internal/plan"
	"git.home.luguber.info/inful/buildplan/internal/source"
	"git.home.luguber.info/inful/buildplan/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Output   string        `short:"o" help:"Rewrite this file with the latest plan instead of printing it" type:"path"`
	Debounce time.Duration `default:"500ms" help:"Quiet period before recompiling"`
	Record   bool          `help:"Record every changed plan in the local history"`
	History  string        `name:"history-db" help:"History database (default: .buildplan/history.db next to the declaration)" type:"path"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	decl, err := loadDeclaration(root)
	if err != nil {
		return err
	}
	excl, err := source.CompileExclusions(decl.Exclude)
	if err != nil {
		return perrors.ConfigInvalid("exclude", err.Error())
	}

	var ignore []string
	if w.Output != "" {
		if err := keepOutOfSource(decl, "output", w.Output); err != nil {
			return err
		}
		ignore = append(ignore, w.Output, w.Output+".tmp")
	}

	watcher, err := watch.New(watch.Options{
		Root:        decl.Root,
		Declaration: decl.Path,
		Exclude:     excl,
		Ignore:      ignore,
		Debounce:    w.Debounce,
		Logger:      g.Logger,
	})
	if err != nil {
		return err
	}

	var last string
	rebuild := func(ctx context.Context) error {
		current, err := loadDeclaration(root)
		if err != nil {
			return err
		}
		p, err := g.compiler().Compile(ctx, current)
		if err != nil {
			return err
		}
		hash, err := p.Hash()
		if err != nil {
			return perrors.InternalError("failed to hash plan", err)
		}
		if hash == last {
			g.Logger.Debug("Plan unchanged", logfields.Fingerprint(p.Source.Fingerprint.String()))
			return nil
		}
		last = hash
		g.Logger.Info("Plan changed", "hash", hash, logfields.Fingerprint(p.Source.Fingerprint.String()))
		if w.Record {
			rec := &PlanCmd{History: w.History}
			if err := rec.record(g, []*config.Declaration{current}, []*plan.BuildPlan{p}); err != nil {
				return err
			}
		}
		return w.emit(g, p)
	}

	if err := rebuild(g.Context); err != nil {
		return err
	}
	return watcher.Run(g.Context, rebuild)
}

func (w *WatchCmd) emit(g *Global, p *plan.BuildPlan) error {
	if w.Output == "" {
		return writePlansJSON(g.Out, []*plan.BuildPlan{p})
	}
	tmp := w.Output + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return perrors.FileSystemError("create", tmp, err)
	}
	if err := writePlansJSON(f, []*plan.BuildPlan{p}); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return perrors.FileSystemError("close", tmp, err)
	}
	if err := os.Rename(tmp, w.Output); err != nil {
		return perrors.FileSystemError("rename", w.Output, err)
	}
	return nil
}
