package commands

import (
	"io"
	"os"
	"time"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/plan"
	"git.home.luguber.info/inful/buildplan/internal/report"
)

// ReportCmd implements the 'report' command.
type ReportCmd struct {
	Plan     string `help:"Render a saved plan JSON file instead of compiling --config" type:"existingfile"`
	Output   string `short:"o" help:"Write the report to this file instead of stdout" type:"path"`
	Markdown bool   `help:"Emit Markdown instead of HTML"`
}

func (r *ReportCmd) Run(g *Global, root *CLI) error {
	bp, declaration, err := r.load(g, root)
	if err != nil {
		return err
	}
	hash, err := bp.Hash()
	if err != nil {
		return perrors.InternalError("failed to hash plan", err)
	}
	meta := report.Meta{Declaration: declaration, Hash: hash, GeneratedAt: time.Now()}

	var w io.Writer = g.Out
	if r.Output != "" {
		f, err := os.Create(r.Output)
		if err != nil {
			return perrors.FileSystemError("create", r.Output, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if r.Markdown {
		if _, err := w.Write(report.Markdown(bp, meta)); err != nil {
			return perrors.FileSystemError("write", r.Output, err)
		}
		return nil
	}
	return report.HTML(w, bp, meta)
}

func (r *ReportCmd) load(g *Global, root *CLI) (*plan.BuildPlan, string, error) {
	if r.Plan != "" {
		data, err := os.ReadFile(r.Plan)
		if err != nil {
			return nil, "", perrors.FileSystemError("read", r.Plan, err)
		}
		bp, err := plan.Decode(data)
		if err != nil {
			return nil, "", perrors.ConfigInvalid("plan", err.Error())
		}
		return bp, "", nil
	}
	decl, err := loadDeclaration(root)
	if err != nil {
		return nil, "", err
	}
	bp, err := g.compiler().Compile(g.Context, decl)
	if err != nil {
		return nil, "", err
	}
	return bp, decl.Path, nil
}
