package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"

	"git.home.luguber.info/inful/buildplan/internal/config"
	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/handoff"
	"git.home.luguber.info/inful/buildplan/internal/history"
	"git.home.luguber.info/inful/buildplan/internal/logfields"
	"git.home.luguber.info/inful/buildplan/internal/plan"
)

// PlanCmd implements the 'plan' command.
type PlanCmd struct {
	Declarations []string `arg:"" optional:"" type:"existingfile" help:"Declaration files (default: --config)"`
	Output       string   `short:"o" help:"Write the plan to this file instead of stdout" type:"path"`
	Format       string   `short:"f" enum:"json,table" default:"json" help:"Output format (json|table)"`
	Concurrency  int      `short:"j" default:"4" help:"Declarations compiled in parallel"`

	Record  bool   `help:"Record the plan in the local history"`
	History string `name:"history-db" help:"History database (default: .buildplan/history.db next to the declaration)" type:"path"`

	Publish string        `name:"publish" placeholder:"NATS_URL" help:"Hand the plan to an executor over NATS JetStream"`
	Subject string        `default:"buildplan.plans" help:"NATS subject plans are published to"`
	Stream  string        `help:"JetStream stream to create or update for the subject"`
	Timeout time.Duration `default:"5s" help:"Hand-off acknowledgement timeout"`
}

func (p *PlanCmd) Run(g *Global, root *CLI) error {
	decls, err := loadDeclarations(p.Declarations, root)
	if err != nil {
		return err
	}
	plans, err := g.compiler().CompileAll(g.Context, decls, p.Concurrency)
	if err != nil {
		return err
	}

	if p.Record {
		if err := p.record(g, decls, plans); err != nil {
			return err
		}
	}
	if p.Publish != "" {
		if err := p.publish(g, decls, plans); err != nil {
			return err
		}
	}
	return p.write(g.Out, plans)
}

func (p *PlanCmd) write(stdout io.Writer, plans []*plan.BuildPlan) error {
	w := stdout
	if p.Output != "" {
		f, err := os.Create(p.Output)
		if err != nil {
			return perrors.FileSystemError("create", p.Output, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if p.Format == "table" {
		return writePlanTable(w, plans)
	}
	return writePlansJSON(w, plans)
}

// writePlansJSON writes a single plan as an object and several as an array.
func writePlansJSON(w io.Writer, plans []*plan.BuildPlan) error {
	var (
		data []byte
		err  error
	)
	if len(plans) == 1 {
		data, err = plans[0].Marshal()
	} else {
		data, err = json.MarshalIndent(plans, "", "  ")
	}
	if err != nil {
		return perrors.InternalError("failed to marshal plan", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return perrors.FileSystemError("write", "output", err)
	}
	return nil
}

func writePlanTable(w io.Writer, plans []*plan.BuildPlan) error {
	table := tablewriter.NewWriter(w)
	table.Header("Target", "Toolchain", "Fingerprint", "Lint", "Tests")
	for _, bp := range plans {
		for _, u := range bp.Units {
			lint := "advisory"
			if u.Policy.LintStrict {
				lint = "strict"
			}
			if err := table.Append([]string{u.Target, u.Toolchain, u.Fingerprint.String(), lint, string(u.Policy.TestScope)}); err != nil {
				return perrors.InternalError("failed to render table", err)
			}
		}
	}
	if err := table.Render(); err != nil {
		return perrors.InternalError("failed to render table", err)
	}
	return nil
}

func (p *PlanCmd) record(g *Global, decls []*config.Declaration, plans []*plan.BuildPlan) error {
	dbPath := p.History
	if dbPath == "" {
		dbPath = defaultHistoryPath(decls[0].Path)
	}
	if dbPath != ":memory:" {
		// The database directory also holds its journal files.
		for _, d := range decls {
			if err := keepOutOfSource(d, "history-db", filepath.Dir(dbPath)); err != nil {
				return err
			}
		}
	}
	store, err := openHistory(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for i, bp := range plans {
		e, created, err := store.Record(g.Context, decls[i].Path, bp)
		if err != nil {
			return err
		}
		if created {
			g.Logger.Info("Plan recorded", logfields.Declaration(decls[i].Path), "id", e.ID, "hash", e.Hash)
		} else {
			g.Logger.Info("Plan unchanged since last record", logfields.Declaration(decls[i].Path), "hash", e.Hash)
		}
	}
	return nil
}

func (p *PlanCmd) publish(g *Global, decls []*config.Declaration, plans []*plan.BuildPlan) error {
	client, err := handoff.Connect(g.Context, handoff.Options{
		URL:     p.Publish,
		Subject: p.Subject,
		Stream:  p.Stream,
		Timeout: p.Timeout,
		Logger:  g.Logger,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	for i, bp := range plans {
		r, err := client.Publish(g.Context, decls[i].Path, bp)
		g.Recorder.IncHandoff(err == nil)
		if err != nil {
			return err
		}
		g.Logger.Info("Plan handed off",
			logfields.Declaration(decls[i].Path),
			"stream", r.Stream,
			"sequence", r.Sequence,
			"duplicate", r.Duplicate)
	}
	return nil
}

func openHistory(path string) (*history.SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, perrors.FileSystemError("mkdir", dir, err)
		}
	}
	return history.NewSQLiteStore(path)
}
