package commands

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	History string `name:"history-db" help:"History database (default: .buildplan/history.db next to the declaration)" type:"path"`
	Limit   int    `short:"n" default:"20" help:"Maximum number of entries (0 for all)"`
	All     bool   `short:"a" help:"Show entries for every declaration, not just --config"`
	Show    string `help:"Print the recorded plan with this hash"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	dbPath := h.History
	if dbPath == "" {
		dbPath = defaultHistoryPath(root.Config)
	}
	store, err := openHistory(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if h.Show != "" {
		e, err := store.ByHash(g.Context, h.Show)
		if err != nil {
			return err
		}
		data, err := e.Plan.Marshal()
		if err != nil {
			return perrors.InternalError("failed to marshal plan", err)
		}
		_, err = fmt.Fprintf(g.Out, "%s\n", data)
		return err
	}

	declaration := root.Config
	if h.All {
		declaration = ""
	}
	entries, err := store.List(g.Context, declaration, h.Limit)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(g.Out)
	table.Header("ID", "Recorded", "Hash", "Fingerprint", "Units", "Declaration")
	for _, e := range entries {
		row := []string{
			fmt.Sprint(e.ID),
			e.RecordedAt.Format(time.RFC3339),
			shortHash(e.Hash),
			e.Fingerprint,
			fmt.Sprint(len(e.Targets)),
			e.Declaration,
		}
		if err := table.Append(row); err != nil {
			return perrors.InternalError("failed to render table", err)
		}
	}
	if err := table.Render(); err != nil {
		return perrors.InternalError("failed to render table", err)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
