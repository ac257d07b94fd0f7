package commands

import (
	"strconv"

	"github.com/olekukonko/tablewriter"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/targets"
)

// TargetsCmd implements the 'targets' command.
type TargetsCmd struct {
	Resolved bool `short:"r" help:"Show whether each target is enabled by the declaration"`
}

func (t *TargetsCmd) Run(g *Global, root *CLI) error {
	reg := targets.Builtin()
	enabled := map[string]bool{}
	header := []any{"Target", "Default", "Toolchain"}

	if t.Resolved {
		decl, err := loadDeclaration(root)
		if err != nil {
			return err
		}
		resolved, err := targets.Resolve(reg, decl.Targets)
		if err != nil {
			return err
		}
		for _, d := range resolved {
			enabled[d.ID] = true
		}
		header = append(header, "Enabled")
	}

	table := tablewriter.NewWriter(g.Out)
	table.Header(header...)
	for _, d := range reg.All() {
		row := []string{d.ID, strconv.FormatBool(d.DefaultEnabled), d.Toolchain}
		if t.Resolved {
			row = append(row, strconv.FormatBool(enabled[d.ID]))
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
