package commands

import (
	"fmt"

	"git.home.luguber.info/inful/buildplan/internal/config"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct {
	Declarations []string `arg:"" optional:"" help:"Declaration files (default: --config)"`
	Schema       bool     `help:"Print the declaration JSON schema and exit"`
}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	if v.Schema {
		_, err := g.Out.Write(config.Schema())
		return err
	}
	decls, err := loadDeclarations(v.Declarations, root)
	if err != nil {
		return err
	}
	for _, d := range decls {
		if _, err := fmt.Fprintf(g.Out, "%s: valid\n", d.Path); err != nil {
			return err
		}
	}
	return nil
}
