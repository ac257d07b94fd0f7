package commands

import (
	"fmt"

	"git.home.luguber.info/inful/buildplan/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite an existing declaration"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	_, err := fmt.Fprintf(g.Out, "Wrote starter declaration to %s\n", root.Config)
	return err
}
