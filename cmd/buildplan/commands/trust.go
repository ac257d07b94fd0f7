package commands

import (
	"fmt"

	"git.home.luguber.info/inful/buildplan/internal/trust"
)

// TrustCmd implements the 'trust' command.
type TrustCmd struct{}

func (t *TrustCmd) Run(g *Global, root *CLI) error {
	decl, err := loadDeclaration(root)
	if err != nil {
		return err
	}
	reg, err := trust.Register(decl.Caches)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(g.Out, reg.Snapshot().NixConfig())
	return err
}
