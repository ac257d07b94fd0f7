package commands

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/buildplan/internal/devshell"
	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/pkgs"
	"git.home.luguber.info/inful/buildplan/internal/targets"
)

// ShellCmd implements the 'shell' command.
type ShellCmd struct {
	JSON bool `help:"Print the resolved shell as JSON"`
}

func (s *ShellCmd) Run(g *Global, root *CLI) error {
	decl, err := loadDeclaration(root)
	if err != nil {
		return err
	}
	set, err := pkgs.Compose(pkgs.Base(targets.Builtin().Toolchains()), decl.Overlays)
	if err != nil {
		return err
	}
	shell, err := devshell.Resolve(devshell.Compose(pkgs.BaseShellTools(), decl.DevShell.ExtraTools), set)
	if err != nil {
		return err
	}

	if s.JSON {
		data, err := json.MarshalIndent(shell, "", "  ")
		if err != nil {
			return perrors.InternalError("failed to marshal shell", err)
		}
		_, err = fmt.Fprintf(g.Out, "%s\n", data)
		return err
	}
	for _, t := range shell.Tools {
		if _, err := fmt.Fprintf(g.Out, "%s\t%s\n", t.Name, t.Ref); err != nil {
			return err
		}
	}
	return nil
}
