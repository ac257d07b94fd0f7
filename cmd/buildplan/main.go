package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildplan/cmd/buildplan/commands"
	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &commands.CLI{}
	global := commands.NewGlobal(ctx)

	parser, err := kong.New(cli,
		kong.Name("buildplan"),
		kong.Description("Compile workspace declarations into reproducible build plans."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)
	if err != nil {
		slog.Error("Failed to build command line parser", "error", err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	adapter := perrors.NewCLIErrorAdapter(cli.Verbose, global.Logger)
	err = kctx.Run(cli)
	if ferr := cli.Finish(global); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		return adapter.HandleError(err)
	}
	return 0
}
