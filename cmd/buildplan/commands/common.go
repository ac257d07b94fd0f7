package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildplan/internal/compile"
	"git.home.luguber.info/inful/buildplan/internal/config"
	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/metrics"
	"git.home.luguber.info/inful/buildplan/internal/source"
	"git.home.luguber.info/inful/buildplan/internal/targets"
)

// Global is the state shared by every subcommand.
type Global struct {
	Context context.Context
	Logger  *slog.Logger
	Out     io.Writer

	// Metrics is non-nil when --metrics-file was given.
	Metrics  *prom.Registry
	Recorder metrics.Recorder
}

// NewGlobal returns the default shared state writing to stdout.
func NewGlobal(ctx context.Context) *Global {
	return &Global{
		Context:  ctx,
		Logger:   slog.Default(),
		Out:      os.Stdout,
		Recorder: metrics.NoopRecorder{},
	}
}

// CLI definition & global flags.
type CLI struct {
	Config      string           `short:"c" help:"Declaration file path" default:"buildplan.yaml" type:"path"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	MetricsFile string           `name:"metrics-file" help:"Write Prometheus metrics in text format to this file on exit" type:"path"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Plan        PlanCmd        `cmd:"" default:"withargs" help:"Compile declarations into build plans"`
	Fingerprint FingerprintCmd `cmd:"" help:"Print the source fingerprint of a workspace"`
	Targets     TargetsCmd     `cmd:"" help:"List the target matrix"`
	Shell       ShellCmd       `cmd:"" help:"Print the development shell tools"`
	Trust       TrustCmd       `cmd:"" help:"Print trusted caches as a nix.conf fragment"`
	Validate    ValidateCmd    `cmd:"" help:"Validate a declaration without compiling it"`
	Init        InitCmd        `cmd:"" help:"Write a starter declaration"`
	Watch       WatchCmd       `cmd:"" help:"Recompile whenever the workspace or declaration changes"`
	History     HistoryCmd     `cmd:"" help:"Show recorded build plans"`
	Report      ReportCmd      `cmd:"" help:"Render a build plan as HTML or Markdown"`
}

// AfterApply runs after flag parsing; sets up logging and metrics once.
func (c *CLI) AfterApply(g *Global) error {
	level := parseLogLevel(c.Verbose)
	g.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)

	if c.MetricsFile != "" {
		g.Metrics = prom.NewRegistry()
		g.Recorder = metrics.NewPrometheusRecorder(g.Metrics)
	}
	return nil
}

// parseLogLevel honours --verbose first, then BUILDPLAN_LOG_LEVEL.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("BUILDPLAN_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Finish writes the metrics snapshot when one was requested.
func (c *CLI) Finish(g *Global) error {
	if c.MetricsFile == "" || g.Metrics == nil {
		return nil
	}
	return metrics.WriteTextfile(c.MetricsFile, g.Metrics)
}

func (g *Global) compiler() *compile.Compiler {
	return compile.New(compile.Options{
		Registry: targets.Builtin(),
		Logger:   g.Logger,
		Recorder: g.Recorder,
	})
}

// loadDeclarations loads each path, falling back to the global --config.
func loadDeclarations(paths []string, root *CLI) ([]*config.Declaration, error) {
	if len(paths) == 0 {
		paths = []string{root.Config}
	}
	decls := make([]*config.Declaration, 0, len(paths))
	for _, p := range paths {
		d, err := config.LoadFile(p, config.LoadOptions{})
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return decls, nil
}

func loadDeclaration(root *CLI) (*config.Declaration, error) {
	decls, err := loadDeclarations(nil, root)
	if err != nil {
		return nil, err
	}
	return decls[0], nil
}

// defaultHistoryPath keeps the history database in the state directory next
// to the declaration, which the source filter never includes.
func defaultHistoryPath(declaration string) string {
	return filepath.Join(filepath.Dir(declaration), source.StateDir, "history.db")
}

// keepOutOfSource fails when target, a file or directory the command writes,
// would be part of decl's filtered tree and so change the fingerprint it is
// derived from.
func keepOutOfSource(decl *config.Declaration, field, target string) error {
	excl, err := source.CompileExclusions(decl.Exclude)
	if err != nil {
		return perrors.ConfigInvalid("exclude", err.Error())
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return perrors.FileSystemError("resolve", target, err)
	}
	abs = filepath.Join(evalExisting(filepath.Dir(abs)), filepath.Base(abs))
	rel, err := filepath.Rel(evalExisting(decl.Root), abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	if rel = filepath.ToSlash(rel); rel != "." && excl.Covers(rel) {
		return nil
	}
	return perrors.ConfigInvalid(field,
		fmt.Sprintf("%s lies inside the workspace root %s; exclude it or move it outside the root", target, decl.Root))
}

// evalExisting resolves symlinks in p when it exists.
func evalExisting(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	return p
}
