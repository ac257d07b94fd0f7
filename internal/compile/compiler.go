package compile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/buildplan/internal/config"
	"git.home.luguber.info/inful/buildplan/internal/devshell"
	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/fingerprint"
	"git.home.luguber.info/inful/buildplan/internal/logfields"
	"git.home.luguber.info/inful/buildplan/internal/metrics"
	"git.home.luguber.info/inful/buildplan/internal/pkgs"
	"git.home.luguber.info/inful/buildplan/internal/plan"
	"git.home.luguber.info/inful/buildplan/internal/source"
	"git.home.luguber.info/inful/buildplan/internal/targets"
	"git.home.luguber.info/inful/buildplan/internal/trust"
)

// Stage names used in logs and metrics.
const (
	StageTrust       = "trust"
	StageFingerprint = "fingerprint"
	StagePackages    = "packages"
	StageTargets     = "targets"
	StageDevShell    = "devshell"
	StageAssemble    = "assemble"
)

// Options configures a Compiler. Zero values select the defaults.
type Options struct {
	Registry targets.Registry
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Compiler turns declarations into build plans. It holds no per-compilation
// state and may be shared between goroutines.
type Compiler struct {
	registry targets.Registry
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New creates a Compiler.
func New(opts Options) *Compiler {
	c := &Compiler{
		registry: opts.Registry,
		logger:   opts.Logger,
		recorder: opts.Recorder,
	}
	if c.registry.Len() == 0 {
		c.registry = targets.Builtin()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.recorder == nil {
		c.recorder = metrics.NoopRecorder{}
	}
	return c
}

// Registry returns the target registry the compiler resolves against.
func (c *Compiler) Registry() targets.Registry {
	return c.registry
}

// Compile runs every stage for decl. It either returns a complete plan or an
// error; partial plans are never produced.
func (c *Compiler) Compile(ctx context.Context, decl *config.Declaration) (*plan.BuildPlan, error) {
	start := time.Now()
	log := c.logger.With(logfields.RunID(uuid.NewString()))
	if decl.Path != "" {
		log = log.With(logfields.Declaration(decl.Path))
	}

	p, err := c.run(ctx, log, decl)
	c.recorder.ObserveCompileDuration(time.Since(start))
	if err != nil {
		c.recorder.IncCompileOutcome(outcomeFor(err))
		log.Debug("Compilation failed", logfields.Error(err))
		return nil, err
	}
	c.recorder.IncCompileOutcome(metrics.OutcomeSuccess)
	c.recorder.SetBuildUnits(len(p.Units))
	log.Info("Build plan compiled",
		logfields.Fingerprint(p.Source.Fingerprint.String()),
		logfields.Count(len(p.Units)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return p, nil
}

func (c *Compiler) run(ctx context.Context, log *slog.Logger, decl *config.Declaration) (*plan.BuildPlan, error) {
	var (
		reg   *trust.Registry
		fp    fingerprint.Fingerprint
		tree  *source.Tree
		set   pkgs.Set
		bound []targets.Bound
		shell devshell.Resolved
	)

	err := c.stage(ctx, log, StageTrust, func() error {
		var err error
		reg, err = trust.Register(decl.Caches)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = c.stage(ctx, log, StageFingerprint, func() error {
		var err error
		fp, tree, err = fingerprint.Dir(ctx, decl.Root, decl.Exclude,
			source.Options{RespectGitignore: decl.Source.RespectGitignore})
		if err != nil {
			return err
		}
		c.recorder.ObserveSourceFiles(len(tree.Files))
		log.Debug("Source fingerprinted", logfields.Path(tree.Root), logfields.Count(len(tree.Files)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = c.stage(ctx, log, StagePackages, func() error {
		var err error
		set, err = pkgs.Compose(pkgs.Base(c.registry.Toolchains()), decl.Overlays)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = c.stage(ctx, log, StageTargets, func() error {
		resolved, err := targets.Resolve(c.registry, decl.Targets)
		if err != nil {
			return err
		}
		bound, err = targets.BindToolchains(resolved, set)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = c.stage(ctx, log, StageDevShell, func() error {
		var err error
		shell, err = devshell.Resolve(devshell.Compose(pkgs.BaseShellTools(), decl.DevShell.ExtraTools), set)
		return err
	})
	if err != nil {
		return nil, err
	}

	var p *plan.BuildPlan
	err = c.stage(ctx, log, StageAssemble, func() error {
		p = plan.Assemble(plan.Inputs{
			Targets:     bound,
			Fingerprint: fp,
			Files:       len(tree.Files),
			Policy:      decl.Policy,
			DevShell:    shell,
			Trust:       reg.Snapshot(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// stage runs fn after checking for cancellation and records its duration and result.
func (c *Compiler) stage(ctx context.Context, log *slog.Logger, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		c.recorder.IncStageResult(name, metrics.ResultCanceled)
		return perrors.Canceled(name, err)
	}
	start := time.Now()
	err := fn()
	c.recorder.ObserveStageDuration(name, time.Since(start))
	switch {
	case err == nil:
		c.recorder.IncStageResult(name, metrics.ResultSuccess)
		log.Debug("Stage complete", logfields.Stage(name),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	case perrors.IsCategory(err, perrors.CategoryCanceled):
		c.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		c.recorder.IncStageResult(name, metrics.ResultFailed)
	}
	return err
}

func outcomeFor(err error) metrics.OutcomeLabel {
	if perrors.IsCategory(err, perrors.CategoryCanceled) || errors.Is(err, context.Canceled) {
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeFailed
}
