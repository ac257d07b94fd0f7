package compile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/buildplan/internal/config"
	"git.home.luguber.info/inful/buildplan/internal/plan"
)

// CompileAll compiles independent declarations concurrently with at most limit
// compilations in flight (limit <= 0 means one per declaration). Plans are
// returned in input order. The first failure cancels the remaining work.
func (c *Compiler) CompileAll(ctx context.Context, decls []*config.Declaration, limit int) ([]*plan.BuildPlan, error) {
	plans := make([]*plan.BuildPlan, len(decls))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, decl := range decls {
		g.Go(func() error {
			p, err := c.Compile(gctx, decl)
			if err != nil {
				return err
			}
			plans[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}
