package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/build"
	"github.com/specialistvlad/buildgrid/internal/buildfile"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

// Run builds the named dependencies, or the defaults when none are named.
// It returns an error wrapping build.ErrBuildFailed when any task failed.
func (a *App) Run(ctx context.Context, names ...string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "requested", names)

	if a.config.Healthcheck.Port > 0 {
		if err := a.startHealthcheckServer(ctx); err != nil {
			return err
		}
		defer a.closeHealthCheckServer(ctx)
	}

	b, err := a.Load(ctx)
	if err != nil {
		return err
	}
	p, err := a.plan(b, names)
	if err != nil {
		return err
	}
	c, err := a.controller(b, p)
	if err != nil {
		return err
	}

	a.logger.Info("Starting build.", "nodes", len(c.Nodes()), "targets", len(p.targets), "limit", a.config.Limit)
	if err := c.Run(ctx); err != nil {
		for _, t := range c.Walker().Failures() {
			a.logger.Debug("Failed task.", "task", t.String(), "error", t.Err())
		}
		return err
	}
	a.logger.Info("Build finished.", "tasks", c.Walker().Len())
	return nil
}

func (a *App) controller(b *buildfile.Buildfile, p *plan) (*build.Controller, error) {
	c, err := build.NewController(func(c *build.Controller) error {
		if len(b.Environment.Constructors()) > 0 {
			c.AddEnvironment(b.Environment)
		}
		if p.requested {
			c.AddChain(p.chain, b.Environment)
		}
		for _, t := range p.targets {
			c.AddTargetChain(t, p.chain, b.Environment)
		}
		return nil
	}, a.controllerOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to set up build: %w", err)
	}
	return c, nil
}
