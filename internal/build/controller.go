package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/specialistvlad/buildgrid/internal/chain"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/metrics"
	"github.com/specialistvlad/buildgrid/internal/process"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for the controller and all of its tasks.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.rt.logger = logger }
}

// WithLimit bounds how many external commands run at once. It is ignored
// when WithGroup is given.
func WithLimit(limit int) Option {
	return func(c *Controller) { c.limit = limit }
}

// WithGroup replaces the process group commands are spawned into.
func WithGroup(group Group) Option {
	return func(c *Controller) { c.rt.group = group }
}

// WithMetrics records task and action counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.rt.metrics = m }
}

// WithOutput sets where spawned commands write.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *Controller) {
		c.rt.stdout = stdout
		c.rt.stderr = stderr
	}
}

// Controller holds an ordered list of top-level nodes and updates them,
// one after another, on each cycle.
type Controller struct {
	rt     *shared
	limit  int
	walker *graph.Walker

	mu     sync.Mutex
	nodes  []Node
	frozen bool
}

// NewController creates a controller and calls setup to add its top-level
// nodes. The node list cannot change afterwards.
func NewController(setup func(c *Controller) error, opts ...Option) (*Controller, error) {
	c := &Controller{
		rt: &shared{
			logger: slog.Default(),
			stdout: os.Stdout,
			stderr: os.Stderr,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rt.group == nil {
		c.rt.group = process.NewGroup(c.limit)
	}
	c.walker = graph.NewWalker(
		graph.WithLogger(c.rt.logger),
		graph.WithExitHook(c.observe),
	)

	if setup != nil {
		if err := setup(c); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
	return c, nil
}

func (c *Controller) add(n Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		panic(fmt.Sprintf("build: cannot add %s after setup", n))
	}
	c.nodes = append(c.nodes, n)
}

// AddEnvironment adds a node running the constructors of env.
func (c *Controller) AddEnvironment(env *environment.Environment) {
	c.add(NewEnvironmentNode(env))
}

// AddTarget adds a node running the build action of target in env.
func (c *Controller) AddTarget(target *chain.Target, env *environment.Environment, args ...any) {
	c.add(NewTargetNode(target, env, args...))
}

// AddTargetChain adds a node building the dependencies of target, as
// resolved in ch, and then running its build action in their environment.
func (c *Controller) AddTargetChain(target *chain.Target, ch *chain.Chain, env *environment.Environment, args ...any) {
	c.add(NewTargetChainNode(target, ch, env, args...))
}

// AddChain adds a node building every dependency of ch in env.
func (c *Controller) AddChain(ch *chain.Chain, env *environment.Environment, args ...any) {
	c.add(NewChainNode(ch, env, args...))
}

// Nodes returns the top-level nodes in update order.
func (c *Controller) Nodes() []Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Node(nil), c.nodes...)
}

// Walker returns the walker of the current cycle.
func (c *Controller) Walker() *graph.Walker { return c.walker }

// Update runs one cycle over every top-level node. A failing node does not
// stop the nodes after it; Failed reports the outcome.
func (c *Controller) Update(ctx context.Context) {
	c.walker.Reset()
	ctx = ctxlog.WithLogger(ctx, c.rt.logger)

	for _, n := range c.Nodes() {
		c.rt.logger.Debug("Updating node.", "node", n.String())
		root := c.walker.Call(ctx, nil, n, c.rt.bind(n, nil, nil))
		if err := root.Wait(ctx); err != nil {
			c.rt.logger.Warn("Update interrupted.", "node", n.String(), "error", err)
			c.rt.group.Wait()
			return
		}
		c.rt.group.Wait()
	}
}

// Output returns the environment published by the task node ran as in the
// last cycle. It is false when node was not reached or did not finish.
func (c *Controller) Output(n Node) (*environment.Environment, bool) {
	t, ok := c.walker.Lookup(n)
	if !ok || t.State() != graph.Complete {
		return nil, false
	}
	bt, ok := t.Visitor().(*Task)
	if !ok {
		return nil, false
	}
	out := bt.Output()
	return out, out != nil
}

// Failed reports whether any task of the last cycle failed.
func (c *Controller) Failed() bool {
	return c.walker.Failed()
}

// Run updates every node and returns ErrBuildFailed if any task failed.
func (c *Controller) Run(ctx context.Context) error {
	c.Update(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if failures := c.walker.Failures(); len(failures) > 0 {
		return fmt.Errorf("%w: %d tasks failed, first: %s: %w", ErrBuildFailed, len(failures), failures[0], failures[0].Err())
	}
	return nil
}

func (c *Controller) observe(t *graph.Task) {
	state := graph.Complete
	if t.Failed() {
		state = graph.Failed
	}
	kind := "unknown"
	if bt, ok := t.Visitor().(*Task); ok {
		kind = bt.node.Kind()
	}
	c.rt.metrics.ObserveTask(kind, state.String())
}
