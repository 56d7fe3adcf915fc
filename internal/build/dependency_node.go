package build

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/chain"
	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/files"
	"github.com/specialistvlad/buildgrid/internal/graph"
)

// DependencyNode builds one dependency of a chain: first the dependencies
// of every provision satisfying it, then, unless it is an alias, a
// BuildNode in the combination of their environments. Its output is the
// combination of the environments it makes public.
type DependencyNode struct {
	chain       *chain.Chain
	dependency  chain.Dependency
	environment *environment.Environment
	arguments   []any
}

func NewDependencyNode(c *chain.Chain, d chain.Dependency, env *environment.Environment, args ...any) *DependencyNode {
	return &DependencyNode{
		chain:       c,
		dependency:  c.Normalize(d),
		environment: env,
		arguments:   args,
	}
}

// Key leaves out the private flag: whether the result propagates is the
// dependent's business, the build itself is the same.
func (n *DependencyNode) Key() string {
	return "dependency:" + n.dependency.Name + ":" + fingerprint(identity(n.chain), identity(n.environment), n.arguments)
}

func (n *DependencyNode) Inputs() files.List  { return files.List{} }
func (n *DependencyNode) Outputs() files.List { return files.List{} }
func (n *DependencyNode) Inherit() bool       { return true }
func (n *DependencyNode) Name() string        { return n.dependency.Name }
func (n *DependencyNode) Kind() string        { return "dependency" }
func (n *DependencyNode) String() string      { return n.dependency.String() }

// Dependency returns the dependency being built.
func (n *DependencyNode) Dependency() chain.Dependency { return n.dependency }

// Provisions returns what satisfies the dependency, in resolution order.
func (n *DependencyNode) Provisions() []*chain.Provision {
	return n.chain.Provisions(n.dependency)
}

type dependencyTask struct {
	dependency chain.Dependency
	task       *Task
}

func (n *DependencyNode) Apply(ctx context.Context, t *Task) error {
	logger := t.Logger()
	provisions := n.Provisions()
	for _, p := range provisions {
		logger.Debug("Building provision.", "dependency", n.dependency.Name, "target", p.Provider.Name, "provision", p.String())
	}

	var children []dependencyTask
	for _, p := range provisions {
		for _, nested := range p.EachDependency() {
			child, err := t.InvokeNode(ctx, NewDependencyNode(n.chain, nested, n.environment, n.arguments...))
			if err != nil {
				return err
			}
			children = append(children, dependencyTask{dependency: nested, task: child})
		}
	}
	if err := t.WaitForChildren(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", graph.ErrDependenciesFailed, n.dependency.Name, err)
	}

	environments := []*environment.Environment{n.environment}
	var public []*environment.Environment
	for _, c := range children {
		env := c.task.Output()
		if env == nil {
			continue
		}
		environments = append(environments, env)
		if n.dependency.Alias || c.dependency.Public() {
			public = append(public, env)
		}
	}

	if !n.dependency.Alias {
		local, err := localEnvironment(environments...)
		if err != nil {
			return err
		}
		logger.Debug("Building dependency.", "dependency", n.dependency.Name, "environment", local.String())

		build, err := t.InvokeNode(ctx, NewBuildNode(local, n.dependency, provisions, n.arguments...))
		if err != nil {
			return err
		}
		if err := t.WaitForChildren(ctx); err != nil {
			return fmt.Errorf("%w: %s: %w", graph.ErrDependenciesFailed, n.dependency.Name, err)
		}
		if out := build.Output(); out != nil {
			public = append(public, out.Dup(environment.WithParent(nil), environment.WithName(n.dependency.Name)))
		}
	}

	out, err := environment.Combine(public...)
	if err != nil {
		return err
	}
	t.SetOutput(out)
	return nil
}

func localEnvironment(envs ...*environment.Environment) (*environment.Environment, error) {
	combined, err := environment.Combine(envs...)
	if err != nil {
		return nil, err
	}
	if combined == nil {
		return environment.New(), nil
	}
	return combined.Evaluate()
}
