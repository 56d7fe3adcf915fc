package build

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/chain"
	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/files"
	"github.com/specialistvlad/buildgrid/internal/graph"
)

// TargetNode runs the build action of a target within an environment. When
// it carries a chain resolving the target's dependencies, those are built
// first and the action sees their environments, private ones included.
type TargetNode struct {
	target      *chain.Target
	chain       *chain.Chain
	environment *environment.Environment
	arguments   []any
}

func NewTargetNode(target *chain.Target, env *environment.Environment, args ...any) *TargetNode {
	return &TargetNode{target: target, environment: env, arguments: args}
}

// NewTargetChainNode is NewTargetNode for a target whose dependencies are
// resolved in c. Dependencies shared with other nodes using c are built
// once.
func NewTargetChainNode(target *chain.Target, c *chain.Chain, env *environment.Environment, args ...any) *TargetNode {
	return &TargetNode{target: target, chain: c, environment: env, arguments: args}
}

func (n *TargetNode) Key() string {
	return "target:" + n.target.Name + ":" + fingerprint(identity(n.target), identity(n.chain), identity(n.environment), n.arguments)
}

func (n *TargetNode) Inputs() files.List  { return files.List{} }
func (n *TargetNode) Outputs() files.List { return files.List{} }
func (n *TargetNode) Inherit() bool       { return true }
func (n *TargetNode) Name() string        { return n.target.Name }
func (n *TargetNode) Kind() string        { return "target" }
func (n *TargetNode) String() string      { return fmt.Sprintf("target %s", n.target.Name) }

func (n *TargetNode) Apply(ctx context.Context, t *Task) error {
	environments := []*environment.Environment{n.environment}
	if n.chain != nil {
		var children []*Task
		for _, d := range n.target.Dependencies {
			child, err := t.InvokeNode(ctx, NewDependencyNode(n.chain, d, n.environment, n.arguments...))
			if err != nil {
				return err
			}
			children = append(children, child)
		}
		if err := t.WaitForChildren(ctx); err != nil {
			return fmt.Errorf("%w: %s: %w", graph.ErrDependenciesFailed, n.target.Name, err)
		}
		for _, child := range children {
			if out := child.Output(); out != nil {
				environments = append(environments, out)
			}
		}
	}

	combined, err := environment.Combine(environments...)
	if err != nil {
		return err
	}
	env := environment.New(environment.WithName(n.target.Name))
	if combined != nil {
		if env, err = combined.Evaluate(environment.WithName(n.target.Name)); err != nil {
			return err
		}
	}
	if err := t.use(env); err != nil {
		return err
	}
	if n.target.Build == nil {
		return nil
	}
	return n.target.Build(ctx, t, n.arguments...)
}
