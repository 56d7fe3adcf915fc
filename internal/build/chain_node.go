package build

import (
	"context"

	"github.com/specialistvlad/buildgrid/internal/chain"
	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/files"
)

// ChainNode builds every requested dependency of a chain, in order.
type ChainNode struct {
	chain       *chain.Chain
	environment *environment.Environment
	arguments   []any
}

func NewChainNode(c *chain.Chain, env *environment.Environment, args ...any) *ChainNode {
	return &ChainNode{chain: c, environment: env, arguments: args}
}

func (n *ChainNode) Key() string {
	return "chain:" + fingerprint(identity(n.chain), identity(n.environment), n.arguments)
}

func (n *ChainNode) Inputs() files.List  { return files.List{} }
func (n *ChainNode) Outputs() files.List { return files.List{} }
func (n *ChainNode) Inherit() bool       { return true }
func (n *ChainNode) Kind() string        { return "chain" }

func (n *ChainNode) Name() string {
	if n.environment != nil && n.environment.Name() != "" {
		return n.environment.Name()
	}
	return "chain"
}

func (n *ChainNode) String() string { return "chain " + n.Name() }

func (n *ChainNode) Apply(ctx context.Context, t *Task) error {
	for _, d := range n.chain.Dependencies() {
		if _, err := t.InvokeNode(ctx, NewDependencyNode(n.chain, d, n.environment, n.arguments...)); err != nil {
			return err
		}
	}
	return nil
}
