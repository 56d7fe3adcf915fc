package build

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/chain"
	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/files"
)

// BuildNode constructs the output environment of a dependency by running
// each provision's constructor in the dependency's local environment.
type BuildNode struct {
	environment *environment.Environment
	dependency  chain.Dependency
	provisions  []*chain.Provision
	arguments   []any
}

func NewBuildNode(env *environment.Environment, d chain.Dependency, provisions []*chain.Provision, args ...any) *BuildNode {
	return &BuildNode{environment: env, dependency: d, provisions: provisions, arguments: args}
}

func (n *BuildNode) Key() string {
	return "build:" + n.dependency.Name + ":" + fingerprint(identity(n.environment), n.arguments)
}

func (n *BuildNode) Inputs() files.List  { return files.List{} }
func (n *BuildNode) Outputs() files.List { return files.List{} }
func (n *BuildNode) Inherit() bool       { return true }
func (n *BuildNode) Name() string        { return n.dependency.Name }
func (n *BuildNode) Kind() string        { return "build" }
func (n *BuildNode) String() string      { return fmt.Sprintf("build %q", n.dependency.Name) }

func (n *BuildNode) Apply(ctx context.Context, t *Task) error {
	if err := t.use(n.environment); err != nil {
		return err
	}
	output := environment.New(environment.WithParent(n.environment), environment.WithName(n.dependency.Name))
	for _, p := range n.provisions {
		if err := output.Construct(ctx, t, p.Value, n.arguments...); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	t.SetOutput(output)
	return nil
}
