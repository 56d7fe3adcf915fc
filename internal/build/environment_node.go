package build

import (
	"context"

	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/files"
)

// EnvironmentNode runs the constructors attached to an environment, level
// by level from the root, with the rules of the whole environment in scope.
type EnvironmentNode struct {
	environment *environment.Environment
}

func NewEnvironmentNode(env *environment.Environment) *EnvironmentNode {
	return &EnvironmentNode{environment: env}
}

func (n *EnvironmentNode) Key() string         { return "environment:" + identity(n.environment) }
func (n *EnvironmentNode) Inputs() files.List  { return files.List{} }
func (n *EnvironmentNode) Outputs() files.List { return files.List{} }
func (n *EnvironmentNode) Inherit() bool       { return true }
func (n *EnvironmentNode) Kind() string        { return "environment" }
func (n *EnvironmentNode) String() string      { return n.environment.String() }

func (n *EnvironmentNode) Name() string {
	if n.environment.Name() == "" {
		return "environment"
	}
	return n.environment.Name()
}

func (n *EnvironmentNode) Apply(ctx context.Context, t *Task) error {
	evaluated, err := n.environment.Evaluate()
	if err != nil {
		return err
	}
	if err := t.use(evaluated); err != nil {
		return err
	}
	return n.environment.Walk(func(level *environment.Environment) error {
		for _, fn := range level.Constructors() {
			if err := level.Construct(ctx, t, fn); err != nil {
				return err
			}
		}
		return nil
	})
}
