package build

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/specialistvlad/buildgrid/internal/files"
	"github.com/specialistvlad/buildgrid/internal/rule"
)

// Callback runs after a rule's own action, in the same task.
type Callback func(ctx context.Context, scope rule.Scope, args rule.Arguments) error

// callbacks numbers callbacks. Functions cannot be compared, so every
// callback handed to a node is a distinct piece of work.
var callbacks atomic.Uint64

// RuleNode applies one rule to normalized arguments.
type RuleNode struct {
	rule       *rule.Rule
	arguments  rule.Arguments
	callback   Callback
	callbackID uint64
	inputs     files.List
	outputs    files.List
}

// NewRuleNode creates the node for r applied to normalized args.
func NewRuleNode(r *rule.Rule, args rule.Arguments, callback Callback) *RuleNode {
	inputs, outputs := r.Files(args)
	n := &RuleNode{
		rule:      r,
		arguments: args,
		callback:  callback,
		inputs:    inputs,
		outputs:   outputs,
	}
	if callback != nil {
		n.callbackID = callbacks.Add(1)
	}
	return n
}

// Key identifies the rule by name rather than by instance: every task
// builds its own rulebook, and the same rule applied to the same arguments
// is the same work. A node with a callback never matches another node.
func (n *RuleNode) Key() string {
	return "rule:" + n.rule.Name() + ":" + fingerprint(n.arguments, n.callbackID)
}

func (n *RuleNode) Inputs() files.List        { return n.inputs }
func (n *RuleNode) Outputs() files.List       { return n.outputs }
func (n *RuleNode) Inherit() bool             { return false }
func (n *RuleNode) Name() string              { return n.rule.Name() }
func (n *RuleNode) Kind() string              { return "rule" }
func (n *RuleNode) Rule() *rule.Rule          { return n.rule }
func (n *RuleNode) Arguments() rule.Arguments { return n.arguments }

func (n *RuleNode) String() string {
	if n.outputs.Empty() {
		return n.rule.Name()
	}
	return fmt.Sprintf("%s -> %s", n.rule.Name(), n.outputs)
}

// Apply runs the rule's action and then the callback.
func (n *RuleNode) Apply(ctx context.Context, t *Task) error {
	if err := n.rule.Invoke(ctx, t, n.arguments); err != nil {
		return err
	}
	if n.callback != nil {
		return n.callback(ctx, t, n.arguments)
	}
	return nil
}
