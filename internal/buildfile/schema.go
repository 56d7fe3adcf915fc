package buildfile

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// fileRoot decodes every top-level block of a buildfile.
type fileRoot struct {
	Environments []*environmentBlock `hcl:"environment,block"`
	Rules        []*ruleBlock        `hcl:"rule,block"`
	Targets      []*targetBlock      `hcl:"target,block"`
	Chains       []*chainBlock       `hcl:"chain,block"`
}

// environmentBlock holds attributes and action blocks. It is decoded with
// a partial schema because gohcl cannot mix remaining attributes with
// blocks.
type environmentBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type ruleBlock struct {
	Name       string            `hcl:"name,label"`
	Inputs     []*parameterBlock `hcl:"input,block"`
	Outputs    []*parameterBlock `hcl:"output,block"`
	Parameters []*parameterBlock `hcl:"parameter,block"`
	Actions    []*actionBlock    `hcl:"action,block"`
	Invokes    []*invokeBlock    `hcl:"invoke,block"`
}

type parameterBlock struct {
	Name     string         `hcl:"name,label"`
	Default  hcl.Expression `hcl:"default,optional"`
	Optional *bool          `hcl:"optional,optional"`
	Implicit hcl.Expression `hcl:"implicit,optional"`
	Pattern  *string        `hcl:"pattern,optional"`
}

type actionBlock struct {
	Kind string   `hcl:"kind,label"`
	Body hcl.Body `hcl:",remain"`
}

type invokeBlock struct {
	Process string   `hcl:"process,label"`
	Body    hcl.Body `hcl:",remain"`
}

type targetBlock struct {
	Name     string           `hcl:"name,label"`
	Depends  []*dependsBlock  `hcl:"depends,block"`
	Provides []*providesBlock `hcl:"provides,block"`
	Actions  []*actionBlock   `hcl:"action,block"`
	Invokes  []*invokeBlock   `hcl:"invoke,block"`
}

type dependsBlock struct {
	Name    string `hcl:"name,label"`
	Private *bool  `hcl:"private,optional"`
}

type providesBlock struct {
	Name        string              `hcl:"name,label"`
	Alias       []string            `hcl:"alias,optional"`
	Environment []*environmentBlock `hcl:"environment,block"`
	Rules       []*ruleBlock        `hcl:"rule,block"`
	Actions     []*actionBlock      `hcl:"action,block"`
	Invokes     []*invokeBlock      `hcl:"invoke,block"`
}

type chainBlock struct {
	Name         string   `hcl:"name,label"`
	Dependencies []string `hcl:"dependencies"`
}

var environmentSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "action", LabelNames: []string{"kind"}},
	},
}

// isExprDefined checks if an HCL expression was actually present in the
// source. The decoder populates omitted optional fields with zero-width
// placeholder expressions, so a nil check is insufficient.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

// bodyStart is the source offset of a block body, used to restore the
// order of blocks decoded into separate slices.
func bodyStart(body hcl.Body) int {
	if b, ok := body.(*hclsyntax.Body); ok {
		return b.SrcRange.Start.Byte
	}
	return 0
}
