// Package build runs build graphs: it binds graph tasks to rulebooks and
// environments, exposes the filesystem and process primitives build actions
// use, and drives top-level nodes through a Controller.
//
// Every primitive (Spawn, Run, Touch, Copy, Install, Remove, MakePath,
// Write) is gated by the task being wet: a clean task still runs its apply
// action, so that nested dirty work is discovered, but performs no side
// effects of its own.
//
// Node kinds:
//
//   - RuleNode runs one rule with normalized arguments. Its inputs and
//     outputs come from the rule's parameters.
//   - EnvironmentNode applies the constructors of an environment.
//   - TargetNode runs the build action of a target.
//   - ChainNode builds each dependency of a resolved chain.
//   - DependencyNode builds the dependencies of a dependency's provisions,
//     then a BuildNode for the dependency itself, and publishes the
//     resulting environment.
//   - BuildNode constructs the output environment of one dependency.
//
// Top-level nodes run one after another. Within one, invoking a node blocks
// until it finished or is waiting on an external command, so commands of
// independent nodes overlap up to the limit of the process group.
package build
