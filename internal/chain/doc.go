// Package chain resolves what a build needs into what targets provide.
//
// A Target declares dependencies and provisions. A Provision satisfies a
// dependency name, either by constructing an environment or, for an alias
// provision, by forwarding to other dependencies. Resolving a list of
// dependency names against a set of targets produces a Chain: for each
// reachable dependency name, the provisions that satisfy it, in target
// order.
//
// Dependencies are public unless marked private. The environment a public
// dependency builds is passed on to whoever depends on the dependent;
// a private one is only visible to its direct dependent.
package chain
