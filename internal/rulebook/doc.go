// Package rulebook turns the rule definitions of an environment into a
// dispatch table.
//
// A Rulebook maps each process name to its candidate rules in registration
// order, and each full rule name to exactly one rule. Binding a rulebook to
// the state of a task yields a Dispatcher, the single entry point through
// which build actions invoke processes by name:
//
//	rb, _ := rulebook.For(env)
//	d := rb.Bind(env.Values())
//	r, err := d.Resolve("compile", args) // first applicable compile.* rule
//
// Resolution is deterministic: when several rules of one process accept the
// arguments, the one registered first wins.
package rulebook
