package rulebook

import (
	"maps"

	"github.com/specialistvlad/buildgrid/internal/rule"
)

// Dispatcher is a rulebook bound to the state of the tasks that use it.
// It is read-only and safe to share between tasks.
type Dispatcher struct {
	rulebook *Rulebook
	state    map[string]any
}

// Rulebook returns the underlying rulebook.
func (d *Dispatcher) Rulebook() *Rulebook { return d.rulebook }

// Label describes the dispatcher in log records.
func (d *Dispatcher) Label() string { return d.rulebook.label }

// Resolve selects the rule to run for a process or full rule name.
func (d *Dispatcher) Resolve(name string, args rule.Arguments) (*rule.Rule, error) {
	return d.rulebook.Resolve(name, args)
}

// State returns a bound state value.
func (d *Dispatcher) State(key string) (any, bool) {
	v, ok := d.state[key]
	return v, ok
}

// States returns a copy of every bound state value.
func (d *Dispatcher) States() map[string]any {
	return maps.Clone(d.state)
}
