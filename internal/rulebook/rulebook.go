package rulebook

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/rule"
)

// Rulebook holds the rules built from one environment's definitions.
type Rulebook struct {
	label     string
	rules     map[string]*rule.Rule
	order     []*rule.Rule
	processes map[string][]*rule.Rule
}

// New creates an empty rulebook. The label only appears in log records.
func New(label string) *Rulebook {
	return &Rulebook{
		label:     label,
		rules:     make(map[string]*rule.Rule),
		processes: make(map[string][]*rule.Rule),
	}
}

// For builds a rulebook from the definitions on env's own level. Pass an
// evaluated environment to include every definition of its chain.
func For(env *environment.Environment) (*Rulebook, error) {
	rb := New(env.String())
	for _, def := range env.Defined() {
		if err := rb.add(rule.Build(def.Name, def.Blueprint)); err != nil {
			return nil, err
		}
	}
	return rb, nil
}

func (rb *Rulebook) add(r *rule.Rule) error {
	if _, exists := rb.rules[r.FullName()]; exists {
		return fmt.Errorf("rule with name '%s' already registered in %s", r.FullName(), rb.label)
	}
	rb.rules[r.FullName()] = r
	rb.order = append(rb.order, r)
	rb.processes[r.ProcessName()] = append(rb.processes[r.ProcessName()], r)
	return nil
}

// Register adds a rule. Registering two rules with the same full name is a
// programming error and panics.
func (rb *Rulebook) Register(r *rule.Rule) {
	if err := rb.add(r); err != nil {
		panic(err)
	}
	slog.Debug("Registering rule.", "rule", r.Name(), "rulebook", rb.label)
}

// Label describes the rulebook in log records.
func (rb *Rulebook) Label() string { return rb.label }

// Rules returns every rule in registration order.
func (rb *Rulebook) Rules() []*rule.Rule { return slices.Clone(rb.order) }

// Rule returns the rule with the given full name.
func (rb *Rulebook) Rule(fullName string) (*rule.Rule, bool) {
	r, ok := rb.rules[fullName]
	return r, ok
}

// Candidates returns the rules registered for a process name.
func (rb *Rulebook) Candidates(process string) []*rule.Rule {
	return slices.Clone(rb.processes[process])
}

// Processes returns the process names in sorted order.
func (rb *Rulebook) Processes() []string {
	return slices.Sorted(maps.Keys(rb.processes))
}

// Resolve selects a rule for name. A full rule name selects that rule; a
// process name selects the first candidate applicable to args.
func (rb *Rulebook) Resolve(name string, args rule.Arguments) (*rule.Rule, error) {
	if candidates, ok := rb.processes[name]; ok {
		for _, r := range candidates {
			if r.Applicable(args) {
				return r, nil
			}
		}
	} else if r, ok := rb.rules[name]; ok {
		return r, nil
	}
	return nil, &rule.NoApplicableRuleError{Process: name, Arguments: args}
}

// Bind attaches task state to the rulebook.
func (rb *Rulebook) Bind(state map[string]any) *Dispatcher {
	return &Dispatcher{rulebook: rb, state: maps.Clone(state)}
}
