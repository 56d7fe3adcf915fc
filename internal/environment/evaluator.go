// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package environment

import "fmt"

// Evaluator resolves the values of a flattened environment on demand.
type Evaluator struct {
	values    map[string]any
	resolved  map[string]any
	resolving map[string]bool
}

func newEvaluator(values map[string]any) *Evaluator {
	return &Evaluator{
		values:    values,
		resolved:  map[string]any{},
		resolving: map[string]bool{},
	}
}

// Get returns the resolved value of key, or nil if it is not set.
func (ev *Evaluator) Get(key string) (any, error) {
	if v, ok := ev.resolved[key]; ok {
		return v, nil
	}
	if ev.resolving[key] {
		return nil, fmt.Errorf("%w: %q", ErrCyclicValue, key)
	}
	ev.resolving[key] = true
	defer delete(ev.resolving, key)

	v, err := ev.resolve(ev.values[key])
	if err != nil {
		return nil, err
	}
	ev.resolved[key] = v
	return v, nil
}

// Has reports whether key is set.
func (ev *Evaluator) Has(key string) bool {
	_, ok := ev.values[key]
	return ok
}

func (ev *Evaluator) resolve(v any) (any, error) {
	for {
		switch lv := v.(type) {
		case Lazy:
			next, err := lv(ev)
			if err != nil {
				return nil, err
			}
			v = next
		case Default:
			v = lv.Value
		case Replace:
			v = lv.Value
		case Append:
			return append([]any{}, lv.Values...), nil
		default:
			return v, nil
		}
	}
}
