// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package environment

import (
	"context"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/rule"
)

// Default is applied only if the key has no value yet.
type Default struct{ Value any }

// Replace overrides the previous value even when it is a list.
type Replace struct{ Value any }

// Append adds its values to the previous value, which is treated as a list.
type Append struct{ Values []any }

// Lazy is a value computed during evaluation. The evaluator gives access to
// the other keys of the environment being evaluated.
type Lazy func(ev *Evaluator) (any, error)

// Definition is a named rule blueprint.
type Definition struct {
	Name      string
	Blueprint rule.Blueprint
}

// Constructor populates env with scope as the acting build context.
type Constructor func(ctx context.Context, scope rule.Scope, env *Environment, args ...any) error

func merge(prev any, present bool, next any) any {
	switch v := next.(type) {
	case Replace:
		return v.Value
	case Default:
		if present {
			return prev
		}
		return v.Value
	}
	if !present {
		if a, ok := next.(Append); ok {
			return append([]any{}, a.Values...)
		}
		return next
	}
	_, prevLazy := prev.(Lazy)
	_, nextLazy := next.(Lazy)
	if prevLazy || nextLazy {
		return Lazy(func(ev *Evaluator) (any, error) {
			p, err := ev.resolve(prev)
			if err != nil {
				return nil, err
			}
			n, err := ev.resolve(next)
			if err != nil {
				return nil, err
			}
			return combineValues(p, n), nil
		})
	}
	return combineValues(prev, next)
}

func combineValues(prev, next any) any {
	if a, ok := next.(Append); ok {
		return concat(prev, a.Values)
	}
	if isList(prev) {
		return concat(prev, next)
	}
	return next
}

func isList(v any) bool {
	switch v.(type) {
	case []any, []string:
		return true
	}
	return false
}

func concat(prev, next any) any {
	ps, pok := prev.([]string)
	ns, nok := next.([]string)
	if pok && nok {
		return append(append([]string{}, ps...), ns...)
	}
	if ns, ok := next.(string); ok && pok {
		return append(append([]string{}, ps...), ns)
	}
	return append(toList(prev), toList(next)...)
}

func toList(v any) []any {
	switch v := v.(type) {
	case nil:
		return nil
	case []any:
		return append([]any{}, v...)
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func describe(v any) string {
	switch v := v.(type) {
	case Lazy:
		return "<lazy>"
	case Default:
		return fmt.Sprintf("default(%v)", describe(v.Value))
	case Replace:
		return fmt.Sprintf("replace(%v)", describe(v.Value))
	case Append:
		return fmt.Sprintf("append(%v)", v.Values)
	default:
		return fmt.Sprint(v)
	}
}
