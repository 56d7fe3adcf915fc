// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package rule

import "context"

// Arguments is a raw or normalized parameter set.
type Arguments = map[string]any

// Context is the read-only view a computing parameter gets of the
// environment it runs in. For build tasks this is the state their rulebook
// was bound to.
type Context interface {
	Lookup(key string) (any, bool)
	Values() map[string]any
}

// Scope is what an apply action runs against. Every filesystem and process
// primitive is a no-op unless the task behind the scope is dirty.
type Scope interface {
	Context

	// Invoke dispatches a process name to the first applicable rule.
	Invoke(ctx context.Context, process string, args Arguments) (any, error)

	Spawn(ctx context.Context, argv ...string) error
	// Run spawns argv with the exported environment.
	Run(ctx context.Context, argv ...string) error
	Touch(path string) error
	Copy(src, dst string) error
	Install(src, dst string) error
	Remove(path string) error
	MakePath(path string) error
	Write(path string, data []byte) error
}
