// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package environment implements layered build environments.
//
// An Environment is one level of key/value configuration with an optional
// parent. Reading an environment means folding its levels root-first:
//
//   - a plain value overrides what came before, unless the previous value is a
//     list, in which case the new value is appended;
//   - Replace always overrides;
//   - Default applies only when the key is still unset;
//   - Append always appends;
//   - Lazy values are computed at evaluation time and may read other keys.
//
// Combining environments concatenates their level chains in argument order,
// so later environments override (or extend) earlier ones. Evaluate resolves
// the fold into a single level of concrete values, which is the form tasks
// share between goroutines.
//
// Levels may also carry rule definitions, which rulebooks turn into rules,
// and constructors, which populate the environment on behalf of a task.
package environment
