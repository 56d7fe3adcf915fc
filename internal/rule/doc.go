// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package rule defines the declarative contract of a build action: a named
// list of input, output and argument parameters, an applicability test over
// raw arguments, and the action that carries the work out.
//
// A Rule is named "process.type". Several rules may share a process name
// ("compile.c", "compile.cpp"); the rulebook picks the first one whose
// parameters accept the caller's arguments.
//
// Rules are built once and frozen. Parameters may compute their values: an
// implicit parameter computes unless the caller overrides it, a dynamic
// parameter always computes from the caller's raw value.
package rule
