// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package act separates a command's validated input, its dependencies, and
// the operation run against them so commands can be driven from tests
// without a terminal.
package act

import "context"

// Input is a validated command input.
type Input interface {
	Validate() error
}

// Deps is a marker type for dependency containers.
type Deps any

// InitDeps builds the dependencies for an already validated input.
type InitDeps[I Input, D Deps] func(context.Context, I) (D, error)

// Action is the operation a command performs.
type Action[I Input, O any, D Deps] func(context.Context, I, D) (*O, error)

// NoOutput is the output of actions that only produce side effects.
type NoOutput struct{}
