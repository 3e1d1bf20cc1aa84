// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/cloudgraphdev/cloudgraph/pkg/act"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Deps receive the command's IO streams before the action runs.
type Deps interface {
	SetIO(IO)
}

// ParseArgs populates an Input from positional arguments.
type ParseArgs[I act.Input] func(in *I, args []string) error

// SkipArgs is a ParseArgs for commands without positional arguments.
func SkipArgs[I act.Input](cfg *I, args []string) error {
	if len(args) > 0 {
		return errors.Errorf("unexpected arguments: %v", args)
	}
	return nil
}

// RunE builds a cobra RunE that parses args into cfg, validates it, builds
// deps from it, attaches the command's streams, and runs action.
func RunE[I act.Input, O any, D Deps](
	cfg *I,
	parseArgs ParseArgs[I],
	initDeps act.InitDeps[I, D],
	action act.Action[I, O, D],
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := parseArgs(cfg, args); err != nil {
			return err
		}
		if err := (*cfg).Validate(); err != nil {
			return err
		}
		deps, err := initDeps(cmd.Context(), *cfg)
		if err != nil {
			return errors.Wrap(err, "initializing dependencies")
		}
		deps.SetIO(IO{
			In:  cmd.InOrStdin(),
			Out: cmd.OutOrStdout(),
			Err: cmd.ErrOrStderr(),
		})
		_, err = action(cmd.Context(), *cfg, deps)
		return err
	}
}
