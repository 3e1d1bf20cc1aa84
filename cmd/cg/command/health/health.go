// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cloudgraphdev/cloudgraph/cmd/cg/command/common"
	"github.com/cloudgraphdev/cloudgraph/pkg/act"
	"github.com/cloudgraphdev/cloudgraph/pkg/act/cli"
	"github.com/cloudgraphdev/cloudgraph/pkg/storage"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the health command.
type Config struct {
	common.Flags
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	return c.Flags.Validate()
}

// Deps holds dependencies for the command.
type Deps struct {
	IO     cli.IO
	Engine storage.Engine
	Host   string
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps initializes Deps.
func InitDeps(ctx context.Context, cfg Config) (*Deps, error) {
	env, err := common.NewEnv(cfg.Flags, os.Stderr, nil)
	if err != nil {
		return nil, err
	}
	engine, err := env.NewEngine()
	if err != nil {
		return nil, err
	}
	return &Deps{Engine: engine, Host: engine.Host()}, nil
}

// Handler probes the backend and fails when it is unhealthy.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	if !deps.Engine.HealthCheck(ctx) {
		return nil, errors.Errorf("dgraph at %s is not healthy", deps.Host)
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(deps.IO.Out, "dgraph at %s is %s\n", deps.Host, green("healthy"))
	return &act.NoOutput{}, nil
}

// Command creates a new health command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:          "health [--dgraph <host>]",
		Short:        "Check that Dgraph is reachable",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: cli.RunE(
			&cfg,
			cli.SkipArgs[Config],
			InitDeps,
			Handler,
		),
	}
	cmd.Flags().AddGoFlagSet(flagSet(cmd.Name(), &cfg))
	return cmd
}

// flagSet returns the command-line flags for the Config struct.
func flagSet(name string, cfg *Config) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.Flags.Register(set)
	return set
}
