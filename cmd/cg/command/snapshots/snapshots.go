// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package snapshots implements the command that lists and imports saved scan
// versions.
package snapshots

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cloudgraphdev/cloudgraph/cmd/cg/command/common"
	"github.com/cloudgraphdev/cloudgraph/pkg/act"
	"github.com/cloudgraphdev/cloudgraph/pkg/act/cli"
	"github.com/cloudgraphdev/cloudgraph/pkg/graph"
	"github.com/cloudgraphdev/cloudgraph/pkg/snapshot"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the snapshots command.
type Config struct {
	common.Flags
	Provider string
	Import   string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Provider == "" {
		return errors.New("provider is required")
	}
	if c.Import != "" && c.Snapshots != "" {
		return errors.New("--import writes to the data dir and cannot be combined with --snapshots")
	}
	return c.Flags.Validate()
}

// Writer persists new snapshots.
type Writer interface {
	Write(ctx context.Context, provider string, created time.Time, r *graph.ScanResult) (snapshot.Snapshot, error)
}

// Deps holds dependencies for the command.
type Deps struct {
	IO     cli.IO
	Store  snapshot.Store
	Writer Writer
	Source billy.Filesystem
	Now    func() time.Time
	Limit  int
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps initializes Deps.
func InitDeps(ctx context.Context, cfg Config) (*Deps, error) {
	env, err := common.NewEnv(cfg.Flags, os.Stderr, nil)
	if err != nil {
		return nil, err
	}
	store, err := env.NewStore(ctx, cfg.Snapshots)
	if err != nil {
		return nil, err
	}
	d := &Deps{
		Store:  store,
		Source: osfs.New("."),
		Now:    time.Now,
		Limit:  env.Run.Config.Settings.VersionLimit,
	}
	if w, ok := store.(Writer); ok {
		d.Writer = w
	}
	return d, nil
}

// Handler imports a scan result when requested, then lists the provider's
// versions newest first.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	if cfg.Import != "" {
		if deps.Writer == nil {
			return nil, errors.New("snapshot store is read-only")
		}
		s, err := importScan(ctx, deps, cfg.Provider, cfg.Import)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(deps.IO.Out, "Imported %s as %s\n", cfg.Import, s.Label)
	}
	snaps, err := deps.Store.List(ctx, cfg.Provider)
	if err != nil {
		return nil, errors.Wrap(err, "listing snapshots")
	}
	if len(snaps) == 0 {
		return nil, &snapshot.NotFoundError{Provider: cfg.Provider}
	}
	for i, s := range snaps {
		line := fmt.Sprintf("%-26s %s", s.Label, s.Name)
		if deps.Limit > 0 && i >= deps.Limit {
			line += " (beyond versionLimit)"
		}
		fmt.Fprintln(deps.IO.Out, line)
	}
	return &act.NoOutput{}, nil
}

func importScan(ctx context.Context, deps *Deps, provider, path string) (snapshot.Snapshot, error) {
	f, err := deps.Source.Open(path)
	if err != nil {
		return snapshot.Snapshot{}, errors.Wrap(err, "opening scan")
	}
	defer f.Close()
	var scan graph.ScanResult
	if err := json.NewDecoder(f).Decode(&scan); err != nil {
		return snapshot.Snapshot{}, errors.Wrapf(err, "decoding scan %s", path)
	}
	return deps.Writer.Write(ctx, provider, deps.Now(), &scan)
}

// Command creates a new snapshots command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:          "snapshots <provider> [--import <scan.json>]",
		Short:        "List the saved scan versions of a provider",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: cli.RunE(
			&cfg,
			parseArgs,
			InitDeps,
			Handler,
		),
	}
	cmd.Flags().AddGoFlagSet(flagSet(cmd.Name(), &cfg))
	return cmd
}

func parseArgs(cfg *Config, args []string) error {
	if len(args) != 1 {
		return errors.New("expected exactly one provider")
	}
	cfg.Provider = args[0]
	return nil
}

// flagSet returns the command-line flags for the Config struct.
func flagSet(name string, cfg *Config) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.Flags.Register(set)
	set.StringVar(&cfg.Import, "import", "", "save this scan result file as a new version before listing")
	return set
}
