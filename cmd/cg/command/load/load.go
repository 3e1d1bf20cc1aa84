// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package load implements the command that pushes saved scan data into the
// graph backend.
package load

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cheggaaa/pb"
	"github.com/cloudgraphdev/cloudgraph/cmd/cg/command/common"
	"github.com/cloudgraphdev/cloudgraph/internal/localfiles"
	"github.com/cloudgraphdev/cloudgraph/internal/prompt"
	"github.com/cloudgraphdev/cloudgraph/internal/runctx"
	"github.com/cloudgraphdev/cloudgraph/pkg/act"
	"github.com/cloudgraphdev/cloudgraph/pkg/act/cli"
	"github.com/cloudgraphdev/cloudgraph/pkg/graph"
	"github.com/cloudgraphdev/cloudgraph/pkg/provider"
	"github.com/cloudgraphdev/cloudgraph/pkg/schema"
	"github.com/cloudgraphdev/cloudgraph/pkg/snapshot"
	"github.com/cloudgraphdev/cloudgraph/pkg/storage"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Config holds all configuration for the load command.
type Config struct {
	common.Flags
	Providers      []string
	Version        string
	KeepData       bool
	SkipValidation bool
	Concurrency    int
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	return c.Flags.Validate()
}

// Deps holds dependencies for the command.
type Deps struct {
	IO       cli.IO
	Run      *runctx.Run
	Engine   storage.Engine
	Host     string
	Store    snapshot.Store
	Prompter prompt.Prompter
	Schema   *schema.Aggregator
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps returns an InitDeps using builtins ahead of on-disk plugins.
func InitDeps(builtins provider.Builtin) act.InitDeps[Config, *Deps] {
	return func(ctx context.Context, cfg Config) (*Deps, error) {
		env, err := common.NewEnv(cfg.Flags, os.Stderr, builtins)
		if err != nil {
			return nil, err
		}
		engine, err := env.NewEngine()
		if err != nil {
			return nil, err
		}
		store, err := env.NewStore(ctx, cfg.Snapshots)
		if err != nil {
			return nil, err
		}
		schemaFS, err := localfiles.Schema(env.Root)
		if err != nil {
			return nil, err
		}
		var p prompt.Prompter = prompt.Terminal{}
		if cfg.Version != "" {
			p = prompt.Static(cfg.Version)
		}
		return &Deps{
			Run:      env.Run,
			Engine:   engine,
			Host:     engine.Host(),
			Store:    store,
			Prompter: p,
			Schema:   schema.NewAggregator(schemaFS),
		}, nil
	}
}

// loaded is a provider whose data has been queued.
type loaded struct {
	provider string
	version  string
	tasks    int
}

// Handler contains the business logic for the load command.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	log := deps.Run.Log
	providers := cfg.Providers
	if len(providers) > 0 {
		log.Infof("Loading data to Dgraph for providers: %s", strings.Join(providers, " | "))
	} else {
		log.Info("Searching config for initialized providers")
		providers = deps.Run.Config.ProviderNames()
		if len(providers) == 0 {
			return nil, errors.New("there are no providers configured and none were passed to load, try \"cg init\" to set some up")
		}
		log.Infof("Found providers %s in cloud-graph config", strings.Join(providers, " | "))
	}
	if !deps.Engine.HealthCheck(ctx) {
		return nil, errors.Errorf("dgraph at %s is not healthy", deps.Host)
	}
	var done []loaded
	for _, name := range providers {
		l, err := loadProvider(ctx, cfg, deps, name)
		if err != nil {
			var nf *snapshot.NotFoundError
			if errors.As(err, &nf) {
				log.Error(nf.Error())
			} else {
				log.Errorf("Skipping %s: %v", name, err)
			}
			continue
		}
		if l != nil {
			done = append(done, *l)
		}
	}
	log.Debugf("Provider clients loaded: %s", strings.Join(deps.Run.Providers.Loaded(), ", "))
	if len(done) == 0 {
		return nil, errors.New("no provider data was loaded")
	}
	if err := deps.Schema.WriteCombined(); err != nil {
		return nil, err
	}
	combined := deps.Schema.Combined()
	if !cfg.SkipValidation {
		versions := make([]string, len(done))
		for i, l := range done {
			versions[i] = l.provider + " " + l.version
		}
		if err := deps.Engine.ValidateSchema(ctx, combined, strings.Join(versions, ", ")); err != nil {
			return nil, errors.Wrap(err, "validating schema")
		}
	}
	if err := deps.Engine.SetSchema(ctx, combined); err != nil {
		return nil, errors.Wrap(err, "setting schema")
	}
	report, err := deps.Engine.Run(ctx, !cfg.KeepData)
	if err != nil {
		return nil, errors.Wrap(err, "running mutations")
	}
	printSummary(deps, done, report)
	return &act.NoOutput{}, nil
}

// loadProvider queues the mutations for one provider's selected snapshot. It
// returns nil without error when the provider has no schema.
func loadProvider(ctx context.Context, cfg Config, deps *Deps, name string) (*loaded, error) {
	log := deps.Run.Log
	log.Infof("Beginning LOAD for %s", name)
	client, err := deps.Run.Providers.Client(ctx, name)
	if err != nil {
		return nil, err
	}
	types, err := client.Schema(ctx, deps.Run.ProviderOpts())
	if err != nil {
		return nil, errors.Wrap(err, "getting schema")
	}
	if len(types) == 0 {
		log.Warnf("No schema found for %s, moving on", name)
		return nil, nil
	}
	snaps, err := deps.Store.List(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "listing snapshots")
	}
	snap, err := snapshot.Select(ctx, snaps, name, deps.Prompter, deps.Run.Config.Settings.VersionLimit)
	if err != nil {
		return nil, err
	}
	log.Debugf("Loading %s version %s from %s", name, snap.Label, snap.Name)
	scan, err := deps.Store.Read(ctx, snap)
	if err != nil {
		return nil, errors.Wrapf(err, "reading snapshot %s", snap.Name)
	}
	tasks, err := buildTasks(ctx, cfg.Concurrency, deps, name, client, scan)
	if err != nil {
		return nil, err
	}
	if err := deps.Schema.Add(name, types); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		deps.Engine.Push(t)
	}
	return &loaded{provider: name, version: snap.Label, tasks: len(tasks)}, nil
}

// buildTasks resolves every entity group of scan concurrently and returns one
// task per group, in scan order. Groups without a known service are skipped.
func buildTasks(ctx context.Context, concurrency int, deps *Deps, name string, client provider.Client, scan *graph.ScanResult) ([]storage.MutationTask, error) {
	log := deps.Run.Log
	resolver := graph.NewResolver(scan)
	slots := make([]*storage.MutationTask, len(scan.Entities))
	unresolved := make([][]graph.UnresolvedEdge, len(scan.Entities))
	bar := pb.New(len(scan.Entities))
	bar.Output = deps.IO.Err
	bar.ShowTimeLeft = true
	bar.Prefix(name + " ")
	bar.Start()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, entity := range scan.Entities {
		g.Go(func() error {
			defer bar.Increment()
			if err := gctx.Err(); err != nil {
				return err
			}
			svc, err := client.Service(entity.Name)
			if err != nil {
				log.Errorf("Skipping %s entities: %v", entity.Name, err)
				return nil
			}
			input := make([]graph.ConnectedEntity, len(entity.Data))
			for j, rec := range entity.Data {
				ce, missing := resolver.Resolve(rec)
				input[j] = ce
				unresolved[i] = append(unresolved[i], missing...)
			}
			slots[i] = &storage.MutationTask{Query: svc.Mutation, Service: name + "/" + entity.Name, Input: input}
			return nil
		})
	}
	err := g.Wait()
	bar.Finish()
	if err != nil {
		return nil, err
	}
	var tasks []storage.MutationTask
	for i, t := range slots {
		for _, u := range unresolved[i] {
			log.Warnf("Unresolved connection %s", u)
		}
		if t != nil {
			log.Debugf("connected service: %s (%d entities)", scan.Entities[i].Name, len(t.Input))
			tasks = append(tasks, *t)
		}
	}
	return tasks, nil
}

func printSummary(deps *Deps, done []loaded, report *storage.RunReport) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	names := make([]string, len(done))
	for i, l := range done {
		names[i] = l.provider
		fmt.Fprintf(deps.IO.Out, "%s: version %s, %d services queued\n", l.provider, l.version, l.tasks)
	}
	if report.Failed() > 0 {
		fmt.Fprintf(deps.IO.Out, "%s\n", yellow(fmt.Sprintf("%d of %d mutations failed, see the errors above", report.Failed(), report.Executed)))
	} else {
		fmt.Fprintf(deps.IO.Out, "%s\n", green(fmt.Sprintf("%d mutations completed in %s", report.Executed, deps.Run.Elapsed(time.Now()).Round(time.Millisecond))))
	}
	fmt.Fprintf(deps.IO.Out, "Your data for %s is now being served at %s\n", strings.Join(names, " | "), green(deps.Host))
}

// Command creates a new load command instance. Providers in builtins are
// tried before plugins found in the data dir.
func Command(builtins provider.Builtin) *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "load [provider...] [--dgraph <host>] [--version <label>] [--keep-data] [--skip-validation] [--concurrency N]",
		Short: "Load saved scan data into Dgraph",
		Long: `Load the saved scan data of each provider into Dgraph. Without providers,
every provider in the config file is loaded. When a provider has several saved
versions, the version to load is prompted for unless --version is given.`,
		SilenceUsage: true,
		RunE: cli.RunE(
			&cfg,
			parseArgs,
			InitDeps(builtins),
			Handler,
		),
	}
	cmd.Flags().AddGoFlagSet(flagSet(cmd.Name(), &cfg))
	return cmd
}

func parseArgs(cfg *Config, args []string) error {
	cfg.Providers = args
	return nil
}

// flagSet returns the command-line flags for the Config struct.
func flagSet(name string, cfg *Config) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.Flags.Register(set)
	set.StringVar(&cfg.Version, "version", "", "label of the scan version to load when several exist")
	set.BoolVar(&cfg.KeepData, "keep-data", false, "keep existing data instead of dropping it before loading")
	set.BoolVar(&cfg.SkipValidation, "skip-validation", false, "skip the schema dry run")
	set.IntVar(&cfg.Concurrency, "concurrency", 8, "maximum number of entity groups resolved at once")
	return set
}
