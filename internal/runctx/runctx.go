// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package runctx holds the state shared by the components of one CLI
// invocation.
package runctx

import (
	"time"

	"github.com/cloudgraphdev/cloudgraph/internal/config"
	"github.com/cloudgraphdev/cloudgraph/pkg/provider"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run is constructed once per invocation and passed to every component that
// needs it.
type Run struct {
	ID        string
	Started   time.Time
	Log       *zap.SugaredLogger
	Debug     bool
	DevMode   bool
	Config    *config.File
	Providers *provider.Registry
}

// Options configure a new Run.
type Options struct {
	Log     *zap.SugaredLogger
	Debug   bool
	DevMode bool
	Config  *config.File
	Loader  provider.Loader
	Now     func() time.Time
}

// New creates a Run with a fresh ID. Its logger is tagged with the ID.
func New(opts Options) *Run {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.File{Providers: map[string]map[string]any{}}
	}
	id := uuid.New().String()
	log := opts.Log.With("run", id)
	return &Run{
		ID:        id,
		Started:   now().UTC(),
		Log:       log,
		Debug:     opts.Debug,
		DevMode:   opts.DevMode,
		Config:    cfg,
		Providers: provider.NewRegistry(opts.Loader, cfg.Providers, log),
	}
}

// ProviderOpts returns the options handed to provider clients.
func (r *Run) ProviderOpts() provider.Opts {
	return provider.Opts{Log: r.Log, Debug: r.Debug, DevMode: r.DevMode}
}

// Elapsed returns the time since the run started.
func (r *Run) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.Started)
}
