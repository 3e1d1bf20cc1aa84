// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package provider defines the capabilities the CLI needs from a cloud
// provider plugin and caches loaded plugins for one invocation.
package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Loader that has no plugin for a provider.
var ErrNotFound = errors.New("provider plugin not found")

// ErrUnknownService is returned for an entity name a provider does not define.
var ErrUnknownService = errors.New("unknown service")

// Opts are passed to a provider when it reports its schema.
type Opts struct {
	Log     *zap.SugaredLogger
	Debug   bool
	DevMode bool
}

// Service describes how one entity type is written to the graph.
type Service struct {
	// Mutation is the GraphQL mutation taking the entities as $input.
	Mutation string
}

// Client is a loaded provider plugin.
type Client interface {
	// Schema returns the provider's type definitions, possibly none.
	Schema(ctx context.Context, opts Opts) ([]string, error)
	// Service returns the service for an entity name.
	Service(entity string) (Service, error)
}

// Loader resolves a provider name to a plugin client.
type Loader interface {
	Load(ctx context.Context, name string, config map[string]any) (Client, error)
}

// Registry loads each provider at most once and hands out the cached client.
// A provider that fails to load stays failed for the registry's lifetime and
// does not affect other providers.
type Registry struct {
	loader  Loader
	configs map[string]map[string]any
	log     *zap.SugaredLogger

	mu      sync.Mutex
	clients map[string]Client
	errs    map[string]error
}

// NewRegistry returns a Registry passing each provider its entry in configs.
func NewRegistry(loader Loader, configs map[string]map[string]any, log *zap.SugaredLogger) *Registry {
	return &Registry{
		loader:  loader,
		configs: configs,
		log:     log,
		clients: make(map[string]Client),
		errs:    make(map[string]error),
	}
}

// Client returns the client for the named provider.
func (r *Registry) Client(ctx context.Context, name string) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[name]; ok {
		return c, nil
	}
	if err, ok := r.errs[name]; ok {
		return nil, err
	}
	c, err := r.loader.Load(ctx, name, r.configs[name])
	if err != nil {
		err = errors.Wrapf(err, "loading provider %s", name)
		r.log.Error(err)
		r.log.Errorf("There was an error installing or requiring a plugin for %s, does one exist?", name)
		r.errs[name] = err
		return nil, err
	}
	r.clients[name] = c
	return c, nil
}

// Loaded returns the names of the providers loaded successfully so far.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Factory constructs a compiled-in provider from its config.
type Factory func(ctx context.Context, config map[string]any) (Client, error)

// Builtin is a Loader over providers compiled into the binary.
type Builtin map[string]Factory

var _ Loader = Builtin{}

func (b Builtin) Load(ctx context.Context, name string, config map[string]any) (Client, error) {
	f, ok := b[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no builtin provider %s", name)
	}
	return f(ctx, config)
}

// Chain tries each Loader in order, moving on only when one reports ErrNotFound.
type Chain []Loader

var _ Loader = Chain{}

func (c Chain) Load(ctx context.Context, name string, config map[string]any) (Client, error) {
	for _, l := range c {
		client, err := l.Load(ctx, name, config)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return client, err
	}
	return nil, errors.Wrapf(ErrNotFound, "provider %s", name)
}
