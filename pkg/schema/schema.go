// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package schema aggregates provider schema fragments into the combined
// schema submitted to the storage engine.
package schema

import (
	"strings"

	"github.com/cloudgraphdev/cloudgraph/internal/layout"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
)

// Fragment is the ordered type definitions reported by one provider.
type Fragment struct {
	Provider string
	Types    []string
}

// Aggregator collects fragments in provider order and mirrors them to disk.
type Aggregator struct {
	fs        billy.Filesystem
	fragments []Fragment
}

// NewAggregator writes schema files to fs. A nil fs disables writing.
func NewAggregator(fs billy.Filesystem) *Aggregator {
	return &Aggregator{fs: fs}
}

// Add records provider's fragment and writes it to <provider>.graphql.
// Empty fragments are ignored.
func (a *Aggregator) Add(provider string, types []string) error {
	if len(types) == 0 {
		return nil
	}
	a.fragments = append(a.fragments, Fragment{Provider: provider, Types: append([]string(nil), types...)})
	return a.write(provider+".graphql", types)
}

// Providers returns the providers that contributed a fragment, in order.
func (a *Aggregator) Providers() []string {
	ps := make([]string, 0, len(a.fragments))
	for _, f := range a.fragments {
		ps = append(ps, f.Provider)
	}
	return ps
}

// Combined returns every type definition in the order providers were added.
func (a *Aggregator) Combined() []string {
	var all []string
	for _, f := range a.fragments {
		all = append(all, f.Types...)
	}
	return all
}

// WriteCombined writes the combined schema file.
func (a *Aggregator) WriteCombined() error {
	return a.write(layout.CombinedSchemaFile, a.Combined())
}

func (a *Aggregator) write(name string, types []string) error {
	if a.fs == nil {
		return nil
	}
	content := strings.Join(types, "\n")
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if err := util.WriteFile(a.fs, name, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "writing schema file %s", name)
	}
	return nil
}
