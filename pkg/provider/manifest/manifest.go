// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package manifest loads provider plugins described by an on-disk manifest.
//
// Each provider lives in its own directory containing a provider.yaml:
//
//	name: aws
//	schema:
//	  - schema/ec2.graphql
//	services:
//	  ec2Instance:
//	    mutation: |
//	      mutation($input: [AddawsEc2Input!]!) { addawsEc2(input: $input, upsert: true) { numUids } }
//	  vpc:
//	    mutationFile: mutations/vpc.graphql
package manifest

import (
	"context"
	"os"
	"path"

	"github.com/cloudgraphdev/cloudgraph/internal/layout"
	"github.com/cloudgraphdev/cloudgraph/pkg/provider"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v3"
)

// Manifest is the decoded provider.yaml.
type Manifest struct {
	Name     string                `yaml:"name"`
	Version  string                `yaml:"version,omitempty"`
	Schema   []string              `yaml:"schema"`
	Services map[string]ServiceDef `yaml:"services"`
}

// ServiceDef gives a service's mutation inline or as a file path.
type ServiceDef struct {
	Mutation     string `yaml:"mutation,omitempty"`
	MutationFile string `yaml:"mutationFile,omitempty"`
}

// Validate ensures the manifest is usable.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return errors.New("name is required")
	}
	for name, s := range m.Services {
		if (s.Mutation == "") == (s.MutationFile == "") {
			return errors.Errorf("service %s: exactly one of mutation or mutationFile is required", name)
		}
	}
	return nil
}

// Loader loads providers from directories at the root of a filesystem.
type Loader struct {
	fs billy.Filesystem
}

var _ provider.Loader = &Loader{}

func NewLoader(fs billy.Filesystem) *Loader {
	return &Loader{fs: fs}
}

// Load reads the named provider's manifest and the files it references.
func (l *Loader) Load(ctx context.Context, name string, config map[string]any) (provider.Client, error) {
	b, err := util.ReadFile(l.fs, path.Join(name, layout.ManifestFile))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(provider.ErrNotFound, "no %s for %s", layout.ManifestFile, name)
	} else if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "decoding manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating manifest")
	}
	if m.Name != name {
		return nil, errors.Errorf("manifest in %s declares provider %q", name, m.Name)
	}
	c := &Client{manifest: m, config: config, services: make(map[string]provider.Service, len(m.Services))}
	for _, p := range m.Schema {
		b, err := util.ReadFile(l.fs, path.Join(name, p))
		if err != nil {
			return nil, errors.Wrapf(err, "reading schema file %s", p)
		}
		c.schema = append(c.schema, string(b))
	}
	for svc, def := range m.Services {
		mutation := def.Mutation
		if def.MutationFile != "" {
			b, err := util.ReadFile(l.fs, path.Join(name, def.MutationFile))
			if err != nil {
				return nil, errors.Wrapf(err, "reading mutation file for %s", svc)
			}
			mutation = string(b)
		}
		c.services[svc] = provider.Service{Mutation: mutation}
	}
	return c, nil
}

// Client serves a provider's schema and services from its manifest.
type Client struct {
	manifest Manifest
	config   map[string]any
	schema   []string
	services map[string]provider.Service
}

var _ provider.Client = &Client{}

// Schema returns the contents of the manifest's schema files, in order.
func (c *Client) Schema(ctx context.Context, opts provider.Opts) ([]string, error) {
	if opts.Log != nil {
		opts.Log.Debugf("%s provider %s: %d schema files", c.manifest.Name, c.manifest.Version, len(c.schema))
	}
	return append([]string(nil), c.schema...), nil
}

// Service returns the mutation declared for entity.
func (c *Client) Service(entity string) (provider.Service, error) {
	s, ok := c.services[entity]
	if !ok {
		return provider.Service{}, errors.Wrapf(provider.ErrUnknownService, "%s has no service %s", c.manifest.Name, entity)
	}
	return s, nil
}

// Config returns the provider's entry from the CLI config file.
func (c *Client) Config() map[string]any { return c.config }
