// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package common wires the flags and dependencies shared by cg commands.
package common

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/cloudgraphdev/cloudgraph/internal/config"
	"github.com/cloudgraphdev/cloudgraph/internal/httpx"
	"github.com/cloudgraphdev/cloudgraph/internal/localfiles"
	"github.com/cloudgraphdev/cloudgraph/internal/logx"
	"github.com/cloudgraphdev/cloudgraph/internal/runctx"
	"github.com/cloudgraphdev/cloudgraph/pkg/provider"
	"github.com/cloudgraphdev/cloudgraph/pkg/provider/manifest"
	"github.com/cloudgraphdev/cloudgraph/pkg/snapshot"
	"github.com/cloudgraphdev/cloudgraph/pkg/storage/dgraph"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
)

const userAgent = "cloudgraph-cli"

// Flags are accepted by every command that talks to the backend or reads
// local data.
type Flags struct {
	Host       string
	ConfigPath string
	DataDir    string
	Snapshots  string
	Debug      bool
	Dev        bool
}

// Register adds the shared flags to set.
func (f *Flags) Register(set *flag.FlagSet) {
	set.StringVar(&f.Host, "dgraph", "", "dgraph host, overriding $DGRAPH_HOST and the config file")
	set.StringVar(&f.Host, "d", "", "shorthand for --dgraph")
	set.StringVar(&f.ConfigPath, "config", "", "path to a config file, skipping discovery")
	set.StringVar(&f.DataDir, "data-dir", "", "directory holding snapshots, schema and plugins")
	set.StringVar(&f.Snapshots, "snapshots", "", "read snapshots from this directory or gs://bucket/prefix instead of the data dir")
	set.BoolVar(&f.Debug, "debug", false, "enable debug logging")
	set.BoolVar(&f.Dev, "dev", false, "run providers in dev mode")
}

// Validate checks the shared flags.
func (f Flags) Validate() error {
	if strings.HasPrefix(f.Snapshots, "gs://") {
		if _, _, err := snapshot.ParseGCSURL(f.Snapshots); err != nil {
			return err
		}
	}
	return nil
}

// Env is the per-invocation state built from the shared flags.
type Env struct {
	Run  *runctx.Run
	Root string
	Host string
}

// NewEnv loads the environment and config file and creates the run context.
// Logs are written to w.
func NewEnv(f Flags, w io.Writer, builtins provider.Builtin) (*Env, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}
	if err := config.LoadEnv(osfs.New(wd), ".env"); err != nil {
		return nil, err
	}
	rootFS := osfs.New("/")
	path := f.ConfigPath
	if path != "" {
		if path, err = filepath.Abs(path); err != nil {
			return nil, errors.Wrap(err, "resolving config path")
		}
	} else if path, err = config.Discover(rootFS, config.SearchDirs()...); err != nil {
		return nil, errors.Wrap(err, "discovering config")
	}
	file, err := config.Load(rootFS, path)
	if err != nil {
		return nil, err
	}
	dataDir := f.DataDir
	if dataDir == "" {
		dataDir = file.Settings.DataDir
	}
	root, err := localfiles.Root(dataDir)
	if err != nil {
		return nil, err
	}
	plugins, err := localfiles.Plugins(root)
	if err != nil {
		return nil, err
	}
	log := logx.New(w, f.Debug)
	if path != "" {
		log.Debugf("Using config %s", path)
	}
	run := runctx.New(runctx.Options{
		Log:     log,
		Debug:   f.Debug,
		DevMode: f.Dev,
		Config:  file,
		Loader:  provider.Chain{builtins, manifest.NewLoader(plugins)},
	})
	return &Env{
		Run:  run,
		Root: root,
		Host: config.Host(f.Host, os.Getenv, file.Settings),
	}, nil
}

// NewEngine returns the Dgraph engine for the resolved host. A token in
// $DGRAPH_AUTH_TOKEN is sent with every request.
func (e *Env) NewEngine() (*dgraph.Engine, error) {
	var client httpx.BasicClient = &httpx.WithUserAgent{
		BasicClient: httpx.NewClient(httpx.DefaultTimeout),
		UserAgent:   userAgent,
	}
	if token := os.Getenv(config.AuthTokenEnv); token != "" {
		client = &httpx.WithHeaders{
			BasicClient: client,
			Header:      http.Header{"X-Dgraph-AuthToken": []string{token}},
		}
	}
	return dgraph.New(e.Host, client, e.Run.Log)
}

// NewStore returns the snapshot store selected by location: a gs:// URL, a
// local directory, or the data dir when empty.
func (e *Env) NewStore(ctx context.Context, location string) (snapshot.Store, error) {
	switch {
	case strings.HasPrefix(location, "gs://"):
		bucket, prefix, err := snapshot.ParseGCSURL(location)
		if err != nil {
			return nil, err
		}
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "creating gcs client")
		}
		return snapshot.NewGCSStore(client, bucket, prefix), nil
	case location != "":
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, errors.Wrap(err, "resolving snapshot dir")
		}
		fs, err := osfs.New("/").Chroot(abs)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to chroot into directory %s", abs)
		}
		return snapshot.NewFilesystemStore(fs), nil
	}
	fs, err := localfiles.Snapshots(e.Root)
	if err != nil {
		return nil, err
	}
	return snapshot.NewFilesystemStore(fs), nil
}
