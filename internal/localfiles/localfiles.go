// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package localfiles locates the CLI's data directory and the filesystems
// rooted within it.
package localfiles

import (
	"os"
	"path/filepath"

	"github.com/cloudgraphdev/cloudgraph/internal/layout"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
)

const appDir = "cloudgraph"

// Root returns dir if set, otherwise the per-user config directory for the CLI.
func Root(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locating user config directory")
	}
	return filepath.Join(base, appDir), nil
}

// Snapshots returns the filesystem holding persisted scan results.
func Snapshots(root string) (billy.Filesystem, error) {
	return chroot(filepath.Join(root, layout.SnapshotsDir))
}

// Schema returns the filesystem schema files are written to.
func Schema(root string) (billy.Filesystem, error) {
	return chroot(filepath.Join(root, layout.SchemaDir))
}

// Plugins returns the filesystem holding provider manifests.
func Plugins(root string) (billy.Filesystem, error) {
	return chroot(filepath.Join(root, layout.PluginsDir))
}

func chroot(dir string) (billy.Filesystem, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", dir)
	}
	fs, err := osfs.New("/").Chroot(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to chroot into directory %s", dir)
	}
	return fs, nil
}
