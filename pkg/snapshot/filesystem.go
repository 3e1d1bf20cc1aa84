// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/cloudgraphdev/cloudgraph/pkg/graph"
	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// FilesystemStore keeps snapshots as flat files at the root of a filesystem.
type FilesystemStore struct {
	fs billy.Filesystem
}

var _ Store = &FilesystemStore{}

func NewFilesystemStore(fs billy.Filesystem) *FilesystemStore {
	return &FilesystemStore{fs: fs}
}

// List returns the provider's snapshots found on the filesystem.
func (f *FilesystemStore) List(ctx context.Context, provider string) ([]Snapshot, error) {
	infos, err := f.fs.ReadDir(".")
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "reading snapshot dir")
	}
	var snaps []Snapshot
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		p, created, ok := ParseFileName(info.Name())
		if !ok || p != provider {
			continue
		}
		snaps = append(snaps, Snapshot{Provider: p, Name: info.Name(), Created: created})
	}
	return sortAndLabel(snaps), nil
}

// Read decodes the scan result stored for s.
func (f *FilesystemStore) Read(ctx context.Context, s Snapshot) (*graph.ScanResult, error) {
	file, err := f.fs.Open(s.Name)
	if err != nil {
		return nil, errors.Wrap(err, "opening snapshot file")
	}
	defer file.Close()
	var r graph.ScanResult
	if err := json.NewDecoder(file).Decode(&r); err != nil {
		return nil, errors.Wrapf(err, "decoding snapshot file %s", s.Name)
	}
	return &r, nil
}

// Write persists r as a new snapshot of provider taken at created.
func (f *FilesystemStore) Write(ctx context.Context, provider string, created time.Time, r *graph.ScanResult) (Snapshot, error) {
	name := FileName(provider, created)
	file, err := f.fs.Create(name)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "creating file")
	}
	defer file.Close()
	if err := json.NewEncoder(file).Encode(r); err != nil {
		return Snapshot{}, errors.Wrap(err, "encoding snapshot")
	}
	created = time.UnixMilli(created.UnixMilli())
	return Snapshot{Provider: provider, Name: name, Created: created, Label: Label(created)}, nil
}
