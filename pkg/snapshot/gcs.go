// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"encoding/json"
	"net/url"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/cloudgraphdev/cloudgraph/pkg/graph"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
)

// GCSStore reads snapshots shared in a GCS bucket, using the same naming as
// FilesystemStore below an optional prefix.
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

var _ Store = &GCSStore{}

// NewGCSStore creates a GCSStore for gs://bucket/prefix.
func NewGCSStore(client *gcs.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// ParseGCSURL splits a gs:// URL into its bucket and prefix.
func ParseGCSURL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", errors.Wrap(err, "parsing snapshot location")
	}
	if u.Scheme != "gs" || u.Host == "" {
		return "", "", errors.Errorf("unsupported snapshot location %q", raw)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

func (g *GCSStore) object(name string) string {
	return path.Join(g.prefix, name)
}

// List returns the provider's snapshots found under the prefix.
func (g *GCSStore) List(ctx context.Context, provider string) ([]Snapshot, error) {
	query := &gcs.Query{Prefix: g.object(provider + "_")}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, errors.Wrap(err, "building object query")
	}
	var snaps []Snapshot
	it := g.client.Bucket(g.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "iterating over objects")
		}
		name := path.Base(attrs.Name)
		p, created, ok := ParseFileName(name)
		if !ok || p != provider {
			continue
		}
		snaps = append(snaps, Snapshot{Provider: p, Name: name, Created: created})
	}
	return sortAndLabel(snaps), nil
}

// Read decodes the scan result stored for s.
func (g *GCSStore) Read(ctx context.Context, s Snapshot) (*graph.ScanResult, error) {
	r, err := g.client.Bucket(g.bucket).Object(g.object(s.Name)).NewReader(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "creating reader for %s", s.Name)
	}
	defer r.Close()
	var res graph.ScanResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, errors.Wrapf(err, "decoding snapshot %s", s.Name)
	}
	return &res, nil
}
