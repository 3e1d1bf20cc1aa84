// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudgraphdev/cloudgraph/internal/config"
	"github.com/cloudgraphdev/cloudgraph/pkg/graph"
	"github.com/cloudgraphdev/cloudgraph/pkg/snapshot"
	"github.com/go-git/go-billy/v5/osfs"
)

func TestRegister(t *testing.T) {
	var f Flags
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Register(set)
	if err := set.Parse([]string{"-d", "http://dgraph:8080", "-debug", "-data-dir", "/tmp/cg"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := Flags{Host: "http://dgraph:8080", Debug: true, DataDir: "/tmp/cg"}
	if f != want {
		t.Errorf("Flags = %+v, want %+v", f, want)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		snapshots string
		wantErr   bool
	}{
		{snapshots: ""},
		{snapshots: "./scans"},
		{snapshots: "gs://bucket/prefix"},
		{snapshots: "gs:///prefix", wantErr: true},
	} {
		if err := (Flags{Snapshots: tc.snapshots}).Validate(); (err != nil) != tc.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tc.snapshots, err, tc.wantErr)
		}
	}
}

func TestNewEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.HostEnv, "")
	os.Unsetenv(config.HostEnv)
	cfgPath := filepath.Join(dir, "cg.yaml")
	if err := os.WriteFile(cfgPath, []byte("cloudGraph:\n  dgraphHost: http://from-config:8080\naws: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(config.HostEnv+"=http://from-env:8080\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	env, err := NewEnv(Flags{ConfigPath: "cg.yaml", DataDir: filepath.Join(dir, "data")}, &logs, nil)
	if err != nil {
		t.Fatalf("NewEnv() error = %v", err)
	}
	if env.Host != "http://from-env:8080" {
		t.Errorf("Host = %q, want the .env value", env.Host)
	}
	if got := env.Run.Config.ProviderNames(); len(got) != 1 || got[0] != "aws" {
		t.Errorf("ProviderNames() = %v, want [aws]", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "plugins")); err != nil {
		t.Errorf("plugins dir not created: %v", err)
	}
	engine, err := env.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if engine.Host() != "http://from-env:8080" {
		t.Errorf("engine host = %q", engine.Host())
	}

	ctx := context.Background()
	scans := filepath.Join(dir, "scans")
	if err := os.MkdirAll(scans, 0755); err != nil {
		t.Fatal(err)
	}
	fs, err := osfs.New("/").Chroot(scans)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := snapshot.NewFilesystemStore(fs).Write(ctx, "aws", time.Now(), &graph.ScanResult{}); err != nil {
		t.Fatal(err)
	}
	for _, loc := range []string{"scans", ""} {
		store, err := env.NewStore(ctx, loc)
		if err != nil {
			t.Fatalf("NewStore(%q) error = %v", loc, err)
		}
		snaps, err := store.List(ctx, "aws")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		want := 0
		if loc != "" {
			want = 1
		}
		if len(snaps) != want {
			t.Errorf("NewStore(%q) listed %d snapshots, want %d", loc, len(snaps), want)
		}
	}
}
