// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"log"

	"github.com/cloudgraphdev/cloudgraph/cmd/cg/command/health"
	"github.com/cloudgraphdev/cloudgraph/cmd/cg/command/load"
	"github.com/cloudgraphdev/cloudgraph/cmd/cg/command/snapshots"
	"github.com/cloudgraphdev/cloudgraph/pkg/provider"
	"github.com/spf13/cobra"
)

// builtins are providers compiled into the binary. Providers not listed here
// are loaded from plugin manifests in the data dir.
var builtins = provider.Builtin{}

var rootCmd = &cobra.Command{
	Use:   "cg",
	Short: "Load cloud provider scan data into a graph database",
}

func init() {
	rootCmd.AddCommand(load.Command(builtins))
	rootCmd.AddCommand(health.Command())
	rootCmd.AddCommand(snapshots.Command())
}

func main() {
	flag.Parse()
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
