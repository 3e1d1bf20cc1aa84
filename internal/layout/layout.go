// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package layout

const (
	SnapshotsDir       = "data"           // Persisted scan results, one file per provider run.
	SchemaDir          = "schema"         // Per-provider and combined schema written on load.
	PluginsDir         = "plugins"        // Provider manifests, one directory per provider.
	CombinedSchemaFile = "schema.graphql" // The combined schema within SchemaDir.
	ManifestFile       = "provider.yaml"  // The manifest within a provider's plugin directory.
)
