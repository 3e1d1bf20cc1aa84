// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package graph defines the scan result model reported by providers and the
// resolution of raw, id-keyed connections into embedded relation fields.
package graph

// Record is one raw resource record as reported by a provider.
//
// Records are decoded from snapshot JSON, so values carry the dynamic shape of
// the provider's data. The "id" field is the provider-scoped identifier (an ARN
// for AWS resources) used to key connections.
type Record map[string]any

// ID returns the record's identifier, or "" if the record has none.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Entity groups every record of one resource type.
type Entity struct {
	// Name is the resource type tag used to look up the provider's mutation.
	Name string   `json:"name"`
	Data []Record `json:"data"`
}

// Connection is one unresolved edge from a source record to a target record.
type Connection struct {
	ID           string `json:"id"`
	ResourceType string `json:"resourceType"`
}

// ScanResult is the unit persisted by a single provider scan.
type ScanResult struct {
	Entities []Entity `json:"entities"`
	// Connections maps a source record id to its outgoing edges. A missing key
	// means the record has no known connections.
	Connections map[string][]Connection `json:"connections"`
}

// Count returns the total number of records across all entities.
func (s *ScanResult) Count() int {
	var n int
	for _, e := range s.Entities {
		n += len(e.Data)
	}
	return n
}

// ConnectedEntity is a record enriched with one field per related resource
// type, each holding the full records of the connected resources.
type ConnectedEntity = Record
