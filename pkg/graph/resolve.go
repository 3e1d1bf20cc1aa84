// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package graph

import "fmt"

// UnresolvedEdge describes a connection whose target could not be found in
// the scan result. Such edges are dropped from the resolved output.
type UnresolvedEdge struct {
	Source string
	Connection
}

func (u UnresolvedEdge) String() string {
	return fmt.Sprintf("%s -> %s (%s)", u.Source, u.ID, u.ResourceType)
}

// Resolver resolves records against a single scan result.
//
// A Resolver only reads from the scan result and is safe for concurrent use.
type Resolver struct {
	scan *ScanResult
	byID map[string]Record
}

// NewResolver indexes the records of scan by id.
//
// When an id appears more than once the first record in entity order wins,
// matching a linear search over the entity list.
func NewResolver(scan *ScanResult) *Resolver {
	byID := make(map[string]Record, scan.Count())
	for _, e := range scan.Entities {
		for _, rec := range e.Data {
			id := rec.ID()
			if id == "" {
				continue
			}
			if _, ok := byID[id]; !ok {
				byID[id] = rec
			}
		}
	}
	return &Resolver{scan: scan, byID: byID}
}

// Resolve returns rec augmented with its connected records.
//
// Each connection of rec appends the target record to the field named by the
// connection's resource type, in connection order. A field that rec already
// holds as a list keeps its items ahead of the resolved targets. Connections to unknown ids
// are skipped and returned to the caller for reporting. The input record and
// the scan result are never modified.
func (r *Resolver) Resolve(rec Record) (ConnectedEntity, []UnresolvedEdge) {
	out := make(ConnectedEntity, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	id := rec.ID()
	var missed []UnresolvedEdge
	// Relation lists never alias slices already present on rec.
	relations := make(map[string][]any)
	for _, c := range r.scan.Connections[id] {
		target, ok := r.byID[c.ID]
		if !ok {
			missed = append(missed, UnresolvedEdge{Source: id, Connection: c})
			continue
		}
		relations[c.ResourceType] = append(relations[c.ResourceType], target)
	}
	for field, targets := range relations {
		if prior, ok := rec[field].([]any); ok {
			targets = append(append(make([]any, 0, len(prior)+len(targets)), prior...), targets...)
		}
		out[field] = targets
	}
	return out, missed
}

// Resolve is a convenience wrapper for one-off resolution of rec against scan.
func Resolve(rec Record, scan *ScanResult) (ConnectedEntity, []UnresolvedEdge) {
	return NewResolver(scan).Resolve(rec)
}
