// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package storage defines the contract between the load pipeline and a remote
// graph backend.
package storage

import (
	"context"

	"github.com/cloudgraphdev/cloudgraph/pkg/graph"
)

// Engine manages schema and data in a remote graph backend.
//
// An Engine owns an ordered queue of mutation tasks for the duration of one
// load run. Run must not be invoked concurrently on the same Engine.
type Engine interface {
	// HealthCheck probes the backend without mutating it. It never fails;
	// transport problems are logged and reported as false.
	HealthCheck(ctx context.Context) bool
	// ValidateSchema dry-runs the combined schema. A rejected schema is
	// reported as a *SchemaValidationError.
	ValidateSchema(ctx context.Context, schema []string, version string) error
	// SetSchema drops all data and schema at the backend, then applies schemas.
	SetSchema(ctx context.Context, schemas []string) error
	// Push enqueues a mutation without performing any I/O.
	Push(task MutationTask)
	// Run executes every queued task in order, optionally clearing existing
	// data first. A failing task is reported in the returned RunReport and
	// does not stop the remaining tasks.
	Run(ctx context.Context, dropData bool) (*RunReport, error)
}

// MutationTask is one queued mutation for a group of connected entities.
type MutationTask struct {
	// Query is the GraphQL mutation text.
	Query string
	// Service names the provider service the entities belong to, for diagnostics.
	Service string
	// Input is bound to the mutation's $input variable.
	Input []graph.ConnectedEntity
}

// RunReport summarizes the execution of a task queue.
type RunReport struct {
	Executed int
	// Errors holds exactly one error per failed task, in queue order.
	Errors []error
}

// Failed returns the number of failed tasks.
func (r *RunReport) Failed() int {
	return len(r.Errors)
}

// Succeeded returns the number of tasks that completed without error.
func (r *RunReport) Succeeded() int {
	return r.Executed - len(r.Errors)
}
