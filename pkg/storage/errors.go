// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"fmt"
	"strings"
)

// GQLError is one entry of a GraphQL response's "errors" array.
type GQLError struct {
	Message   string         `json:"message"`
	Locations []GQLLocation  `json:"locations,omitempty"`
	Path      []any          `json:"path,omitempty"`
	Extension map[string]any `json:"extensions,omitempty"`
}

// GQLLocation points into the submitted query or schema text.
type GQLLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (e GQLError) Error() string { return e.Message }

// TransportError reports a failure to reach the backend or a non-2xx reply.
type TransportError struct {
	Op     string
	Host   string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s at %s: status %d: %v", e.Op, e.Host, e.Status, e.Err)
	}
	return fmt.Sprintf("%s at %s: %v", e.Op, e.Host, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaValidationError reports a schema rejected by the backend.
type SchemaValidationError struct {
	Version string
	// Messages are the backend's messages with line markers made readable.
	Messages []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%d errors found in %s schema: %s", len(e.Messages), e.Version, strings.Join(e.Messages, "; "))
}

// MutationError reports a failed mutation task.
type MutationError struct {
	Service string
	// Errors holds backend-reported GraphQL errors, if any.
	Errors []GQLError
	// Err holds the transport failure, if any.
	Err error
}

func (e *MutationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mutation for %s failed: %v", e.Service, e.Err)
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("mutation for %s failed: %s", e.Service, strings.Join(msgs, "; "))
}

func (e *MutationError) Unwrap() error { return e.Err }
