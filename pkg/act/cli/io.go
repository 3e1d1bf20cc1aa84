// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package cli runs act components as cobra commands.
package cli

import "io"

// IO holds the streams a command reads from and writes to.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}
