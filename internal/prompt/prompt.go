// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package prompt provides interactive selection for CLI commands.
package prompt

import (
	"context"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"github.com/rivo/tview"
)

const (
	defaultBackground = tcell.ColorDarkCyan
)

// ErrCanceled is returned when the operator dismisses a prompt.
var ErrCanceled = errors.New("selection canceled")

// Prompter asks the operator to choose one of several options.
type Prompter interface {
	Select(ctx context.Context, message string, options []string) (string, error)
}

// Terminal is a Prompter that renders a list in the terminal.
type Terminal struct{}

var _ Prompter = Terminal{}

// Select shows options as a list and blocks until one is chosen, the prompt
// is dismissed with Esc or Ctrl-C, or ctx is done.
func (Terminal) Select(ctx context.Context, message string, options []string) (string, error) {
	if len(options) == 0 {
		return "", errors.New("no options to select from")
	}
	app := tview.NewApplication()
	list := tview.NewList().ShowSecondaryText(false)
	list.SetBackgroundColor(defaultBackground).SetBorder(true).SetTitle(message)
	var choice string
	var canceled bool
	for _, option := range options {
		list.AddItem(option, "", 0, func() {
			choice = option
			app.Stop()
		})
	}
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyCtrlC {
			canceled = true
			app.Stop()
			return nil
		}
		return event
	})
	stop := context.AfterFunc(ctx, app.Stop)
	defer stop()
	if err := app.SetRoot(list, true).Run(); err != nil {
		return "", errors.Wrap(err, "running prompt")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if canceled || choice == "" {
		return "", ErrCanceled
	}
	return choice, nil
}

// Static is a Prompter that always answers with a fixed choice. It is used
// when a selection is supplied up front, such as from a flag.
type Static string

var _ Prompter = Static("")

// Select returns the fixed choice if it is one of options.
func (s Static) Select(_ context.Context, _ string, options []string) (string, error) {
	for _, o := range options {
		if o == string(s) {
			return o, nil
		}
	}
	return "", errors.Errorf("%q is not one of the available options", string(s))
}
