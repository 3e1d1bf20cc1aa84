// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package snapshot enumerates, labels, selects and reads persisted scan
// results.
package snapshot

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cloudgraphdev/cloudgraph/internal/prompt"
	"github.com/cloudgraphdev/cloudgraph/pkg/graph"
	"github.com/pkg/errors"
)

const fileExt = ".json"

// Snapshot is one immutable scan result persisted for a provider.
type Snapshot struct {
	Provider string
	// Name locates the snapshot within its Store.
	Name    string
	Created time.Time
	// Label is the human-readable version shown to the operator.
	Label string
}

// Store provides read access to persisted snapshots.
type Store interface {
	// List returns the provider's snapshots, newest first and labeled.
	List(ctx context.Context, provider string) ([]Snapshot, error)
	Read(ctx context.Context, s Snapshot) (*graph.ScanResult, error)
}

// NotFoundError is returned when a provider has no persisted snapshots.
type NotFoundError struct {
	Provider string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unable to find saved data for %s, run \"cg scan %s\" to fetch new data for %s", e.Provider, e.Provider, e.Provider)
}

// FileName returns the name a snapshot of provider taken at created is stored under.
func FileName(provider string, created time.Time) string {
	return fmt.Sprintf("%s_%d%s", provider, created.UnixMilli(), fileExt)
}

// ParseFileName extracts the provider and creation time from a snapshot name.
func ParseFileName(name string) (provider string, created time.Time, ok bool) {
	base, found := strings.CutSuffix(name, fileExt)
	if !found {
		return "", time.Time{}, false
	}
	i := strings.LastIndex(base, "_")
	if i <= 0 {
		return "", time.Time{}, false
	}
	ms, err := strconv.ParseInt(base[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return base[:i], time.UnixMilli(ms), true
}

// Label renders t as a version label, e.g. "March 3rd, 2:15pm".
func Label(t time.Time) string {
	return t.Format("January ") + ordinal(t.Day()) + t.Format(", 3:04pm")
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// sortAndLabel orders snaps newest first and assigns unique labels. Snapshots
// taken within the same minute get a numeric suffix, oldest numbered highest.
func sortAndLabel(snaps []Snapshot) []Snapshot {
	slices.SortStableFunc(snaps, func(a, b Snapshot) int {
		return b.Created.Compare(a.Created)
	})
	seen := make(map[string]int, len(snaps))
	for i := range snaps {
		label := Label(snaps[i].Created)
		seen[label]++
		if n := seen[label]; n > 1 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		snaps[i].Label = label
	}
	return snaps
}

// Select chooses the snapshot to load from snaps, which must be ordered newest
// first. A single snapshot is chosen without prompting; otherwise the operator
// picks one of the newest limit snapshots (all when limit <= 0).
func Select(ctx context.Context, snaps []Snapshot, provider string, p prompt.Prompter, limit int) (Snapshot, error) {
	if len(snaps) == 0 {
		return Snapshot{}, &NotFoundError{Provider: provider}
	}
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	if len(snaps) == 1 {
		return snaps[0], nil
	}
	labels := make([]string, len(snaps))
	for i, s := range snaps {
		labels[i] = s.Label
	}
	choice, err := p.Select(ctx, fmt.Sprintf("Select %s scan version to load", provider), labels)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "selecting scan version")
	}
	for _, s := range snaps {
		if s.Label == choice {
			return s, nil
		}
	}
	return Snapshot{}, errors.Errorf("no %s scan version labeled %q", provider, choice)
}
