package sync

import (
	"time"

	"github.com/fovi-llc/radsync/internal/tracker"
)

// Tracker is the view of one tracker backend the engine consumes: list
// issues, create issues, list pull-like items. Patch creation is not
// part of it because mirroring a patch additionally requires moving the
// underlying change-set between systems, which the engine deliberately
// does not do; the patch passes record intent through their counters
// only.
//
// Both internal/tracker/github.Client and internal/tracker/radicle.Radicle
// satisfy this interface; tests substitute in-memory fakes.
type Tracker interface {
	tracker.IssueSource
	tracker.IssueSink
	tracker.PatchSource
}

// PassResult counts what one directional pass did.
type PassResult struct {
	// Created is the number of items mirrored to the destination
	Created int

	// NeedsUpdate is the number of already-mirrored items whose source
	// changed after the last sync. Detected, never applied.
	NeedsUpdate int

	// Skipped is the number of items already in sync or excluded
	Skipped int

	// Failed is the number of items whose create failed; the pass
	// continued past each one
	Failed int
}

// Summary aggregates the four passes of one full run.
type Summary struct {
	IssuesGitHubToRadicle  PassResult
	IssuesRadicleToGitHub  PassResult
	PatchesGitHubToRadicle PassResult
	PatchesRadicleToGitHub PassResult

	StartedAt  time.Time
	FinishedAt time.Time
}
