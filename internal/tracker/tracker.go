// Package tracker defines the typed contract between the sync engine and
// the two tracker backends.
//
// Two implementations exist:
//   - internal/tracker/github: GitHub REST API v3 client
//   - internal/tracker/radicle: wrapper around the rad CLI
//
// The engine never talks to a backend directly; it consumes the narrow
// source/sink interfaces below, so tests can substitute in-memory fakes
// and either backend can be replaced without touching the engine.
package tracker

import (
	"context"
	"time"
)

// System identifies which tracker an item originated from.
type System string

const (
	// SystemGitHub is the centralized REST-based tracker.
	SystemGitHub System = "github"

	// SystemRadicle is the peer-to-peer CLI-driven tracker.
	SystemRadicle System = "radicle"
)

// String returns the string representation of the system.
func (s System) String() string {
	return string(s)
}

// State is the lifecycle state of a pull-like item.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
	StateMerged State = "merged"
)

// Issue is a tracker-neutral issue record.
//
// ID is the stable identifier in the originating system's ID space:
// the numeric GitHub issue id rendered as a string, or the Radicle
// object id. Number is the human-facing sequence number where the
// system has one (GitHub); zero otherwise.
type Issue struct {
	// ID is the opaque stable identifier (immutable once assigned)
	ID string

	// Number is the display number, if the system has one
	Number int

	// Title is the issue title
	Title string

	// Body is the issue body or description
	Body string

	// Author is the login or alias of the creator
	Author string

	// Labels are the issue's labels
	Labels []string

	// URL is a browsable link to the issue, if the system has one
	URL string

	// CreatedAt is when the issue was opened
	CreatedAt time.Time

	// UpdatedAt is the last modification time reported by the system.
	// Zero if the system could not report one.
	UpdatedAt time.Time
}

// Patch is a tracker-neutral pull-request/patch record.
type Patch struct {
	// ID is the opaque stable identifier (immutable once assigned)
	ID string

	// Number is the display number, if the system has one
	Number int

	// Title is the patch title
	Title string

	// Body is the patch description
	Body string

	// Author is the login or alias of the creator
	Author string

	// State is the lifecycle state (open, closed, merged)
	State State

	// BaseBranch is the branch the change targets
	BaseBranch string

	// HeadBranch is the branch carrying the change
	HeadBranch string

	// URL is a browsable link to the patch, if the system has one
	URL string

	// CreatedAt is when the patch was opened
	CreatedAt time.Time

	// UpdatedAt is the last modification time reported by the system.
	// Zero if the system could not report one.
	UpdatedAt time.Time
}

// NewIssue carries the fields needed to create a mirrored issue.
type NewIssue struct {
	Title  string
	Body   string
	Labels []string
}

// NewPatch carries the fields needed to create a mirrored patch.
// Branch must name an existing local branch holding the change-set.
type NewPatch struct {
	Branch string
	Title  string
	Body   string
}

// IssueSource lists issues from one tracker.
type IssueSource interface {
	// ListIssues returns all issues the tracker reports.
	// Pull-like items must not appear in the result.
	ListIssues(ctx context.Context) ([]Issue, error)
}

// IssueSink creates mirrored issues on one tracker.
type IssueSink interface {
	// CreateIssue creates an issue and returns its descriptor with the
	// new stable ID filled in. Implementations must not return a
	// partially-created item: on any error the returned Issue is zero.
	CreateIssue(ctx context.Context, in NewIssue) (Issue, error)
}

// PatchSource lists pull-like items from one tracker.
type PatchSource interface {
	// ListPatches returns all pull requests or patches the tracker reports.
	ListPatches(ctx context.Context) ([]Patch, error)
}

// PatchSink creates mirrored patches on one tracker.
type PatchSink interface {
	// CreatePatch creates a patch from an existing local branch and
	// returns its new stable ID.
	CreatePatch(ctx context.Context, in NewPatch) (string, error)
}
