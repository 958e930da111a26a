// Package radicle implements the tracker contract by wrapping the rad CLI.
//
// Radicle stores collaboration objects (issues, patches) in the repository
// itself and exposes them through the rad command-line tool. This package
// shells out to rad with os/exec and converts its output into typed
// records. The rad listing commands print human-readable tables, so
// listing is done in two steps: the table is scanned only for stable
// object IDs, and every ID is then resolved with `rad issue show` /
// `rad patch show`, whose field layout carries the real author, state,
// labels, and description. Raw text never crosses the package boundary.
package radicle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fovi-llc/radsync/internal/tracker"
)

// Radicle wraps the rad CLI for a single repository working copy.
type Radicle struct {
	// repoRoot is the working copy the rad commands run in
	repoRoot string

	// rid is the Radicle repository identifier, if known
	rid string
}

// New creates a Radicle wrapper rooted at the given working copy.
func New(repoRoot string) (*Radicle, error) {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository root: %w", err)
	}

	return &Radicle{repoRoot: absRoot}, nil
}

// RID returns the Radicle repository identifier, detecting it on first
// use via `rad .`.
func (r *Radicle) RID(ctx context.Context) (string, error) {
	if r.rid != "" {
		return r.rid, nil
	}

	out, err := r.exec(ctx, ".")
	if err != nil {
		return "", err
	}

	r.rid = strings.TrimSpace(string(out))
	return r.rid, nil
}

// issueIDPattern matches the confirmation line rad prints after opening
// an issue, e.g. "✓ Issue 2f38176c9c3e opened".
var issueIDPattern = regexp.MustCompile(`Issue ([0-9a-f]+)`)

// patchIDPattern matches the confirmation line for patches.
var patchIDPattern = regexp.MustCompile(`Patch ([0-9a-f]+)`)

// ListIssues returns all issues in the repository.
//
// IDs come from the list table; each issue is then resolved with
// `rad issue show` for its real metadata. An issue whose show call fails
// is returned with whatever the table carried, so one unreadable object
// never hides the rest.
func (r *Radicle) ListIssues(ctx context.Context) ([]tracker.Issue, error) {
	out, err := r.exec(ctx, "issue", "list", "--all")
	if err != nil {
		return nil, err
	}

	var issues []tracker.Issue
	for _, row := range parseListRows(string(out)) {
		issue := tracker.Issue{
			ID:    row.ID,
			Title: row.Title,
		}

		if detail, err := r.showIssue(ctx, row.ID); err == nil {
			issue = detail
		}

		issues = append(issues, issue)
	}

	return issues, nil
}

// showIssue resolves a single issue's metadata via `rad issue show`.
func (r *Radicle) showIssue(ctx context.Context, id string) (tracker.Issue, error) {
	out, err := r.exec(ctx, "issue", "show", id)
	if err != nil {
		return tracker.Issue{}, err
	}

	detail, err := parseShow(string(out))
	if err != nil {
		return tracker.Issue{}, err
	}

	return issueFromShow(id, detail), nil
}

// issueFromShow maps parsed show output onto the issue record.
//
// The only timestamp rad prints is the relative Opened phrase, which
// resolves against the clock of whichever run parses it. It serves as
// the approximate creation time; the modification time stays zero
// (unknown), since a clock-dependent value would make an unchanged
// issue look newer on every later run.
func issueFromShow(id string, detail showDetail) tracker.Issue {
	issue := tracker.Issue{
		ID:        id,
		Title:     detail.Fields["Title"],
		Body:      detail.Body,
		Author:    authorAlias(detail.Fields["Author"]),
		CreatedAt: detail.OpenedAt,
	}
	if labels := detail.Fields["Labels"]; labels != "" {
		issue.Labels = splitLabels(labels)
	}
	return issue
}

// CreateIssue opens a new issue and returns its descriptor with the new
// stable ID.
func (r *Radicle) CreateIssue(ctx context.Context, in tracker.NewIssue) (tracker.Issue, error) {
	args := []string{"issue", "open", "--title", in.Title, "--description", in.Body}
	for _, label := range in.Labels {
		args = append(args, "--label", label)
	}

	out, err := r.exec(ctx, args...)
	if err != nil {
		return tracker.Issue{}, err
	}

	match := issueIDPattern.FindStringSubmatch(string(out))
	if match == nil {
		return tracker.Issue{}, fmt.Errorf("%w: no issue ID in rad output", tracker.ErrParse)
	}

	return tracker.Issue{
		ID:     match[1],
		Title:  in.Title,
		Body:   in.Body,
		Labels: in.Labels,
	}, nil
}

// ListPatches returns all patches in the repository, resolved the same
// way as issues.
func (r *Radicle) ListPatches(ctx context.Context) ([]tracker.Patch, error) {
	out, err := r.exec(ctx, "patch", "list", "--all")
	if err != nil {
		return nil, err
	}

	var patches []tracker.Patch
	for _, row := range parseListRows(string(out)) {
		patch := tracker.Patch{
			ID:    row.ID,
			Title: row.Title,
			State: tracker.StateOpen,
		}

		if detail, err := r.showPatch(ctx, row.ID); err == nil {
			patch = detail
		}

		patches = append(patches, patch)
	}

	return patches, nil
}

// showPatch resolves a single patch's metadata via `rad patch show`.
func (r *Radicle) showPatch(ctx context.Context, id string) (tracker.Patch, error) {
	out, err := r.exec(ctx, "patch", "show", id)
	if err != nil {
		return tracker.Patch{}, err
	}

	detail, err := parseShow(string(out))
	if err != nil {
		return tracker.Patch{}, err
	}

	return patchFromShow(id, detail), nil
}

// patchFromShow maps parsed show output onto the patch record. The
// modification time stays zero for the same reason as issueFromShow.
func patchFromShow(id string, detail showDetail) tracker.Patch {
	patch := tracker.Patch{
		ID:        id,
		Title:     detail.Fields["Title"],
		Body:      detail.Body,
		Author:    authorAlias(detail.Fields["Author"]),
		State:     patchState(detail.Fields["Status"]),
		CreatedAt: detail.OpenedAt,
	}
	if branches := detail.Fields["Branches"]; branches != "" {
		patch.HeadBranch = strings.TrimSpace(strings.Split(branches, ",")[0])
	}
	return patch
}

// CreatePatch opens a new patch from an existing local branch and
// returns its new stable ID. The branch must already hold the change-set;
// fetching it from elsewhere is the caller's problem.
func (r *Radicle) CreatePatch(ctx context.Context, in tracker.NewPatch) (string, error) {
	if !r.branchExists(ctx, in.Branch) {
		return "", fmt.Errorf("%w: %s", tracker.ErrNoBranch, in.Branch)
	}

	out, err := r.exec(ctx, "patch", "open",
		"--title", in.Title, "--description", in.Body, in.Branch)
	if err != nil {
		return "", err
	}

	match := patchIDPattern.FindStringSubmatch(string(out))
	if match == nil {
		return "", fmt.Errorf("%w: no patch ID in rad output", tracker.ErrParse)
	}

	return match[1], nil
}

// branchExists checks for a local branch via git, since rad operates on
// git refs.
func (r *Radicle) branchExists(ctx context.Context, branch string) bool {
	cmd := exec.CommandContext(ctx, "git", "show-ref", "--verify", "--quiet",
		"refs/heads/"+branch)
	cmd.Dir = r.repoRoot
	return cmd.Run() == nil
}

// exec runs a rad command in the repository root.
// This is the internal command runner used by all other methods.
func (r *Radicle) exec(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "rad", args...)
	cmd.Dir = r.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: rad binary not in PATH", tracker.ErrUnavailable)
		}

		stderrStr := stderr.String()
		if strings.Contains(stderrStr, "not found") {
			return nil, fmt.Errorf("%w: %s", tracker.ErrNotFound, strings.TrimSpace(stderrStr))
		}

		return nil, fmt.Errorf("rad %s failed: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(stderrStr))
	}

	return stdout.Bytes(), nil
}

// authorAlias reduces rad's "did:key:z6Mk... (alice)" author form to the
// alias when one is present.
func authorAlias(author string) string {
	if start := strings.LastIndex(author, "("); start != -1 {
		if end := strings.LastIndex(author, ")"); end > start {
			return strings.TrimSpace(author[start+1 : end])
		}
	}
	return strings.TrimSpace(author)
}

// splitLabels splits rad's comma-separated label field.
func splitLabels(s string) []string {
	var labels []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// patchState maps rad status words onto the tracker state.
func patchState(status string) tracker.State {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "merged":
		return tracker.StateMerged
	case "closed", "archived":
		return tracker.StateClosed
	default:
		return tracker.StateOpen
	}
}
