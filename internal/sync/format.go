package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/fovi-llc/radsync/internal/tracker"
)

// noDescription is the body placeholder for items with an empty body.
const noDescription = "No description provided."

// formatIssueBodyForRadicle synthesizes the Radicle body for a mirrored
// GitHub issue: attribution header, separator, original text.
func formatIssueBodyForRadicle(issue tracker.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Originally from GitHub issue #%d**\n\n", issue.Number)
	fmt.Fprintf(&b, "Author: @%s\n", issue.Author)
	fmt.Fprintf(&b, "Created: %s\n", formatTime(issue.CreatedAt))
	if issue.URL != "" {
		fmt.Fprintf(&b, "GitHub URL: %s\n", issue.URL)
	}
	b.WriteString("\n---\n\n")
	b.WriteString(orPlaceholder(issue.Body))
	return b.String()
}

// formatIssueBodyForGitHub synthesizes the GitHub body for a mirrored
// Radicle issue.
func formatIssueBodyForGitHub(issue tracker.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Originally from Radicle issue %s**\n\n", shortID(issue.ID))
	fmt.Fprintf(&b, "Author: %s\n", issue.Author)
	fmt.Fprintf(&b, "Created: %s\n", formatTime(issue.CreatedAt))
	b.WriteString("\n---\n\n")
	b.WriteString(orPlaceholder(issue.Body))
	return b.String()
}

// formatPatchBodyForRadicle synthesizes the Radicle description for a
// mirrored GitHub pull request.
func formatPatchBodyForRadicle(patch tracker.Patch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Originally from GitHub PR #%d**\n\n", patch.Number)
	fmt.Fprintf(&b, "Author: @%s\n", patch.Author)
	fmt.Fprintf(&b, "Created: %s\n", formatTime(patch.CreatedAt))
	if patch.URL != "" {
		fmt.Fprintf(&b, "GitHub URL: %s\n", patch.URL)
	}
	fmt.Fprintf(&b, "Base: %s ← Head: %s\n", patch.BaseBranch, patch.HeadBranch)
	b.WriteString("\n---\n\n")
	b.WriteString(orPlaceholder(patch.Body))
	return b.String()
}

// formatPatchBodyForGitHub synthesizes the GitHub PR body for a
// mirrored Radicle patch.
func formatPatchBodyForGitHub(patch tracker.Patch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Originally from Radicle patch %s**\n\n", shortID(patch.ID))
	fmt.Fprintf(&b, "Author: %s\n", patch.Author)
	fmt.Fprintf(&b, "Created: %s\n", formatTime(patch.CreatedAt))
	b.WriteString("\n---\n\n")
	b.WriteString(orPlaceholder(patch.Body))
	return b.String()
}

// shortID abbreviates a Radicle object ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

// formatTime renders a provenance timestamp, tolerating the zero value
// for trackers that could not report one.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}

func orPlaceholder(body string) string {
	if strings.TrimSpace(body) == "" {
		return noDescription
	}
	return body
}
