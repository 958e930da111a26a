package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fovi-llc/radsync/internal/store"
	"github.com/fovi-llc/radsync/internal/tracker"
)

// DefaultProvenanceLabel tags GitHub issues created at Radicle's request
// so they are distinguishable from natively created ones.
const DefaultProvenanceLabel = "from-radicle"

// Options tunes a Syncer.
type Options struct {
	// ProvenanceLabel is attached to issues mirrored Radicle → GitHub.
	// Empty means DefaultProvenanceLabel.
	ProvenanceLabel string

	// Since, when non-zero, excludes unmapped items last updated before
	// it. Items that already have a correlation are checked regardless.
	Since time.Time

	// Logger for pass activity. Nil means a default stderr logger.
	Logger *log.Logger
}

// Syncer runs the four directional reconciliation passes against one
// mapping store and two tracker backends. The store and both trackers
// are passed in explicitly; the Syncer holds no global state.
type Syncer struct {
	github  Tracker
	radicle Tracker
	store   *store.Store
	label   string
	since   time.Time
	logger  *log.Logger
}

// New creates a Syncer.
func New(github, radicle Tracker, st *store.Store, opts Options) *Syncer {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	label := opts.ProvenanceLabel
	if label == "" {
		label = DefaultProvenanceLabel
	}

	return &Syncer{
		github:  github,
		radicle: radicle,
		store:   st,
		label:   label,
		since:   opts.Since,
		logger:  logger,
	}
}

// SyncAll runs all four passes in a fixed order and stamps the store's
// last-sync time exactly once at the end.
//
// The order is fixed rather than parallel: both issue passes and both
// patch passes write to the same store sections, and sequential passes
// avoid concurrent writes without locking. An error from any pass (or
// from the final store save) aborts the run; the summary returned
// alongside such an error is incomplete and must not be reported as
// success.
func (s *Syncer) SyncAll(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: time.Now()}
	var err error

	if summary.IssuesGitHubToRadicle, err = s.SyncIssuesGitHubToRadicle(ctx); err != nil {
		return summary, err
	}
	if summary.IssuesRadicleToGitHub, err = s.SyncIssuesRadicleToGitHub(ctx); err != nil {
		return summary, err
	}
	if summary.PatchesGitHubToRadicle, err = s.SyncPatchesGitHubToRadicle(ctx); err != nil {
		return summary, err
	}
	if summary.PatchesRadicleToGitHub, err = s.SyncPatchesRadicleToGitHub(ctx); err != nil {
		return summary, err
	}

	summary.FinishedAt = time.Now()
	if err := s.store.SetLastSyncedAt(summary.FinishedAt); err != nil {
		return summary, fmt.Errorf("failed to record last sync time: %w", err)
	}

	return summary, nil
}

// SyncIssues runs only the two issue passes, in the same order as a
// full run. The last-sync time marks a completed full run, so subset
// runs never stamp it.
func (s *Syncer) SyncIssues(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: time.Now()}
	var err error

	if summary.IssuesGitHubToRadicle, err = s.SyncIssuesGitHubToRadicle(ctx); err != nil {
		return summary, err
	}
	if summary.IssuesRadicleToGitHub, err = s.SyncIssuesRadicleToGitHub(ctx); err != nil {
		return summary, err
	}

	summary.FinishedAt = time.Now()
	return summary, nil
}

// SyncPatches runs only the two patch passes. Same stamping rule as
// SyncIssues.
func (s *Syncer) SyncPatches(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: time.Now()}
	var err error

	if summary.PatchesGitHubToRadicle, err = s.SyncPatchesGitHubToRadicle(ctx); err != nil {
		return summary, err
	}
	if summary.PatchesRadicleToGitHub, err = s.SyncPatchesRadicleToGitHub(ctx); err != nil {
		return summary, err
	}

	summary.FinishedAt = time.Now()
	return summary, nil
}

// SyncIssuesGitHubToRadicle mirrors GitHub issues into Radicle.
func (s *Syncer) SyncIssuesGitHubToRadicle(ctx context.Context) (PassResult, error) {
	var res PassResult

	issues, err := s.github.ListIssues(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list GitHub issues: %w", err)
	}
	s.logger.Printf("Syncing issues: GitHub -> Radicle (%d listed)", len(issues))

	for _, issue := range issues {
		if issue.ID == "" {
			s.logger.Printf("WARNING: GitHub issue #%d has no stable ID, skipping", issue.Number)
			res.Skipped++
			continue
		}

		if existing, ok := s.store.FindIssueByGitHubID(issue.ID); ok {
			if s.needsUpdate(issue.UpdatedAt, existing.GitHubUpdatedAt) {
				s.logger.Printf("Issue #%d changed on GitHub since last sync (needs update)", issue.Number)
				res.NeedsUpdate++
			} else {
				res.Skipped++
			}
			continue
		}

		if s.tooOld(issue.UpdatedAt) {
			res.Skipped++
			continue
		}

		created, err := s.radicle.CreateIssue(ctx, tracker.NewIssue{
			Title:  issue.Title,
			Body:   formatIssueBodyForRadicle(issue),
			Labels: issue.Labels,
		})
		if err != nil {
			s.logger.Printf("WARNING: failed to create Radicle issue for GitHub #%d: %v", issue.Number, err)
			res.Failed++
			continue
		}

		now := time.Now()
		mapping := store.Mapping{
			GitHubID:         issue.ID,
			GitHubNumber:     issue.Number,
			RadicleID:        created.ID,
			Title:            issue.Title,
			LastSyncedAt:     now,
			GitHubUpdatedAt:  issue.UpdatedAt,
			RadicleUpdatedAt: now,
		}
		if err := s.store.RecordIssue(mapping); err != nil {
			return res, fmt.Errorf("failed to record issue correlation: %w", err)
		}

		s.logger.Printf("Created Radicle issue %s for GitHub #%d", shortID(created.ID), issue.Number)
		res.Created++
	}

	return res, nil
}

// SyncIssuesRadicleToGitHub mirrors Radicle issues into GitHub. Created
// issues carry the provenance label.
func (s *Syncer) SyncIssuesRadicleToGitHub(ctx context.Context) (PassResult, error) {
	var res PassResult

	issues, err := s.radicle.ListIssues(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list Radicle issues: %w", err)
	}
	s.logger.Printf("Syncing issues: Radicle -> GitHub (%d listed)", len(issues))

	for _, issue := range issues {
		if issue.ID == "" {
			s.logger.Printf("WARNING: Radicle issue %q has no stable ID, skipping", issue.Title)
			res.Skipped++
			continue
		}

		if existing, ok := s.store.FindIssueByRadicleID(issue.ID); ok {
			if s.needsUpdate(issue.UpdatedAt, existing.RadicleUpdatedAt) {
				s.logger.Printf("Issue %s changed on Radicle since last sync (needs update)", shortID(issue.ID))
				res.NeedsUpdate++
			} else {
				res.Skipped++
			}
			continue
		}

		if s.tooOld(issue.UpdatedAt) {
			res.Skipped++
			continue
		}

		title := issue.Title
		if title == "" {
			title = "Untitled"
		}

		created, err := s.github.CreateIssue(ctx, tracker.NewIssue{
			Title:  title,
			Body:   formatIssueBodyForGitHub(issue),
			Labels: []string{s.label},
		})
		if err != nil {
			s.logger.Printf("WARNING: failed to create GitHub issue for Radicle %s: %v", shortID(issue.ID), err)
			res.Failed++
			continue
		}

		mapping := store.Mapping{
			GitHubID:         created.ID,
			GitHubNumber:     created.Number,
			RadicleID:        issue.ID,
			Title:            title,
			LastSyncedAt:     time.Now(),
			GitHubUpdatedAt:  created.UpdatedAt,
			RadicleUpdatedAt: issue.UpdatedAt,
		}
		if err := s.store.RecordIssue(mapping); err != nil {
			return res, fmt.Errorf("failed to record issue correlation: %w", err)
		}

		s.logger.Printf("Created GitHub issue #%d for Radicle %s", created.Number, shortID(issue.ID))
		res.Created++
	}

	return res, nil
}

// SyncPatchesGitHubToRadicle reconciles GitHub pull requests against the
// patch mapping. Mirroring a PR needs its change-set moved into the
// Radicle repository first, which is out of scope, so unmapped open PRs
// are counted as skipped; the existence and update checks still run so
// the counters stay meaningful once change-set transfer exists.
func (s *Syncer) SyncPatchesGitHubToRadicle(ctx context.Context) (PassResult, error) {
	var res PassResult

	patches, err := s.github.ListPatches(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list GitHub pull requests: %w", err)
	}
	s.logger.Printf("Syncing patches: GitHub -> Radicle (%d listed)", len(patches))

	for _, patch := range patches {
		if patch.ID == "" {
			res.Skipped++
			continue
		}

		if existing, ok := s.store.FindPatchByGitHubID(patch.ID); ok {
			if s.needsUpdate(patch.UpdatedAt, existing.GitHubUpdatedAt) {
				s.logger.Printf("PR #%d changed on GitHub since last sync (needs update)", patch.Number)
				res.NeedsUpdate++
			} else {
				res.Skipped++
			}
			continue
		}

		// Dead pull requests are never mirrored.
		if patch.State == tracker.StateClosed || patch.State == tracker.StateMerged {
			s.logger.Printf("Skipping %s PR #%d", patch.State, patch.Number)
			res.Skipped++
			continue
		}

		if s.tooOld(patch.UpdatedAt) {
			res.Skipped++
			continue
		}

		s.logger.Printf("PR #%d needs change-set transfer before it can become a patch, skipping", patch.Number)
		res.Skipped++
	}

	return res, nil
}

// SyncPatchesRadicleToGitHub reconciles Radicle patches against the
// patch mapping. Same contract-only behavior as the opposite direction.
func (s *Syncer) SyncPatchesRadicleToGitHub(ctx context.Context) (PassResult, error) {
	var res PassResult

	patches, err := s.radicle.ListPatches(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list Radicle patches: %w", err)
	}
	s.logger.Printf("Syncing patches: Radicle -> GitHub (%d listed)", len(patches))

	for _, patch := range patches {
		if patch.ID == "" {
			res.Skipped++
			continue
		}

		if existing, ok := s.store.FindPatchByRadicleID(patch.ID); ok {
			if s.needsUpdate(patch.UpdatedAt, existing.RadicleUpdatedAt) {
				s.logger.Printf("Patch %s changed on Radicle since last sync (needs update)", shortID(patch.ID))
				res.NeedsUpdate++
			} else {
				res.Skipped++
			}
			continue
		}

		if s.tooOld(patch.UpdatedAt) {
			res.Skipped++
			continue
		}

		s.logger.Printf("Patch %s needs change-set transfer before it can become a PR, skipping", shortID(patch.ID))
		res.Skipped++
	}

	return res, nil
}

// needsUpdate reports whether the freshly listed timestamp moved past
// the one recorded at the last sync. A zero listed timestamp means the
// tracker could not report one, which is treated as "no newer edit seen".
func (s *Syncer) needsUpdate(listed, recorded time.Time) bool {
	if listed.IsZero() {
		return false
	}
	return listed.After(recorded)
}

// tooOld reports whether an unmapped item falls before the Since cutoff.
func (s *Syncer) tooOld(updatedAt time.Time) bool {
	if s.since.IsZero() || updatedAt.IsZero() {
		return false
	}
	return updatedAt.Before(s.since)
}
