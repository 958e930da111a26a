package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fovi-llc/radsync/internal/store"
	"github.com/fovi-llc/radsync/internal/tracker"
)

// fakeTracker is an in-memory Tracker for engine tests.
type fakeTracker struct {
	issues  []tracker.Issue
	patches []tracker.Patch

	// created collects every CreateIssue call
	created []tracker.NewIssue

	// nextIssue builds the response for the next CreateIssue call;
	// nil falls back to a deterministic default
	nextIssue func(n int, in tracker.NewIssue) (tracker.Issue, error)

	listIssuesErr  error
	listPatchesErr error
}

func (f *fakeTracker) ListIssues(ctx context.Context) ([]tracker.Issue, error) {
	if f.listIssuesErr != nil {
		return nil, f.listIssuesErr
	}
	return f.issues, nil
}

func (f *fakeTracker) ListPatches(ctx context.Context) ([]tracker.Patch, error) {
	if f.listPatchesErr != nil {
		return nil, f.listPatchesErr
	}
	return f.patches, nil
}

func (f *fakeTracker) CreateIssue(ctx context.Context, in tracker.NewIssue) (tracker.Issue, error) {
	f.created = append(f.created, in)
	if f.nextIssue != nil {
		return f.nextIssue(len(f.created), in)
	}
	return tracker.Issue{
		ID:     fmt.Sprintf("created-%d", len(f.created)),
		Number: 1000 + len(f.created),
		Title:  in.Title,
		Body:   in.Body,
		Labels: in.Labels,
	}, nil
}

// newTestStore opens a store on a fresh temp file.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sync.json")
	return store.Open(path, log.New(os.Stderr, "[test] ", 0))
}

func newTestSyncer(t *testing.T, github, radicle *fakeTracker, st *store.Store) *Syncer {
	t.Helper()
	return New(github, radicle, st, Options{
		Logger: log.New(os.Stderr, "[test] ", 0),
	})
}

func ghIssue(id string, number int, updated string) tracker.Issue {
	ts, err := time.Parse(time.RFC3339, updated)
	if err != nil {
		panic(err)
	}
	return tracker.Issue{
		ID:        id,
		Number:    number,
		Title:     "Bug X",
		Body:      "it breaks",
		Author:    "alice",
		URL:       fmt.Sprintf("https://example.com/%d", number),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestIssuePass_EndToEnd(t *testing.T) {
	github := &fakeTracker{issues: []tracker.Issue{ghIssue("101", 1, "2024-01-01T00:00:00Z")}}
	radicle := &fakeTracker{
		nextIssue: func(n int, in tracker.NewIssue) (tracker.Issue, error) {
			return tracker.Issue{ID: "abc123", Title: in.Title}, nil
		},
	}
	st := newTestStore(t)
	syncer := newTestSyncer(t, github, radicle, st)

	res, err := syncer.SyncIssuesGitHubToRadicle(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if res != (PassResult{Created: 1}) {
		t.Errorf("first run: expected {created:1}, got %+v", res)
	}

	mapping, ok := st.FindIssueByGitHubID("101")
	if !ok {
		t.Fatal("expected correlation record after create")
	}
	if mapping.RadicleID != "abc123" {
		t.Errorf("expected radicle ID abc123, got %s", mapping.RadicleID)
	}

	// Same listing again: nothing new, nothing duplicated.
	res, err = syncer.SyncIssuesGitHubToRadicle(context.Background())
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if res != (PassResult{Skipped: 1}) {
		t.Errorf("second run: expected {skipped:1}, got %+v", res)
	}
	if len(radicle.created) != 1 {
		t.Errorf("expected exactly 1 create across both runs, got %d", len(radicle.created))
	}
}

func TestSecondFullRun_NoDuplicates(t *testing.T) {
	github := &fakeTracker{
		issues: []tracker.Issue{
			ghIssue("101", 1, "2024-01-01T00:00:00Z"),
			ghIssue("102", 2, "2024-01-02T00:00:00Z"),
		},
		patches: []tracker.Patch{{
			ID: "201", Number: 10, Title: "Open PR", State: tracker.StateOpen,
			UpdatedAt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		}},
	}
	radicle := &fakeTracker{
		issues: []tracker.Issue{{ID: "rad111", Title: "Radicle-born issue"}},
		patches: []tracker.Patch{{
			ID: "radp01", Title: "Radicle-born patch", State: tracker.StateOpen,
		}},
	}
	st := newTestStore(t)
	syncer := newTestSyncer(t, github, radicle, st)

	first, err := syncer.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("first full run failed: %v", err)
	}
	if first.IssuesGitHubToRadicle.Created != 2 {
		t.Errorf("expected 2 issues created GH->Rad, got %+v", first.IssuesGitHubToRadicle)
	}
	if first.IssuesRadicleToGitHub.Created != 1 {
		t.Errorf("expected 1 issue created Rad->GH, got %+v", first.IssuesRadicleToGitHub)
	}

	second, err := syncer.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("second full run failed: %v", err)
	}

	for name, res := range map[string]PassResult{
		"issues GH->Rad":  second.IssuesGitHubToRadicle,
		"issues Rad->GH":  second.IssuesRadicleToGitHub,
		"patches GH->Rad": second.PatchesGitHubToRadicle,
		"patches Rad->GH": second.PatchesRadicleToGitHub,
	} {
		if res.Created != 0 {
			t.Errorf("%s: second run must create nothing, got %+v", name, res)
		}
	}
	if second.IssuesGitHubToRadicle.Skipped != 2 {
		t.Errorf("expected 2 skips GH->Rad, got %+v", second.IssuesGitHubToRadicle)
	}
	if second.IssuesRadicleToGitHub.Skipped != 1 {
		t.Errorf("expected 1 skip Rad->GH, got %+v", second.IssuesRadicleToGitHub)
	}
}

func TestTimestampTriggersNeedsUpdate(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	st := newTestStore(t)
	if err := st.RecordIssue(store.Mapping{
		GitHubID: "101", GitHubNumber: 1, RadicleID: "abc123",
		GitHubUpdatedAt: t1, LastSyncedAt: t1,
	}); err != nil {
		t.Fatalf("seed record failed: %v", err)
	}

	issue := ghIssue("101", 1, "2024-01-01T00:00:00Z")
	issue.UpdatedAt = t2
	github := &fakeTracker{issues: []tracker.Issue{issue}}
	radicle := &fakeTracker{}
	syncer := newTestSyncer(t, github, radicle, st)

	res, err := syncer.SyncIssuesGitHubToRadicle(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	if res != (PassResult{NeedsUpdate: 1}) {
		t.Errorf("expected {needsUpdate:1}, got %+v", res)
	}
	if len(radicle.created) != 0 {
		t.Error("needs-update item must not trigger a create")
	}
}

func TestClosedAndMergedPRsExcluded(t *testing.T) {
	github := &fakeTracker{patches: []tracker.Patch{
		{ID: "201", Number: 10, State: tracker.StateClosed},
		{ID: "202", Number: 11, State: tracker.StateMerged},
	}}
	radicle := &fakeTracker{}
	st := newTestStore(t)
	syncer := newTestSyncer(t, github, radicle, st)

	res, err := syncer.SyncPatchesGitHubToRadicle(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	if res != (PassResult{Skipped: 2}) {
		t.Errorf("expected {skipped:2}, got %+v", res)
	}
	if st.PatchCount() != 0 {
		t.Errorf("dead PRs must not be recorded, got %d records", st.PatchCount())
	}
}

func TestCreateFailureDoesNotAbortPass(t *testing.T) {
	github := &fakeTracker{issues: []tracker.Issue{
		ghIssue("101", 1, "2024-01-01T00:00:00Z"),
		ghIssue("102", 2, "2024-01-02T00:00:00Z"),
	}}
	radicle := &fakeTracker{
		nextIssue: func(n int, in tracker.NewIssue) (tracker.Issue, error) {
			if n == 1 {
				return tracker.Issue{}, fmt.Errorf("%w: rad exited 1", tracker.ErrUnavailable)
			}
			return tracker.Issue{ID: "ok456"}, nil
		},
	}
	st := newTestStore(t)
	syncer := newTestSyncer(t, github, radicle, st)

	res, err := syncer.SyncIssuesGitHubToRadicle(context.Background())
	if err != nil {
		t.Fatalf("pass must survive item failures: %v", err)
	}

	if res != (PassResult{Created: 1, Failed: 1}) {
		t.Errorf("expected {created:1, failed:1}, got %+v", res)
	}
	if _, ok := st.FindIssueByGitHubID("101"); ok {
		t.Error("failed item must not get a correlation record")
	}
	if _, ok := st.FindIssueByGitHubID("102"); !ok {
		t.Error("item after the failure must still be created and recorded")
	}
}

func TestMissingStableIDSkipped(t *testing.T) {
	github := &fakeTracker{issues: []tracker.Issue{{Number: 1, Title: "no id"}}}
	radicle := &fakeTracker{}
	st := newTestStore(t)
	syncer := newTestSyncer(t, github, radicle, st)

	res, err := syncer.SyncIssuesGitHubToRadicle(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if res != (PassResult{Skipped: 1}) {
		t.Errorf("expected {skipped:1}, got %+v", res)
	}
	if len(radicle.created) != 0 {
		t.Error("item without stable ID must not be created")
	}
}

// TestCrashRecovery_CreateIsAtLeastOnce models a process killed after the
// destination create but before the correlation record: the next run has
// no record, so it creates again; the store must end up with exactly one
// record for the source ID.
func TestCrashRecovery_CreateIsAtLeastOnce(t *testing.T) {
	github := &fakeTracker{issues: []tracker.Issue{ghIssue("101", 1, "2024-01-01T00:00:00Z")}}
	radicle := &fakeTracker{
		nextIssue: func(n int, in tracker.NewIssue) (tracker.Issue, error) {
			return tracker.Issue{ID: fmt.Sprintf("rad-%d", n)}, nil
		},
	}

	// First run's record never reached disk: start the second run from
	// an empty state file, as the crashed process would have left it.
	crashed := newTestStore(t)
	if _, err := newTestSyncer(t, github, radicle, crashed).SyncIssuesGitHubToRadicle(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	recovered := newTestStore(t)
	if _, err := newTestSyncer(t, github, radicle, recovered).SyncIssuesGitHubToRadicle(context.Background()); err != nil {
		t.Fatalf("recovery pass failed: %v", err)
	}

	if len(radicle.created) != 2 {
		t.Errorf("expected the create to be retried (at-least-once), got %d calls", len(radicle.created))
	}
	if recovered.IssueCount() != 1 {
		t.Errorf("store must hold exactly one record for GitHub ID 101, got %d", recovered.IssueCount())
	}
}

func TestProvenanceLabel(t *testing.T) {
	github := &fakeTracker{}
	radicle := &fakeTracker{issues: []tracker.Issue{{ID: "rad111", Title: "From the other side"}}}
	st := newTestStore(t)
	syncer := newTestSyncer(t, github, radicle, st)

	if _, err := syncer.SyncIssuesRadicleToGitHub(context.Background()); err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	if len(github.created) != 1 {
		t.Fatalf("expected 1 GitHub create, got %d", len(github.created))
	}
	labels := github.created[0].Labels
	if len(labels) != 1 || labels[0] != DefaultProvenanceLabel {
		t.Errorf("expected provenance label %q, got %v", DefaultProvenanceLabel, labels)
	}
}

func TestSinceFilter(t *testing.T) {
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	github := &fakeTracker{issues: []tracker.Issue{
		ghIssue("101", 1, "2024-01-01T00:00:00Z"), // before cutoff, unmapped
		ghIssue("102", 2, "2024-07-01T00:00:00Z"), // after cutoff
	}}
	radicle := &fakeTracker{}
	st := newTestStore(t)
	syncer := New(github, radicle, st, Options{
		Since:  cutoff,
		Logger: log.New(os.Stderr, "[test] ", 0),
	})

	res, err := syncer.SyncIssuesGitHubToRadicle(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}

	if res != (PassResult{Created: 1, Skipped: 1}) {
		t.Errorf("expected {created:1, skipped:1}, got %+v", res)
	}
	if len(radicle.created) != 1 || !strings.Contains(radicle.created[0].Body, "#2") {
		t.Errorf("expected only the fresh issue to be mirrored, got %+v", radicle.created)
	}
}

func TestSyncAll_StampsLastSyncedOnce(t *testing.T) {
	github := &fakeTracker{issues: []tracker.Issue{ghIssue("101", 1, "2024-01-01T00:00:00Z")}}
	radicle := &fakeTracker{}
	st := newTestStore(t)
	syncer := newTestSyncer(t, github, radicle, st)

	if st.LastSyncedAt() != nil {
		t.Fatal("expected nil last sync before first run")
	}

	summary, err := syncer.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}

	got := st.LastSyncedAt()
	if got == nil {
		t.Fatal("expected last sync time after run")
	}
	if !got.Equal(summary.FinishedAt) {
		t.Errorf("last sync %v should match summary finish %v", got, summary.FinishedAt)
	}
	if summary.IssuesGitHubToRadicle.Created != 1 {
		t.Errorf("unexpected summary: %+v", summary.IssuesGitHubToRadicle)
	}
}

// Subset runs leave the last-sync time alone: it marks a completed
// full run, which status reports as such.
func TestSubsetRuns_DoNotStampLastSynced(t *testing.T) {
	github := &fakeTracker{
		issues: []tracker.Issue{ghIssue("101", 1, "2024-01-01T00:00:00Z")},
		patches: []tracker.Patch{{
			ID: "201", Number: 10, State: tracker.StateOpen,
		}},
	}
	radicle := &fakeTracker{}
	st := newTestStore(t)
	syncer := newTestSyncer(t, github, radicle, st)

	issues, err := syncer.SyncIssues(context.Background())
	if err != nil {
		t.Fatalf("SyncIssues failed: %v", err)
	}
	if issues.IssuesGitHubToRadicle.Created != 1 {
		t.Errorf("unexpected issue subset result: %+v", issues.IssuesGitHubToRadicle)
	}
	if st.LastSyncedAt() != nil {
		t.Error("issue-only run must not stamp last sync time")
	}

	patches, err := syncer.SyncPatches(context.Background())
	if err != nil {
		t.Fatalf("SyncPatches failed: %v", err)
	}
	if patches.PatchesGitHubToRadicle.Skipped != 1 {
		t.Errorf("unexpected patch subset result: %+v", patches.PatchesGitHubToRadicle)
	}
	if st.LastSyncedAt() != nil {
		t.Error("patch-only run must not stamp last sync time")
	}

	if _, err := syncer.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if st.LastSyncedAt() == nil {
		t.Error("full run must stamp last sync time")
	}
}

func TestSyncAll_ListFailureAbortsRun(t *testing.T) {
	listErr := errors.New("rad exploded")
	github := &fakeTracker{issues: []tracker.Issue{ghIssue("101", 1, "2024-01-01T00:00:00Z")}}
	radicle := &fakeTracker{listIssuesErr: listErr}
	st := newTestStore(t)
	syncer := newTestSyncer(t, github, radicle, st)

	_, err := syncer.SyncAll(context.Background())
	if err == nil {
		t.Fatal("expected SyncAll to surface the listing failure")
	}
	if !errors.Is(err, listErr) {
		t.Errorf("expected wrapped listing error, got %v", err)
	}
	if st.LastSyncedAt() != nil {
		t.Error("aborted run must not stamp last sync time")
	}
}
