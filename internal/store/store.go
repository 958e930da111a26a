// Package store persists the cross-tracker identity mappings that make
// sync runs idempotent.
//
// The store owns a single JSON state file holding one correlation record
// per mirrored issue and per mirrored patch, plus the repository
// identifiers and the time of the last full run. Every record operation
// saves synchronously: a process killed mid-run leaves the file
// consistent with whatever was recorded before the crash, and the next
// run skips exactly those items.
//
// The store assumes a single writer. Running two sync processes against
// the same state file requires external mutual exclusion.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// Mapping correlates one object across the two trackers' ID spaces.
// The same shape serves issues and patches.
type Mapping struct {
	// GitHubID is the stable GitHub identifier (immutable once assigned)
	GitHubID string `json:"github_id"`

	// GitHubNumber is the human-facing GitHub number, display only
	GitHubNumber int `json:"github_number"`

	// RadicleID is the stable Radicle object identifier
	RadicleID string `json:"radicle_id"`

	// Title is the last-known title, kept for diagnostics only
	Title string `json:"title"`

	// LastSyncedAt is when this record was last touched by a pass
	LastSyncedAt time.Time `json:"last_synced_at"`

	// GitHubUpdatedAt is GitHub's updated_at as seen at sync time
	GitHubUpdatedAt time.Time `json:"github_updated_at"`

	// RadicleUpdatedAt is Radicle's last modification as seen at sync time
	RadicleUpdatedAt time.Time `json:"radicle_updated_at"`
}

// Validate checks the mapping carries both stable IDs.
func (m *Mapping) Validate() error {
	if m.GitHubID == "" {
		return fmt.Errorf("github_id is required")
	}
	if m.RadicleID == "" {
		return fmt.Errorf("radicle_id is required")
	}
	return nil
}

// Key derives the deterministic composite key for this mapping, so
// re-recording the same pair overwrites rather than duplicates.
func (m *Mapping) Key() string {
	return fmt.Sprintf("gh%s_rad%s", m.GitHubID, m.RadicleID)
}

// State is the full persisted sync state.
type State struct {
	Issues       map[string]Mapping `json:"issues"`
	Patches      map[string]Mapping `json:"patches"`
	LastSyncedAt *time.Time         `json:"last_synced_at"`
	GitHubRepo   string             `json:"github_repo"`
	RadicleRID   string             `json:"radicle_rid"`
}

// emptyState returns a fresh state with initialized maps.
func emptyState() State {
	return State{
		Issues:  make(map[string]Mapping),
		Patches: make(map[string]Mapping),
	}
}

// Store owns the state file for the lifetime of the process.
// All mutation goes through Record*/Set* so the invariants hold.
type Store struct {
	path   string
	logger *log.Logger
	state  State
}

// Open loads the store from path.
//
// A missing or unreadable file is not an error: it means no prior sync,
// and the store starts empty. Corruption is logged and likewise treated
// as "no prior sync" rather than failing the caller.
func Open(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	s := &Store{
		path:   path,
		logger: logger,
		state:  emptyState(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Printf("WARNING: cannot read state file %s: %v (starting empty)", path, err)
		}
		return s
	}

	var loaded State
	if err := json.Unmarshal(data, &loaded); err != nil {
		logger.Printf("WARNING: corrupt state file %s: %v (starting empty)", path, err)
		return s
	}

	if loaded.Issues == nil {
		loaded.Issues = make(map[string]Mapping)
	}
	if loaded.Patches == nil {
		loaded.Patches = make(map[string]Mapping)
	}
	s.state = loaded

	return s
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// LastSyncedAt returns the time of the last full run, nil before the
// first one.
func (s *Store) LastSyncedAt() *time.Time {
	return s.state.LastSyncedAt
}

// GitHubRepo returns the recorded GitHub repository ("owner/name").
func (s *Store) GitHubRepo() string {
	return s.state.GitHubRepo
}

// RadicleRID returns the recorded Radicle repository identifier.
func (s *Store) RadicleRID() string {
	return s.state.RadicleRID
}

// IssueCount returns the number of issue correlation records.
func (s *Store) IssueCount() int {
	return len(s.state.Issues)
}

// PatchCount returns the number of patch correlation records.
func (s *Store) PatchCount() int {
	return len(s.state.Patches)
}

// FindIssueByGitHubID returns the issue mapping for a GitHub ID.
func (s *Store) FindIssueByGitHubID(id string) (Mapping, bool) {
	return findByGitHubID(s.state.Issues, id)
}

// FindIssueByRadicleID returns the issue mapping for a Radicle ID.
func (s *Store) FindIssueByRadicleID(id string) (Mapping, bool) {
	return findByRadicleID(s.state.Issues, id)
}

// FindPatchByGitHubID returns the patch mapping for a GitHub ID.
func (s *Store) FindPatchByGitHubID(id string) (Mapping, bool) {
	return findByGitHubID(s.state.Patches, id)
}

// FindPatchByRadicleID returns the patch mapping for a Radicle ID.
func (s *Store) FindPatchByRadicleID(id string) (Mapping, bool) {
	return findByRadicleID(s.state.Patches, id)
}

func findByGitHubID(m map[string]Mapping, id string) (Mapping, bool) {
	if id == "" {
		return Mapping{}, false
	}
	for _, rec := range m {
		if rec.GitHubID == id {
			return rec, true
		}
	}
	return Mapping{}, false
}

func findByRadicleID(m map[string]Mapping, id string) (Mapping, bool) {
	if id == "" {
		return Mapping{}, false
	}
	for _, rec := range m {
		if rec.RadicleID == id {
			return rec, true
		}
	}
	return Mapping{}, false
}

// RecordIssue inserts or replaces an issue mapping and saves immediately.
func (s *Store) RecordIssue(m Mapping) error {
	if err := record(s.state.Issues, m); err != nil {
		return err
	}
	return s.Save()
}

// RecordPatch inserts or replaces a patch mapping and saves immediately.
func (s *Store) RecordPatch(m Mapping) error {
	if err := record(s.state.Patches, m); err != nil {
		return err
	}
	return s.Save()
}

// record upserts by composite key. Any stale record sharing either
// side's ID is removed first, so no two records ever point at the same
// GitHub ID or the same Radicle ID.
func record(records map[string]Mapping, m Mapping) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid mapping: %w", err)
	}

	for key, rec := range records {
		if rec.GitHubID == m.GitHubID || rec.RadicleID == m.RadicleID {
			delete(records, key)
		}
	}

	records[m.Key()] = m
	return nil
}

// SetRepositories records which repositories this state file tracks and
// saves immediately.
func (s *Store) SetRepositories(githubRepo, radicleRID string) error {
	s.state.GitHubRepo = githubRepo
	if radicleRID != "" {
		s.state.RadicleRID = radicleRID
	}
	return s.Save()
}

// SetLastSyncedAt records the completion time of a full run and saves
// immediately.
func (s *Store) SetLastSyncedAt(t time.Time) error {
	s.state.LastSyncedAt = &t
	return s.Save()
}

// Save atomically persists the in-memory state: the new content is
// written to a temp file and renamed over the old one, so a crash can
// never truncate the state.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}
