package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/olebedev/when"
	"github.com/spf13/cobra"

	"github.com/fovi-llc/radsync/internal/store"
	"github.com/fovi-llc/radsync/internal/sync"
	"github.com/fovi-llc/radsync/internal/tracker/github"
	"github.com/fovi-llc/radsync/internal/tracker/radicle"
	"github.com/fovi-llc/radsync/internal/ui"
)

var (
	syncDryRun      bool
	syncIssuesOnly  bool
	syncPatchesOnly bool
	syncSince       string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full GitHub ↔ Radicle reconciliation",
	Long: `Run the four reconciliation passes in order:

  1. Issues GitHub → Radicle
  2. Issues Radicle → GitHub
  3. Patches GitHub → Radicle
  4. Patches Radicle → GitHub

Every run is idempotent: items that already have a correlation record
in the state file are skipped, so re-running after a partial failure
only retries what never completed.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		logger := newLogger(cfg, "[sync] ")
		st := store.Open(cfg.StatePath, logger)
		gh := github.New(cfg.GitHubToken, cfg.GitHubRepo)
		rad, err := radicle.New(cfg.RepoDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if syncDryRun {
			runDryRun(ctx, gh, rad, st)
			return
		}

		opts := sync.Options{
			Logger:          logger,
			ProvenanceLabel: cfg.ProvenanceLabel,
		}
		if syncSince != "" {
			result, err := when.EN.Parse(syncSince, time.Now())
			if err != nil || result == nil {
				fmt.Fprintf(os.Stderr, "Error: cannot parse --since %q\n", syncSince)
				os.Exit(1)
			}
			opts.Since = result.Time
		}

		rid := resolveRID(ctx, cfg.RadicleRID, rad.RID, logger)
		if err := st.SetRepositories(cfg.GitHubRepo, rid); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving state: %v\n", err)
			os.Exit(1)
		}

		syncer := sync.New(gh, rad, st, opts)

		fmt.Printf("%s Syncing %s with the Radicle repository in %s...\n",
			ui.RenderAccent("🔄"), cfg.GitHubRepo, cfg.RepoDir)
		start := time.Now()

		summary, err := runPasses(ctx, syncer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"),
			time.Since(start).Round(time.Millisecond))
		printSummary(summary)
	},
}

// runPasses runs either the full fixed-order run or the requested
// subset. Only a full run stamps the last-sync time.
func runPasses(ctx context.Context, syncer *sync.Syncer) (sync.Summary, error) {
	switch {
	case syncIssuesOnly:
		return syncer.SyncIssues(ctx)
	case syncPatchesOnly:
		return syncer.SyncPatches(ctx)
	default:
		return syncer.SyncAll(ctx)
	}
}

// resolveRID returns the configured Radicle RID, detecting it from the
// working copy when none is configured. The RID is recorded for
// diagnostics only, so detection failure is logged, not fatal.
func resolveRID(ctx context.Context, configured string, detect func(context.Context) (string, error), logger *log.Logger) string {
	if configured != "" {
		return configured
	}

	rid, err := detect(ctx)
	if err != nil {
		logger.Printf("WARNING: cannot detect Radicle RID: %v", err)
		return ""
	}
	return rid
}

// runDryRun lists both sides and the existing mappings without changing
// anything.
func runDryRun(ctx context.Context, gh *github.Client, rad *radicle.Radicle, st *store.Store) {
	fmt.Printf("%s DRY RUN: no changes will be made\n\n", ui.RenderWarn("🧪"))

	ghIssues, err := gh.ListIssues(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing GitHub issues: %v\n", err)
		os.Exit(1)
	}
	ghPRs, err := gh.ListPatches(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing GitHub pull requests: %v\n", err)
		os.Exit(1)
	}
	radIssues, err := rad.ListIssues(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing Radicle issues: %v\n", err)
		os.Exit(1)
	}
	radPatches, err := rad.ListPatches(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing Radicle patches: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s Current state:\n", ui.RenderAccent("📊"))
	fmt.Printf("  GitHub issues:    %d\n", len(ghIssues))
	fmt.Printf("  GitHub PRs:       %d\n", len(ghPRs))
	fmt.Printf("  Radicle issues:   %d\n", len(radIssues))
	fmt.Printf("  Radicle patches:  %d\n", len(radPatches))
	fmt.Printf("  Existing mappings: %d issues, %d patches\n",
		st.IssueCount(), st.PatchCount())
}

// printSummary renders one counter line per pass.
func printSummary(summary sync.Summary) {
	fmt.Printf("\n%s Sync results:\n", ui.RenderAccent("📊"))

	passes := []struct {
		name string
		res  sync.PassResult
	}{
		{"Issues  GitHub → Radicle", summary.IssuesGitHubToRadicle},
		{"Issues  Radicle → GitHub", summary.IssuesRadicleToGitHub},
		{"Patches GitHub → Radicle", summary.PatchesGitHubToRadicle},
		{"Patches Radicle → GitHub", summary.PatchesRadicleToGitHub},
	}

	for _, p := range passes {
		line := fmt.Sprintf("  %s: created %d, needs update %d, skipped %d, failed %d",
			p.name, p.res.Created, p.res.NeedsUpdate, p.res.Skipped, p.res.Failed)
		switch {
		case p.res.Failed > 0:
			fmt.Println(ui.RenderWarn(line))
		case p.res.Created > 0:
			fmt.Println(ui.RenderPass(line))
		default:
			fmt.Println(line)
		}
	}

	needsUpdate := summary.IssuesGitHubToRadicle.NeedsUpdate +
		summary.IssuesRadicleToGitHub.NeedsUpdate +
		summary.PatchesGitHubToRadicle.NeedsUpdate +
		summary.PatchesRadicleToGitHub.NeedsUpdate
	if needsUpdate > 0 {
		fmt.Printf("\n%s %d item(s) changed since their last sync; updates are detected but not applied.\n",
			ui.RenderWarn("⚠"), needsUpdate)
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false,
		"show what would be synced without making changes")
	syncCmd.Flags().BoolVar(&syncIssuesOnly, "issues-only", false,
		"sync only issues, not patches/PRs")
	syncCmd.Flags().BoolVar(&syncPatchesOnly, "patches-only", false,
		"sync only patches/PRs, not issues")
	syncCmd.Flags().StringVar(&syncSince, "since", "",
		`only mirror items updated after this time (e.g. "2 days ago")`)
	syncCmd.MarkFlagsMutuallyExclusive("issues-only", "patches-only")

	rootCmd.AddCommand(syncCmd)
}
