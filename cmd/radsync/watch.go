package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fovi-llc/radsync/internal/store"
	"github.com/fovi-llc/radsync/internal/sync"
	"github.com/fovi-llc/radsync/internal/tracker/github"
	"github.com/fovi-llc/radsync/internal/tracker/radicle"
	"github.com/fovi-llc/radsync/internal/ui"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync repeatedly on an interval until interrupted",
	Long: `Run a full sync immediately, then again every interval until
SIGINT or SIGTERM. A failed run is logged and the loop continues; only
configuration problems stop the watcher.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		interval := cfg.WatchInterval
		if watchInterval > 0 {
			interval = watchInterval
		}

		logger := newLogger(cfg, "[watch] ")
		st := store.Open(cfg.StatePath, logger)
		gh := github.New(cfg.GitHubToken, cfg.GitHubRepo)
		rad, err := radicle.New(cfg.RepoDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		syncer := sync.New(gh, rad, st, sync.Options{
			Logger:          logger,
			ProvenanceLabel: cfg.ProvenanceLabel,
		})

		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		rid := resolveRID(ctx, cfg.RadicleRID, rad.RID, logger)
		if err := st.SetRepositories(cfg.GitHubRepo, rid); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving state: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Watching %s, syncing every %v (Ctrl-C to stop)\n",
			ui.RenderAccent("👁"), cfg.GitHubRepo, interval)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			summary, err := syncer.SyncAll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				logger.Printf("sync run failed: %v", err)
				fmt.Printf("%s Sync failed: %v\n", ui.RenderWarn("⚠"), err)
			} else {
				created := summary.IssuesGitHubToRadicle.Created +
					summary.IssuesRadicleToGitHub.Created
				logger.Printf("sync run complete: %d issue(s) created", created)
				fmt.Printf("%s Synced at %s (%d issue(s) created)\n",
					ui.RenderPass("✓"),
					time.Now().Format(time.Kitchen), created)
			}

			select {
			case <-ctx.Done():
				fmt.Printf("\n%s Stopping watcher\n", ui.RenderDim("○"))
				return
			case <-ticker.C:
			}
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0,
		"override the configured sync interval (e.g. 30s, 10m)")

	rootCmd.AddCommand(watchCmd)
}
