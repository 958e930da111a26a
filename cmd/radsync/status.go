package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fovi-llc/radsync/internal/store"
	"github.com/fovi-llc/radsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state file status",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		info, err := os.Stat(cfg.StatePath)
		if os.IsNotExist(err) {
			fmt.Printf("%s No sync state at %s\n", ui.RenderWarn("○"), cfg.StatePath)
			fmt.Println(ui.RenderDim("  Run 'radsync sync' to perform the first synchronization."))
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		st := store.Open(cfg.StatePath, log.New(os.Stderr, "[status] ", log.LstdFlags))

		fmt.Printf("%s Sync state: %s\n", ui.RenderAccent("📁"), cfg.StatePath)
		fmt.Printf("  Size:            %d bytes\n", info.Size())
		fmt.Printf("  Issue mappings:  %d\n", st.IssueCount())
		fmt.Printf("  Patch mappings:  %d\n", st.PatchCount())

		if repo := st.GitHubRepo(); repo != "" {
			fmt.Printf("  GitHub repo:     %s\n", repo)
		}
		if rid := st.RadicleRID(); rid != "" {
			fmt.Printf("  Radicle RID:     %s\n", rid)
		}

		if last := st.LastSyncedAt(); last != nil {
			fmt.Printf("  Last sync:       %s (%s ago)\n",
				last.Local().Format(time.RFC3339),
				time.Since(*last).Round(time.Second))
		} else {
			fmt.Printf("  Last sync:       %s\n", ui.RenderDim("never completed"))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
