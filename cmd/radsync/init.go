package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/fovi-llc/radsync/internal/config"
	"github.com/fovi-llc/radsync/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create a radsync config file",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			repo    string
			token   string
			rid     string
			repoDir = "."
		)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("GitHub repository").
					Description("owner/name form, e.g. fovi-llc/radicle-mcp").
					Value(&repo).
					Validate(func(s string) error {
						if !strings.Contains(s, "/") {
							return fmt.Errorf("must be owner/name")
						}
						return nil
					}),
				huh.NewInput().
					Title("GitHub personal access token").
					Description("Leave empty to use GITHUB_PERSONAL_ACCESS_TOKEN at run time.").
					EchoMode(huh.EchoModePassword).
					Value(&token),
				huh.NewInput().
					Title("Radicle RID").
					Description("Leave empty to auto-detect from the working copy.").
					Value(&rid),
				huh.NewInput().
					Title("Repository directory").
					Description("Working copy the rad commands run in.").
					Value(&repoDir),
			),
		)

		if err := form.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		path := cfgFile
		if path == "" {
			path = "radsync.toml"
		}

		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "Error: %s already exists, refusing to overwrite\n", path)
			os.Exit(1)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "github_repo = %q\n", repo)
		if token != "" {
			fmt.Fprintf(&b, "github_token = %q\n", token)
		}
		if rid != "" {
			fmt.Fprintf(&b, "radicle_rid = %q\n", rid)
		}
		fmt.Fprintf(&b, "repo_dir = %q\n", repoDir)
		fmt.Fprintf(&b, "state_path = %q\n", config.DefaultStatePath)

		// The file may hold the token, so keep it owner-readable only.
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}

		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		fmt.Println(ui.RenderDim("  Run 'radsync sync --dry-run' to check connectivity."))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
