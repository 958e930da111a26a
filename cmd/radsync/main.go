// radsync mirrors issues and pull requests between a GitHub repository
// and its Radicle counterpart.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fovi-llc/radsync/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "radsync",
	Short: "Bidirectional GitHub ↔ Radicle synchronization",
	Long: `radsync mirrors collaboration objects between GitHub and Radicle.

Issues created on either side are recreated on the other with an
attribution header; pull requests and patches are tracked in the same
way (content transfer pending). A local JSON state file correlates the
two ID spaces so repeated runs never create duplicates.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default radsync.toml in . or ~/.config/radsync)")
}

// loadConfig loads and returns the configuration, exiting on failure.
// Configuration problems are fatal before any pass runs.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger builds the run logger: stderr, plus a rotating log file when
// one is configured.
func newLogger(cfg *config.Config, prefix string) *log.Logger {
	var w io.Writer = os.Stderr
	if cfg.LogPath != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return log.New(w, prefix, log.LstdFlags)
}
