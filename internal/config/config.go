// Package config loads and validates radsync configuration.
//
// Sources, in increasing precedence: the config file (radsync.toml in the
// working directory or ~/.config/radsync/), RADSYNC_* environment
// variables, and the GITHUB_PERSONAL_ACCESS_TOKEN fallback for the token.
// Validation failures are fatal at startup, before any pass runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultStatePath       = ".radicle_github_sync.json"
	DefaultProvenanceLabel = "from-radicle"
	DefaultWatchInterval   = 5 * time.Minute
)

// Config is the resolved radsync configuration.
type Config struct {
	// GitHubToken is the personal access token (required)
	GitHubToken string

	// GitHubRepo is the GitHub repository in "owner/name" form (required)
	GitHubRepo string

	// RadicleRID is the Radicle repository identifier; empty means
	// auto-detect from the working copy
	RadicleRID string

	// RepoDir is the working copy the rad commands run in
	RepoDir string

	// StatePath is the sync state file location
	StatePath string

	// LogPath enables a rotating log file when non-empty
	LogPath string

	// ProvenanceLabel tags issues mirrored Radicle -> GitHub
	ProvenanceLabel string

	// WatchInterval is the re-sync period for watch mode
	WatchInterval time.Duration
}

// Load reads configuration from the given file, or from the default
// search paths when file is empty. A missing default config file is not
// an error; a missing explicit one is.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("repo_dir", ".")
	v.SetDefault("state_path", DefaultStatePath)
	v.SetDefault("provenance_label", DefaultProvenanceLabel)
	v.SetDefault("watch_interval", DefaultWatchInterval.String())

	v.SetEnvPrefix("RADSYNC")
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName("radsync")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/radsync")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		GitHubToken:     v.GetString("github_token"),
		GitHubRepo:      v.GetString("github_repo"),
		RadicleRID:      v.GetString("radicle_rid"),
		RepoDir:         v.GetString("repo_dir"),
		StatePath:       v.GetString("state_path"),
		LogPath:         v.GetString("log_path"),
		ProvenanceLabel: v.GetString("provenance_label"),
		WatchInterval:   v.GetDuration("watch_interval"),
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv("GITHUB_PERSONAL_ACCESS_TOKEN")
	}
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = DefaultWatchInterval
	}

	return cfg, nil
}

// Validate checks the configuration is complete enough to start a run.
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return fmt.Errorf("GitHub token not configured (set github_token, RADSYNC_GITHUB_TOKEN, or GITHUB_PERSONAL_ACCESS_TOKEN)")
	}
	if c.GitHubRepo == "" {
		return fmt.Errorf("GitHub repository not configured (set github_repo or RADSYNC_GITHUB_REPO)")
	}
	if !strings.Contains(c.GitHubRepo, "/") {
		return fmt.Errorf("GitHub repository must be in owner/name form, got %q", c.GitHubRepo)
	}
	return nil
}
