// Package config loads specflow's configuration from a closed set of
// recognized options, with precedence env > project file > global file >
// defaults, implemented with github.com/spf13/viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ExternalTool is a configured command + args for lint, test, or vcs.
type ExternalTool struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// Config is the closed set of recognized configuration options.
// Implementers must treat this as a typed, fixed set — not an open map.
type Config struct {
	SpecsRoot      string   `mapstructure:"specsRoot"`
	StatusFolders  []string `mapstructure:"statusFolders"`
	SupportedTypes []string `mapstructure:"supportedTypes"`
	Priorities     []string `mapstructure:"priorities"`
	ArchivedDir    string   `mapstructure:"archivedDir"`

	Watch struct {
		DebounceMs int  `mapstructure:"debounceMs"`
		Enabled    bool `mapstructure:"enabled"`
	} `mapstructure:"watch"`

	Locks struct {
		TimeoutMs int `mapstructure:"timeoutMs"`
	} `mapstructure:"locks"`

	ExternalTool struct {
		Lint ExternalTool `mapstructure:"lint"`
		Test ExternalTool `mapstructure:"test"`
		VCS  ExternalTool `mapstructure:"vcs"`
	} `mapstructure:"externalTool"`

	Constraints struct {
		MaxConcurrentPerAgent  int                 `mapstructure:"maxConcurrentPerAgent"`
		SoftConcurrentPerAgent int                 `mapstructure:"softConcurrentPerAgent"`
		Adjacency              map[string][]string `mapstructure:"adjacency"`
	} `mapstructure:"constraints"`

	Sync struct {
		HealthIntervalMs int `mapstructure:"healthIntervalMs"`
	} `mapstructure:"sync"`

	LogLevel string `mapstructure:"logLevel"`
	LogFile  string `mapstructure:"logFile"`
}

// WatchDebounce returns Watch.DebounceMs as a time.Duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// LockTimeout returns Locks.TimeoutMs as a time.Duration.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Locks.TimeoutMs) * time.Millisecond
}

// HealthInterval returns Sync.HealthIntervalMs as a time.Duration.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Sync.HealthIntervalMs) * time.Millisecond
}

// GlobalPath returns the path to the user-global config file.
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "specflow", "specflow.yml")
}

// ProjectPath returns the path to the project-local config file.
func ProjectPath() string {
	return "specflow.yml"
}

func defaults(v *viper.Viper) {
	v.SetDefault("specsRoot", "docs/specs")
	v.SetDefault("statusFolders", []string{"backlog", "active", "done"})
	v.SetDefault("supportedTypes", []string{"feature", "bug", "research-spike", "maintenance", "release"})
	v.SetDefault("priorities", []string{"P0", "P1", "P2", "P3"})
	v.SetDefault("archivedDir", "archived")
	v.SetDefault("watch.debounceMs", 1000)
	v.SetDefault("watch.enabled", true)
	v.SetDefault("locks.timeoutMs", 10000)
	v.SetDefault("constraints.maxConcurrentPerAgent", 3)
	v.SetDefault("constraints.softConcurrentPerAgent", 2)
	v.SetDefault("sync.healthIntervalMs", 30000)
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFile", "")
}

// Load resolves configuration with precedence: env vars (SPECFLOW_*) >
// project file (./specflow.yml) > global file (~/.config/specflow/specflow.yml)
// > defaults.
func Load() (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("SPECFLOW")
	v.AutomaticEnv()

	if global := GlobalPath(); fileExists(global) {
		v.SetConfigFile(global)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config %s: %w", global, err)
		}
	}
	if project := ProjectPath(); fileExists(project) {
		v.SetConfigFile(project)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", project, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
