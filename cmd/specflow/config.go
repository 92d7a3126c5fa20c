package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/specflow/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the resolved configuration",
	Long: `Display the current resolved configuration showing values from all
sources.

Configuration precedence (highest to lowest):
  1. Environment variables (SPECFLOW_*)
  2. Project config (./specflow.yml)
  3. Global config (~/.config/specflow/specflow.yml)
  4. Defaults`,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	globalPath := config.GlobalPath()
	projectPath := config.ProjectPath()
	absProjectPath, err := filepath.Abs(projectPath)
	if err != nil {
		absProjectPath = projectPath
	}

	fmt.Println("sources:")
	fmt.Printf("  global:  %s (%s)\n", globalPath, presence(fileExists(globalPath)))
	fmt.Printf("  project: %s (%s)\n", absProjectPath, presence(fileExists(projectPath)))

	fmt.Println("resolved:")
	fmt.Printf("  specsRoot               %s\n", cfg.SpecsRoot)
	fmt.Printf("  statusFolders           %v\n", cfg.StatusFolders)
	fmt.Printf("  supportedTypes          %v\n", cfg.SupportedTypes)
	fmt.Printf("  priorities              %v\n", cfg.Priorities)
	fmt.Printf("  archivedDir             %s\n", cfg.ArchivedDir)
	fmt.Printf("  watch.enabled           %v\n", cfg.Watch.Enabled)
	fmt.Printf("  watch.debounceMs        %d\n", cfg.Watch.DebounceMs)
	fmt.Printf("  locks.timeoutMs         %d\n", cfg.Locks.TimeoutMs)
	fmt.Printf("  externalTool.lint       %s %v\n", cfg.ExternalTool.Lint.Command, cfg.ExternalTool.Lint.Args)
	fmt.Printf("  externalTool.test       %s %v\n", cfg.ExternalTool.Test.Command, cfg.ExternalTool.Test.Args)
	fmt.Printf("  constraints.max         %d\n", cfg.Constraints.MaxConcurrentPerAgent)
	fmt.Printf("  constraints.soft        %d\n", cfg.Constraints.SoftConcurrentPerAgent)
	fmt.Printf("  sync.healthIntervalMs   %d\n", cfg.Sync.HealthIntervalMs)
	fmt.Printf("  logLevel                %s\n", cfg.LogLevel)
	return nil
}

func presence(exists bool) string {
	if exists {
		return "present"
	}
	return "not found"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
