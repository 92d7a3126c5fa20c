package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "specflow",
	Short: "Local workflow-automation engine for a file-backed specification repository",
	Long: `specflow coordinates multiple agents working against a shared directory of
markdown specs: it loads and indexes the spec graph, validates its integrity,
routes and assigns the next eligible task to an agent, reconciles workflow
state against externally observed spec edits, and evaluates handoffs between
dependent tasks.`,
}

func init() {
	rootCmd.AddCommand(startNextCmd)
	rootCmd.AddCommand(completeCurrentCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
