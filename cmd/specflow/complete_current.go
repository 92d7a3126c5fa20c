package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/specflow/internal/orchestrator"
	"github.com/spf13/cobra"
)

var completeCurrentFlags struct {
	agent      string
	specID     string
	taskID     string
	skipLint   bool
	skipTests  bool
	skipCommit bool
	notes      string
}

var completeCurrentCmd = &cobra.Command{
	Use:   "complete-current",
	Short: "Lint, test, complete, commit, and hand off the agent's current task",
	Long: `Run the completion pipeline for an agent's in_progress task: lint with
one auto-fix retry, run tests, mark the task complete in workflow state,
stage and commit the touched files, and evaluate whether completing it
unblocks a dependent task.`,
	RunE: runCompleteCurrent,
}

func init() {
	f := completeCurrentCmd.Flags()
	f.StringVar(&completeCurrentFlags.agent, "agent", "", "agent identifier (required)")
	f.StringVar(&completeCurrentFlags.specID, "spec", "", "spec id, required together with --task when an agent holds more than one assignment")
	f.StringVar(&completeCurrentFlags.taskID, "task", "", "task id, required together with --spec")
	f.BoolVar(&completeCurrentFlags.skipLint, "skip-lint", false, "skip the lint gate")
	f.BoolVar(&completeCurrentFlags.skipTests, "skip-tests", false, "skip the test gate")
	f.BoolVar(&completeCurrentFlags.skipCommit, "skip-commit", false, "skip staging and committing")
	f.StringVar(&completeCurrentFlags.notes, "notes", "", "completion notes recorded on the assignment and the commit message")
	_ = completeCurrentCmd.MarkFlagRequired("agent")
}

func runCompleteCurrent(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	orc := a.orchestrator()
	res, err := orc.CompleteCurrent(context.Background(), orchestrator.CompleteCurrentInput{
		Agent:      completeCurrentFlags.agent,
		SpecID:     completeCurrentFlags.specID,
		TaskID:     completeCurrentFlags.taskID,
		SkipLint:   completeCurrentFlags.skipLint,
		SkipTests:  completeCurrentFlags.skipTests,
		SkipCommit: completeCurrentFlags.skipCommit,
		Notes:      completeCurrentFlags.notes,
	})
	if err != nil {
		return err
	}

	fmt.Println("task completed")
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	if res.Handoff.HandoffNeeded {
		fmt.Printf("  handoff: %s/%s -> %s\n", res.Handoff.NextSpecID, res.Handoff.NextTaskID, res.Handoff.NextAgent)
	} else if res.Handoff.Reason != "" {
		fmt.Printf("  handoff: %s\n", res.Handoff.Reason)
	}
	for _, entry := range res.Audit {
		fmt.Printf("  [%s] ok=%v %s\n", entry.Step, entry.Success, entry.Detail)
	}
	return nil
}
