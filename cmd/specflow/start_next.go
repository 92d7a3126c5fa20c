package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/specflow/internal/orchestrator"
	"github.com/mark3labs/specflow/internal/router"
	"github.com/mark3labs/specflow/internal/specerrors"
	"github.com/mark3labs/specflow/internal/specmodel"
	"github.com/spf13/cobra"
)

var startNextFlags struct {
	agent           string
	priority        string
	tag             string
	specID          string
	dryRun          bool
	confirmCritical bool
}

var startNextCmd = &cobra.Command{
	Use:   "start-next",
	Short: "Select, validate, and assign the next eligible task to an agent",
	Long: `Resolve the highest-scoring eligible task for an agent, validate the
assignment against constraint and workload rules, and record it in durable
workflow state.`,
	RunE: runStartNext,
}

func init() {
	f := startNextCmd.Flags()
	f.StringVar(&startNextFlags.agent, "agent", "", "agent identifier (required)")
	f.StringVar(&startNextFlags.priority, "priority", "", "restrict to a priority (P0-P3)")
	f.StringVar(&startNextFlags.tag, "tag", "", "restrict to specs carrying this tag")
	f.StringVar(&startNextFlags.specID, "spec", "", "restrict to a single spec id")
	f.BoolVar(&startNextFlags.dryRun, "dry-run", false, "report what would be assigned without assigning it")
	f.BoolVar(&startNextFlags.confirmCritical, "confirm-critical", false, "acknowledge assignment of a P0 task")
	_ = startNextCmd.MarkFlagRequired("agent")
}

func runStartNext(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	orc := a.orchestrator()
	res, err := orc.StartNext(context.Background(), orchestrator.StartNextInput{
		Agent:           startNextFlags.agent,
		Filters:         router.Filters{Priority: specmodel.Priority(startNextFlags.priority), Tag: startNextFlags.tag, SpecID: startNextFlags.specID},
		DryRun:          startNextFlags.dryRun,
		ConfirmCritical: startNextFlags.confirmCritical,
	})
	if err != nil {
		return err
	}

	switch {
	case res.DryRun && res.WouldAssign != nil:
		fmt.Printf("would assign %s/%s to %s (score %.3f)\n",
			res.WouldAssign.SpecID, res.WouldAssign.Task.ID, startNextFlags.agent, res.WouldAssign.Score.Final())
	case res.Assigned && res.Assignment != nil:
		fmt.Printf("assigned %s/%s to %s\n", res.Assignment.SpecID, res.Assignment.TaskID, res.Assignment.AssignedAgent)
	case !res.Success:
		fmt.Println("assignment rejected:")
		for _, v := range res.Violations {
			fmt.Printf("  - %s: %s\n", v.Kind, v.Message)
		}
		return specerrors.New(specerrors.KindValidationViolation, "start-next could not validate the recommended assignment", "resolve the listed violations and retry")
	default:
		fmt.Println("no eligible task found")
		for _, s := range res.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}

	for _, entry := range res.Audit {
		fmt.Printf("  [%s] ok=%v %s\n", entry.Step, entry.Success, entry.Detail)
	}
	return nil
}
