package main

import (
	"fmt"
	"sort"

	"github.com/mark3labs/specflow/internal/specmodel"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize spec counts by status and current agent assignments",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	fmt.Println("specs by status:")
	for _, status := range specmodel.ValidStatuses {
		specs := a.graph.ByStatus(status)
		if len(specs) == 0 {
			continue
		}
		fmt.Printf("  %-10s %d\n", status, len(specs))
	}

	assignments := a.mgr.GetCurrentAssignments()
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].SpecID < assignments[j].SpecID })
	fmt.Println("current assignments:")
	if len(assignments) == 0 {
		fmt.Println("  none")
	}
	for _, ag := range assignments {
		fmt.Printf("  %s/%s -> %s (since %s)\n", ag.SpecID, ag.TaskID, ag.AssignedAgent, ag.StartedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}
