// Package assignvalidator implements the Assignment Validator: given a
// proposed (agent, specId, taskId), it proves the assignment is committable
// or returns actionable violations. It never mutates state.
package assignvalidator

import (
	"fmt"

	"github.com/mark3labs/specflow/internal/constraint"
	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/specmodel"
)

// Assignments is the subset of Workflow State Manager queries needed to
// check the "not already in_progress" and concurrent-limit rules.
type Assignments interface {
	CountInProgress(agent string) int
	AssignedAgent(specID, taskID string) (agent string, inProgress bool)
}

// Violation is one actionable reason the assignment cannot proceed.
type Violation struct {
	Kind    string
	Message string
}

// Options are the caller-supplied flags affecting business-rule checks.
type Options struct {
	ConfirmCritical bool
}

// Result is the Assignment Validator's verdict.
type Result struct {
	IsValid           bool
	CanProceed        bool
	Confidence        float64
	Violations        []Violation
	Warnings          []string
	ValidationDetails map[string]string
}

// Validator is the Assignment Validator.
type Validator struct {
	Graph                 *specgraph.Graph
	Engine                *constraint.Engine
	Assignments           Assignments
	MaxConcurrentPerAgent int
}

// New constructs a Validator.
func New(graph *specgraph.Graph, engine *constraint.Engine, assignments Assignments, maxConcurrentPerAgent int) *Validator {
	return &Validator{Graph: graph, Engine: engine, Assignments: assignments, MaxConcurrentPerAgent: maxConcurrentPerAgent}
}

// Validate is a pure function of (Spec Graph, Workflow State, input): calling
// it repeatedly with identical inputs yields identical results.
func (v *Validator) Validate(agent, specID, taskID string, opts Options) Result {
	res := Result{ValidationDetails: map[string]string{}}

	spec, ok := v.Graph.Spec(specID)
	if !ok {
		res.Violations = append(res.Violations, Violation{Kind: "not-found", Message: "spec " + specID + " does not exist"})
		return res
	}
	task, ok := spec.TaskByID(taskID)
	if !ok {
		res.Violations = append(res.Violations, Violation{Kind: "not-found", Message: "task " + taskID + " does not exist in " + specID})
		return res
	}

	if task.Status != specmodel.TaskReady {
		res.Violations = append(res.Violations, Violation{Kind: "not-ready", Message: taskID + " has status " + string(task.Status) + ", not ready"})
	}

	if assignedAgent, inProgress := v.Assignments.AssignedAgent(specID, taskID); inProgress {
		res.Violations = append(res.Violations, Violation{Kind: "already-assigned", Message: taskID + " is already in_progress, assigned to " + assignedAgent})
	}

	score := v.Engine.Score(agent, specID, task, constraint.WorkloadCounts{InProgress: v.Assignments.CountInProgress(agent)})
	for _, viol := range score.Violations {
		res.Violations = append(res.Violations, Violation{Kind: viol.Kind, Message: viol.Message})
	}

	if spec.Priority == specmodel.PriorityP0 && !opts.ConfirmCritical {
		res.Violations = append(res.Violations, Violation{Kind: "confirm-critical", Message: "P0 (Critical) tasks require explicit confirmation"})
	}

	if v.MaxConcurrentPerAgent > 0 && v.Assignments.CountInProgress(agent) >= v.MaxConcurrentPerAgent {
		res.Violations = append(res.Violations, Violation{Kind: "concurrent-limit", Message: agent + " is already at the concurrent task limit"})
	}

	res.ValidationDetails["score"] = fmt.Sprintf("%.3f", score.Final())
	res.IsValid = len(res.Violations) == 0
	res.CanProceed = res.IsValid
	if res.IsValid {
		res.Confidence = score.Final()
	}
	return res
}
