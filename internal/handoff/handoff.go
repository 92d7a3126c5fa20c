// Package handoff implements the Handoff Engine: given a just-completed
// task, it finds dependents that may now be ready and decides whether to
// auto-route the next one.
package handoff

import "github.com/mark3labs/specflow/internal/specgraph"

// Input describes the task-completion event that triggers evaluation.
type Input struct {
	Type       string
	SpecID     string
	TaskID     string
	FromAgent  string
	Context    map[string]any
}

// Result is the handoff decision.
type Result struct {
	Success       bool
	HandoffNeeded bool
	NextSpecID    string
	NextTaskID    string
	NextAgent     string
	Reason        string
}

const (
	ReasonNoDependents       = "no_dependents"
	ReasonMultipleCandidates = "multiple_candidates"
)

// Engine evaluates handoffs against the current Spec Graph.
type Engine struct {
	Graph *specgraph.Graph
}

// New constructs an Engine over graph.
func New(graph *specgraph.Graph) *Engine {
	return &Engine{Graph: graph}
}

// Evaluate enumerates every task across the graph that names (in.SpecID,
// in.TaskID) in its depends_on list, and checks whether completing that
// dependency leaves it with every dependency satisfied. Exactly one newly
// ready dependent is auto-routed; zero or several are not.
func (e *Engine) Evaluate(in Input) Result {
	completedRef := in.TaskID
	var ready []readyCandidate

	for _, spec := range e.Graph.All() {
		for i := range spec.Tasks {
			t := &spec.Tasks[i]
			if !dependsOn(t.DependsOn, spec.ID, in.SpecID, completedRef) {
				continue
			}
			if e.Graph.TaskDependenciesSatisfied(spec.ID, t) {
				ready = append(ready, readyCandidate{specID: spec.ID, taskID: t.ID, agent: t.Agent})
			}
		}
	}

	switch len(ready) {
	case 0:
		return Result{Success: true, HandoffNeeded: false, Reason: ReasonNoDependents}
	case 1:
		return Result{
			Success: true, HandoffNeeded: true,
			NextSpecID: ready[0].specID, NextTaskID: ready[0].taskID, NextAgent: ready[0].agent,
		}
	default:
		return Result{Success: true, HandoffNeeded: false, Reason: ReasonMultipleCandidates}
	}
}

type readyCandidate struct {
	specID string
	taskID string
	agent  string
}

// dependsOn reports whether deps (belonging to a task owned by ownerSpecID)
// contains a reference to (completedSpecID, completedTaskID). A bare task
// id only matches when the dependent's own spec is the completed task's
// spec; a "SPEC-nnn:TASK-nnn" qualified reference matches across specs.
func dependsOn(deps []string, ownerSpecID, completedSpecID, completedTaskID string) bool {
	qualified := completedSpecID + ":" + completedTaskID
	for _, d := range deps {
		if d == qualified {
			return true
		}
		if d == completedTaskID && ownerSpecID == completedSpecID {
			return true
		}
	}
	return false
}
