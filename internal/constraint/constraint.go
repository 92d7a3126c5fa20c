// Package constraint is the pure scoring component: given a candidate
// (agent, task), it computes the skill, workload, priority, and dependency
// terms that the Task Router multiplies together.
package constraint

import (
	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/specmodel"
)

// Adjacency maps an agent capability tag to the other tags it receives
// partial credit for. Unset or empty means exact-match only.
type Adjacency map[string][]string

// partialCredit is the skill multiplier granted for an adjacency match that
// isn't an exact capability match.
const partialCredit = 0.5

// Violation explains why a score term came out to zero.
type Violation struct {
	Kind    string
	Message string
}

// Score is the breakdown the Constraint Engine produces for one (agent,
// spec, task) candidate.
type Score struct {
	Skill      float64
	Workload   float64
	Priority   float64
	Dependency float64
	Violations []Violation
}

// Final multiplies the four terms together.
func (s Score) Final() float64 {
	return s.Priority * s.Skill * s.Workload * s.Dependency
}

// WorkloadCounts is the caller-supplied count of the agent's current
// in_progress assignments, used for the workload term.
type WorkloadCounts struct {
	InProgress int
}

// Engine computes scores given the current Spec Graph and the
// WorkloadCounts the caller passes in (typically taken from the Workflow
// State Manager's current assignments).
type Engine struct {
	Graph                  *specgraph.Graph
	Adjacency              Adjacency
	SoftConcurrentPerAgent int
	MaxConcurrentPerAgent  int
}

// New constructs an Engine with the given workload limits.
func New(graph *specgraph.Graph, adjacency Adjacency, soft, hard int) *Engine {
	return &Engine{Graph: graph, Adjacency: adjacency, SoftConcurrentPerAgent: soft, MaxConcurrentPerAgent: hard}
}

// Score computes the full breakdown for assigning task t (owned by spec
// specID) to agent, given the agent's current workload.
func (e *Engine) Score(agent, specID string, t *specmodel.Task, workload WorkloadCounts) Score {
	s := Score{
		Priority: 1.0,
		Skill:    e.skillMultiplier(agent, t.Agent),
		Workload: e.workloadMultiplier(workload),
	}
	if spec, ok := e.Graph.Spec(specID); ok {
		s.Priority = spec.Priority.Weight()
	}
	if s.Skill == 0 {
		s.Violations = append(s.Violations, Violation{Kind: "skill", Message: "agent " + agent + " lacks capability " + t.Agent})
	}
	if s.Workload == 0 {
		s.Violations = append(s.Violations, Violation{Kind: "workload", Message: "agent " + agent + " is at or above the concurrent task limit"})
	}
	if e.Graph.TaskDependenciesSatisfied(specID, t) {
		s.Dependency = 1.0
	} else {
		s.Dependency = 0
		s.Violations = append(s.Violations, Violation{Kind: "dependency", Message: t.ID + " has an unsatisfied dependency"})
	}
	return s
}

func (e *Engine) skillMultiplier(agentCapability, required string) float64 {
	if required == "" || agentCapability == required {
		return 1.0
	}
	for _, adjacent := range e.Adjacency[agentCapability] {
		if adjacent == required {
			return partialCredit
		}
	}
	return 0
}

func (e *Engine) workloadMultiplier(w WorkloadCounts) float64 {
	if e.MaxConcurrentPerAgent <= 0 {
		return 1.0
	}
	if w.InProgress < e.SoftConcurrentPerAgent {
		return 1.0
	}
	if w.InProgress >= e.MaxConcurrentPerAgent {
		return 0
	}
	span := float64(e.MaxConcurrentPerAgent - e.SoftConcurrentPerAgent)
	if span <= 0 {
		return 0
	}
	remaining := float64(e.MaxConcurrentPerAgent - w.InProgress)
	return remaining / span
}

// IsBlocked reports whether t has any unsatisfied dependency.
func (e *Engine) IsBlocked(specID string, t *specmodel.Task) bool {
	return !e.Graph.TaskDependenciesSatisfied(specID, t)
}

// DependencyChain returns the transitive spec dependency chain for specID,
// delegating to the Spec Graph.
func (e *Engine) DependencyChain(specID string) []string {
	return e.Graph.DependencyChain(specID)
}
