// Package router implements the Task Router: given an agent and filters, it
// scores every eligible task via the Constraint Engine and returns a ranked
// recommendation.
package router

import (
	"github.com/mark3labs/specflow/internal/constraint"
	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/specmodel"
)

// Assignments is the subset of Workflow State Manager queries the router
// needs: workload counts for the skill/workload term, and self-resumption
// checks for the in_progress-by-self eligibility rule.
type Assignments interface {
	CountInProgress(agent string) int
	AssignedAgent(specID, taskID string) (agent string, inProgress bool)
}

// Filters narrows NextTask's candidate set.
type Filters struct {
	Priority specmodel.Priority
	Tag      string
	SpecID   string
}

// Candidate is one scored, eligible task.
type Candidate struct {
	SpecID string
	Spec   *specmodel.Spec
	Task   *specmodel.Task
	Score  constraint.Score
}

// Reasoning explains why Task was chosen over the alternatives.
type Reasoning struct {
	Summary string
}

// Metadata accompanies a Recommendation with aggregate counts.
type Metadata struct {
	TotalAvailable int
	AgentMatches   int
}

// Recommendation is NextTask's return value.
type Recommendation struct {
	Task         *Candidate
	Alternatives []Candidate
	Reasoning    Reasoning
	Metadata     Metadata
}

const defaultAlternatives = 5

// Router is the Task Router.
type Router struct {
	Graph       *specgraph.Graph
	Engine      *constraint.Engine
	Assignments Assignments
}

// New constructs a Router over graph, using engine for scoring and
// assignments for workload/self-resumption lookups.
func New(graph *specgraph.Graph, engine *constraint.Engine, assignments Assignments) *Router {
	return &Router{Graph: graph, Engine: engine, Assignments: assignments}
}

// NextTask enumerates every eligible task across all non-done specs,
// scores them, applies filters, and returns the top recommendation plus
// alternatives.
func (r *Router) NextTask(agent string, filters Filters) Recommendation {
	workload := constraint.WorkloadCounts{InProgress: r.Assignments.CountInProgress(agent)}

	var candidates []Candidate
	var totalAvailable, agentMatches int

	for _, spec := range r.Graph.All() {
		if spec.Status == specmodel.StatusDone {
			continue
		}
		if filters.SpecID != "" && spec.ID != filters.SpecID {
			continue
		}
		if filters.Priority != "" && spec.Priority != filters.Priority {
			continue
		}
		if filters.Tag != "" && !spec.HasTag(filters.Tag) {
			continue
		}

		for i := range spec.Tasks {
			t := &spec.Tasks[i]
			if !r.eligible(spec.ID, t, agent) {
				continue
			}
			totalAvailable++
			if t.Agent == agent {
				agentMatches++
			}

			score := r.Engine.Score(agent, spec.ID, t, workload)
			if score.Final() == 0 {
				continue
			}
			candidates = append(candidates, Candidate{SpecID: spec.ID, Spec: spec, Task: t, Score: score})
		}
	}

	sortCandidates(candidates)

	rec := Recommendation{Metadata: Metadata{TotalAvailable: totalAvailable, AgentMatches: agentMatches}}
	if len(candidates) == 0 {
		rec.Reasoning = Reasoning{Summary: "no eligible task scored above zero for " + agent}
		return rec
	}

	top := candidates[0]
	rec.Task = &top
	rec.Reasoning = Reasoning{Summary: "selected " + top.SpecID + "/" + top.Task.ID + " by highest score (priority x skill x workload x dependency)"}

	end := 1 + defaultAlternatives
	if end > len(candidates) {
		end = len(candidates)
	}
	rec.Alternatives = candidates[1:end]
	return rec
}

// eligible applies the status ∈ {ready, in_progress-by-self} rule.
func (r *Router) eligible(specID string, t *specmodel.Task, agent string) bool {
	if t.Status == specmodel.TaskReady {
		return true
	}
	if t.Status == specmodel.TaskInProgress {
		assignedAgent, inProgress := r.Assignments.AssignedAgent(specID, t.ID)
		return inProgress && assignedAgent == agent
	}
	return false
}

// AllTasks returns every task across all non-done specs, regardless of
// eligibility, for read-only listing commands.
func (r *Router) AllTasks() []Candidate {
	var out []Candidate
	for _, spec := range r.Graph.All() {
		if spec.Status == specmodel.StatusDone {
			continue
		}
		for i := range spec.Tasks {
			out = append(out, Candidate{SpecID: spec.ID, Spec: spec, Task: &spec.Tasks[i]})
		}
	}
	return out
}

// DependencyChain delegates to the Constraint Engine's spec dependency
// chain for specID.
func (r *Router) DependencyChain(specID string) []string {
	return r.Engine.DependencyChain(specID)
}

// ConstraintEngine exposes the engine backing this router.
func (r *Router) ConstraintEngine() *constraint.Engine {
	return r.Engine
}

func sortCandidates(c []Candidate) {
	// insertion sort: candidate lists are small (bounded by eligible task
	// count), and the comparator needs three tiers (score desc, priority
	// desc, spec creation time asc) that sort.Slice's Less would just
	// reimplement anyway.
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && less(c[j], c[j-1]); j-- {
			c[j-1], c[j] = c[j], c[j-1]
		}
	}
}

// less reports whether a ranks ahead of b: higher score first, then higher
// priority weight, then earlier spec creation time.
func less(a, b Candidate) bool {
	sa, sb := a.Score.Final(), b.Score.Final()
	if sa != sb {
		return sa > sb
	}
	pa, pb := a.Spec.Priority.Weight(), b.Spec.Priority.Weight()
	if pa != pb {
		return pa > pb
	}
	return a.Spec.Created.Before(b.Spec.Created)
}
