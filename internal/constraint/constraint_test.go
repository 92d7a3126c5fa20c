package constraint

import (
	"testing"

	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/specmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(tasks ...specmodel.Task) *specgraph.Graph {
	spec := &specmodel.Spec{ID: "SPEC-001", Status: specmodel.StatusActive, Priority: specmodel.PriorityP1, Tasks: tasks}
	return specgraph.New([]*specmodel.Spec{spec}, nil)
}

func TestScore_ExactSkillMatch(t *testing.T) {
	task := specmodel.Task{ID: "TASK-001", Agent: "backend"}
	e := New(buildGraph(task), nil, 2, 4)

	score := e.Score("backend", "SPEC-001", &task, WorkloadCounts{})
	assert.Equal(t, 1.0, score.Skill)
	assert.Equal(t, 1.0, score.Dependency)
	assert.Equal(t, specmodel.PriorityP1.Weight(), score.Priority)
	assert.Empty(t, score.Violations)
}

func TestScore_NoSkillMatchZeroesOutFinal(t *testing.T) {
	task := specmodel.Task{ID: "TASK-001", Agent: "backend"}
	e := New(buildGraph(task), nil, 2, 4)

	score := e.Score("frontend", "SPEC-001", &task, WorkloadCounts{})
	assert.Equal(t, 0.0, score.Skill)
	assert.Equal(t, 0.0, score.Final())
	require.Len(t, score.Violations, 1)
	assert.Equal(t, "skill", score.Violations[0].Kind)
}

func TestScore_AdjacencyGrantsPartialCredit(t *testing.T) {
	task := specmodel.Task{ID: "TASK-001", Agent: "backend"}
	adjacency := Adjacency{"fullstack": {"backend", "frontend"}}
	e := New(buildGraph(task), adjacency, 2, 4)

	score := e.Score("fullstack", "SPEC-001", &task, WorkloadCounts{})
	assert.Equal(t, partialCredit, score.Skill)
}

func TestWorkloadMultiplier_DecaysLinearlyBetweenSoftAndHard(t *testing.T) {
	e := New(buildGraph(), nil, 2, 6)

	assert.Equal(t, 1.0, e.workloadMultiplier(WorkloadCounts{InProgress: 0}))
	assert.Equal(t, 1.0, e.workloadMultiplier(WorkloadCounts{InProgress: 1}))
	assert.Equal(t, 0.0, e.workloadMultiplier(WorkloadCounts{InProgress: 6}))
	assert.InDelta(t, 0.5, e.workloadMultiplier(WorkloadCounts{InProgress: 4}), 0.01)
}

func TestScore_UnsatisfiedDependencyZeroesOutFinal(t *testing.T) {
	blocker := specmodel.Task{ID: "TASK-001", Status: specmodel.TaskReady}
	dependent := specmodel.Task{ID: "TASK-002", Agent: "backend", DependsOn: []string{"TASK-001"}}
	e := New(buildGraph(blocker, dependent), nil, 2, 4)

	score := e.Score("backend", "SPEC-001", &dependent, WorkloadCounts{})
	assert.Equal(t, 0.0, score.Dependency)
	assert.Equal(t, 0.0, score.Final())
	assert.True(t, e.IsBlocked("SPEC-001", &dependent))
}
