package specgraph

import (
	"testing"

	"github.com/mark3labs/specflow/internal/specmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndexesByStatusAndTag(t *testing.T) {
	s1 := &specmodel.Spec{ID: "SPEC-001", Status: specmodel.StatusActive, Tags: map[string]struct{}{"infra": {}}}
	s2 := &specmodel.Spec{ID: "SPEC-002", Status: specmodel.StatusDone, Tags: map[string]struct{}{"infra": {}, "ui": {}}}
	g := New([]*specmodel.Spec{s1, s2}, nil)

	assert.Len(t, g.ByStatus(specmodel.StatusActive), 1)
	assert.Len(t, g.ByTag("infra"), 2)
	assert.Len(t, g.ByTag("ui"), 1)

	spec, ok := g.Spec("SPEC-001")
	require.True(t, ok)
	assert.Equal(t, s1, spec)
}

func TestTask_ResolvesCrossSpecReference(t *testing.T) {
	s1 := &specmodel.Spec{ID: "SPEC-001", Tasks: []specmodel.Task{{ID: "TASK-001", Status: specmodel.TaskComplete}}}
	s2 := &specmodel.Spec{ID: "SPEC-002", Tasks: []specmodel.Task{{ID: "TASK-001", DependsOn: []string{"SPEC-001:TASK-001"}}}}
	g := New([]*specmodel.Spec{s1, s2}, nil)

	task, ok := g.Task("SPEC-002", "SPEC-001:TASK-001")
	require.True(t, ok)
	assert.Equal(t, specmodel.TaskComplete, task.Status)
}

func TestDependencyChain_TransitiveAndDeduplicated(t *testing.T) {
	a := &specmodel.Spec{ID: "SPEC-A", Dependencies: []string{"SPEC-B"}}
	b := &specmodel.Spec{ID: "SPEC-B", Dependencies: []string{"SPEC-C"}}
	c := &specmodel.Spec{ID: "SPEC-C"}
	g := New([]*specmodel.Spec{a, b, c}, nil)

	chain := g.DependencyChain("SPEC-A")
	assert.ElementsMatch(t, []string{"SPEC-B", "SPEC-C"}, chain)
}

func TestHasCycle_DetectsCycle(t *testing.T) {
	a := &specmodel.Spec{ID: "SPEC-A", Dependencies: []string{"SPEC-B"}}
	b := &specmodel.Spec{ID: "SPEC-B", Dependencies: []string{"SPEC-A"}}
	g := New([]*specmodel.Spec{a, b}, nil)

	hasCycle, cycle := g.HasCycle()
	assert.True(t, hasCycle)
	assert.NotEmpty(t, cycle)
}

func TestHasCycle_NoCycleOnDAG(t *testing.T) {
	a := &specmodel.Spec{ID: "SPEC-A", Dependencies: []string{"SPEC-B"}}
	b := &specmodel.Spec{ID: "SPEC-B"}
	g := New([]*specmodel.Spec{a, b}, nil)

	hasCycle, _ := g.HasCycle()
	assert.False(t, hasCycle)
}

func TestTaskDependenciesSatisfied(t *testing.T) {
	blocker := specmodel.Task{ID: "TASK-001", Status: specmodel.TaskReady}
	spec := &specmodel.Spec{ID: "SPEC-001", Tasks: []specmodel.Task{blocker, {ID: "TASK-002", DependsOn: []string{"TASK-001"}}}}
	g := New([]*specmodel.Spec{spec}, nil)

	dependent, _ := spec.TaskByID("TASK-002")
	assert.False(t, g.TaskDependenciesSatisfied("SPEC-001", dependent))

	spec.Tasks[0].Status = specmodel.TaskComplete
	assert.True(t, g.TaskDependenciesSatisfied("SPEC-001", dependent))
}
