package handoff

import (
	"testing"

	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/specmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specWithTasks(id string, tasks ...specmodel.Task) *specmodel.Spec {
	return &specmodel.Spec{ID: id, Status: specmodel.StatusActive, Tasks: tasks}
}

func TestEvaluate_NoDependents(t *testing.T) {
	graph := specgraph.New([]*specmodel.Spec{
		specWithTasks("SPEC-001", specmodel.Task{ID: "TASK-001", Status: specmodel.TaskComplete}),
	}, nil)

	eng := New(graph)
	result := eng.Evaluate(Input{SpecID: "SPEC-001", TaskID: "TASK-001", FromAgent: "agent-a"})

	require.True(t, result.Success)
	assert.False(t, result.HandoffNeeded)
	assert.Equal(t, ReasonNoDependents, result.Reason)
}

func TestEvaluate_SingleReadyDependent(t *testing.T) {
	graph := specgraph.New([]*specmodel.Spec{
		specWithTasks("SPEC-001",
			specmodel.Task{ID: "TASK-001", Status: specmodel.TaskComplete},
			specmodel.Task{ID: "TASK-002", Status: specmodel.TaskBlocked, Agent: "agent-b", DependsOn: []string{"TASK-001"}},
		),
	}, nil)

	eng := New(graph)
	result := eng.Evaluate(Input{SpecID: "SPEC-001", TaskID: "TASK-001", FromAgent: "agent-a"})

	require.True(t, result.Success)
	assert.True(t, result.HandoffNeeded)
	assert.Equal(t, "SPEC-001", result.NextSpecID)
	assert.Equal(t, "TASK-002", result.NextTaskID)
	assert.Equal(t, "agent-b", result.NextAgent)
}

func TestEvaluate_MultipleCandidates(t *testing.T) {
	graph := specgraph.New([]*specmodel.Spec{
		specWithTasks("SPEC-001",
			specmodel.Task{ID: "TASK-001", Status: specmodel.TaskComplete},
			specmodel.Task{ID: "TASK-002", Status: specmodel.TaskBlocked, DependsOn: []string{"TASK-001"}},
			specmodel.Task{ID: "TASK-003", Status: specmodel.TaskBlocked, DependsOn: []string{"TASK-001"}},
		),
	}, nil)

	eng := New(graph)
	result := eng.Evaluate(Input{SpecID: "SPEC-001", TaskID: "TASK-001", FromAgent: "agent-a"})

	require.True(t, result.Success)
	assert.False(t, result.HandoffNeeded)
	assert.Equal(t, ReasonMultipleCandidates, result.Reason)
}

func TestEvaluate_DependentStillBlockedByOtherDependency(t *testing.T) {
	graph := specgraph.New([]*specmodel.Spec{
		specWithTasks("SPEC-001",
			specmodel.Task{ID: "TASK-001", Status: specmodel.TaskComplete},
			specmodel.Task{ID: "TASK-002", Status: specmodel.TaskBlocked},
			specmodel.Task{ID: "TASK-003", Status: specmodel.TaskBlocked, DependsOn: []string{"TASK-001", "TASK-002"}},
		),
	}, nil)

	eng := New(graph)
	result := eng.Evaluate(Input{SpecID: "SPEC-001", TaskID: "TASK-001", FromAgent: "agent-a"})

	assert.False(t, result.HandoffNeeded)
	assert.Equal(t, ReasonNoDependents, result.Reason)
}

func TestEvaluate_CrossSpecDependent(t *testing.T) {
	graph := specgraph.New([]*specmodel.Spec{
		specWithTasks("SPEC-001", specmodel.Task{ID: "TASK-001", Status: specmodel.TaskComplete}),
		specWithTasks("SPEC-002", specmodel.Task{ID: "TASK-001", Status: specmodel.TaskBlocked, Agent: "agent-c", DependsOn: []string{"SPEC-001:TASK-001"}}),
	}, nil)

	eng := New(graph)
	result := eng.Evaluate(Input{SpecID: "SPEC-001", TaskID: "TASK-001", FromAgent: "agent-a"})

	require.True(t, result.HandoffNeeded)
	assert.Equal(t, "SPEC-002", result.NextSpecID)
	assert.Equal(t, "agent-c", result.NextAgent)
}

func TestEvaluate_BareReferenceDoesNotCrossSpecs(t *testing.T) {
	// TASK-002 in SPEC-002 depends on a bare "TASK-001", which must resolve
	// within SPEC-002 itself, not against SPEC-001's completed TASK-001.
	graph := specgraph.New([]*specmodel.Spec{
		specWithTasks("SPEC-001", specmodel.Task{ID: "TASK-001", Status: specmodel.TaskComplete}),
		specWithTasks("SPEC-002", specmodel.Task{ID: "TASK-002", Status: specmodel.TaskBlocked, DependsOn: []string{"TASK-001"}}),
	}, nil)

	eng := New(graph)
	result := eng.Evaluate(Input{SpecID: "SPEC-001", TaskID: "TASK-001", FromAgent: "agent-a"})

	assert.False(t, result.HandoffNeeded)
	assert.Equal(t, ReasonNoDependents, result.Reason)
}
