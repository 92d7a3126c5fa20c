package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/specflow/internal/assignvalidator"
	"github.com/mark3labs/specflow/internal/constraint"
	"github.com/mark3labs/specflow/internal/handoff"
	"github.com/mark3labs/specflow/internal/hookconfig"
	"github.com/mark3labs/specflow/internal/router"
	"github.com/mark3labs/specflow/internal/specerrors"
	"github.com/mark3labs/specflow/internal/specstore"
	"github.com/mark3labs/specflow/internal/toolexec"
	"github.com/mark3labs/specflow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orchestratorFixture = `---
id: FEAT-001
type: feature
status: active
title: Example
priority: P1
tasks:
  - id: TASK-001
    title: Build the handler
    status: ready
    agent: backend
    progress: 0
---
body
`

// fakeRunner is a toolexec.Runner that never shells out; each call records
// its command and returns the next queued result.
type fakeRunner struct {
	results []toolexec.Result
	calls   []string
}

func (f *fakeRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (toolexec.Result, error) {
	f.calls = append(f.calls, command)
	if len(f.results) == 0 {
		return toolexec.Result{Command: command, ExitCode: 0}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func newTestOrchestrator(t *testing.T, runner toolexec.Runner, tools *hookconfig.Config) (*Orchestrator, *workflow.Manager) {
	t.Helper()
	specDir := t.TempDir()
	specPath := filepath.Join(specDir, "feat-001-example.md")
	require.NoError(t, os.WriteFile(specPath, []byte(orchestratorFixture), 0o644))

	store := specstore.New(specDir, 10, time.Minute)
	graph, err := store.LoadAll()
	require.NoError(t, err)

	statePath := filepath.Join(t.TempDir(), "state.yaml")
	mgr, err := workflow.New(statePath, 2*time.Second, store, graph)
	require.NoError(t, err)

	engine := constraint.New(graph, constraint.Adjacency{}, 2, 3)
	r := router.New(graph, engine, mgr)
	validator := assignvalidator.New(graph, engine, mgr, 3)
	h := handoff.New(graph)

	orc := New(Config{
		Graph: graph, Router: r, Validator: validator, Manager: mgr, Handoff: h,
		Tools: tools, ToolRunner: runner, RepoDir: "",
	})
	return orc, mgr
}

func TestStartNext_AssignsTheOnlyEligibleTask(t *testing.T) {
	orc, mgr := newTestOrchestrator(t, nil, nil)

	res, err := orc.StartNext(context.Background(), StartNextInput{Agent: "backend"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Assigned)
	require.NotNil(t, res.Assignment)
	assert.Equal(t, "FEAT-001", res.Assignment.SpecID)
	assert.Equal(t, "TASK-001", res.Assignment.TaskID)

	agent, inProgress := mgr.AssignedAgent("FEAT-001", "TASK-001")
	assert.True(t, inProgress)
	assert.Equal(t, "backend", agent)
}

func TestStartNext_DryRunDoesNotAssign(t *testing.T) {
	orc, mgr := newTestOrchestrator(t, nil, nil)

	res, err := orc.StartNext(context.Background(), StartNextInput{Agent: "backend", DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.False(t, res.Assigned)
	require.NotNil(t, res.WouldAssign)

	_, inProgress := mgr.AssignedAgent("FEAT-001", "TASK-001")
	assert.False(t, inProgress)
}

func TestStartNext_NoEligibleTaskForMismatchedAgent(t *testing.T) {
	orc, _ := newTestOrchestrator(t, nil, nil)

	res, err := orc.StartNext(context.Background(), StartNextInput{Agent: "frontend"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Assigned)
	assert.NotEmpty(t, res.Suggestions)
}

func TestStartNext_RequiresAgent(t *testing.T) {
	orc, _ := newTestOrchestrator(t, nil, nil)
	_, err := orc.StartNext(context.Background(), StartNextInput{})
	assert.Error(t, err)
}

func TestCompleteCurrent_RunsLintAndTestThenCompletes(t *testing.T) {
	runner := &fakeRunner{}
	tools := &hookconfig.Config{
		Lint: hookconfig.ToolConfig{Command: "golangci-lint run"},
		Test: hookconfig.ToolConfig{Command: "go test ./..."},
	}
	orc, mgr := newTestOrchestrator(t, runner, tools)

	_, err := mgr.AssignTask("FEAT-001", "TASK-001", "backend", workflow.AssignOptions{})
	require.NoError(t, err)

	res, err := orc.CompleteCurrent(context.Background(), CompleteCurrentInput{Agent: "backend", SkipCommit: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"golangci-lint run", "go test ./..."}, runner.calls)

	_, ok := mgr.CompletedAssignmentFor("FEAT-001", "TASK-001")
	assert.True(t, ok)
}

func TestCompleteCurrent_LintFailureStopsThePipelineAsExternalToolFailure(t *testing.T) {
	runner := &fakeRunner{results: []toolexec.Result{
		{ExitCode: 1, Output: "lint error"},
		{ExitCode: 1, Output: "autofix attempt also failed"},
	}}
	tools := &hookconfig.Config{Lint: hookconfig.ToolConfig{Command: "lint"}}
	orc, mgr := newTestOrchestrator(t, runner, tools)

	_, err := mgr.AssignTask("FEAT-001", "TASK-001", "backend", workflow.AssignOptions{})
	require.NoError(t, err)

	_, err = orc.CompleteCurrent(context.Background(), CompleteCurrentInput{Agent: "backend", SkipCommit: true})
	require.Error(t, err)
	assert.True(t, specerrors.IsExternalToolFailure(err))

	_, ok := mgr.CompletedAssignmentFor("FEAT-001", "TASK-001")
	assert.False(t, ok, "a lint failure must not complete the task")
}

func TestCompleteCurrent_NoInProgressAssignmentIsValidationViolation(t *testing.T) {
	orc, _ := newTestOrchestrator(t, nil, nil)

	_, err := orc.CompleteCurrent(context.Background(), CompleteCurrentInput{Agent: "backend"})
	require.Error(t, err)
	assert.True(t, specerrors.IsValidationViolation(err))
}

func TestCompleteCurrent_MismatchedExplicitTargetIsValidationViolation(t *testing.T) {
	orc, mgr := newTestOrchestrator(t, nil, nil)
	_, err := mgr.AssignTask("FEAT-001", "TASK-001", "backend", workflow.AssignOptions{})
	require.NoError(t, err)

	_, err = orc.CompleteCurrent(context.Background(), CompleteCurrentInput{
		Agent: "frontend", SpecID: "FEAT-001", TaskID: "TASK-001",
	})
	require.Error(t, err)
	assert.True(t, specerrors.IsValidationViolation(err))
}
