// Package orchestrator implements the start-next and complete-current
// command pipelines: each step produces an audit entry, and both pipelines
// report a total elapsed time against a soft 5-second budget.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/specflow/internal/assignvalidator"
	"github.com/mark3labs/specflow/internal/committemplate"
	"github.com/mark3labs/specflow/internal/gitinfo"
	"github.com/mark3labs/specflow/internal/handoff"
	"github.com/mark3labs/specflow/internal/hookconfig"
	"github.com/mark3labs/specflow/internal/router"
	"github.com/mark3labs/specflow/internal/specerrors"
	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/toolexec"
	"github.com/mark3labs/specflow/internal/workflow"
)

// AuditEntry records one pipeline step's outcome.
type AuditEntry struct {
	Step     string
	Success  bool
	Detail   string
	Duration time.Duration
}

const performanceBudget = 5 * time.Second

// Config wires the components a pipeline run needs.
type Config struct {
	Graph       *specgraph.Graph
	Router      *router.Router
	Validator   *assignvalidator.Validator
	Manager     *workflow.Manager
	Handoff     *handoff.Engine
	Tools       *hookconfig.Config
	ToolRunner  toolexec.Runner
	RepoDir     string
	CommitTpl   string
}

// Orchestrator runs the start-next / complete-current pipelines.
type Orchestrator struct {
	cfg Config
}

// New constructs an Orchestrator over cfg.
func New(cfg Config) *Orchestrator {
	if cfg.ToolRunner == nil {
		cfg.ToolRunner = toolexec.NewDefaultRunner()
	}
	if cfg.CommitTpl == "" {
		cfg.CommitTpl = committemplate.DefaultTemplate
	}
	return &Orchestrator{cfg: cfg}
}

// StartNextInput is the start-next pipeline's input.
type StartNextInput struct {
	Agent    string
	Filters  router.Filters
	DryRun   bool
	ConfirmCritical bool
}

// StartNextResult is the start-next pipeline's output.
type StartNextResult struct {
	Success     bool
	Assigned    bool
	DryRun      bool
	WouldAssign *router.Candidate
	Assignment  *workflow.Assignment
	Suggestions []string
	Violations  []assignvalidator.Violation
	Audit       []AuditEntry
	Performance time.Duration
}

// StartNext runs the start-next pipeline: steps 1-7 of the resolve →
// recommend → validate → (dry-run short-circuit) → assign flow.
func (o *Orchestrator) StartNext(ctx context.Context, in StartNextInput) (StartNextResult, error) {
	start := time.Now()
	res := StartNextResult{}

	if in.Agent == "" {
		return res, fmt.Errorf("an agent identifier is required to call start-next")
	}
	res.Audit = append(res.Audit, AuditEntry{Step: "resolve_agent", Success: true, Detail: in.Agent})

	rec := o.cfg.Router.NextTask(in.Agent, in.Filters)
	res.Audit = append(res.Audit, AuditEntry{Step: "recommend", Success: rec.Task != nil, Detail: rec.Reasoning.Summary})

	if rec.Task == nil {
		res.Success = true
		res.Assigned = false
		res.Suggestions = nextStepSuggestions(rec)
		res.Performance = time.Since(start)
		return res, nil
	}

	verdict := o.cfg.Validator.Validate(in.Agent, rec.Task.SpecID, rec.Task.Task.ID, assignvalidator.Options{ConfirmCritical: in.ConfirmCritical})
	res.Audit = append(res.Audit, AuditEntry{Step: "validate", Success: verdict.CanProceed})
	if !verdict.CanProceed {
		res.Success = false
		res.Violations = verdict.Violations
		res.Performance = time.Since(start)
		return res, nil
	}

	if in.DryRun {
		res.Success = true
		res.DryRun = true
		res.WouldAssign = rec.Task
		res.Performance = time.Since(start)
		return res, nil
	}

	assignment, err := o.cfg.Manager.AssignTask(rec.Task.SpecID, rec.Task.Task.ID, in.Agent, workflow.AssignOptions{})
	res.Audit = append(res.Audit, AuditEntry{Step: "assign", Success: err == nil})
	if err != nil {
		res.Performance = time.Since(start)
		return res, err
	}

	res.Success = true
	res.Assigned = true
	res.Assignment = assignment
	res.Performance = time.Since(start)
	if res.Performance > performanceBudget {
		res.Audit = append(res.Audit, AuditEntry{Step: "performance_warning", Success: false, Detail: res.Performance.String()})
	}
	return res, nil
}

func nextStepSuggestions(rec router.Recommendation) []string {
	if rec.Metadata.TotalAvailable == 0 {
		return []string{"no tasks are ready across any spec right now"}
	}
	if rec.Metadata.AgentMatches == 0 {
		return []string{"no ready task matches this agent's declared capability"}
	}
	return []string{"filters may be too restrictive; try widening priority/tag/specId"}
}

// CompleteCurrentInput is the complete-current pipeline's input.
type CompleteCurrentInput struct {
	Agent      string
	SpecID     string
	TaskID     string
	SkipLint   bool
	SkipTests  bool
	SkipCommit bool
	Notes      string
}

// CompleteCurrentResult is the complete-current pipeline's output.
type CompleteCurrentResult struct {
	Success  bool
	Warnings []string
	Handoff  handoff.Result
	Audit    []AuditEntry
	Performance time.Duration
}

// CompleteCurrent runs the complete-current pipeline: target resolution,
// lint/test gates, completion, commit, and handoff evaluation. Any failure
// from step 6 onward (commit/handoff) downgrades to a warning: the task is
// already complete by then.
func (o *Orchestrator) CompleteCurrent(ctx context.Context, in CompleteCurrentInput) (CompleteCurrentResult, error) {
	start := time.Now()
	res := CompleteCurrentResult{}

	specID, taskID, err := o.resolveTarget(in)
	if err != nil {
		return res, err
	}
	res.Audit = append(res.Audit, AuditEntry{Step: "resolve_target", Success: true, Detail: specID + "/" + taskID})

	var modifiedBefore []string
	if o.cfg.RepoDir != "" {
		modifiedBefore, _ = gitinfo.ModifiedFiles(o.cfg.RepoDir)
	}
	res.Audit = append(res.Audit, AuditEntry{Step: "begin_file_tracking", Success: true})

	if !in.SkipLint && o.cfg.Tools != nil && o.cfg.Tools.Lint.Command != "" {
		if err := o.runWithAutofix(ctx, o.cfg.Tools.Lint); err != nil {
			res.Audit = append(res.Audit, AuditEntry{Step: "lint", Success: false, Detail: err.Error()})
			return res, specerrors.Wrap(specerrors.KindExternalToolFailure, "lint failed", "fix the reported lint errors and retry", err)
		}
		res.Audit = append(res.Audit, AuditEntry{Step: "lint", Success: true})
	}

	if !in.SkipTests && o.cfg.Tools != nil && o.cfg.Tools.Test.Command != "" {
		result, err := o.cfg.ToolRunner.Run(ctx, o.cfg.RepoDir, o.cfg.Tools.Test.Command, time.Duration(o.cfg.Tools.Test.TimeoutOrDefault())*time.Second)
		if err != nil || !result.Succeeded() {
			res.Audit = append(res.Audit, AuditEntry{Step: "test", Success: false, Detail: result.Output})
			return res, specerrors.Wrap(specerrors.KindExternalToolFailure, "tests failed: "+result.Output, "fix the failing tests and retry", err)
		}
		res.Audit = append(res.Audit, AuditEntry{Step: "test", Success: true})
	}

	completion, err := o.cfg.Manager.CompleteTask(specID, taskID, workflow.CompletionOptions{Notes: in.Notes, CompletedBy: in.Agent})
	res.Audit = append(res.Audit, AuditEntry{Step: "complete_task", Success: err == nil})
	if err != nil {
		return res, err
	}

	if !in.SkipCommit && o.cfg.RepoDir != "" {
		if err := o.stageAndCommit(specID, taskID, in, modifiedBefore); err != nil {
			res.Warnings = append(res.Warnings, "commit step failed: "+err.Error())
			res.Audit = append(res.Audit, AuditEntry{Step: "commit", Success: false, Detail: err.Error()})
		} else {
			res.Audit = append(res.Audit, AuditEntry{Step: "commit", Success: true})
		}
	}

	if o.cfg.Handoff != nil {
		handoffResult := o.cfg.Handoff.Evaluate(handoff.Input{
			Type: "TASK_COMPLETED", SpecID: specID, TaskID: taskID, FromAgent: in.Agent,
		})
		res.Handoff = handoffResult
		res.Audit = append(res.Audit, AuditEntry{Step: "handoff", Success: handoffResult.Success})
	}

	res.Success = true
	res.Performance = time.Since(start)
	if res.Performance > performanceBudget {
		res.Warnings = append(res.Warnings, fmt.Sprintf("complete-current exceeded the %s soft target (%s)", performanceBudget, res.Performance))
	}
	_ = completion
	return res, nil
}

// resolveTarget finds the (spec, task) pair to complete: an explicit pair
// is validated against the agent's current in_progress record; otherwise
// the caller's single in_progress record is used, and more than one is an
// error requiring an explicit choice.
func (o *Orchestrator) resolveTarget(in CompleteCurrentInput) (specID, taskID string, err error) {
	if in.SpecID != "" && in.TaskID != "" {
		if agent, inProgress := o.cfg.Manager.AssignedAgent(in.SpecID, in.TaskID); !inProgress || agent != in.Agent {
			return "", "", specerrors.New(specerrors.KindValidationViolation,
				fmt.Sprintf("%s/%s is not %s's current in_progress assignment", in.SpecID, in.TaskID, in.Agent), "")
		}
		return in.SpecID, in.TaskID, nil
	}

	var matches []workflow.Assignment
	for _, a := range o.cfg.Manager.GetCurrentAssignments() {
		if a.AssignedAgent == in.Agent && a.Status == workflow.AssignmentInProgress {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", specerrors.New(specerrors.KindValidationViolation, in.Agent+" has no in_progress assignment", "call start-next first")
	case 1:
		return matches[0].SpecID, matches[0].TaskID, nil
	default:
		return "", "", specerrors.New(specerrors.KindValidationViolation,
			fmt.Sprintf("%s has %d in_progress assignments", in.Agent, len(matches)), "pass --spec and --task to disambiguate")
	}
}

// runWithAutofix runs cfg.Command, and on failure retries once after
// appending an autofix flag, re-running the same command.
func (o *Orchestrator) runWithAutofix(ctx context.Context, cfg hookconfig.ToolConfig) error {
	timeout := time.Duration(cfg.TimeoutOrDefault()) * time.Second
	result, err := o.cfg.ToolRunner.Run(ctx, o.cfg.RepoDir, cfg.Command, timeout)
	if err == nil && result.Succeeded() {
		return nil
	}

	autofixResult, autofixErr := o.cfg.ToolRunner.Run(ctx, o.cfg.RepoDir, cfg.Command+" --fix", timeout)
	if autofixErr != nil {
		return fmt.Errorf("lint autofix attempt failed: %w", autofixErr)
	}
	if !autofixResult.Succeeded() {
		return fmt.Errorf("%s", autofixResult.Output)
	}

	final, err := o.cfg.ToolRunner.Run(ctx, o.cfg.RepoDir, cfg.Command, timeout)
	if err != nil || !final.Succeeded() {
		return fmt.Errorf("%s", final.Output)
	}
	return nil
}

// stageAndCommit stages every file touched since the tracking window
// opened and commits with a message composed from the fixed template,
// retrying up to 3 times when a pre-commit hook modifies staged files.
func (o *Orchestrator) stageAndCommit(specID, taskID string, in CompleteCurrentInput, before []string) error {
	after, err := gitinfo.ModifiedFiles(o.cfg.RepoDir)
	if err != nil {
		return err
	}
	touched := append(append([]string{}, before...), after...)
	if err := gitinfo.Stage(o.cfg.RepoDir, dedupe(touched)); err != nil {
		return err
	}

	message := committemplate.Render(o.cfg.CommitTpl, committemplate.Variables{
		SpecID: specID, TaskID: taskID, Agent: in.Agent, Notes: in.Notes,
	})

	const maxRetries = 3
	for attempt := 0; attempt <= maxRetries; attempt++ {
		preHookState, _ := gitinfo.ModifiedFiles(o.cfg.RepoDir)
		output, err := gitinfo.Commit(o.cfg.RepoDir, message)
		if err == nil {
			return nil
		}
		postHookState, _ := gitinfo.ModifiedFiles(o.cfg.RepoDir)
		if len(postHookState) <= len(preHookState) {
			return fmt.Errorf("commit failed: %s", output)
		}
		if err := gitinfo.Stage(o.cfg.RepoDir, postHookState); err != nil {
			return err
		}
	}
	return fmt.Errorf("commit still failing after %d pre-commit-hook retries", maxRetries)
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
