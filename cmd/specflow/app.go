package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/specflow/internal/assignvalidator"
	"github.com/mark3labs/specflow/internal/config"
	"github.com/mark3labs/specflow/internal/constraint"
	"github.com/mark3labs/specflow/internal/gitinfo"
	"github.com/mark3labs/specflow/internal/handoff"
	"github.com/mark3labs/specflow/internal/hookconfig"
	"github.com/mark3labs/specflow/internal/logger"
	"github.com/mark3labs/specflow/internal/orchestrator"
	"github.com/mark3labs/specflow/internal/router"
	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/specstore"
	"github.com/mark3labs/specflow/internal/workflow"
)

const (
	cacheEntries = 1024
	cacheMaxAge  = 5 * time.Minute
)

// app bundles the components every command needs, built fresh from
// configuration on each invocation since specflow is a one-shot CLI, not a
// long-running process (except for watch).
type app struct {
	cfg   *config.Config
	store *specstore.Store
	graph *specgraph.Graph
	mgr   *workflow.Manager
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger.Configure(cfg.LogLevel, nil)

	store := specstore.New(cfg.SpecsRoot, cacheEntries, cacheMaxAge)
	graph, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading spec graph: %w", err)
	}

	statePath := filepath.Join(".workflow", "state.yaml")
	mgr, err := workflow.New(statePath, cfg.LockTimeout(), store, graph)
	if err != nil {
		return nil, fmt.Errorf("opening workflow state: %w", err)
	}

	return &app{cfg: cfg, store: store, graph: graph, mgr: mgr}, nil
}

func (a *app) constraintEngine() *constraint.Engine {
	adjacency := constraint.Adjacency(a.cfg.Constraints.Adjacency)
	return constraint.New(a.graph, adjacency, a.cfg.Constraints.SoftConcurrentPerAgent, a.cfg.Constraints.MaxConcurrentPerAgent)
}

func (a *app) router() *router.Router {
	return router.New(a.graph, a.constraintEngine(), a.mgr)
}

func (a *app) validator() *assignvalidator.Validator {
	return assignvalidator.New(a.graph, a.constraintEngine(), a.mgr, a.cfg.Constraints.MaxConcurrentPerAgent)
}

func (a *app) handoffEngine() *handoff.Engine {
	return handoff.New(a.graph)
}

// toolConfig adapts the closed configuration schema's externalTool.lint/test
// command+args pairs into the hookconfig shape the orchestrator's tool
// runner consumes as a single shell command string.
func (a *app) toolConfig() *hookconfig.Config {
	return &hookconfig.Config{
		Lint: hookconfig.ToolConfig{Command: joinCommand(a.cfg.ExternalTool.Lint)},
		Test: hookconfig.ToolConfig{Command: joinCommand(a.cfg.ExternalTool.Test)},
	}
}

func joinCommand(t config.ExternalTool) string {
	if t.Command == "" {
		return ""
	}
	if len(t.Args) == 0 {
		return t.Command
	}
	return t.Command + " " + strings.Join(t.Args, " ")
}

func (a *app) orchestrator() *orchestrator.Orchestrator {
	repoDir := "."
	if status, err := gitinfo.GetStatus(repoDir); err != nil || status == nil {
		repoDir = ""
	}
	return orchestrator.New(orchestrator.Config{
		Graph:     a.graph,
		Router:    a.router(),
		Validator: a.validator(),
		Manager:   a.mgr,
		Handoff:   a.handoffEngine(),
		Tools:     a.toolConfig(),
		RepoDir:   repoDir,
	})
}
