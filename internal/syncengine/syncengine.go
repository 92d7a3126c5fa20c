// Package syncengine implements the Automated State-Sync Engine: it
// consumes change_analyzed events, decides whether the change warrants
// validation, and when it does, reconciles the Spec Store and Workflow
// State Manager's view of the world — or records a conflict when they
// disagree in a way neither side can unilaterally resolve.
package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/specflow/internal/eventbus"
	"github.com/mark3labs/specflow/internal/integrity"
	"github.com/mark3labs/specflow/internal/logger"
	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/specmodel"
	"github.com/mark3labs/specflow/internal/specstore"
	"github.com/mark3labs/specflow/internal/watcher"
	"github.com/mark3labs/specflow/internal/workflow"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Component liveness states, aggregated into an overall health snapshot.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
	HealthFailed   Health = "failed"
	HealthStopped  Health = "stopped"
	HealthShutdown Health = "shutdown"
)

// Performance targets (soft; exceeding one only emits a warning metric).
const (
	targetChangeDetection = 1 * time.Second
	targetSync            = 2 * time.Second
	targetValidation      = 100 * time.Millisecond
)

// ConflictRecord is written under ConflictsDir when a reconciliation finds
// the workflow state and the spec disagreeing in a way that can't be
// resolved automatically.
type ConflictRecord struct {
	SpecID      string    `yaml:"specId"`
	TaskID      string    `yaml:"taskId"`
	Field       string    `yaml:"field"`
	StateValue  string    `yaml:"stateValue"`
	SpecValue   string    `yaml:"specValue"`
	DetectedAt  time.Time `yaml:"detectedAt"`
}

// Engine is the Automated State-Sync Engine.
type Engine struct {
	Store         *specstore.Store
	Manager       *workflow.Manager
	Bus           *eventbus.Bus
	ConflictsDir  string
	IntegrityCfg  integrity.Config
	HealthInterval time.Duration

	components []healthChecker
}

type healthChecker struct {
	name  string
	check func(ctx context.Context) Health
}

// New constructs an Engine wired to store/manager/bus, writing conflict
// records under conflictsDir.
func New(store *specstore.Store, manager *workflow.Manager, bus *eventbus.Bus, conflictsDir string, healthInterval time.Duration) *Engine {
	e := &Engine{
		Store: store, Manager: manager, Bus: bus,
		ConflictsDir: conflictsDir, HealthInterval: healthInterval,
	}
	e.components = []healthChecker{
		{name: "spec_store", check: e.checkStoreHealth},
		{name: "event_bus", check: e.checkBusHealth},
		{name: "workflow_state", check: e.checkWorkflowHealth},
	}
	return e
}

// Run subscribes to change_analyzed and drains it until ctx is cancelled,
// also driving the periodic health-monitor loop on the same lifetime.
func (e *Engine) Run(ctx context.Context) error {
	sub, err := e.Bus.Subscribe(ctx, eventbus.TopicChangeAnalyzed, func(payload []byte) {
		e.handleChangeAnalyzed(ctx, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", eventbus.TopicChangeAnalyzed, err)
	}
	defer sub.Unsubscribe()

	ticker := time.NewTicker(e.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.runHealthCheck(ctx)
		}
	}
}

func (e *Engine) handleChangeAnalyzed(ctx context.Context, payload []byte) {
	var a watcher.Analysis
	if err := json.Unmarshal(payload, &a); err != nil {
		logger.Warn("syncengine: decoding change_analyzed payload failed", "err", err)
		return
	}

	if !shouldTriggerValidation(a) {
		return
	}

	start := time.Now()
	if err := e.validateAndReconcile(ctx, a.SpecID); err != nil {
		logger.Warn("syncengine: reconcile failed", "specId", a.SpecID, "err", err)
		_ = e.Bus.Publish(ctx, eventbus.TopicComponentError, map[string]any{
			"component": "syncengine", "specId": a.SpecID, "error": err.Error(),
		})
	}
	if elapsed := time.Since(start); elapsed > targetSync {
		logger.Warn("syncengine: sync exceeded soft target", "specId", a.SpecID, "elapsed", elapsed, "target", targetSync)
	}
}

// shouldTriggerValidation applies the fixed decision rubric: high-impact
// changes always validate; medium-impact changes validate only when they
// carry a workflow-relevant status or handoff-relevant assignment change;
// a JSON change with any status, assignment or task status change also
// validates; everything else is ignored.
func shouldTriggerValidation(a watcher.Analysis) bool {
	if a.Impact == watcher.ImpactHigh {
		return true
	}
	if a.Impact == watcher.ImpactMedium {
		if a.StatusChange != nil && a.StatusChange.IsWorkflowChange {
			return true
		}
		if a.AssignmentChange != nil && a.AssignmentChange.IsHandoff {
			return true
		}
	}
	if a.ChangeType == watcher.ChangeJSON && (a.StatusChange != nil || a.AssignmentChange != nil || len(a.TaskStatusChanges) > 0) {
		return true
	}
	return false
}

// validateAndReconcile reloads the full graph, runs the Integrity Validator
// over it, and — if clean — syncs workflow state against the affected spec.
// A detected conflict short-circuits before any state mutation.
func (e *Engine) validateAndReconcile(ctx context.Context, specID string) error {
	validationStart := time.Now()
	graph, err := e.Store.LoadAll()
	if err != nil {
		return fmt.Errorf("reloading spec graph: %w", err)
	}

	report := integrity.Validate(graph, e.IntegrityCfg)
	if elapsed := time.Since(validationStart); elapsed > targetValidation {
		logger.Warn("syncengine: validation exceeded soft target", "specId", specID, "elapsed", elapsed, "target", targetValidation)
	}
	if report.HasErrors() {
		return fmt.Errorf("integrity validation found %d error-level finding(s) for %s", len(report.Findings), specID)
	}

	if conflict, ok := e.detectConflict(graph, specID); ok {
		return e.recordConflict(ctx, conflict)
	}

	e.Manager.SetPaths(graph)
	if err := e.Manager.SyncSpecState(specID); err != nil {
		return fmt.Errorf("syncing workflow state for %s: %w", specID, err)
	}
	return nil
}

// detectConflict compares each of specID's tasks against the last completed
// assignment record the Workflow State Manager holds for it: if both sides
// recorded a completion and their timestamps disagree by more than a
// second, neither side can be unilaterally trusted.
func (e *Engine) detectConflict(graph *specgraph.Graph, specID string) (ConflictRecord, bool) {
	spec, ok := graph.Spec(specID)
	if !ok {
		return ConflictRecord{}, false
	}
	for _, t := range spec.Tasks {
		if t.Status != specmodel.TaskComplete || t.Completed == nil {
			continue
		}
		record, ok := e.Manager.CompletedAssignmentFor(specID, t.ID)
		if !ok || record.CompletedAt == nil {
			continue
		}
		if diff := record.CompletedAt.Sub(*t.Completed); diff > time.Second || diff < -time.Second {
			return ConflictRecord{
				SpecID: specID, TaskID: t.ID, Field: "completed_at",
				StateValue: record.CompletedAt.Format(time.RFC3339),
				SpecValue:  t.Completed.Format(time.RFC3339),
				DetectedAt: time.Now().UTC(),
			}, true
		}
	}
	return ConflictRecord{}, false
}

// recordConflict writes record under ConflictsDir and emits
// conflict_detected without mutating either side's state.
func (e *Engine) recordConflict(ctx context.Context, record ConflictRecord) error {
	if err := os.MkdirAll(e.ConflictsDir, 0o755); err != nil {
		return fmt.Errorf("creating conflicts directory: %w", err)
	}
	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling conflict record: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%d.yaml", record.SpecID, record.TaskID, record.DetectedAt.Unix())
	if err := os.WriteFile(filepath.Join(e.ConflictsDir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing conflict record: %w", err)
	}
	return e.Bus.Publish(ctx, eventbus.TopicConflictDetected, record)
}

// runHealthCheck polls every sub-component concurrently via errgroup,
// aggregates into an overall snapshot, and publishes health_check_complete.
func (e *Engine) runHealthCheck(ctx context.Context) {
	snapshot := make(map[string]Health, len(e.components))
	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range e.components {
		c := c
		eg.Go(func() error {
			h := c.check(egCtx)
			mu.Lock()
			snapshot[c.name] = h
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	overall := aggregate(snapshot)
	_ = e.Bus.Publish(ctx, eventbus.TopicHealthCheckComplete, map[string]any{
		"overall":    overall,
		"components": snapshot,
		"checkedAt":  time.Now().UTC(),
	})
}

func aggregate(snapshot map[string]Health) Health {
	if len(snapshot) == 0 {
		return HealthStopped
	}
	sawDegraded := false
	for _, h := range snapshot {
		if h == HealthFailed {
			return HealthFailed
		}
		if h == HealthDegraded {
			sawDegraded = true
		}
	}
	if sawDegraded {
		return HealthDegraded
	}
	return HealthHealthy
}

func (e *Engine) checkStoreHealth(ctx context.Context) Health {
	if _, err := e.Store.LoadAll(); err != nil {
		return HealthDegraded
	}
	return HealthHealthy
}

func (e *Engine) checkBusHealth(ctx context.Context) Health {
	snap := e.Bus.Stats.Snapshot()
	if snap.EventsDropped > 0 && snap.EventsDropped >= snap.EventsPublished/2 {
		return HealthDegraded
	}
	return HealthHealthy
}

func (e *Engine) checkWorkflowHealth(ctx context.Context) Health {
	// GetCurrentAssignments only fails by panicking on a nil manager, which
	// would indicate a wiring bug rather than a runtime health condition.
	_ = e.Manager.GetCurrentAssignments()
	return HealthHealthy
}
