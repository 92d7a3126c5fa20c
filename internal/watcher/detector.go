package watcher

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mark3labs/specflow/internal/specmodel"
	"github.com/mark3labs/specflow/internal/specstore"
)

// ChangeType classifies what kind of edit produced a settled event.
type ChangeType string

const (
	ChangeYAML   ChangeType = "yaml"
	ChangeBody   ChangeType = "body"
	ChangeJSON   ChangeType = "json"
	ChangeRename ChangeType = "rename"
	ChangeDelete ChangeType = "delete"
)

// Impact classifies how significant a change is.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// StatusChange records a spec status transition.
type StatusChange struct {
	From             specmodel.Status `json:"from"`
	To               specmodel.Status `json:"to"`
	IsWorkflowChange bool             `json:"isWorkflowChange"`
}

// AssignmentChange records an assignee transition.
type AssignmentChange struct {
	From      string `json:"from"`
	To        string `json:"to"`
	IsHandoff bool   `json:"isHandoff"`
}

// TaskStatusChange records one task's status transition.
type TaskStatusChange struct {
	TaskID string               `json:"taskId"`
	From   specmodel.TaskStatus `json:"from"`
	To     specmodel.TaskStatus `json:"to"`
}

// Analysis is the change_analyzed event payload.
type Analysis struct {
	Path              string             `json:"path"`
	SpecID            string             `json:"specId,omitempty"`
	ChangeType        ChangeType         `json:"changeType"`
	Impact            Impact             `json:"impact"`
	StatusChange      *StatusChange      `json:"statusChange,omitempty"`
	AssignmentChange  *AssignmentChange  `json:"assignmentChange,omitempty"`
	TaskStatusChanges []TaskStatusChange `json:"taskStatusChanges,omitempty"`
}

// Detector classifies raw filesystem events into Analysis payloads by
// comparing current content against the last-known parse of the same path.
type Detector struct {
	Store *specstore.Store

	mu       sync.Mutex
	lastSeen map[string]*specmodel.Spec
}

// NewDetector constructs a Detector backed by store for reparsing.
func NewDetector(store *specstore.Store) *Detector {
	return &Detector{Store: store, lastSeen: make(map[string]*specmodel.Spec)}
}

// Analyze classifies the settled event at path and returns its Analysis.
func (d *Detector) Analyze(path string, op fsnotify.Op) (*Analysis, error) {
	d.mu.Lock()
	previous := d.lastSeen[path]
	d.mu.Unlock()

	if op&fsnotify.Remove != 0 {
		d.mu.Lock()
		delete(d.lastSeen, path)
		d.mu.Unlock()
		return &Analysis{Path: path, ChangeType: ChangeDelete, Impact: ImpactHigh}, nil
	}
	if op&fsnotify.Rename != 0 {
		d.mu.Lock()
		delete(d.lastSeen, path)
		d.mu.Unlock()
		return &Analysis{Path: path, ChangeType: ChangeRename, Impact: ImpactHigh}, nil
	}
	if _, err := os.Stat(path); err != nil {
		return &Analysis{Path: path, ChangeType: ChangeDelete, Impact: ImpactHigh}, nil
	}

	d.Store.Invalidate(path)
	current, _, err := d.Store.LoadPath(path)
	if err != nil {
		return nil, err
	}

	a := &Analysis{Path: path, SpecID: current.ID, ChangeType: classifyChangeType(path, previous, current)}
	a.StatusChange, a.AssignmentChange, a.TaskStatusChanges = semanticChanges(previous, current)
	a.Impact = classifyImpact(a)

	d.mu.Lock()
	d.lastSeen[path] = current
	d.mu.Unlock()

	return a, nil
}

// classifyChangeType reports the kind of edit that produced this event. When
// a previous parse is known and every non-body field is unchanged, the edit
// touched only the markdown body (prose description or a body-declared
// checklist); otherwise it's classified by file extension as a front-matter
// edit.
func classifyChangeType(path string, previous, current *specmodel.Spec) ChangeType {
	if previous != nil && current != nil && frontMatterEqual(previous, current) {
		return ChangeBody
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ChangeJSON
	default:
		return ChangeYAML
	}
}

// frontMatterEqual compares every Spec field except ID, Created, Updated,
// Path and Description (the body's prose lead-in) to decide whether an edit
// was confined to the body.
func frontMatterEqual(a, b *specmodel.Spec) bool {
	if a.Type != b.Type || a.Status != b.Status || a.Priority != b.Priority ||
		a.Title != b.Title || a.Effort != b.Effort || a.Assignee != b.Assignee ||
		a.Phase != b.Phase || a.AcceptanceCriteria != b.AcceptanceCriteria ||
		a.TechnicalNotes != b.TechnicalNotes {
		return false
	}
	if !reflect.DeepEqual(a.Dependencies, b.Dependencies) ||
		!reflect.DeepEqual(a.Blocking, b.Blocking) ||
		!reflect.DeepEqual(a.Related, b.Related) ||
		!reflect.DeepEqual(a.Tags, b.Tags) ||
		!reflect.DeepEqual(a.Bug, b.Bug) ||
		!reflect.DeepEqual(a.Spike, b.Spike) {
		return false
	}
	return tasksEqual(a.Tasks, b.Tasks)
}

// tasksEqual compares task content, ignoring the SpecID/Source bookkeeping
// fields the Spec Store populates on load rather than reading from disk.
func tasksEqual(a, b []specmodel.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ta, tb := a[i], b[i]
		ta.SpecID, tb.SpecID = "", ""
		ta.Source, tb.Source = 0, 0
		if !reflect.DeepEqual(ta, tb) {
			return false
		}
	}
	return true
}

// semanticChanges diffs previous against current, returning nil fields when
// previous is unknown (first sighting of this path) or nothing changed.
func semanticChanges(previous, current *specmodel.Spec) (*StatusChange, *AssignmentChange, []TaskStatusChange) {
	if previous == nil {
		return nil, nil, nil
	}

	var statusChange *StatusChange
	if previous.Status != current.Status {
		statusChange = &StatusChange{
			From: previous.Status, To: current.Status,
			IsWorkflowChange: isWorkflowTransition(previous.Status, current.Status),
		}
	}

	var assignmentChange *AssignmentChange
	if previous.Assignee != current.Assignee {
		assignmentChange = &AssignmentChange{
			From: previous.Assignee, To: current.Assignee,
			IsHandoff: previous.Assignee != "" && current.Assignee != "" && previous.Assignee != current.Assignee,
		}
	}

	var taskChanges []TaskStatusChange
	for _, ct := range current.Tasks {
		if pt, ok := previous.TaskByID(ct.ID); ok && pt.Status != ct.Status {
			taskChanges = append(taskChanges, TaskStatusChange{TaskID: ct.ID, From: pt.Status, To: ct.Status})
		}
	}

	return statusChange, assignmentChange, taskChanges
}

// isWorkflowTransition reports whether a status change reflects the
// engine's own lifecycle progression (backlog/active/done) rather than an
// administrative relabeling (e.g. draft edits, archival bookkeeping).
func isWorkflowTransition(from, to specmodel.Status) bool {
	workflowStates := map[specmodel.Status]bool{
		specmodel.StatusBacklog: true, specmodel.StatusActive: true, specmodel.StatusDone: true,
	}
	return workflowStates[from] || workflowStates[to]
}

// classifyImpact applies the fixed rubric: any change to status/assignee
// or a task's status is high; other front-matter field changes are medium;
// body-only prose changes are low. An edit that changes only the id is not
// compared by frontMatterEqual and so counts as body-only.
func classifyImpact(a *Analysis) Impact {
	if a.StatusChange != nil || a.AssignmentChange != nil || len(a.TaskStatusChanges) > 0 {
		return ImpactHigh
	}
	if a.ChangeType == ChangeBody {
		return ImpactLow
	}
	if a.ChangeType == ChangeYAML || a.ChangeType == ChangeJSON {
		return ImpactMedium
	}
	return ImpactLow
}
