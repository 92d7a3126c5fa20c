// Package specmodel defines the core entities of the specification repository:
// specs, tasks, and their variant-specific extension payloads.
package specmodel

import (
	"sort"
	"time"
)

// Type is the variant discriminator for a Spec.
type Type string

const (
	TypeFeature     Type = "feature"
	TypeBug         Type = "bug"
	TypeSpike       Type = "research-spike"
	TypeMaintenance Type = "maintenance"
	TypeRelease     Type = "release"
)

// ValidTypes is the closed enumeration of spec variants.
var ValidTypes = []Type{TypeFeature, TypeBug, TypeSpike, TypeMaintenance, TypeRelease}

// Status is the lifecycle state of a Spec.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusBacklog   Status = "backlog"
	StatusActive    Status = "active"
	StatusDone      Status = "done"
	StatusBlocked   Status = "blocked"
	StatusArchived  Status = "archived"
)

// ValidStatuses is the closed enumeration of spec statuses.
var ValidStatuses = []Status{StatusDraft, StatusBacklog, StatusActive, StatusDone, StatusBlocked, StatusArchived}

// Priority is the urgency tier of a Spec.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// ValidPriorities is the closed enumeration of priorities, ordered highest first.
var ValidPriorities = []Priority{PriorityP0, PriorityP1, PriorityP2, PriorityP3}

// Weight returns the scoring weight used by the constraint engine's priority term.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityP0:
		return 1.0
	case PriorityP1:
		return 0.7
	case PriorityP2:
		return 0.4
	case PriorityP3:
		return 0.2
	default:
		return 0
	}
}

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskReady      TaskStatus = "ready"
	TaskInProgress TaskStatus = "in_progress"
	TaskComplete   TaskStatus = "complete"
	TaskBlocked    TaskStatus = "blocked"
)

// Subtask is a checklist item inside a Task.
type Subtask struct {
	Description string `yaml:"description" json:"description"`
	Completed   bool   `yaml:"completed" json:"completed"`
}

// Task is an ordered child work item of a Spec.
type Task struct {
	ID                   string     `yaml:"id" json:"id"`
	Title                string     `yaml:"title" json:"title"`
	Status               TaskStatus `yaml:"status" json:"status"`
	Agent                string     `yaml:"agent" json:"agent"`
	Effort               string     `yaml:"effort,omitempty" json:"effort,omitempty"`
	Progress             int        `yaml:"progress" json:"progress"`
	Started              *time.Time `yaml:"started,omitempty" json:"started,omitempty"`
	Completed            *time.Time `yaml:"completed,omitempty" json:"completed,omitempty"`
	EstimatedCompletion  *time.Time `yaml:"estimated_completion,omitempty" json:"estimated_completion,omitempty"`
	DependsOn            []string   `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Subtasks             []Subtask  `yaml:"subtasks,omitempty" json:"subtasks,omitempty"`

	// SpecID is the owning spec's id; not serialized, populated on load.
	SpecID string `yaml:"-" json:"-"`
	// Source records whether this task came from front-matter or the body
	// checklist, used to resolve merge conflicts (front-matter wins).
	Source TaskSource `yaml:"-" json:"-"`
}

// TaskSource identifies where a Task was declared.
type TaskSource int

const (
	SourceFrontMatter TaskSource = iota
	SourceBody
)

// BugDetails holds variant-specific fields for bug specs.
type BugDetails struct {
	Severity          string   `yaml:"bugSeverity,omitempty" json:"bugSeverity,omitempty"`
	ReproductionSteps []string `yaml:"reproductionSteps,omitempty" json:"reproductionSteps,omitempty"`
}

// SpikeDetails holds variant-specific fields for research-spike specs.
type SpikeDetails struct {
	ResearchQuestion string `yaml:"researchQuestion,omitempty" json:"researchQuestion,omitempty"`
}

// Spec is a uniquely identified unit of planned work.
type Spec struct {
	ID       string   `yaml:"id" json:"id"`
	Type     Type     `yaml:"type" json:"type"`
	Status   Status   `yaml:"status" json:"status"`
	Title    string   `yaml:"title" json:"title"`
	Priority Priority `yaml:"priority" json:"priority"`
	Effort   string   `yaml:"effort,omitempty" json:"effort,omitempty"`
	Assignee string   `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	Phase    string   `yaml:"phase,omitempty" json:"phase,omitempty"`

	Created time.Time `yaml:"created" json:"created"`
	Updated time.Time `yaml:"updated" json:"updated"`

	Tags         map[string]struct{} `yaml:"-" json:"-"`
	Dependencies []string            `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Blocking     []string            `yaml:"blocking,omitempty" json:"blocking,omitempty"`
	Related      []string            `yaml:"related,omitempty" json:"related,omitempty"`

	Tasks []Task `yaml:"tasks,omitempty" json:"tasks,omitempty"`

	Description        string `yaml:"description,omitempty" json:"description,omitempty"`
	AcceptanceCriteria string `yaml:"acceptance_criteria,omitempty" json:"acceptance_criteria,omitempty"`
	TechnicalNotes     string `yaml:"technical_notes,omitempty" json:"technical_notes,omitempty"`

	Bug   *BugDetails   `yaml:"-" json:"-"`
	Spike *SpikeDetails `yaml:"-" json:"-"`

	// Path is the filesystem path this spec was parsed from. Not serialized
	// as a document field; populated by the Spec Store.
	Path string `yaml:"-" json:"-"`
}

// TagList returns the spec's tags as a sorted, deterministic slice.
func (s *Spec) TagList() []string {
	out := make([]string, 0, len(s.Tags))
	for t := range s.Tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasTag reports whether the spec carries the given tag.
func (s *Spec) HasTag(tag string) bool {
	_, ok := s.Tags[tag]
	return ok
}

// TaskByID returns the task with the given id within this spec, if any.
func (s *Spec) TaskByID(taskID string) (*Task, bool) {
	for i := range s.Tasks {
		if s.Tasks[i].ID == taskID {
			return &s.Tasks[i], true
		}
	}
	return nil, false
}
