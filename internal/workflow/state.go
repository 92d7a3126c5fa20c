// Package workflow implements the Workflow State Manager: the single writer
// of the durable workflow state document, with transactional
// assignment/completion operations and reconciliation against spec files.
package workflow

import "time"

// AssignmentStatus is the lifecycle state of an Assignment record.
type AssignmentStatus string

const (
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentComplete   AssignmentStatus = "complete"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

// AuditEntry is one append-only trail entry inside an Assignment.
type AuditEntry struct {
	Event     string         `yaml:"event" json:"event"`
	Timestamp time.Time      `yaml:"ts" json:"ts"`
	Payload   map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// Assignment is a durable record linking (spec, task, agent).
type Assignment struct {
	ID            string           `yaml:"id" json:"id"`
	SpecID        string           `yaml:"spec_id" json:"spec_id"`
	TaskID        string           `yaml:"task_id" json:"task_id"`
	AssignedAgent string           `yaml:"assigned_agent" json:"assigned_agent"`
	Status        AssignmentStatus `yaml:"status" json:"status"`
	AssignedAt    time.Time        `yaml:"assigned_at" json:"assigned_at"`
	StartedAt     time.Time        `yaml:"started_at" json:"started_at"`
	CompletedAt   *time.Time       `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
	Notes         string           `yaml:"notes,omitempty" json:"notes,omitempty"`
	Audit         []AuditEntry     `yaml:"audit,omitempty" json:"audit,omitempty"`
}

// DurationHours returns the wall-clock duration between StartedAt and
// CompletedAt in hours, or zero if not yet completed.
func (a *Assignment) DurationHours() float64 {
	if a.CompletedAt == nil {
		return 0
	}
	return a.CompletedAt.Sub(a.StartedAt).Hours()
}

// ProjectProgress is the derived cache kept alongside the assignment lists.
type ProjectProgress struct {
	TotalAssignments     int `yaml:"total_assignments" json:"total_assignments"`
	CompletedAssignments int `yaml:"completed_assignments" json:"completed_assignments"`
}

// Document is the on-disk workflow state schema.
type Document struct {
	Version               int              `yaml:"version" json:"version"`
	CurrentAssignments    []Assignment     `yaml:"current_assignments" json:"current_assignments"`
	CompletedAssignments  []Assignment     `yaml:"completed_assignments" json:"completed_assignments"`
	ProjectProgress       ProjectProgress  `yaml:"project_progress" json:"project_progress"`
}

const documentVersion = 1

func newDocument() *Document {
	return &Document{Version: documentVersion}
}

func (d *Document) recompute() {
	d.ProjectProgress = ProjectProgress{
		TotalAssignments:     len(d.CurrentAssignments) + len(d.CompletedAssignments),
		CompletedAssignments: len(d.CompletedAssignments),
	}
}
