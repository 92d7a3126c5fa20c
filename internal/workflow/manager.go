package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/specflow/internal/specerrors"
	"github.com/mark3labs/specflow/internal/specmodel"
	"github.com/mark3labs/specflow/internal/specstore"
	"gopkg.in/yaml.v3"
)

// SpecPathResolver maps a spec id to the filesystem path the Spec Store
// loaded it from, so the manager can reflect state changes into front-matter.
type SpecPathResolver interface {
	PathForSpec(specID string) (string, bool)
}

// Manager is the Workflow State Manager: the sole writer of the workflow
// state document. Every mutating operation is serialized through an
// exclusive lock on the state file.
type Manager struct {
	StatePath   string
	LockTimeout time.Duration
	Store       *specstore.Store
	Paths       SpecPathResolver

	mu  sync.RWMutex // in-process read/write guard, layered under the OS file lock
	doc *Document
}

// New constructs a Manager reading/writing statePath, reflecting spec
// changes through store using paths to resolve spec id to file path.
func New(statePath string, lockTimeout time.Duration, store *specstore.Store, paths SpecPathResolver) (*Manager, error) {
	m := &Manager{StatePath: statePath, LockTimeout: lockTimeout, Store: store, Paths: paths}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.StatePath)
	if os.IsNotExist(err) {
		m.doc = newDocument()
		return nil
	}
	if err != nil {
		return specerrors.Wrap(specerrors.KindIOError, "reading workflow state", "check file permissions on "+m.StatePath, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return specerrors.Wrap(specerrors.KindIOError, "parsing workflow state", "the state file may be corrupt; restore from a backup", err)
	}
	m.doc = &doc
	return nil
}

// persist writes the current in-memory document to disk via temp file +
// rename, so a crash mid-write never leaves a half-written state file.
func (m *Manager) persist() error {
	m.doc.recompute()
	data, err := yaml.Marshal(m.doc)
	if err != nil {
		return specerrors.Wrap(specerrors.KindIOError, "marshalling workflow state", "", err)
	}
	dir := filepath.Dir(m.StatePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return specerrors.Wrap(specerrors.KindIOError, "creating workflow state directory", "", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return specerrors.Wrap(specerrors.KindIOError, "creating temp state file", "", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return specerrors.Wrap(specerrors.KindIOError, "writing temp state file", "", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return specerrors.Wrap(specerrors.KindIOError, "closing temp state file", "", err)
	}
	if err := os.Rename(tmpPath, m.StatePath); err != nil {
		os.Remove(tmpPath)
		return specerrors.Wrap(specerrors.KindIOError, "renaming temp state file into place", "", err)
	}
	return nil
}

// withLock acquires the exclusive file lock, reloads the document from disk
// (so a lock holder always observes the latest committed state), runs fn,
// and persists the result unless fn returns an error.
func (m *Manager) withLock(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.StatePath), 0o755); err != nil {
		return specerrors.Wrap(specerrors.KindIOError, "creating workflow state directory", "", err)
	}
	release, err := acquireLock(m.StatePath+".lock", m.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	if err := m.load(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return m.persist()
}

// AssignOptions are the caller-supplied options to AssignTask.
type AssignOptions struct {
	Notes string
}

// AssignTask appends a new in_progress assignment record for (specID,
// taskID, agent), reflects in_progress into the spec's task front-matter,
// and returns the new record. Fails with AlreadyAssigned if another
// in_progress record for the same (specID,taskID) already exists.
func (m *Manager) AssignTask(specID, taskID, agent string, opts AssignOptions) (*Assignment, error) {
	var result *Assignment
	err := m.withLock(func() error {
		for i := range m.doc.CurrentAssignments {
			a := &m.doc.CurrentAssignments[i]
			if a.SpecID == specID && a.TaskID == taskID && a.Status == AssignmentInProgress {
				return specerrors.Wrap(specerrors.KindAlreadyAssigned,
					fmt.Sprintf("%s/%s is already in_progress, assigned to %s", specID, taskID, a.AssignedAgent),
					"choose a different task, or wait for the current assignment to complete", nil)
			}
		}

		now := time.Now().UTC()
		record := Assignment{
			ID: uuid.NewString(), SpecID: specID, TaskID: taskID, AssignedAgent: agent,
			Status: AssignmentInProgress, AssignedAt: now, StartedAt: now, Notes: opts.Notes,
			Audit: []AuditEntry{{Event: "assigned", Timestamp: now, Payload: map[string]any{"agent": agent}}},
		}
		m.doc.CurrentAssignments = append(m.doc.CurrentAssignments, record)

		if err := m.reflectTaskStatus(specID, taskID, specmodel.TaskInProgress); err != nil {
			// roll back the in-memory append; persist() is not yet called so
			// nothing has hit disk.
			m.doc.CurrentAssignments = m.doc.CurrentAssignments[:len(m.doc.CurrentAssignments)-1]
			return err
		}

		result = &record
		return nil
	})
	return result, err
}

// CompletionOptions are the caller-supplied options to CompleteTask.
type CompletionOptions struct {
	Notes       string
	CompletedBy string
}

// Completion summarizes the result of CompleteTask.
type Completion struct {
	CompletedAt    time.Time
	DurationHours  float64
	Notes          string
}

// CompleteTask transitions the in_progress record for (specID, taskID) into
// completed_assignments, reflects complete into the spec's task
// front-matter, and returns the completion summary. Fails with
// NotInProgress if no such in_progress record exists.
func (m *Manager) CompleteTask(specID, taskID string, opts CompletionOptions) (*Completion, error) {
	var result *Completion
	err := m.withLock(func() error {
		idx := -1
		for i := range m.doc.CurrentAssignments {
			a := &m.doc.CurrentAssignments[i]
			if a.SpecID == specID && a.TaskID == taskID && a.Status == AssignmentInProgress {
				idx = i
				break
			}
		}
		if idx == -1 {
			return specerrors.Wrap(specerrors.KindNotInProgress,
				fmt.Sprintf("%s/%s has no in_progress assignment", specID, taskID),
				"call start-next to assign this task before completing it", nil)
		}

		record := m.doc.CurrentAssignments[idx]
		now := time.Now().UTC()
		completedBy := opts.CompletedBy
		if completedBy == "" {
			completedBy = record.AssignedAgent
		}
		record.Status = AssignmentComplete
		record.CompletedAt = &now
		if opts.Notes != "" {
			record.Notes = opts.Notes
		}
		record.Audit = append(record.Audit, AuditEntry{Event: "completed", Timestamp: now, Payload: map[string]any{"completedBy": completedBy}})

		if err := m.reflectTaskStatus(specID, taskID, specmodel.TaskComplete); err != nil {
			return err
		}

		m.doc.CurrentAssignments = append(m.doc.CurrentAssignments[:idx], m.doc.CurrentAssignments[idx+1:]...)
		m.doc.CompletedAssignments = append(m.doc.CompletedAssignments, record)

		result = &Completion{CompletedAt: now, DurationHours: record.DurationHours(), Notes: record.Notes}
		return nil
	})
	return result, err
}

// SetPaths swaps the spec id → path resolver, so long-lived callers (the
// State-Sync Engine, the watch command) can hand the manager a freshly
// reloaded Spec Graph after each reparse. Callers must only invoke this
// from the single-threaded dispatch loop, between operations, per the
// engine's one-writer-at-a-time scheduling model.
func (m *Manager) SetPaths(paths SpecPathResolver) {
	m.Paths = paths
}

func (m *Manager) pathFor(specID string) (string, bool) {
	return m.Paths.PathForSpec(specID)
}

// GetCurrentAssignments returns a read-only snapshot of current_assignments.
func (m *Manager) GetCurrentAssignments() []Assignment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Assignment, len(m.doc.CurrentAssignments))
	copy(out, m.doc.CurrentAssignments)
	return out
}

// CountInProgress implements router.Assignments / assignvalidator.Assignments.
func (m *Manager) CountInProgress(agent string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, a := range m.doc.CurrentAssignments {
		if a.AssignedAgent == agent && a.Status == AssignmentInProgress {
			count++
		}
	}
	return count
}

// CompletedAssignmentFor returns the most recent completed_assignments
// record for (specID, taskID), if any, so callers can compare its
// CompletedAt against an independently observed value.
func (m *Manager) CompletedAssignmentFor(specID, taskID string) (*Assignment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.doc.CompletedAssignments) - 1; i >= 0; i-- {
		a := m.doc.CompletedAssignments[i]
		if a.SpecID == specID && a.TaskID == taskID {
			return &a, true
		}
	}
	return nil, false
}

// AssignedAgent implements router.Assignments / assignvalidator.Assignments.
func (m *Manager) AssignedAgent(specID, taskID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.doc.CurrentAssignments {
		if a.SpecID == specID && a.TaskID == taskID && a.Status == AssignmentInProgress {
			return a.AssignedAgent, true
		}
	}
	return "", false
}

// SyncSpecState reconciles an externally observed spec change with
// workflow state: if the spec says a task is complete but the state says
// in_progress, the assignment is completed attributed to "external"; if the
// spec says in_progress but no record exists, a synthetic record is created.
func (m *Manager) SyncSpecState(specID string) error {
	path, ok := m.pathFor(specID)
	if !ok {
		return specerrors.New(specerrors.KindIOError, "no known file path for spec "+specID, "")
	}
	spec, _, err := m.Store.LoadPath(path)
	if err != nil {
		return specerrors.Wrap(specerrors.KindParseError, "reloading "+specID+" for sync", "", err)
	}

	return m.withLock(func() error {
		for _, t := range spec.Tasks {
			existingIdx := -1
			for i := range m.doc.CurrentAssignments {
				a := &m.doc.CurrentAssignments[i]
				if a.SpecID == specID && a.TaskID == t.ID && a.Status == AssignmentInProgress {
					existingIdx = i
					break
				}
			}

			switch {
			case t.Status == specmodel.TaskComplete && existingIdx != -1:
				record := m.doc.CurrentAssignments[existingIdx]
				now := time.Now().UTC()
				record.Status = AssignmentComplete
				record.CompletedAt = &now
				record.Audit = append(record.Audit, AuditEntry{Event: "completed", Timestamp: now, Payload: map[string]any{"completedBy": "external"}})
				m.doc.CurrentAssignments = append(m.doc.CurrentAssignments[:existingIdx], m.doc.CurrentAssignments[existingIdx+1:]...)
				m.doc.CompletedAssignments = append(m.doc.CompletedAssignments, record)

			case t.Status == specmodel.TaskInProgress && existingIdx == -1:
				now := time.Now().UTC()
				agent := t.Agent
				if agent == "" {
					agent = "external"
				}
				m.doc.CurrentAssignments = append(m.doc.CurrentAssignments, Assignment{
					ID: uuid.NewString(), SpecID: specID, TaskID: t.ID, AssignedAgent: agent,
					Status: AssignmentInProgress, AssignedAt: now, StartedAt: now,
					Notes: "synthesized from an externally observed in_progress task",
					Audit: []AuditEntry{{Event: "synced_external", Timestamp: now, Payload: map[string]any{"completedBy": "external"}}},
				})
			}
		}
		return nil
	})
}

// reflectTaskStatus rewrites taskID's status in specID's front-matter to
// status, via the Spec Store's atomic reflect path.
func (m *Manager) reflectTaskStatus(specID, taskID string, status specmodel.TaskStatus) error {
	path, ok := m.pathFor(specID)
	if !ok {
		return specerrors.New(specerrors.KindIOError, "no known file path for spec "+specID, "")
	}
	return m.Store.Reflect(path, func(spec *specmodel.Spec) error {
		t, ok := spec.TaskByID(taskID)
		if !ok {
			return specerrors.New(specerrors.KindIOError, "task "+taskID+" vanished from "+specID+" during reflection", "")
		}
		t.Status = status
		now := time.Now().UTC()
		switch status {
		case specmodel.TaskInProgress:
			t.Started = &now
		case specmodel.TaskComplete:
			t.Completed = &now
			t.Progress = 100
		}
		return nil
	})
}
