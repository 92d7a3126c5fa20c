// Package integrity implements the read-only Integrity Validator: it
// produces a structured report over a specgraph.Graph and never mutates it.
package integrity

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/mark3labs/specflow/internal/specgraph"
	"github.com/mark3labs/specflow/internal/specmodel"
)

// Severity classifies a Finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Check names one of the eight structural checks a Finding came from.
type Check string

const (
	CheckDuplicateID       Check = "duplicate-id"
	CheckFormat            Check = "format"
	CheckRequiredFields    Check = "required-fields"
	CheckFileLocation      Check = "file-location"
	CheckFilenameMatch     Check = "filename-match"
	CheckReferenceValidity Check = "reference-validity"
	CheckAcyclic           Check = "acyclic-dependencies"
	CheckTaskScope         Check = "task-dependency-scope"
	CheckTaskRegression    Check = "task-regression"
)

// Finding is a single integrity violation or warning.
type Finding struct {
	Check          Check
	Severity       Severity
	SpecID         string
	Path           string
	Message        string
	Recommendation string
}

// Report is the full output of a validation pass.
type Report struct {
	Findings []Finding
}

// HasErrors reports whether any finding in the report is an error.
func (r *Report) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ExitCode returns the CLI exit code for this report: 4 if any error
// finding is present, 0 otherwise.
func (r *Report) ExitCode() int {
	if r.HasErrors() {
		return 4
	}
	return 0
}

// Config controls the file-location check's treatment of the archived
// status, whose directory name is configurable rather than fixed to
// "archived".
type Config struct {
	ArchivedDir string
}

// Validate runs all eight structural checks over graph and returns the
// aggregate report.
func Validate(graph *specgraph.Graph, cfg Config) *Report {
	r := &Report{}

	checkDuplicateIDs(graph, r)
	for _, spec := range graph.All() {
		checkFormat(spec, r)
		checkRequiredFields(spec, r)
		checkFileLocation(spec, cfg, r)
		checkFilenameMatch(spec, r)
		checkReferenceValidity(graph, spec, r)
		checkTaskScope(graph, spec, r)
	}
	checkAcyclic(graph, r)

	return r
}

func checkDuplicateIDs(graph *specgraph.Graph, r *Report) {
	byID := make(map[string][]string)
	for _, spec := range graph.All() {
		byID[spec.ID] = append(byID[spec.ID], spec.Path)
	}
	for id, paths := range byID {
		if len(paths) > 1 {
			r.Findings = append(r.Findings, Finding{
				Check: CheckDuplicateID, Severity: SeverityError, SpecID: id,
				Message:        "id " + id + " resolves to more than one file: " + strings.Join(paths, ", "),
				Recommendation: "rename all but one file to a unique id",
			})
		}
	}
}

func checkFormat(spec *specmodel.Spec, r *Report) {
	if !specmodel.SpecIDPattern.MatchString(spec.ID) {
		r.Findings = append(r.Findings, Finding{
			Check: CheckFormat, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
			Message:        "id " + spec.ID + " does not match TYPE-### format",
			Recommendation: "rename the id to match ^[A-Z]+-\\d{3}$",
		})
	}
	if !specmodel.IsValidType(spec.Type) {
		r.Findings = append(r.Findings, Finding{
			Check: CheckFormat, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
			Message: "type " + string(spec.Type) + " is not a recognized type",
		})
	}
	if !specmodel.IsValidStatus(spec.Status) {
		r.Findings = append(r.Findings, Finding{
			Check: CheckFormat, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
			Message: "status " + string(spec.Status) + " is not a recognized status",
		})
	}
	if !specmodel.IsValidPriority(spec.Priority) {
		r.Findings = append(r.Findings, Finding{
			Check: CheckFormat, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
			Message: "priority " + string(spec.Priority) + " is not a recognized priority",
		})
	}
}

func checkRequiredFields(spec *specmodel.Spec, r *Report) {
	missing := []string{}
	if spec.ID == "" {
		missing = append(missing, "id")
	}
	if spec.Title == "" {
		missing = append(missing, "title")
	}
	if spec.Type == "" {
		missing = append(missing, "type")
	}
	if spec.Status == "" {
		missing = append(missing, "status")
	}
	if spec.Priority == "" {
		missing = append(missing, "priority")
	}
	if len(missing) > 0 {
		r.Findings = append(r.Findings, Finding{
			Check: CheckRequiredFields, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
			Message:        "missing required fields: " + strings.Join(missing, ", "),
			Recommendation: "add the missing front-matter fields",
		})
	}
}

func checkFileLocation(spec *specmodel.Spec, cfg Config, r *Report) {
	dir := filepath.Base(filepath.Dir(spec.Path))
	expected := string(spec.Status)
	if spec.Status == specmodel.StatusArchived && cfg.ArchivedDir != "" {
		expected = cfg.ArchivedDir
	}
	if dir != expected {
		r.Findings = append(r.Findings, Finding{
			Check: CheckFileLocation, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
			Message:        "directory " + dir + " does not agree with status " + string(spec.Status),
			Recommendation: "move the file into the " + expected + " directory, or update status to match",
		})
	}
}

func checkFilenameMatch(spec *specmodel.Spec, r *Report) {
	base := strings.ToLower(filepath.Base(spec.Path))
	prefix := strings.ToLower(spec.ID)
	if !strings.HasPrefix(base, prefix) {
		ext := filepath.Ext(spec.Path)
		suggested := prefix + "-" + slug.Make(spec.Title) + ext
		r.Findings = append(r.Findings, Finding{
			Check: CheckFilenameMatch, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
			Message:        "filename " + filepath.Base(spec.Path) + " does not begin with id " + spec.ID,
			Recommendation: "rename the file to " + suggested,
		})
	}
}

func checkReferenceValidity(graph *specgraph.Graph, spec *specmodel.Spec, r *Report) {
	checkRefs := func(field string, refs []string) {
		for _, ref := range refs {
			if _, ok := graph.Spec(ref); !ok {
				r.Findings = append(r.Findings, Finding{
					Check: CheckReferenceValidity, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
					Message:        field + " references unknown spec " + ref,
					Recommendation: "remove the reference or create the referenced spec",
				})
			}
		}
	}
	checkRefs("dependencies", spec.Dependencies)
	checkRefs("blocking", spec.Blocking)
	checkRefs("related", spec.Related)

	for _, t := range spec.Tasks {
		for _, dep := range t.DependsOn {
			if _, ok := graph.Task(spec.ID, dep); !ok {
				r.Findings = append(r.Findings, Finding{
					Check: CheckReferenceValidity, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
					Message:        t.ID + " depends_on references unknown task " + dep,
					Recommendation: "remove the reference or create the referenced task",
				})
			}
		}
	}
}

func checkTaskScope(graph *specgraph.Graph, spec *specmodel.Spec, r *Report) {
	for _, t := range spec.Tasks {
		for _, dep := range t.DependsOn {
			if strings.Contains(dep, ":") {
				continue // cross-spec reference, already checked by checkReferenceValidity
			}
			if _, ok := spec.TaskByID(dep); !ok {
				r.Findings = append(r.Findings, Finding{
					Check: CheckTaskScope, Severity: SeverityError, SpecID: spec.ID, Path: spec.Path,
					Message: t.ID + " depends_on " + dep + " which is not a task in this spec",
				})
			}
		}
		_ = graph
	}
}

func checkAcyclic(graph *specgraph.Graph, r *Report) {
	if cyclic, cycle := graph.HasCycle(); cyclic {
		r.Findings = append(r.Findings, Finding{
			Check: CheckAcyclic, Severity: SeverityError,
			Message:        "dependency cycle detected: " + strings.Join(cycle, " -> "),
			Recommendation: "break the cycle by removing one dependency edge",
		})
	}
}
