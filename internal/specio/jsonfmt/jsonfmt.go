// Package jsonfmt implements the specio.Format contract for JSON-shaped spec
// documents. The document's JSON Schema is generated with
// github.com/invopop/jsonschema (the same reflector call the pack's llm
// client package uses to describe structured tool arguments) and exposed so
// external tooling or a `specflow schema` command can validate documents
// before they reach the engine. Parse itself only decodes the JSON: it does
// not check a document against the schema's required fields or enums.
package jsonfmt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/specflow/internal/specio"
	"github.com/mark3labs/specflow/internal/specmodel"
)

type jsonSubtask struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type jsonTask struct {
	ID                  string        `json:"id"`
	Title               string        `json:"title"`
	Status              string        `json:"status"`
	Agent               string        `json:"agent"`
	Effort              string        `json:"effort,omitempty"`
	Progress            int           `json:"progress"`
	Started             string        `json:"started,omitempty"`
	Completed           string        `json:"completed,omitempty"`
	EstimatedCompletion string        `json:"estimated_completion,omitempty"`
	DependsOn           []string      `json:"depends_on,omitempty"`
	Subtasks            []jsonSubtask `json:"subtasks,omitempty"`
}

// Document is the JSON-shaped spec document schema. It is also the type
// reflected into a JSON Schema by Schema.
type Document struct {
	ID       string   `json:"id" jsonschema:"required,pattern=^[A-Z]+-\\d{3}$"`
	Type     string   `json:"type" jsonschema:"required,enum=feature,enum=bug,enum=research-spike,enum=maintenance,enum=release"`
	Status   string   `json:"status" jsonschema:"required,enum=draft,enum=backlog,enum=active,enum=done,enum=blocked,enum=archived"`
	Title    string   `json:"title" jsonschema:"required"`
	Priority string   `json:"priority" jsonschema:"required,enum=P0,enum=P1,enum=P2,enum=P3"`
	Effort   string   `json:"effort,omitempty"`
	Assignee string   `json:"assignee,omitempty"`
	Phase    string   `json:"phase,omitempty"`
	Created  string   `json:"created,omitempty"`
	Updated  string   `json:"updated,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	Dependencies []string `json:"dependencies,omitempty"`
	Blocking     []string `json:"blocking,omitempty"`
	Related      []string `json:"related,omitempty"`

	Tasks []jsonTask `json:"tasks,omitempty"`

	Description        string `json:"description,omitempty"`
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
	TechnicalNotes      string `json:"technical_notes,omitempty"`

	BugSeverity       string   `json:"bugSeverity,omitempty"`
	ReproductionSteps []string `json:"reproductionSteps,omitempty"`
	ResearchQuestion  string   `json:"researchQuestion,omitempty"`
}

// Schema returns the JSON Schema for the JSON-shaped spec document.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{AllowAdditionalProperties: true, DoNotReference: true}
	return reflector.Reflect(&Document{})
}

// Format implements specio.Format for plain-JSON spec documents.
type Format struct{}

var _ specio.Format = Format{}

func (Format) SupportedExtensions() []string { return []string{".json"} }

func (Format) CanParse(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func (f Format) Parse(content []byte, meta specio.FileMeta) (*specmodel.Spec, []specio.ParseWarning, error) {
	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, nil, fmt.Errorf("%s: invalid json: %w", meta.Path, err)
	}

	var warnings []specio.ParseWarning
	if doc.ID == "" {
		if m := specmodel.FilenameIDPattern.FindStringSubmatch(basename(meta.Path)); m != nil {
			doc.ID = strings.ToUpper(m[1])
			warnings = append(warnings, specio.ParseWarning{Field: "id", Message: "id derived from filename"})
		}
	}

	spec := &specmodel.Spec{
		Path:                meta.Path,
		ID:                  doc.ID,
		Type:                specmodel.Type(doc.Type),
		Status:              specmodel.Status(doc.Status),
		Title:               doc.Title,
		Priority:            specmodel.Priority(doc.Priority),
		Effort:              doc.Effort,
		Assignee:            doc.Assignee,
		Phase:               doc.Phase,
		Tags:                map[string]struct{}{},
		Dependencies:        doc.Dependencies,
		Blocking:            doc.Blocking,
		Related:             doc.Related,
		Description:         doc.Description,
		AcceptanceCriteria:  doc.AcceptanceCriteria,
		TechnicalNotes:      doc.TechnicalNotes,
	}
	for _, t := range doc.Tags {
		spec.Tags[t] = struct{}{}
	}
	if created, err := time.Parse(time.RFC3339, doc.Created); err == nil {
		spec.Created = created
	} else if doc.Created != "" {
		warnings = append(warnings, specio.ParseWarning{Field: "created", Message: "unparseable date"})
	}
	if updated, err := time.Parse(time.RFC3339, doc.Updated); err == nil {
		spec.Updated = updated
	} else if doc.Updated != "" {
		warnings = append(warnings, specio.ParseWarning{Field: "updated", Message: "unparseable date"})
	}
	if doc.BugSeverity != "" || len(doc.ReproductionSteps) > 0 {
		spec.Bug = &specmodel.BugDetails{Severity: doc.BugSeverity, ReproductionSteps: doc.ReproductionSteps}
	}
	if doc.ResearchQuestion != "" {
		spec.Spike = &specmodel.SpikeDetails{ResearchQuestion: doc.ResearchQuestion}
	}
	for _, jt := range doc.Tasks {
		task := specmodel.Task{
			ID: jt.ID, Title: jt.Title, Status: specmodel.TaskStatus(jt.Status),
			Agent: jt.Agent, Effort: jt.Effort, Progress: jt.Progress,
			DependsOn: jt.DependsOn, SpecID: spec.ID, Source: specmodel.SourceFrontMatter,
		}
		for _, st := range jt.Subtasks {
			task.Subtasks = append(task.Subtasks, specmodel.Subtask{Description: st.Description, Completed: st.Completed})
		}
		if jt.Started != "" {
			if t, err := time.Parse(time.RFC3339, jt.Started); err == nil {
				task.Started = &t
			}
		}
		if jt.Completed != "" {
			if t, err := time.Parse(time.RFC3339, jt.Completed); err == nil {
				task.Completed = &t
			}
		}
		if jt.EstimatedCompletion != "" {
			if t, err := time.Parse(time.RFC3339, jt.EstimatedCompletion); err == nil {
				task.EstimatedCompletion = &t
			}
		}
		spec.Tasks = append(spec.Tasks, task)
	}

	return spec, warnings, nil
}

func (f Format) Serialize(spec *specmodel.Spec) ([]byte, error) {
	doc := Document{
		ID: spec.ID, Type: string(spec.Type), Status: string(spec.Status), Title: spec.Title,
		Priority: string(spec.Priority), Effort: spec.Effort, Assignee: spec.Assignee, Phase: spec.Phase,
		Tags: spec.TagList(), Dependencies: spec.Dependencies, Blocking: spec.Blocking, Related: spec.Related,
		Description: spec.Description, AcceptanceCriteria: spec.AcceptanceCriteria, TechnicalNotes: spec.TechnicalNotes,
	}
	if !spec.Created.IsZero() {
		doc.Created = spec.Created.UTC().Format(time.RFC3339)
	}
	if !spec.Updated.IsZero() {
		doc.Updated = spec.Updated.UTC().Format(time.RFC3339)
	}
	if spec.Bug != nil {
		doc.BugSeverity = spec.Bug.Severity
		doc.ReproductionSteps = spec.Bug.ReproductionSteps
	}
	if spec.Spike != nil {
		doc.ResearchQuestion = spec.Spike.ResearchQuestion
	}
	for _, t := range spec.Tasks {
		jt := jsonTask{ID: t.ID, Title: t.Title, Status: string(t.Status), Agent: t.Agent, Effort: t.Effort, Progress: t.Progress, DependsOn: t.DependsOn}
		for _, st := range t.Subtasks {
			jt.Subtasks = append(jt.Subtasks, jsonSubtask{Description: st.Description, Completed: st.Completed})
		}
		if t.Started != nil {
			jt.Started = t.Started.UTC().Format(time.RFC3339)
		}
		if t.Completed != nil {
			jt.Completed = t.Completed.UTC().Format(time.RFC3339)
		}
		if t.EstimatedCompletion != nil {
			jt.EstimatedCompletion = t.EstimatedCompletion.UTC().Format(time.RFC3339)
		}
		doc.Tasks = append(doc.Tasks, jt)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func basename(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
