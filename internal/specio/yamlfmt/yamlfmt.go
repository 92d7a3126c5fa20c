// Package yamlfmt implements the specio.Format contract for the primary spec
// file shape: a "---" delimited YAML front-matter block followed by a
// markdown body.
package yamlfmt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mark3labs/specflow/internal/specio"
	"github.com/mark3labs/specflow/internal/specio/mdfmt"
	"github.com/mark3labs/specflow/internal/specmodel"
	"gopkg.in/yaml.v3"
)

type rawSubtask struct {
	Description string `yaml:"description"`
	Completed   bool   `yaml:"completed"`
}

type rawTask struct {
	ID                  string       `yaml:"id"`
	Title               string       `yaml:"title"`
	Status              string       `yaml:"status"`
	Agent               string       `yaml:"agent"`
	Effort              string       `yaml:"effort,omitempty"`
	Progress            int          `yaml:"progress"`
	Started             string       `yaml:"started,omitempty"`
	Completed           string       `yaml:"completed,omitempty"`
	EstimatedCompletion string       `yaml:"estimated_completion,omitempty"`
	DependsOn           []string     `yaml:"depends_on,omitempty"`
	Subtasks            []rawSubtask `yaml:"subtasks,omitempty"`
}

type rawSpec struct {
	ID       string   `yaml:"id"`
	Type     string   `yaml:"type"`
	Status   string   `yaml:"status"`
	Title    string   `yaml:"title"`
	Priority string   `yaml:"priority"`
	Effort   string   `yaml:"effort,omitempty"`
	Assignee string   `yaml:"assignee,omitempty"`
	Phase    string   `yaml:"phase,omitempty"`
	Created  string   `yaml:"created,omitempty"`
	Updated  string   `yaml:"updated,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`

	Dependencies []string `yaml:"dependencies,omitempty"`
	Blocking     []string `yaml:"blocking,omitempty"`
	Related      []string `yaml:"related,omitempty"`

	Tasks []rawTask `yaml:"tasks,omitempty"`

	AcceptanceCriteria string `yaml:"acceptance_criteria,omitempty"`
	TechnicalNotes     string `yaml:"technical_notes,omitempty"`

	BugSeverity       string   `yaml:"bugSeverity,omitempty"`
	ReproductionSteps []string `yaml:"reproductionSteps,omitempty"`
	ResearchQuestion  string   `yaml:"researchQuestion,omitempty"`
}

// Format implements specio.Format for YAML-front-matter + markdown documents.
type Format struct{}

var _ specio.Format = Format{}

func (Format) SupportedExtensions() []string { return []string{".md", ".markdown"} }

func (Format) CanParse(content []byte) bool {
	_, _, ok := mdfmt.SplitFrontMatter(content)
	return ok
}

func (f Format) Parse(content []byte, meta specio.FileMeta) (*specmodel.Spec, []specio.ParseWarning, error) {
	var warnings []specio.ParseWarning

	front, body, ok := mdfmt.SplitFrontMatter(content)
	if !ok {
		return nil, nil, fmt.Errorf("%s: no parseable front-matter delimiter", meta.Path)
	}

	var raw rawSpec
	if err := yaml.Unmarshal(front, &raw); err != nil {
		return nil, nil, fmt.Errorf("%s: invalid front-matter yaml: %w", meta.Path, err)
	}

	spec := &specmodel.Spec{
		Path:               meta.Path,
		Title:              raw.Title,
		Effort:             raw.Effort,
		Assignee:           raw.Assignee,
		Phase:              raw.Phase,
		Dependencies:       raw.Dependencies,
		Blocking:           raw.Blocking,
		Related:            raw.Related,
		AcceptanceCriteria: raw.AcceptanceCriteria,
		TechnicalNotes:     raw.TechnicalNotes,
		Type:               specmodel.Type(raw.Type),
		Status:             specmodel.Status(raw.Status),
		Priority:           specmodel.Priority(raw.Priority),
		Tags:               map[string]struct{}{},
		Description:        strings.TrimSpace(bodyDescription(body)),
	}

	spec.ID = raw.ID
	if spec.ID == "" {
		if m := specmodel.FilenameIDPattern.FindStringSubmatch(basename(meta.Path)); m != nil {
			spec.ID = strings.ToUpper(m[1])
			warnings = append(warnings, specio.ParseWarning{Field: "id", Message: "id derived from filename"})
		}
	}

	for _, t := range raw.Tags {
		spec.Tags[t] = struct{}{}
	}

	if created, okDate := parseDate(raw.Created); okDate && created != nil {
		spec.Created = *created
	} else if !okDate {
		warnings = append(warnings, specio.ParseWarning{Field: "created", Message: "unparseable date"})
	}
	if updated, okDate := parseDate(raw.Updated); okDate && updated != nil {
		spec.Updated = *updated
	} else if !okDate {
		warnings = append(warnings, specio.ParseWarning{Field: "updated", Message: "unparseable date"})
	}

	if raw.BugSeverity != "" || len(raw.ReproductionSteps) > 0 {
		spec.Bug = &specmodel.BugDetails{Severity: raw.BugSeverity, ReproductionSteps: raw.ReproductionSteps}
	}
	if raw.ResearchQuestion != "" {
		spec.Spike = &specmodel.SpikeDetails{ResearchQuestion: raw.ResearchQuestion}
	}

	fmTasks := make(map[string]specmodel.Task, len(raw.Tasks))
	var order []string
	for _, rt := range raw.Tasks {
		task := specmodel.Task{
			ID:        rt.ID,
			Title:     rt.Title,
			Status:    specmodel.TaskStatus(rt.Status),
			Agent:     rt.Agent,
			Effort:    rt.Effort,
			Progress:  rt.Progress,
			DependsOn: rt.DependsOn,
			SpecID:    spec.ID,
			Source:    specmodel.SourceFrontMatter,
		}
		for _, st := range rt.Subtasks {
			task.Subtasks = append(task.Subtasks, specmodel.Subtask{Description: st.Description, Completed: st.Completed})
		}
		if started, okDate := parseDate(rt.Started); okDate {
			task.Started = started
		} else {
			warnings = append(warnings, specio.ParseWarning{Field: rt.ID + ".started", Message: "unparseable date"})
		}
		if completed, okDate := parseDate(rt.Completed); okDate {
			task.Completed = completed
		} else {
			warnings = append(warnings, specio.ParseWarning{Field: rt.ID + ".completed", Message: "unparseable date"})
		}
		if est, okDate := parseDate(rt.EstimatedCompletion); okDate {
			task.EstimatedCompletion = est
		} else {
			warnings = append(warnings, specio.ParseWarning{Field: rt.ID + ".estimated_completion", Message: "unparseable date"})
		}
		fmTasks[rt.ID] = task
		order = append(order, rt.ID)
	}

	// Merge body-declared tasks; front-matter wins on conflict.
	for _, bt := range mdfmt.ExtractBodyTasks(body) {
		if _, exists := fmTasks[bt.ID]; exists {
			continue
		}
		task := specmodel.Task{ID: bt.ID, Title: bt.Title, Status: specmodel.TaskReady, SpecID: spec.ID, Source: specmodel.SourceBody}
		for _, st := range bt.Subtasks {
			task.Subtasks = append(task.Subtasks, specmodel.Subtask{Description: st.Description, Completed: st.Completed})
		}
		fmTasks[bt.ID] = task
		order = append(order, bt.ID)
	}

	for _, id := range order {
		spec.Tasks = append(spec.Tasks, fmTasks[id])
	}

	return spec, warnings, nil
}

func (f Format) Serialize(spec *specmodel.Spec) ([]byte, error) {
	raw := rawSpec{
		ID:                 spec.ID,
		Type:                string(spec.Type),
		Status:              string(spec.Status),
		Title:               spec.Title,
		Priority:            string(spec.Priority),
		Effort:              spec.Effort,
		Assignee:            spec.Assignee,
		Phase:               spec.Phase,
		Created:             formatDate(&spec.Created),
		Updated:             formatDate(&spec.Updated),
		Tags:                spec.TagList(),
		Dependencies:        spec.Dependencies,
		Blocking:            spec.Blocking,
		Related:             spec.Related,
		AcceptanceCriteria:  spec.AcceptanceCriteria,
		TechnicalNotes:       spec.TechnicalNotes,
	}
	if spec.Bug != nil {
		raw.BugSeverity = spec.Bug.Severity
		raw.ReproductionSteps = spec.Bug.ReproductionSteps
	}
	if spec.Spike != nil {
		raw.ResearchQuestion = spec.Spike.ResearchQuestion
	}
	for _, t := range spec.Tasks {
		rt := rawTask{
			ID:        t.ID,
			Title:     t.Title,
			Status:    string(t.Status),
			Agent:     t.Agent,
			Effort:    t.Effort,
			Progress:  t.Progress,
			DependsOn: t.DependsOn,
			Started:   formatDate(t.Started),
			Completed: formatDate(t.Completed),
		}
		if t.EstimatedCompletion != nil {
			rt.EstimatedCompletion = formatDate(t.EstimatedCompletion)
		}
		for _, st := range t.Subtasks {
			rt.Subtasks = append(rt.Subtasks, rawSubtask{Description: st.Description, Completed: st.Completed})
		}
		raw.Tasks = append(raw.Tasks, rt)
	}

	front, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshalling front-matter: %w", err)
	}

	var body bytes.Buffer
	if spec.Description != "" {
		body.WriteString(spec.Description)
		body.WriteString("\n\n")
	}
	return mdfmt.JoinFrontMatter(front, body.Bytes()), nil
}

func bodyDescription(body []byte) string {
	// Only the prose lead-in before the first task heading is treated as
	// the structured description; task headings and their bodies are
	// parsed separately by ExtractBodyTasks.
	text := string(body)
	if idx := strings.Index(text, "### TASK-"); idx >= 0 {
		text = text[:idx]
	}
	return text
}

func basename(path string) string {
	if idx := strings.LastIndexAny(path, "/\\"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
