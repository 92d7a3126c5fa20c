package yamlfmt

import (
	"testing"

	"github.com/mark3labs/specflow/internal/specio"
	"github.com/mark3labs/specflow/internal/specmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `---
id: FEAT-001
type: feature
status: active
title: Add login flow
priority: P1
tags:
  - backend
  - auth
dependencies:
  - FEAT-000
created: 2026-01-10T00:00:00Z
updated: 2026-01-12T00:00:00Z
tasks:
  - id: TASK-001
    title: Build the handler
    status: ready
    agent: backend
    progress: 0
---
A short description paragraph.

### TASK-002: Body-declared task

- [x] Something already done
`

func TestFormat_CanParse(t *testing.T) {
	f := Format{}
	assert.True(t, f.CanParse([]byte(fixture)))
	assert.False(t, f.CanParse([]byte("no front matter")))
}

func TestFormat_Parse_PopulatesFields(t *testing.T) {
	f := Format{}
	spec, warnings, err := f.Parse([]byte(fixture), specio.FileMeta{Path: "active/feat-001-example.md"})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "FEAT-001", spec.ID)
	assert.Equal(t, specmodel.TypeFeature, spec.Type)
	assert.Equal(t, specmodel.StatusActive, spec.Status)
	assert.Equal(t, specmodel.PriorityP1, spec.Priority)
	assert.Equal(t, []string{"FEAT-000"}, spec.Dependencies)
	assert.True(t, spec.HasTag("backend"))
	assert.True(t, spec.HasTag("auth"))
	assert.Equal(t, "A short description paragraph.", spec.Description)

	require.Len(t, spec.Tasks, 2)
	assert.Equal(t, "TASK-001", spec.Tasks[0].ID)
	assert.Equal(t, specmodel.SourceFrontMatter, spec.Tasks[0].Source)
	assert.Equal(t, "TASK-002", spec.Tasks[1].ID)
	assert.Equal(t, specmodel.SourceBody, spec.Tasks[1].Source)
}

func TestFormat_Parse_DerivesIDFromFilenameWhenMissing(t *testing.T) {
	f := Format{}
	doc := "---\ntype: feature\nstatus: active\ntitle: Untitled\npriority: P2\n---\nbody\n"
	spec, warnings, err := f.Parse([]byte(doc), specio.FileMeta{Path: "active/feat-002-untitled.md"})
	require.NoError(t, err)
	assert.Equal(t, "FEAT-002", spec.ID)
	assert.Len(t, warnings, 1)
	assert.Equal(t, "id", warnings[0].Field)
}

func TestFormat_Parse_FrontMatterTaskWinsOverBodyTaskWithSameID(t *testing.T) {
	doc := `---
id: FEAT-003
type: feature
status: active
title: Conflict test
priority: P2
tasks:
  - id: TASK-001
    title: From front matter
    status: in_progress
    agent: backend
    progress: 50
---
### TASK-001: From body

- [ ] Ignored
`
	f := Format{}
	spec, _, err := f.Parse([]byte(doc), specio.FileMeta{Path: "active/feat-003.md"})
	require.NoError(t, err)
	require.Len(t, spec.Tasks, 1)
	assert.Equal(t, "From front matter", spec.Tasks[0].Title)
	assert.Equal(t, specmodel.TaskInProgress, spec.Tasks[0].Status)
}

func TestFormat_Parse_MissingFrontMatterDelimiterErrors(t *testing.T) {
	f := Format{}
	_, _, err := f.Parse([]byte("no front matter at all"), specio.FileMeta{Path: "x.md"})
	assert.Error(t, err)
}

func TestFormat_SerializeThenParse_RoundTrips(t *testing.T) {
	f := Format{}
	original := &specmodel.Spec{
		ID:       "FEAT-004",
		Type:     specmodel.TypeFeature,
		Status:   specmodel.StatusBacklog,
		Title:    "Round trip test",
		Priority: specmodel.PriorityP2,
		Tags:     map[string]struct{}{"x": {}},
	}

	data, err := f.Serialize(original)
	require.NoError(t, err)

	reparsed, _, err := f.Parse(data, specio.FileMeta{Path: "backlog/feat-004.md"})
	require.NoError(t, err)
	assert.Equal(t, original.ID, reparsed.ID)
	assert.Equal(t, original.Type, reparsed.Type)
	assert.Equal(t, original.Status, reparsed.Status)
	assert.Equal(t, original.Priority, reparsed.Priority)
	assert.True(t, reparsed.HasTag("x"))
}
