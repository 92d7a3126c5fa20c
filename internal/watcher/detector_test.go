package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/mark3labs/specflow/internal/specstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, path, id, status string) {
	t.Helper()
	content := "---\nid: " + id + "\ntype: feature\nstatus: " + status + "\ntitle: Test\npriority: P1\ncreated: 2026-01-01T00:00:00Z\nupdated: 2026-01-01T00:00:00Z\n---\n\nbody\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetector_FirstSightingHasNoSemanticChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SPEC-001.md")
	writeSpec(t, path, "SPEC-001", "backlog")

	store := specstore.New(dir, 16, 0)
	d := NewDetector(store)

	a, err := d.Analyze(path, fsnotify.Write)
	require.NoError(t, err)
	assert.Equal(t, ImpactMedium, a.Impact)
	assert.Nil(t, a.StatusChange)
}

func TestDetector_StatusChangeIsHighImpact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SPEC-001.md")
	writeSpec(t, path, "SPEC-001", "backlog")

	store := specstore.New(dir, 16, 0)
	d := NewDetector(store)

	_, err := d.Analyze(path, fsnotify.Write)
	require.NoError(t, err)

	writeSpec(t, path, "SPEC-001", "active")
	a, err := d.Analyze(path, fsnotify.Write)
	require.NoError(t, err)

	require.NotNil(t, a.StatusChange)
	assert.Equal(t, ImpactHigh, a.Impact)
	assert.True(t, a.StatusChange.IsWorkflowChange)
}

func TestDetector_DeleteIsHighImpact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SPEC-001.md")
	writeSpec(t, path, "SPEC-001", "backlog")

	store := specstore.New(dir, 16, 0)
	d := NewDetector(store)
	_, err := d.Analyze(path, fsnotify.Write)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	a, err := d.Analyze(path, fsnotify.Remove)
	require.NoError(t, err)
	assert.Equal(t, ChangeDelete, a.ChangeType)
	assert.Equal(t, ImpactHigh, a.Impact)
}

func TestClassifyChangeType(t *testing.T) {
	assert.Equal(t, ChangeJSON, classifyChangeType("/tmp/SPEC-001.json", nil, nil))
	assert.Equal(t, ChangeYAML, classifyChangeType("/tmp/SPEC-001.md", nil, nil))
}

func TestDetector_BodyOnlyEditIsLowImpact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SPEC-001.md")
	writeSpecWithBody(t, path, "SPEC-001", "backlog", "original prose")

	store := specstore.New(dir, 16, 0)
	d := NewDetector(store)
	_, err := d.Analyze(path, fsnotify.Write)
	require.NoError(t, err)

	writeSpecWithBody(t, path, "SPEC-001", "backlog", "revised prose, no front-matter touched")
	a, err := d.Analyze(path, fsnotify.Write)
	require.NoError(t, err)

	assert.Equal(t, ChangeBody, a.ChangeType)
	assert.Equal(t, ImpactLow, a.Impact)
	assert.Nil(t, a.StatusChange)
}

func writeSpecWithBody(t *testing.T, path, id, status, body string) {
	t.Helper()
	content := "---\nid: " + id + "\ntype: feature\nstatus: " + status + "\ntitle: Test\npriority: P1\ncreated: 2026-01-01T00:00:00Z\nupdated: 2026-01-01T00:00:00Z\n---\n\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
