package gitinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runGit(dir, "init")
	require.NoError(t, err)
	_, err = runGit(dir, "config", "user.email", "test@test.com")
	require.NoError(t, err)
	_, err = runGit(dir, "config", "user.name", "Test")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	require.NoError(t, Stage(dir, []string{"README.md"}))
	_, err = Commit(dir, "initial commit\n")
	require.NoError(t, err)
	return dir
}

func TestGetStatus_NonGitDir(t *testing.T) {
	status, err := GetStatus(t.TempDir())
	require.NoError(t, err)
	require.Nil(t, status)
}

func TestGetStatus_CleanRepo(t *testing.T) {
	dir := initRepo(t)
	status, err := GetStatus(dir)
	require.NoError(t, err)
	require.NotNil(t, status)
	require.False(t, status.Dirty)
	require.Len(t, status.Hash, 7)
}

func TestModifiedFilesAndStage(t *testing.T) {
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello again\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("new\n"), 0o644))

	files, err := ModifiedFiles(dir)
	require.NoError(t, err)
	require.Contains(t, files, "README.md")
	require.Contains(t, files, "new.txt")

	require.NoError(t, Stage(dir, files))
	status, err := GetStatus(dir)
	require.NoError(t, err)
	require.True(t, status.Dirty)

	_, err = Commit(dir, "second commit\n")
	require.NoError(t, err)

	status, err = GetStatus(dir)
	require.NoError(t, err)
	require.False(t, status.Dirty)
}
