package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ContentSource = (*FilesystemSource)(nil)
	_ ContentSource = (*GitSource)(nil)
)

func TestFilesystemSource(t *testing.T) {
	src := NewFilesystem()

	content, err := src.Read("../../go.mod")
	require.NoError(t, err)
	assert.Contains(t, string(content), "module github.com/panbanda/fortmap")

	_, err = src.Read("nonexistent.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// initRepo creates a repository with two commits of solver.f.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(content, msg string) {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "solver.f"), []byte(content), 0644))
		_, err := wt.Add("src/solver.f")
		require.NoError(t, err)
		_, err = wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
		})
		require.NoError(t, err)
	}

	commit("      call first(1)\n", "first")
	commit("      call second(1)\n", "second")
	return dir
}

func TestGitSource(t *testing.T) {
	dir := initRepo(t)
	path := filepath.Join(dir, "src", "solver.f")

	// Uncommitted edits are not visible at a revision.
	require.NoError(t, os.WriteFile(path, []byte("      call dirty(1)\n"), 0644))

	head, err := NewGit(dir, "HEAD")
	require.NoError(t, err)
	assert.Len(t, head.Commit(), 40)

	content, err := head.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "      call second(1)\n", string(content))

	prev, err := NewGit(filepath.Join(dir, "src"), "HEAD~1")
	require.NoError(t, err)
	content, err = prev.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "      call first(1)\n", string(content))
}

func TestGitSource_MissingFile(t *testing.T) {
	dir := initRepo(t)
	src, err := NewGit(dir, "HEAD")
	require.NoError(t, err)

	_, err = src.Read(filepath.Join(dir, "src", "absent.f"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGitSource_OutsideRepository(t *testing.T) {
	dir := initRepo(t)
	src, err := NewGit(dir, "HEAD")
	require.NoError(t, err)

	_, err = src.Read(filepath.Join(t.TempDir(), "other.f"))
	assert.True(t, errors.Is(err, ErrNotInRepository), "got %v", err)
}

func TestNewGit_Errors(t *testing.T) {
	_, err := NewGit(t.TempDir(), "HEAD")
	assert.Error(t, err, "directory without a repository")

	dir := initRepo(t)
	_, err = NewGit(dir, "no-such-branch")
	assert.Error(t, err)
}
