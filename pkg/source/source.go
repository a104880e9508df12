// Package source provides the file content readers used by the analyzers:
// the working tree on disk, or a committed revision of a git repository.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/panbanda/fortmap/pkg/analyzer"
)

// ErrNotInRepository is returned when a path lies outside the repository worktree.
var ErrNotInRepository = errors.New("path is not inside the repository")

// ContentSource provides file content from a specific source.
type ContentSource = analyzer.ContentSource

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// GitSource reads files as they were at a given revision.
// It is safe for concurrent use by multiple goroutines.
type GitSource struct {
	root   string
	rev    string
	commit plumbing.Hash
	tree   *object.Tree
	mu     sync.Mutex
}

// NewGit opens the repository containing dir and resolves rev
// (a branch, tag, commit SHA or expression such as HEAD~1).
func NewGit(dir, rev string) (*GitSource, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree for %s: %w", hash, err)
	}

	root := wt.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	return &GitSource{root: root, rev: rev, commit: *hash, tree: tree}, nil
}

// Commit returns the resolved commit hash.
func (g *GitSource) Commit() string {
	return g.commit.String()
}

// Read implements ContentSource. Paths may be absolute or relative to the
// current directory; they are mapped onto the repository tree.
func (g *GitSource) Read(path string) ([]byte, error) {
	rel, err := g.relative(path)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	f, err := g.tree.File(rel)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s at %s: %w", rel, g.rev, os.ErrNotExist)
		}
		return nil, fmt.Errorf("%s at %s: %w", rel, g.rev, err)
	}

	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", rel, g.rev, err)
	}
	return []byte(content), nil
}

func (g *GitSource) relative(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	// The file may not exist in the working tree, so resolve its directory.
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}

	rel, err := filepath.Rel(g.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrNotInRepository)
	}
	return filepath.ToSlash(rel), nil
}
