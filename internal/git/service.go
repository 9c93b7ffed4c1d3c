package git

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/vcs"
	gitlib "github.com/go-git/go-git/v5"
)

var (
	ErrNotRepository    = errors.New("not a git repository")
	ErrRevisionNotFound = errors.New("revision not found")
	ErrPathNotFound     = errors.New("path not found")
	ErrNotDirectory     = errors.New("not a directory")
	ErrNotFile          = errors.New("not a file")
)

// detectVCS is replaced in tests.
var detectVCS = vcs.DetectVcsFromFS

type Service struct {
	// mu serializes access to the repository; go-git object storage is not safe for concurrent use.
	mu sync.Mutex

	repo repoState
}

type repoState struct {
	*gitlib.Repository
	path string
}

// Open opens the repository at repoPath, which may be a worktree, any directory
// inside a worktree, or a bare repository.
func Open(repoPath string) (*Service, error) {
	if strings.TrimSpace(repoPath) == "" {
		return nil, fmt.Errorf("%w: no path given", ErrNotRepository)
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNotRepository, abs)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotRepository, abs)
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		slog.Debug("open repository failed", slog.String("path", abs), slog.Any("error", err))
		return nil, notRepositoryError(abs)
	}
	root := abs
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	return &Service{repo: repoState{path: root, Repository: repo}}, nil
}

func notRepositoryError(path string) error {
	if kind, err := detectVCS(path); err == nil && kind != vcs.Git {
		return fmt.Errorf("%w: %s is a %s repository", ErrNotRepository, path, kind)
	}
	return fmt.Errorf("%w: %s", ErrNotRepository, path)
}

// RepoPath returns the worktree root, or the repository directory for bare repositories.
func (s *Service) RepoPath() string {
	return s.repo.path
}

// GitDir returns the directory holding refs and objects.
func (s *Service) GitDir() string {
	dotGit := filepath.Join(s.repo.path, gitlib.GitDirName)
	if info, err := os.Stat(dotGit); err == nil && info.IsDir() {
		return dotGit
	}
	return s.repo.path
}
