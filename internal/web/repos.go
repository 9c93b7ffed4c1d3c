package web

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/thiagokokada/gitview-go/internal/git"
	"github.com/thiagokokada/gitview-go/internal/watch"
)

var errRootNotAllowed = errors.New("repository is outside the allowed roots")

type repoHandle struct {
	svc     *git.Service
	watcher *watch.Watcher
}

func (h *repoHandle) close() {
	if h.watcher == nil {
		return
	}
	if err := h.watcher.Close(); err != nil {
		slog.Error("watcher close", slog.String("repo", h.svc.RepoPath()), slog.Any("error", err))
	}
}

// repoCache keeps recently used repositories open, keyed by absolute path.
// Evicted entries stop their watchers.
type repoCache struct {
	// mu makes lookup-then-open atomic so a path is never opened twice.
	mu sync.Mutex

	items      *lru.Cache[string, *repoHandle]
	allowed    func(abs string) bool
	open       func(path string) (*git.Service, error)
	autoReload bool
}

func newRepoCache(size int, autoReload bool, allowed func(string) bool) (*repoCache, error) {
	items, err := lru.NewWithEvict(size, func(path string, h *repoHandle) {
		slog.Debug("repository evicted", slog.String("path", path))
		h.close()
	})
	if err != nil {
		return nil, fmt.Errorf("repository cache: %w", err)
	}
	return &repoCache{items: items, allowed: allowed, open: git.Open, autoReload: autoReload}, nil
}

func (c *repoCache) Get(input string) (*repoHandle, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: no path given", git.ErrNotRepository)
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, err
	}
	abs = realPath(abs)
	if !c.isAllowed(abs) {
		return nil, fmt.Errorf("%w: %s", errRootNotAllowed, abs)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.items.Get(abs); ok {
		return h, nil
	}
	svc, err := c.open(abs)
	if err != nil {
		return nil, err
	}
	// Open walks up to the enclosing repository, which may lie outside the
	// allowed roots even when abs does not.
	for _, p := range []string{svc.RepoPath(), svc.GitDir()} {
		if p = realPath(p); !c.isAllowed(p) {
			return nil, fmt.Errorf("%w: %s", errRootNotAllowed, p)
		}
	}
	h := &repoHandle{svc: svc}
	if c.autoReload {
		w, err := watch.New(svc.GitDir(), watch.DefaultDelay)
		if err != nil {
			slog.Error("auto reload disabled", slog.String("repo", svc.RepoPath()), slog.Any("error", err))
		} else {
			h.watcher = w
		}
	}
	c.items.Add(abs, h)
	slog.Debug("repository opened",
		slog.String("path", abs),
		slog.String("root", svc.RepoPath()),
		slog.Int("cached", c.Len()),
	)
	return h, nil
}

func (c *repoCache) isAllowed(abs string) bool {
	return c.allowed == nil || c.allowed(abs)
}

// realPath resolves symlinks in p. Paths that do not exist are returned as is
// and fail later when opened.
func realPath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return p
}

func (c *repoCache) Len() int {
	return c.items.Len()
}

func (c *repoCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Purge()
}
