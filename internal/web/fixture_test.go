package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
	"github.com/thiagokokada/gitview-go/internal/config"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"

const submoduleHash = "1234567890abcdef1234567890abcdef12345678"

const (
	mainV1 = "package main\n\nfunc main() {}\n"
	mainV2 = "package main\n\nfunc main() {}\n\nfunc helper() {}\n"
)

type fixture struct {
	dir    string
	first  string
	second string
}

// newFixture builds a repository with two commits on master and a tag v1 on
// the first one. HEAD also carries a symlink and a submodule entry.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	when := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	write := func(name, content string) {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	commit := func(msg string) string {
		when = when.Add(time.Hour)
		sig := &object.Signature{Name: "Alice", Email: "alice@example.com", When: when}
		hash, err := wt.Commit(msg, &gitlib.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
		return hash.String()
	}

	write("README.md", "# Hello\n\nWelcome to the project.\n")
	write("src/main.go", mainV1)
	write("docs/guide.md", "guide\n")
	write("docs/README.md", "# Docs\n")
	write("assets/logo.png", pngHeader)
	write("data.bin", "abc\x00def")
	require.NoError(t, os.Symlink("README.md", filepath.Join(dir, "link.txt")))
	_, err = wt.Add("link.txt")
	require.NoError(t, err)
	first := commit("initial import")
	write("src/main.go", mainV2)
	commit("add helper\n\nA longer description.")
	second := amendWithGitlink(t, repo, "vendor", submoduleHash)
	_, err = repo.CreateTag("v1", plumbing.NewHash(first), nil)
	require.NoError(t, err)
	return fixture{dir: dir, first: first, second: second}
}

// amendWithGitlink rewrites HEAD so its tree also holds a submodule entry
// name pinned at target. The worktree cannot stage gitlinks without a real
// submodule checkout.
func amendWithGitlink(t *testing.T, repo *gitlib.Repository, name, target string) string {
	t.Helper()
	head, err := repo.Head()
	require.NoError(t, err)
	c, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	tree, err := c.Tree()
	require.NoError(t, err)

	entries := append(slices.Clone(tree.Entries), object.TreeEntry{
		Name: name,
		Mode: filemode.Submodule,
		Hash: plumbing.NewHash(target),
	})
	slices.SortFunc(entries, func(a, b object.TreeEntry) int {
		return strings.Compare(treeSortKey(a), treeSortKey(b))
	})
	treeObj := repo.Storer.NewEncodedObject()
	require.NoError(t, (&object.Tree{Entries: entries}).Encode(treeObj))
	treeHash, err := repo.Storer.SetEncodedObject(treeObj)
	require.NoError(t, err)

	amended := &object.Commit{
		Author:       c.Author,
		Committer:    c.Committer,
		Message:      c.Message,
		TreeHash:     treeHash,
		ParentHashes: c.ParentHashes,
	}
	commitObj := repo.Storer.NewEncodedObject()
	require.NoError(t, amended.Encode(commitObj))
	hash, err := repo.Storer.SetEncodedObject(commitObj)
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(head.Name(), hash)))
	return hash.String()
}

// treeSortKey orders entries the way git does: directories sort as if their
// name ended in a slash.
func treeSortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

func testConfig(repoPath string) config.Config {
	cfg := config.Default()
	cfg.RepoPath = repoPath
	cfg.Theme = "light"
	cfg.AutoReload = false
	return cfg
}

func newTestController(t *testing.T, cfg config.Config) *Controller {
	t.Helper()
	c, err := NewController(cfg, "test")
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func get(t *testing.T, c *Controller, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func query(pairs ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		q.Set(pairs[i], pairs[i+1])
	}
	return q.Encode()
}
