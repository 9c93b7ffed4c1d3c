package git

import (
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
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *gitlib.Repository
	wt   *gitlib.Worktree
	when time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	return &testRepo{t: t, dir: dir, repo: repo, wt: wt, when: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (r *testRepo) write(name, content string) {
	r.t.Helper()
	full := filepath.Join(r.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", name, err)
	}
	if _, err := r.wt.Add(name); err != nil {
		r.t.Fatalf("add %s: %v", name, err)
	}
}

func (r *testRepo) symlink(name, target string) {
	r.t.Helper()
	if err := os.Symlink(target, filepath.Join(r.dir, filepath.FromSlash(name))); err != nil {
		r.t.Fatalf("symlink %s: %v", name, err)
	}
	if _, err := r.wt.Add(name); err != nil {
		r.t.Fatalf("add %s: %v", name, err)
	}
}

// gitlink commits a root-level submodule entry on top of HEAD by writing the
// tree directly; the worktree only stages gitlinks of checked out submodules.
func (r *testRepo) gitlink(name, target, msg string) string {
	r.t.Helper()
	head, err := r.repo.Head()
	if err != nil {
		r.t.Fatalf("Head: %v", err)
	}
	parent, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		r.t.Fatalf("CommitObject: %v", err)
	}
	tree, err := parent.Tree()
	if err != nil {
		r.t.Fatalf("Tree: %v", err)
	}
	entries := append(slices.Clone(tree.Entries), object.TreeEntry{
		Name: name,
		Mode: filemode.Submodule,
		Hash: plumbing.NewHash(target),
	})
	slices.SortFunc(entries, func(a, b object.TreeEntry) int {
		return strings.Compare(gitSortName(a), gitSortName(b))
	})
	treeHash := r.store(&object.Tree{Entries: entries})

	r.when = r.when.Add(time.Minute)
	sig := object.Signature{Name: "Alice", Email: "alice@example.com", When: r.when}
	hash := r.store(&object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      msg,
		TreeHash:     treeHash,
		ParentHashes: []plumbing.Hash{parent.Hash},
	})
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(head.Name(), hash)); err != nil {
		r.t.Fatalf("SetReference: %v", err)
	}
	return hash.String()
}

func (r *testRepo) store(obj interface {
	Encode(plumbing.EncodedObject) error
}) plumbing.Hash {
	r.t.Helper()
	enc := r.repo.Storer.NewEncodedObject()
	if err := obj.Encode(enc); err != nil {
		r.t.Fatalf("encode: %v", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(enc)
	if err != nil {
		r.t.Fatalf("store: %v", err)
	}
	return hash
}

func gitSortName(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

func (r *testRepo) remove(name string) {
	r.t.Helper()
	if _, err := r.wt.Remove(name); err != nil {
		r.t.Fatalf("remove %s: %v", name, err)
	}
}

func (r *testRepo) commit(msg string) string {
	r.t.Helper()
	r.when = r.when.Add(time.Minute)
	sig := &object.Signature{Name: "Alice", Email: "alice@example.com", When: r.when}
	hash, err := r.wt.Commit(msg, &gitlib.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	return hash.String()
}

func (r *testRepo) tag(name, hash string, annotated bool) {
	r.t.Helper()
	var opts *gitlib.CreateTagOptions
	if annotated {
		opts = &gitlib.CreateTagOptions{
			Tagger:  &object.Signature{Name: "Alice", Email: "alice@example.com", When: r.when},
			Message: "release " + name,
		}
	}
	if _, err := r.repo.CreateTag(name, plumbing.NewHash(hash), opts); err != nil {
		r.t.Fatalf("tag %s: %v", name, err)
	}
}

func (r *testRepo) open() *Service {
	r.t.Helper()
	svc, err := Open(r.dir)
	if err != nil {
		r.t.Fatalf("Open: %v", err)
	}
	return svc
}

func (r *testRepo) resolve(svc *Service, rev string) *Revision {
	r.t.Helper()
	resolved, err := svc.ResolveRevision(rev)
	if err != nil {
		r.t.Fatalf("ResolveRevision(%q): %v", rev, err)
	}
	return resolved
}
