package git

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultRevision is resolved when the caller passes an empty revision.
const DefaultRevision = "HEAD"

// Revision is a resolved commit together with its root tree.
type Revision struct {
	// Input is the revision text as typed by the user.
	Input  string
	Hash   string
	Commit *object.Commit

	tree *object.Tree
}

func (r *Revision) ShortHash() string {
	if len(r.Hash) < 7 {
		return r.Hash
	}
	return r.Hash[:7]
}

// ResolveRevision accepts anything go-git can parse: branch and tag names,
// full or abbreviated hashes and ancestry expressions such as HEAD~2.
func (s *Service) ResolveRevision(rev string) (*Revision, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		rev = DefaultRevision
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		slog.Debug("resolve revision failed", slog.String("rev", rev), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, rev)
	}
	commit, err := s.repo.CommitObject(*hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s does not name a commit", ErrRevisionNotFound, rev)
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", hash, err)
	}
	return &Revision{Input: rev, Hash: commit.Hash.String(), Commit: commit, tree: tree}, nil
}

// HasRevision reports whether rev resolves to a commit.
func (s *Service) HasRevision(rev string) bool {
	_, err := s.ResolveRevision(rev)
	return err == nil
}
