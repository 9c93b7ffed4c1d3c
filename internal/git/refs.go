package git

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindRemoteBranch
	RefKindTag
)

type Ref struct {
	// Hash is the peeled commit hash; annotated tags point past the tag object.
	Hash string
	Kind RefKind
	Name string // short name: main, origin/main, v1
}

// Refs lists local branches, remote branches and tags sorted by kind then name.
func (s *Service) Refs() ([]Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iter, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()
	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		var kind RefKind
		switch {
		case name.IsBranch():
			kind = RefKindBranch
		case name.IsRemote():
			kind = RefKindRemoteBranch
			if strings.HasSuffix(name.Short(), "/HEAD") {
				return nil
			}
		case name.IsTag():
			kind = RefKindTag
		default:
			return nil
		}
		hash := ref.Hash()
		if kind == RefKindTag {
			peeled, ok := s.peelTagCommitHash(hash)
			if !ok {
				return nil
			}
			hash = peeled
		}
		refs = append(refs, Ref{Hash: hash.String(), Kind: kind, Name: name.Short()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	slices.SortFunc(refs, func(a, b Ref) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return refs, nil
}

// RefLabels maps commit hashes to decorations such as "HEAD -> main" or "tag: v1".
func (s *Service) RefLabels() (map[string][]string, error) {
	refs, err := s.Refs()
	if err != nil {
		return nil, err
	}
	labels := map[string][]string{}
	for _, ref := range refs {
		label := ref.Name
		if ref.Kind == RefKindTag {
			label = "tag: " + ref.Name
		}
		labels[ref.Hash] = append(labels[ref.Hash], label)
	}
	headHash, headBranch, ok := s.headState()
	if ok {
		label := "HEAD"
		if headBranch != "" {
			label = "HEAD -> " + headBranch
		}
		labels[headHash] = append([]string{label}, labels[headHash]...)
	}
	return labels, nil
}

// HeadBranch returns the short branch name HEAD points to, or "" when detached or unborn.
func (s *Service) HeadBranch() string {
	_, branch, _ := s.headState()
	return branch
}

func (s *Service) headState() (hash string, branch string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, err := s.repo.Head()
	if err != nil || ref == nil {
		return "", "", false
	}
	if ref.Name().IsBranch() {
		branch = ref.Name().Short()
	}
	return ref.Hash().String(), branch, true
}

// peelTagCommitHash expects the caller to hold s.mu.
func (s *Service) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := s.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := s.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}
