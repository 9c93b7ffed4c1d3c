package git

import (
	"cmp"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type EntryKind uint8

const (
	KindFile EntryKind = iota
	KindExecutable
	KindSymlink
	KindDir
	KindSubmodule
)

func (k EntryKind) String() string {
	switch k {
	case KindExecutable:
		return "executable"
	case KindSymlink:
		return "symlink"
	case KindDir:
		return "dir"
	case KindSubmodule:
		return "submodule"
	default:
		return "file"
	}
}

func (k EntryKind) IsDir() bool { return k == KindDir }

// HasBlob reports whether entries of this kind are stored as blobs.
func (k EntryKind) HasBlob() bool {
	return k == KindFile || k == KindExecutable || k == KindSymlink
}

func kindForMode(mode filemode.FileMode) EntryKind {
	switch mode {
	case filemode.Dir:
		return KindDir
	case filemode.Executable:
		return KindExecutable
	case filemode.Symlink:
		return KindSymlink
	case filemode.Submodule:
		return KindSubmodule
	default:
		return KindFile
	}
}

type TreeEntry struct {
	Name string
	// Path is relative to the repository root, using forward slashes.
	Path string
	Kind EntryKind
	Mode filemode.FileMode
	Hash string
	// Size is only set for blob entries.
	Size int64
}

// ListTree returns the children of dir in rev, directories first.
func (s *Service) ListTree(rev *Revision, dir string) ([]TreeEntry, error) {
	if rev == nil {
		return nil, fmt.Errorf("revision not specified")
	}
	dir, err := CleanPath(dir)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.subtree(rev.tree, dir)
	if err != nil {
		return nil, err
	}
	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entry := TreeEntry{
			Name: e.Name,
			Path: path.Join(dir, e.Name),
			Kind: kindForMode(e.Mode),
			Mode: e.Mode,
			Hash: e.Hash.String(),
		}
		if entry.Kind.HasBlob() {
			size, err := s.blobSize(e.Hash)
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", entry.Path, err)
			}
			entry.Size = size
		}
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, compareEntries)
	return entries, nil
}

// Lookup returns the entry at p, or the root directory for an empty path.
func (s *Service) Lookup(rev *Revision, p string) (TreeEntry, error) {
	if rev == nil {
		return TreeEntry{}, fmt.Errorf("revision not specified")
	}
	p, err := CleanPath(p)
	if err != nil {
		return TreeEntry{}, err
	}
	if p == "" {
		return TreeEntry{Kind: KindDir, Mode: filemode.Dir, Hash: rev.tree.Hash.String()}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := findEntry(rev.tree, p)
	if err != nil {
		return TreeEntry{}, err
	}
	entry := TreeEntry{
		Name: e.Name,
		Path: p,
		Kind: kindForMode(e.Mode),
		Mode: e.Mode,
		Hash: e.Hash.String(),
	}
	if entry.Kind.HasBlob() {
		if entry.Size, err = s.blobSize(e.Hash); err != nil {
			return TreeEntry{}, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return entry, nil
}

func (s *Service) blobSize(hash plumbing.Hash) (int64, error) {
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return 0, err
	}
	return blob.Size, nil
}

func (s *Service) subtree(root *object.Tree, dir string) (*object.Tree, error) {
	if dir == "" {
		return root, nil
	}
	entry, err := findEntry(root, dir)
	if err != nil {
		return nil, err
	}
	if entry.Mode != filemode.Dir {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	tree, err := root.Tree(dir)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", dir, err)
	}
	return tree, nil
}

func findEntry(root *object.Tree, p string) (*object.TreeEntry, error) {
	entry, err := root.FindEntry(p)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
		}
		return nil, fmt.Errorf("find %s: %w", p, err)
	}
	return entry, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, object.ErrEntryNotFound) ||
		errors.Is(err, object.ErrDirectoryNotFound) ||
		errors.Is(err, object.ErrFileNotFound) ||
		errors.Is(err, plumbing.ErrObjectNotFound)
}

func compareEntries(a, b TreeEntry) int {
	if a.Kind.IsDir() != b.Kind.IsDir() {
		if a.Kind.IsDir() {
			return -1
		}
		return 1
	}
	return cmp.Compare(a.Name, b.Name)
}

// CleanPath normalizes a repository-relative path. Empty and "." segments are
// dropped; ".." may not climb above the root.
func CleanPath(p string) (string, error) {
	var parts []string
	for seg := range strings.SplitSeq(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(parts) == 0 {
				return "", fmt.Errorf("%w: %s", ErrPathNotFound, p)
			}
			parts = parts[:len(parts)-1]
		default:
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/"), nil
}

// Ancestors returns every parent directory of p, outermost first.
func Ancestors(p string) []string {
	var dirs []string
	for i, ch := range p {
		if ch == '/' {
			dirs = append(dirs, p[:i])
		}
	}
	return dirs
}
