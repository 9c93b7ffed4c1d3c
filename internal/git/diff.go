package git

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"
)

const diffContextLines = 3

// ErrTooLarge is returned by FileDiff when either side exceeds the limit.
var ErrTooLarge = errors.New("file too large to diff")

// FileDiff returns the unified diff of p between the first parent of rev and
// rev itself. Root commits diff against an empty tree. An unchanged file
// yields "". When limit > 0 and either version is larger than limit bytes,
// FileDiff fails with ErrTooLarge without reading the contents.
func (s *Service) FileDiff(rev *Revision, p string, limit int64) (string, error) {
	if rev == nil {
		return "", fmt.Errorf("revision not specified")
	}
	p, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	to, err := fileFromTree(rev.tree, p)
	if err != nil {
		return "", err
	}
	var from *object.File
	if rev.Commit.NumParents() > 0 {
		parent, err := rev.Commit.Parent(0)
		if err != nil {
			return "", fmt.Errorf("read parent of %s: %w", rev.ShortHash(), err)
		}
		parentTree, err := parent.Tree()
		if err != nil {
			return "", fmt.Errorf("read parent tree of %s: %w", rev.ShortHash(), err)
		}
		if from, err = fileFromTree(parentTree, p); err != nil {
			return "", err
		}
	}
	if from == nil && to == nil {
		return "", fmt.Errorf("%w: %s", ErrPathNotFound, p)
	}
	if from != nil && to != nil && from.Hash == to.Hash {
		return "", nil
	}
	if limit > 0 {
		for _, f := range []*object.File{from, to} {
			if f != nil && f.Size > limit {
				return "", fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrTooLarge, p, f.Size, limit)
			}
		}
	}
	return renderFileDiff(p, from, to)
}

func fileFromTree(tree *object.Tree, p string) (*object.File, error) {
	if tree == nil {
		return nil, nil
	}
	f, err := tree.File(p)
	if err == object.ErrFileNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return f, nil
}

func renderFileDiff(p string, from, to *object.File) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", p, p)
	switch {
	case from == nil:
		fmt.Fprintf(&b, "new file mode %s\n", to.Mode)
	case to == nil:
		fmt.Fprintf(&b, "deleted file mode %s\n", from.Mode)
	case from.Mode != to.Mode:
		fmt.Fprintf(&b, "old mode %s\nnew mode %s\n", from.Mode, to.Mode)
	}
	isBinary, err := binaryChange(from, to)
	if err != nil {
		return "", err
	}
	if isBinary {
		b.WriteString("(binary files differ)\n")
		return b.String(), nil
	}
	fromLines, err := fileLines(from)
	if err != nil {
		return "", err
	}
	toLines, err := fileLines(to)
	if err != nil {
		return "", err
	}
	fromName, toName := "a/"+p, "b/"+p
	if from == nil {
		fromName = "/dev/null"
	}
	if to == nil {
		toName = "/dev/null"
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        fromLines,
		B:        toLines,
		FromFile: fromName,
		ToFile:   toName,
		Context:  diffContextLines,
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		b.WriteString("(no textual changes)\n")
		return b.String(), nil
	}
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func binaryChange(files ...*object.File) (bool, error) {
	for _, f := range files {
		if f == nil {
			continue
		}
		bin, err := f.IsBinary()
		if err != nil {
			return false, err
		}
		if bin {
			return true, nil
		}
	}
	return false, nil
}

func fileLines(f *object.File) ([]string, error) {
	if f == nil {
		return []string{}, nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}
	return difflib.SplitLines(content), nil
}
