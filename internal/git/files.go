package git

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ListFiles returns the path of every non-directory entry in the revision,
// sorted. Submodules are included; their contents are not.
func (s *Service) ListFiles(rev *Revision) ([]string, error) {
	if rev == nil {
		return nil, fmt.Errorf("revision not specified")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	walker := object.NewTreeWalker(rev.tree, true, nil)
	defer walker.Close()
	var files []string
	for {
		name, entry, err := walker.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk tree %s: %w", rev.ShortHash(), err)
		}
		if entry.Mode == filemode.Dir {
			continue
		}
		files = append(files, name)
	}
	slices.Sort(files)
	return files, nil
}
