package web

import (
	"net/url"

	"github.com/thiagokokada/gitview-go/internal/git"
)

// expandedDirs returns the directories that start open: every ancestor of the
// selection, plus the selection itself when it is a directory.
func expandedDirs(selected string, selectedIsDir bool) map[string]bool {
	open := make(map[string]bool)
	for _, dir := range git.Ancestors(selected) {
		open[dir] = true
	}
	if selectedIsDir && selected != "" {
		open[selected] = true
	}
	return open
}

// buildTree lists dir and descends into the directories in open. Other
// directories are fetched from /tree when the user expands them.
func buildTree(svc *git.Service, rev *git.Revision, loc location, dir string, open map[string]bool) ([]*treeNode, error) {
	entries, err := svc.ListTree(rev, dir)
	if err != nil {
		return nil, err
	}
	nodes := make([]*treeNode, 0, len(entries))
	for _, e := range entries {
		n := &treeNode{
			Name:     e.Name,
			Path:     e.Path,
			Kind:     e.Kind,
			Selected: e.Path == loc.Path,
		}
		switch {
		case e.Kind.IsDir():
			n.Href = loc.withPath(e.Path).pageURL()
			n.Fragment = treeFragmentURL(loc, e.Path)
			if open[e.Path] {
				children, err := buildTree(svc, rev, loc, e.Path, open)
				if err != nil {
					return nil, err
				}
				n.Open = true
				n.Children = children
			}
		case e.Kind == git.KindSubmodule:
			n.Short = e.Hash[:7]
		default:
			n.Href = loc.withPath(e.Path).pageURL()
			n.Size = formatSize(e.Size)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func treeFragmentURL(loc location, dir string) string {
	q := url.Values{}
	q.Set("repo", loc.Repo)
	q.Set("rev", loc.Rev)
	q.Set("dir", dir)
	if loc.Path != "" {
		q.Set("sel", loc.Path)
	}
	return "/tree?" + q.Encode()
}
