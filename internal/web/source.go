package web

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thiagokokada/gitview-go/internal/git"
)

var readmeNames = []string{"README.md", "README.markdown", "README", "README.txt", "readme.md"}

// buildSource fills the source view for the selected path. Model errors for
// the path are reported inside the view rather than failing the page.
func (a *Controller) buildSource(svc *git.Service, rev *git.Revision, loc location) *sourceView {
	entry, err := svc.Lookup(rev, loc.Path)
	sv := &sourceView{Path: loc.Path, Breadcrumbs: breadcrumbs(loc, loc.Path)}
	if err != nil {
		sv.Error = errorMessage(err)
		return sv
	}
	switch entry.Kind {
	case git.KindDir:
		a.directorySource(sv, svc, rev, loc)
	case git.KindSubmodule:
		sv.Notice = fmt.Sprintf("Submodule checked out at commit %s.", entry.Hash)
	default:
		a.fileSource(sv, svc, rev, loc, entry)
	}
	return sv
}

func (a *Controller) directorySource(sv *sourceView, svc *git.Service, rev *git.Revision, loc location) {
	listing, err := buildTree(svc, rev, loc, loc.Path, nil)
	if err != nil {
		sv.Error = errorMessage(err)
		return
	}
	sv.Listing = listing
	for _, name := range readmeNames {
		p := name
		if loc.Path != "" {
			p = loc.Path + "/" + name
		}
		blob, err := svc.ReadBlob(rev, p, a.cfg.MaxBlobSize)
		if err != nil || blob.Binary {
			continue
		}
		if isMarkdownPath(p) {
			sv.Markdown = renderMarkdown(blob.Content)
		} else {
			sv.HTML, err = a.highlight.Source(p, string(blob.Content))
			if err != nil {
				slog.Error("highlight readme", slog.String("path", p), slog.Any("error", err))
			}
		}
		return
	}
}

func (a *Controller) fileSource(sv *sourceView, svc *git.Service, rev *git.Revision, loc location, entry git.TreeEntry) {
	sv.Size = formatSize(entry.Size)
	sv.RawURL = loc.endpoint("/raw")
	sv.Tabs = fileTabs(loc, entry.Path)

	if loc.View == viewChanges {
		a.changesSource(sv, svc, rev, loc)
		return
	}
	blob, err := svc.ReadBlob(rev, entry.Path, a.cfg.MaxBlobSize)
	if err != nil {
		sv.Error = errorMessage(err)
		return
	}
	sv.MIME = blob.MIME
	switch {
	case blob.Kind == git.KindSymlink:
		sv.Notice = "Symbolic link to " + string(blob.Content)
		return
	case blob.IsImage():
		sv.ImageURL = sv.RawURL
		return
	case blob.Binary:
		sv.Notice = fmt.Sprintf("Binary file (%s, %s) not shown.", blob.MIME, formatSize(blob.Size))
		return
	}
	if blob.Truncated {
		sv.Notice = fmt.Sprintf("File is %s; showing the first %s.", formatSize(blob.Size), formatSize(int64(len(blob.Content))))
	}
	if loc.View == viewRendered && isMarkdownPath(entry.Path) {
		sv.Markdown = renderMarkdown(blob.Content)
		return
	}
	sv.HTML, err = a.highlight.Source(entry.Path, string(blob.Content))
	if err != nil {
		slog.Error("highlight", slog.String("path", entry.Path), slog.Any("error", err))
		sv.Error = "Unable to render file: " + err.Error()
	}
}

func (a *Controller) changesSource(sv *sourceView, svc *git.Service, rev *git.Revision, loc location) {
	diff, err := svc.FileDiff(rev, loc.Path, a.cfg.MaxBlobSize)
	if errors.Is(err, git.ErrTooLarge) {
		sv.Notice = fmt.Sprintf("File is too large to diff (over %s).", formatSize(a.cfg.MaxBlobSize))
		return
	}
	if err != nil {
		sv.Error = errorMessage(err)
		return
	}
	if strings.TrimSpace(diff) == "" {
		sv.Notice = fmt.Sprintf("%s is unchanged in %s.", loc.Path, rev.ShortHash())
		return
	}
	sv.HTML, err = a.highlight.Diff(diff)
	if err != nil {
		slog.Error("highlight diff", slog.String("path", loc.Path), slog.Any("error", err))
		sv.Error = "Unable to render diff: " + err.Error()
	}
}

func fileTabs(loc location, p string) []viewTab {
	modes := []viewMode{viewSource}
	if isMarkdownPath(p) {
		modes = append(modes, viewRendered)
	}
	modes = append(modes, viewChanges)
	tabs := make([]viewTab, 0, len(modes))
	for _, m := range modes {
		tabs = append(tabs, viewTab{
			Label:  string(m),
			Href:   loc.withView(m).pageURL(),
			Active: loc.View == m,
		})
	}
	return tabs
}

// errorMessage logs unexpected failures; expected model errors already read
// well on their own.
func errorMessage(err error) string {
	if !isUserError(err) {
		slog.Error("request failed", slog.Any("error", err))
	}
	return err.Error()
}

func isUserError(err error) bool {
	for _, target := range []error{
		git.ErrNotRepository,
		git.ErrRevisionNotFound,
		git.ErrPathNotFound,
		git.ErrNotDirectory,
		git.ErrNotFile,
		git.ErrTooLarge,
		errRootNotAllowed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
