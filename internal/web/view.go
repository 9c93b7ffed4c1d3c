package web

import (
	"html/template"
	"net/url"
	"path"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/thiagokokada/gitview-go/internal/git"
)

type viewMode string

const (
	viewSource   viewMode = "source"
	viewRendered viewMode = "rendered"
	viewChanges  viewMode = "changes"
)

func viewModeFromString(raw string) viewMode {
	switch viewMode(raw) {
	case viewRendered, viewChanges:
		return viewMode(raw)
	default:
		return viewSource
	}
}

// location is the state a page URL carries.
type location struct {
	Repo string
	Rev  string
	Path string
	View viewMode
}

func (l location) query() url.Values {
	q := url.Values{}
	if l.Repo != "" {
		q.Set("repo", l.Repo)
	}
	if l.Rev != "" {
		q.Set("rev", l.Rev)
	}
	if l.Path != "" {
		q.Set("path", l.Path)
	}
	if l.View != "" && l.View != viewSource {
		q.Set("view", string(l.View))
	}
	return q
}

func (l location) pageURL() string {
	if q := l.query(); len(q) > 0 {
		return "/?" + q.Encode()
	}
	return "/"
}

func (l location) endpoint(base string) string {
	return base + "?" + l.query().Encode()
}

func (l location) withPath(p string) location {
	l.Path = p
	l.View = viewSource
	return l
}

func (l location) withView(v viewMode) location {
	l.View = v
	return l
}

type pageView struct {
	Title    string
	Version  string
	ThemeCSS template.CSS

	RepoInput string
	RepoError string
	RepoRoot  string

	RevInput       string
	RevError       string
	RevSuggestions []string

	Commit *commitView

	Tree      []*treeNode
	TreeError string
	FindURL   string

	Source *sourceView

	LiveURL string
}

type commitView struct {
	git.CommitInfo
	Labels   []string
	WhenText string
	Age      string
	// Header is the full `git show` style header.
	Header string
}

func newCommitView(info git.CommitInfo, labels []string) *commitView {
	return &commitView{
		CommitInfo: info,
		Labels:     labels,
		WhenText:   info.When.Format("2006-01-02 15:04:05 -0700"),
		Age:        humanize.RelTime(info.When, now(), "ago", "from now"),
	}
}

// now is replaced in tests.
var now = time.Now

type treeNode struct {
	Name     string
	Path     string
	Kind     git.EntryKind
	Href     string
	Fragment string
	Size     string
	Short    string
	Open     bool
	Selected bool
	Children []*treeNode
}

type crumb struct {
	Name string
	Href string
}

type viewTab struct {
	Label  string
	Href   string
	Active bool
}

type sourceView struct {
	Path        string
	Breadcrumbs []crumb
	Tabs        []viewTab

	HTML     template.HTML
	Markdown template.HTML
	ImageURL string
	Listing  []*treeNode
	Notice   string
	Error    string

	Size   string
	MIME   string
	RawURL string
}

func breadcrumbs(loc location, p string) []crumb {
	crumbs := []crumb{{Name: "root", Href: loc.withPath("").pageURL()}}
	if p == "" {
		return crumbs
	}
	for _, dir := range git.Ancestors(p) {
		crumbs = append(crumbs, crumb{Name: path.Base(dir), Href: loc.withPath(dir).pageURL()})
	}
	return append(crumbs, crumb{Name: path.Base(p), Href: loc.withPath(p).pageURL()})
}

func formatSize(size int64) string {
	if size < 0 {
		return ""
	}
	return humanize.IBytes(uint64(size))
}
