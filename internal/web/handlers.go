package web

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/thiagokokada/gitview-go/internal/git"
)

func (a *Controller) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := location{
		Repo: q.Get("repo"),
		Rev:  strings.TrimSpace(q.Get("rev")),
		Path: q.Get("path"),
		View: viewModeFromString(q.Get("view")),
	}
	if !q.Has("repo") {
		loc.Repo = a.cfg.RepoPath
	}
	page := &pageView{
		Title:     "gitview",
		Version:   a.version,
		ThemeCSS:  a.theme.css,
		RepoInput: loc.Repo,
		RevInput:  loc.Rev,
	}
	a.populatePage(page, loc)
	a.render(w, http.StatusOK, "page.html", page)
}

// populatePage loads the repository, then the revision, then the selection.
// A failure at one step leaves the later panels empty and the message next
// to the input that caused it.
func (a *Controller) populatePage(page *pageView, loc location) {
	if strings.TrimSpace(loc.Repo) == "" {
		return
	}
	h, err := a.repos.Get(loc.Repo)
	if err != nil {
		page.RepoError = errorMessage(err)
		return
	}
	svc := h.svc
	page.RepoRoot = svc.RepoPath()
	if h.watcher != nil {
		page.LiveURL = "/ws?repo=" + url.QueryEscape(loc.Repo)
	}
	if refs, err := svc.Refs(); err == nil {
		for _, ref := range refs {
			if ref.Kind != git.RefKindRemoteBranch {
				page.RevSuggestions = append(page.RevSuggestions, ref.Name)
			}
		}
	} else {
		slog.Error("list refs", slog.String("repo", svc.RepoPath()), slog.Any("error", err))
	}

	rev, input, err := a.resolveRevision(svc, loc.Rev)
	page.RevInput = input
	loc.Rev = input
	if err != nil {
		page.RevError = errorMessage(err)
		return
	}
	page.Title = fmt.Sprintf("%s @ %s - gitview", filepath.Base(svc.RepoPath()), input)
	labels, err := svc.RefLabels()
	if err != nil {
		slog.Error("ref labels", slog.String("repo", svc.RepoPath()), slog.Any("error", err))
	}
	page.Commit = newCommitView(git.NewCommitInfo(rev.Commit), labels[rev.Hash])
	page.Commit.Header = git.FormatCommitHeader(rev.Commit)

	selected, err := git.CleanPath(loc.Path)
	if err != nil {
		page.Source = &sourceView{Path: loc.Path, Error: errorMessage(err)}
		selected = ""
	}
	loc.Path = selected
	selectedIsDir := false
	if selected != "" {
		if entry, err := svc.Lookup(rev, selected); err == nil {
			selectedIsDir = entry.Kind.IsDir()
		}
	}
	page.Tree, err = buildTree(svc, rev, loc, "", expandedDirs(selected, selectedIsDir))
	if err != nil {
		page.TreeError = errorMessage(err)
	} else {
		page.FindURL = location{Repo: loc.Repo, Rev: loc.Rev}.endpoint("/find")
	}
	if selected != "" && page.Source == nil {
		page.Source = a.buildSource(svc, rev, loc)
	}
}

// resolveRevision resolves typed, or the configured default when typed is
// empty. A missing default falls back to HEAD so repositories whose main
// branch has another name still load.
func (a *Controller) resolveRevision(svc *git.Service, typed string) (*git.Revision, string, error) {
	if typed != "" {
		rev, err := svc.ResolveRevision(typed)
		return rev, typed, err
	}
	def := strings.TrimSpace(a.cfg.Revision)
	if def == "" {
		def = git.DefaultRevision
	}
	if def == git.DefaultRevision || svc.HasRevision(def) {
		rev, err := svc.ResolveRevision(def)
		return rev, def, err
	}
	head, err := svc.ResolveRevision(git.DefaultRevision)
	if err != nil {
		return nil, def, fmt.Errorf("%w: %s", git.ErrRevisionNotFound, def)
	}
	input := git.DefaultRevision
	if branch := svc.HeadBranch(); branch != "" {
		input = branch
	}
	slog.Debug("default revision missing, using HEAD", slog.String("default", def), slog.String("head", input))
	return head, input, nil
}

func (a *Controller) handleTree(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h, err := a.repos.Get(q.Get("repo"))
	if err != nil {
		httpError(w, err)
		return
	}
	rev, err := h.svc.ResolveRevision(q.Get("rev"))
	if err != nil {
		httpError(w, err)
		return
	}
	dir, err := git.CleanPath(q.Get("dir"))
	if err != nil {
		httpError(w, err)
		return
	}
	selected, err := git.CleanPath(q.Get("sel"))
	if err != nil {
		selected = ""
	}
	loc := location{Repo: q.Get("repo"), Rev: q.Get("rev"), Path: selected}
	nodes, err := buildTree(h.svc, rev, loc, dir, expandedDirs(selected, false))
	if err != nil {
		httpError(w, err)
		return
	}
	a.render(w, http.StatusOK, "tree", nodes)
}

func (a *Controller) handleRaw(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h, err := a.repos.Get(q.Get("repo"))
	if err != nil {
		httpError(w, err)
		return
	}
	rev, err := h.svc.ResolveRevision(q.Get("rev"))
	if err != nil {
		httpError(w, err)
		return
	}
	blob, err := h.svc.ReadBlob(rev, q.Get("path"), 0)
	if err != nil {
		httpError(w, err)
		return
	}
	header := w.Header()
	header.Set("Content-Type", blob.MIME)
	header.Set("Content-Length", strconv.Itoa(len(blob.Content)))
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Content-Security-Policy", "sandbox")
	header.Set("ETag", `"`+blob.Hash+`"`)
	if blob.Binary && !blob.IsImage() {
		header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(blob.Path)))
	}
	if _, err := w.Write(blob.Content); err != nil {
		slog.Debug("write raw blob", slog.Any("error", err))
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (a *Controller) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := a.pages.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("write response", slog.Any("error", err))
	}
}

func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errRootNotAllowed):
		status = http.StatusForbidden
	case errors.Is(err, git.ErrNotDirectory), errors.Is(err, git.ErrNotFile):
		status = http.StatusBadRequest
	case isUserError(err):
		status = http.StatusNotFound
	}
	http.Error(w, errorMessage(err), status)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets the websocket upgrade see through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
