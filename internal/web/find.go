package web

import (
	"net/http"
	"strings"

	"github.com/sahilm/fuzzy"
)

const maxFindResults = 50

type findResult struct {
	Href  string
	Parts []matchPart
}

// matchPart is a run of path characters that either all matched the query
// or all did not.
type matchPart struct {
	Text string
	Hit  bool
}

// handleFind returns the files of a revision that fuzzily match q, best
// matches first.
func (a *Controller) handleFind(w http.ResponseWriter, r *http.Request) {
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
	files, err := h.svc.ListFiles(rev)
	if err != nil {
		httpError(w, err)
		return
	}
	loc := location{Repo: q.Get("repo"), Rev: q.Get("rev")}
	a.render(w, http.StatusOK, "find", findFiles(loc, files, q.Get("q")))
}

func findFiles(loc location, files []string, pattern string) []findResult {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	matches := fuzzy.Find(pattern, files)
	if len(matches) > maxFindResults {
		matches = matches[:maxFindResults]
	}
	results := make([]findResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, findResult{
			Href:  loc.withPath(m.Str).pageURL(),
			Parts: splitMatch(m.Str, m.MatchedIndexes),
		})
	}
	return results
}

// splitMatch groups s into runs by whether each byte offset is in hits.
func splitMatch(s string, hits []int) []matchPart {
	hit := make(map[int]bool, len(hits))
	for _, i := range hits {
		hit[i] = true
	}
	var parts []matchPart
	start := 0
	for i := range s {
		if i > 0 && hit[i] != hit[start] {
			parts = append(parts, matchPart{Text: s[start:i], Hit: hit[start]})
			start = i
		}
	}
	if start < len(s) {
		parts = append(parts, matchPart{Text: s[start:], Hit: hit[start]})
	}
	return parts
}
