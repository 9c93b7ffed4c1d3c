package web

import (
	"html/template"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/thiagokokada/gitview-go/internal/config"
)

type Controller struct {
	cfg   config.Config
	theme controllerTheme

	repos     *repoCache
	highlight *highlighter
	pages     *template.Template
	upgrader  websocket.Upgrader
	version   string
}

type controllerTheme struct {
	pref    ThemePreference
	palette colorPalette
	css     template.CSS
}

// NewController validates cfg and prepares templates, theme and repository cache.
func NewController(cfg config.Config, version string) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	repos, err := newRepoCache(cfg.RepoCacheSize, cfg.AutoReload, cfg.RootAllowed)
	if err != nil {
		return nil, err
	}
	pref := ThemePreferenceFromString(cfg.Theme)
	palette := paletteForPreference(pref)
	hl := newHighlighter(palette, cfg.SyntaxHighlight)
	syntaxCSS, err := hl.CSS()
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg: cfg,
		theme: controllerTheme{
			pref:    pref,
			palette: palette,
			css:     palette.cssVariables() + "\n" + syntaxCSS,
		},
		repos:     repos,
		highlight: hl,
		pages:     pages,
		version:   version,
	}, nil
}

func (a *Controller) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("GET /tree", a.handleTree)
	mux.HandleFunc("GET /raw", a.handleRaw)
	mux.HandleFunc("GET /find", a.handleFind)
	mux.HandleFunc("GET /ws", a.handleLive)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /static/", http.FileServerFS(staticFS))
	return logRequests(mux)
}

// Close releases every cached repository and its watcher.
func (a *Controller) Close() {
	a.repos.Close()
}
