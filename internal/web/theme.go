package web

import (
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	darkmode "github.com/thiagokokada/dark-mode-go"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

type colorPalette struct {
	Name        string
	ChromaStyle string
	Background  string
	Foreground  string
	Muted       string
	Panel       string
	Border      string
	Accent      string
	Error       string
	Selected    string
	DiffAdd     string
	DiffDel     string
}

var (
	lightPalette = colorPalette{
		Name:        "light",
		ChromaStyle: "github",
		Background:  "#ffffff",
		Foreground:  "#1f2328",
		Muted:       "#656d76",
		Panel:       "#f6f8fa",
		Border:      "#d0d7de",
		Accent:      "#0969da",
		Error:       "#cf222e",
		Selected:    "#ddf4ff",
		DiffAdd:     "#dff5de",
		DiffDel:     "#f9d6d5",
	}
	darkPalette = colorPalette{
		Name:        "dark",
		ChromaStyle: "github-dark",
		Background:  "#0d1117",
		Foreground:  "#e6edf3",
		Muted:       "#8d96a0",
		Panel:       "#161b22",
		Border:      "#30363d",
		Accent:      "#4493f8",
		Error:       "#f85149",
		Selected:    "#1f3b5a",
		DiffAdd:     "#1f3d2b",
		DiffDel:     "#3d1f29",
	}
	detectDarkMode = darkmode.IsDarkMode
)

// paletteForPreference asks the host desktop for its colour scheme when pref is auto.
func paletteForPreference(pref ThemePreference) colorPalette {
	switch pref {
	case ThemeDark:
		return darkPalette
	case ThemeLight:
		return lightPalette
	default:
		if detectDarkMode != nil {
			if dark, err := detectDarkMode(); err == nil {
				if dark {
					return darkPalette
				}
			} else {
				slog.Debug("detect dark-mode", slog.Any("error", err))
			}
		}
		return lightPalette
	}
}

func (p colorPalette) isDark() bool {
	return p.Name == darkPalette.Name
}

// cssVariables renders the palette as custom properties consumed by style.css.
func (p colorPalette) cssVariables() template.CSS {
	var b strings.Builder
	b.WriteString(":root{")
	scheme := "light"
	if p.isDark() {
		scheme = "dark"
	}
	fmt.Fprintf(&b, "color-scheme:%s;", scheme)
	vars := []struct{ name, value string }{
		{"bg", p.Background},
		{"fg", p.Foreground},
		{"muted", p.Muted},
		{"panel", p.Panel},
		{"border", p.Border},
		{"accent", p.Accent},
		{"error", p.Error},
		{"selected", p.Selected},
		{"diff-add", p.DiffAdd},
		{"diff-del", p.DiffDel},
	}
	for _, v := range vars {
		fmt.Fprintf(&b, "--%s:%s;", v.name, v.value)
	}
	b.WriteString("}")
	return template.CSS(b.String())
}
