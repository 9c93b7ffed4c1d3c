package web

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// highlighter turns blob contents into HTML for the source view.
type highlighter struct {
	enabled   bool
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newHighlighter(p colorPalette, enabled bool) *highlighter {
	return &highlighter{
		enabled: enabled,
		style:   styleForPalette(p),
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.WithLineNumbers(true),
			chromahtml.LineNumbersInTable(true),
			chromahtml.WithLinkableLineNumbers(true, "L"),
		),
	}
}

func styleForPalette(p colorPalette) *chroma.Style {
	if st := styles.Get(p.ChromaStyle); st != nil {
		return st
	}
	return styles.Fallback
}

// CSS returns the stylesheet for the token classes emitted by Source and Diff.
func (h *highlighter) CSS() (template.CSS, error) {
	var buf bytes.Buffer
	if err := h.formatter.WriteCSS(&buf, h.style); err != nil {
		return "", err
	}
	return template.CSS(buf.String()), nil
}

// Source renders content with line numbers, coloured when highlighting is on.
func (h *highlighter) Source(path string, content string) (template.HTML, error) {
	return h.render(h.lexerFor(path, content), content)
}

// Diff renders a unified diff.
func (h *highlighter) Diff(text string) (template.HTML, error) {
	var lexer chroma.Lexer
	if h.enabled {
		lexer = lexers.Get("diff")
	}
	return h.render(lexer, text)
}

func (h *highlighter) render(lexer chroma.Lexer, content string) (template.HTML, error) {
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, content)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (h *highlighter) lexerFor(path, content string) chroma.Lexer {
	if !h.enabled {
		return nil
	}
	if lexer := lexerForPath(path); lexer != nil {
		return lexer
	}
	return lexers.Analyse(content)
}

func lexerForPath(path string) chroma.Lexer {
	if path == "" {
		return nil
	}
	return lexers.Match(path)
}

func isMarkdownPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

// renderMarkdown drops raw HTML blocks and unsafe link schemes from the output.
func renderMarkdown(src []byte) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank | mdhtml.SkipHTML | mdhtml.Safelink,
	})
	return template.HTML(markdown.ToHTML(src, p, r))
}
