package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Strikethrough,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// RenderHTML converts markdown produced by the generation engine into HTML
// for web clients. Returns "" for blank input.
func RenderHTML(markdownText string) string {
	text := strings.TrimSpace(markdownText)
	if text == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := engine.Convert([]byte(text), &buf); err != nil {
		return ""
	}
	return buf.String()
}

var (
	htmlTagPattern   = regexp.MustCompile(`<[^>]+>`)
	emphasisPattern  = regexp.MustCompile("([*_`~]{1,3})([^*_`~]+?)([*_`~]{1,3})")
	headingPattern   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	linkLabelPattern = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

// StripMarkup flattens markdown to plain text for surfaces that render no
// markup, such as stored session context.
func StripMarkup(markdownText string) string {
	text := strings.TrimSpace(markdownText)
	if text == "" {
		return ""
	}
	text = linkLabelPattern.ReplaceAllString(text, "$1")
	text = headingPattern.ReplaceAllString(text, "")
	text = emphasisPattern.ReplaceAllString(text, "$2")
	text = htmlTagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
