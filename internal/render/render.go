// Package render converts page Markdown to HTML.
//
// The same Renderer is used by the content service when serving and saving
// pages and by the admin editor for its live preview, so a preview always
// matches what the server will persist and return.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns Markdown source into HTML.
type Renderer interface {
	Render(markdown []byte) (string, error)
}

// Options tune the goldmark engine.
type Options struct {
	// HeadingIDs adds auto-generated id attributes to headings.
	HeadingIDs bool `yaml:"heading_ids"`
	// HardWraps renders soft line breaks as <br>.
	HardWraps bool `yaml:"hard_wraps"`
	// Safe drops raw HTML blocks instead of passing them through.
	Safe bool `yaml:"safe"`
}

// Goldmark implements Renderer with GFM tables, strikethrough, autolinks and
// task lists. A single instance is safe for concurrent use.
type Goldmark struct {
	md goldmark.Markdown
}

var _ Renderer = (*Goldmark)(nil)

// New builds a Goldmark renderer configured by opts.
func New(opts Options) *Goldmark {
	var parserOptions []parser.Option
	if opts.HeadingIDs {
		parserOptions = append(parserOptions, parser.WithAutoHeadingID())
	}

	var rendererOptions []renderer.Option
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.Safe {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	return &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parserOptions...),
			goldmark.WithRendererOptions(rendererOptions...),
		),
	}
}

// Default returns the renderer used when no options are configured.
func Default() *Goldmark {
	return New(Options{})
}

// Render converts markdown to an HTML fragment.
func (g *Goldmark) Render(markdown []byte) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert(markdown, &buf); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return buf.String(), nil
}

// Func adapts a plain function to the Renderer interface.
type Func func(markdown []byte) (string, error)

// Render calls f(markdown).
func (f Func) Render(markdown []byte) (string, error) {
	return f(markdown)
}
