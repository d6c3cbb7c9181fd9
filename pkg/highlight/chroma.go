// Package highlight provides syntax highlighting for article content using chroma.
package highlight

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used when none is configured
const DefaultStyle = "github"

// Chroma highlights source text into class-based HTML
type Chroma struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewChroma creates a highlighter for the named style; unknown styles fall back to chroma's default
func NewChroma(style string) *Chroma {
	if style == "" {
		style = DefaultStyle
	}
	return &Chroma{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
}

// Style returns the resolved style name
func (c *Chroma) Style() string {
	return c.style.Name
}

// Highlight implements render.Highlighter
func (c *Chroma) Highlight(language, source string) template.HTML {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return plain(source)
	}

	var buf bytes.Buffer
	if err := c.formatter.Format(&buf, c.style, iterator); err != nil {
		return plain(source)
	}
	return template.HTML(buf.String())
}

// CSS returns the stylesheet matching the classes Highlight emits
func (c *Chroma) CSS() (string, error) {
	var buf bytes.Buffer
	if err := c.formatter.WriteCSS(&buf, c.style); err != nil {
		return "", fmt.Errorf("failed to write highlight css: %w", err)
	}
	return buf.String(), nil
}

func plain(source string) template.HTML {
	return template.HTML(`<pre class="chroma">` + template.HTMLEscapeString(source) + `</pre>`)
}
