package render

import "html/template"

// Highlighter turns source text into highlighted, trusted markup
type Highlighter interface {
	Highlight(language, source string) template.HTML
}

// HighlighterFunc adapts a function to the Highlighter interface
type HighlighterFunc func(language, source string) template.HTML

// Highlight implements Highlighter
func (f HighlighterFunc) Highlight(language, source string) template.HTML {
	return f(language, source)
}

// highlightLanguages maps article tags to highlighter languages
var highlightLanguages = map[string]string{
	"code": "javascript",
	"css":  "css",
	"html": "html",
}

// plainHighlighter is used when no highlighter is configured
type plainHighlighter struct{}

func (plainHighlighter) Highlight(_, source string) template.HTML {
	var w writer
	w.tag(`<pre>`)
	w.text(source)
	w.tag(`</pre>`)
	return w.markup()
}
