package render

import (
	"html/template"
	"strconv"
	"strings"
)

// writer accumulates trusted markup. Untrusted text goes through text().
type writer struct {
	b strings.Builder
}

// tag writes engine-generated markup
func (w *writer) tag(s string) {
	w.b.WriteString(s)
}

// text writes untrusted text, escaped
func (w *writer) text(s string) {
	w.b.WriteString(template.HTMLEscapeString(s))
}

// html writes markup that is already trusted
func (w *writer) html(h template.HTML) {
	w.b.WriteString(string(h))
}

func (w *writer) int(n int) {
	w.b.WriteString(strconv.Itoa(n))
}

func (w *writer) int64(n int64) {
	w.b.WriteString(strconv.FormatInt(n, 10))
}

func (w *writer) markup() template.HTML {
	return template.HTML(w.b.String())
}
