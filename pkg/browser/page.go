package browser

import (
	_ "embed"
	"html/template"
	"io"
)

//go:embed templates/page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

// pageData feeds the standalone topic page. Body is already trusted markup.
type pageData struct {
	Title string
	Body  template.HTML
}

// WritePage writes the standalone page shell around a rendered topic
func WritePage(w io.Writer, title string, body template.HTML) error {
	return pageTemplate.Execute(w, pageData{Title: title, Body: body})
}
