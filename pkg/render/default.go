package render

import (
	"html/template"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
)

// RenderDefault renders the generic layout: description, remaining attributes, links
func (eng *Engine) RenderDefault(e *entity.Entity) template.HTML {
	var w writer
	w.tag(`<div class="section default">`)

	if e.Attributes.NonEmpty("description") {
		w.tag(`<div class="desc">`)
		w.text(e.Attributes.Value("description"))
		w.tag(`</div>`)
	}

	var attrs writer
	for _, attr := range e.Attributes {
		if attr.Name == "name" || attr.Name == "description" {
			continue
		}
		attrs.tag(`<dt>`)
		attrs.text(attr.Name)
		attrs.tag(`</dt><dd>`)
		attrs.text(attr.Value)
		attrs.tag(`</dd>`)
	}
	if list := attrs.markup(); list != "" {
		w.tag(`<dl>`)
		w.html(list)
		w.tag(`</dl>`)
	}

	w.tag(`<h2>Links:</h2><dl>`)
	for _, link := range e.Links {
		w.tag(`<dt>`)
		w.text(link.Name)
		w.tag(`</dt>`)
		for _, target := range link.Targets {
			w.tag(`<dd><a href="#" id="`)
			w.int64(target.ID)
			w.tag(`">`)
			w.text(target.Concept)
			w.tag(`: `)
			w.text(target.Name())
			w.tag(`</a>&nbsp;</dd>`)
		}
	}
	w.tag(`</dl>`)

	w.tag(`</div>`)
	return w.markup()
}
