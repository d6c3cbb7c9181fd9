package render

import (
	"fmt"
	"html/template"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
)

// RenderFunction renders a function signature followed by its texts and examples
func (eng *Engine) RenderFunction(e *entity.Entity) template.HTML {
	var w writer
	w.tag(`<div class="section c-function">`)
	writeSignature(&w, e)

	texts, _ := e.Links.Lookup("text")
	for _, text := range texts {
		w.html(eng.RenderArticle(text, ArticleOptions{
			DefaultTitle: "Description",
			Level:        1,
		}))
	}

	examples, _ := e.Links.Lookup("example")
	for i, example := range examples {
		w.html(eng.RenderArticle(example, ArticleOptions{
			DefaultTitle: fmt.Sprintf("Example #%d", i+1),
			TagsAsTitle:  true,
			Level:        1,
		}))
	}

	w.tag(`</div>`)
	return w.markup()
}

func writeSignature(w *writer, e *entity.Entity) {
	w.tag(`<div class="function">`)

	if ret, ok := e.Links.First("return"); ok {
		w.tag(`<span class="returns">&lt;`)
		w.text(ret.Name())
		w.tag(`&gt;</span> `)
	}

	w.tag(`<span class="name">`)
	w.text(e.Name())
	w.tag(`</span><span class="aop">(</span>`)

	args, _ := e.Links.Lookup("argument")
	for i, arg := range args {
		if i > 0 {
			w.tag(`<span class="dlm">, </span>`)
		}
		if argType, ok := arg.Links.First("type"); ok {
			w.tag(`<span class="arg-type">&lt;`)
			w.text(argType.Name())
			w.tag(`&gt;</span> `)
		}
		w.text(arg.Name())
	}
	w.tag(`<span class="acp">)</span>`)

	if e.Attributes.NonEmpty("description") {
		w.tag(`<div class="desc">`)
		w.text(e.Attributes.Value("description"))
		w.tag(`</div>`)
	}

	w.tag(`</div>`)
}
