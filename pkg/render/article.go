package render

import (
	"html/template"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
)

// ArticleOptions controls how an article is titled and nested
type ArticleOptions struct {
	// DefaultTitle is used when the article has no title attribute
	DefaultTitle string
	// TagsAsTitle uses the tags attribute as a last-resort title; inherited by sections
	TagsAsTitle bool
	// Level is the nesting depth; the heading is h(Level+1)
	Level int
}

// RenderArticle renders an article and, recursively, its sections
func (eng *Engine) RenderArticle(e *entity.Entity, opts ArticleOptions) template.HTML {
	var w writer
	eng.writeArticle(&w, e, opts, make(map[*entity.Entity]bool))
	return w.markup()
}

func (eng *Engine) writeArticle(w *writer, e *entity.Entity, opts ArticleOptions, ancestors map[*entity.Entity]bool) {
	ancestors[e] = true
	defer delete(ancestors, e)

	w.tag(`<div class="section c-article">`)

	tags := e.Attributes.Value("tags")

	title := e.Attributes.Value("title")
	if title == "" {
		title = opts.DefaultTitle
	}
	if title == "" && tags != "" && opts.TagsAsTitle {
		title = tags
	}
	if title != "" {
		w.tag(`<h`)
		w.int(opts.Level + 1)
		w.tag(` class="article-title">`)
		w.text(title)
		w.tag(`</h`)
		w.int(opts.Level + 1)
		w.tag(`>`)
	}

	if content, ok := e.Attributes.Lookup("content"); ok {
		w.tag(`<div class="article-p `)
		w.text(tags)
		if language, ok := highlightLanguages[tags]; ok {
			w.tag(` highlight">`)
			w.html(eng.highlighter.Highlight(language, content.Value))
		} else {
			w.tag(`">`)
			w.text(content.Value)
		}
		w.tag(`</div>`)
	}

	sections, _ := e.Links.Lookup("section")
	for _, section := range sections {
		if ancestors[section] {
			continue
		}
		eng.writeArticle(w, section, ArticleOptions{
			TagsAsTitle: opts.TagsAsTitle,
			Level:       opts.Level + 1,
		}, ancestors)
	}

	w.tag(`</div>`)
}
