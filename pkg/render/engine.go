package render

import (
	"html/template"
	"strings"
	"time"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
)

// StrategyFunc renders the body of a topic for one concept type
type StrategyFunc func(eng *Engine, e *entity.Entity) template.HTML

// Observer receives timing for each top-level render
type Observer interface {
	ObserveRender(concept, strategy string, duration time.Duration)
}

// Option configures an Engine
type Option func(*Engine)

// WithHighlighter sets the highlighter used for code, css and html articles
func WithHighlighter(h Highlighter) Option {
	return func(eng *Engine) {
		if h != nil {
			eng.highlighter = h
		}
	}
}

// WithObserver sets the render observer
func WithObserver(o Observer) Option {
	return func(eng *Engine) {
		eng.observer = o
	}
}

// DefaultStrategy is the strategy name reported for concepts without a registered strategy
const DefaultStrategy = "default"

// Engine renders entities into HTML. Register strategies before first use;
// after that an Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	strategies  map[string]StrategyFunc
	highlighter Highlighter
	observer    Observer
}

// NewEngine creates an engine with the article and function strategies registered
func NewEngine(opts ...Option) *Engine {
	eng := &Engine{
		strategies:  make(map[string]StrategyFunc),
		highlighter: plainHighlighter{},
	}

	eng.Register("article", func(eng *Engine, e *entity.Entity) template.HTML {
		return eng.RenderArticle(e, ArticleOptions{})
	})
	eng.Register("function", (*Engine).RenderFunction)

	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Register sets the strategy for a concept type, replacing any existing one
func (eng *Engine) Register(concept string, fn StrategyFunc) {
	eng.strategies[strategyKey(concept)] = fn
}

// Strategy returns the strategy name that Render would use for a concept
func (eng *Engine) Strategy(concept string) string {
	key := strategyKey(concept)
	if _, ok := eng.strategies[key]; ok {
		return key
	}
	return DefaultStrategy
}

func strategyKey(concept string) string {
	return strings.ReplaceAll(concept, "-", "_")
}

// Render renders a complete topic: heading plus the concept's strategy output
func (eng *Engine) Render(e *entity.Entity) template.HTML {
	start := time.Now()

	strategy := eng.Strategy(e.Concept)
	fn, ok := eng.strategies[strategy]
	if !ok {
		fn = (*Engine).RenderDefault
	}

	var w writer
	w.tag(`<div class="topic"><h1>`)
	w.text(entity.Capitalize(e.Concept))
	if name := e.Name(); name != "" {
		w.tag(`: `)
		w.text(name)
	}
	w.tag(`</h1>`)
	w.html(fn(eng, e))
	w.tag(`</div>`)

	if eng.observer != nil {
		eng.observer.ObserveRender(e.Concept, strategy, time.Since(start))
	}
	return w.markup()
}
