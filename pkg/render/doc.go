// Package render turns entities into HTML fragments for the documentation browser.
//
// # Overview
//
// The Engine dispatches on an entity's concept type to a registered strategy and
// falls back to a generic key/value layout for concepts it does not know. Every
// topic is wrapped in a "topic" block headed by the capitalized concept and the
// entity name.
//
// Built-in strategies:
//   - article: titled, nestable sections; code/css/html content is highlighted
//   - function: signature header, description texts and numbered examples
//   - default: description, attribute list and links
//
// # Escaping
//
// Output is always template.HTML. Attribute values, link names and concept names
// are plain strings and only reach the output through an escaping writer; the
// only unescaped inputs are engine literals and Highlighter output.
//
// # Usage Example
//
//	engine := render.NewEngine(render.WithHighlighter(highlight.NewChroma("github")))
//	html := engine.Render(e)
//
// Custom concepts:
//
//	engine.Register("data-type", func(eng *render.Engine, e *entity.Entity) template.HTML {
//		return eng.RenderDefault(e)
//	})
//
// # Related Packages
//
//   - pkg/entity: Entity access contract
//   - pkg/highlight: Chroma highlighter
package render
