// Package browser serves the documentation browser over HTTP.
//
// # Routes
//
//	GET /                                  index.html from the public directory
//	GET /public/...                        static assets
//	GET /public/resources/highlight.css    stylesheet for the configured highlight style
//	GET /get?id=N                          standalone HTML page for one topic
//	GET /get_topic?entity_id=N             topic fragment; entity_id=root yields an empty body
//	GET /get_tree_level?node=N             JSON tree nodes; empty or root lists the top level
//	GET /api/v1/entities/{id}              JSON entity subtree
//	GET /api/v1/entities/{id}/topic        topic fragment
//
// A malformed id answers 400, an unknown entity 404 and a backend failure 500,
// each with a JSON error body.
//
// # Usage
//
//	srv, err := browser.NewServer(store, render.NewEngine(render.WithHighlighter(hl)), browser.Options{
//		Stylesheet: hl,
//		Logger:     logger,
//		Metrics:    metrics,
//	})
//	http.ListenAndServe(":8080", srv)
//
// The embedded public directory holds index.html and resources/base.css. The
// ExtJS distribution is not embedded; point Options.PublicDir at a directory
// that contains ext/ alongside those files.
package browser
