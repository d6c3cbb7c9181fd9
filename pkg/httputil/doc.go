// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, nodes)
//	httputil.WriteHTML(w, http.StatusOK, engine.Render(e))
//	httputil.WriteNotFoundError(w, "highlight stylesheet not configured")
//
// Storage errors map onto statuses with StatusFor: entity.ErrInvalidID is 400,
// entity.ErrNotFound is 404, an expired deadline is 504 and anything else is 500.
// WriteStoreError writes the mapped response without leaking internal detail.
//
// # Request Parsing
//
//	id, err := httputil.ParsePathID(r, "id")        // /api/v1/entities/{id}
//	id, err := httputil.ParseQueryID(r, "id")       // /get?id=42
//	parent, err := httputil.ParseQueryNode(r, "node") // nil for "" or "root"
//
// # Middleware
//
// The browser server wraps its router in the whole stack, so unmatched routes
// are logged and tagged with a request id too.
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.TimeoutMiddleware(30*time.Second),
//	)(router)
//
// # Related Packages
//
//   - pkg/browser: Route handlers built on these helpers
//   - pkg/observability: Loggers and panic reporting
package httputil
