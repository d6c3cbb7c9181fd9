package browser

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
	"github.com/platinummonkey/conceptdoc/pkg/httputil"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
)

// index handles GET /
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(s.public, "index.html")
	if err != nil {
		httputil.WriteNotFoundError(w, "index.html not found")
		return
	}
	httputil.WriteHTML(w, http.StatusOK, template.HTML(data))
}

// getPage handles GET /get?id=N
func (s *Server) getPage(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParseQueryID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	e, err := s.source.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := WritePage(&buf, entity.Label(e.Concept, e.Name()), s.engine.Render(e)); err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, template.HTML(buf.String()))
}

// getTopic handles GET /get_topic?entity_id=N
func (s *Server) getTopic(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("entity_id") == httputil.RootNode {
		httputil.WriteHTML(w, http.StatusOK, "")
		return
	}

	id, err := httputil.ParseQueryID(r, "entity_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeTopic(w, r, id)
}

// getTreeLevel handles GET /get_tree_level?node=N
func (s *Server) getTreeLevel(w http.ResponseWriter, r *http.Request) {
	parent, err := httputil.ParseQueryNode(r, "node")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	nodes, err := s.source.TreeLevel(r.Context(), parent)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []entity.TreeNode{}
	}
	httputil.WriteJSON(w, http.StatusOK, nodes)
}

// getEntity handles GET /api/v1/entities/{id}
func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	e, err := s.source.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

// getEntityTopic handles GET /api/v1/entities/{id}/topic
func (s *Server) getEntityTopic(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeTopic(w, r, id)
}

// highlightCSS handles GET /public/resources/highlight.css
func (s *Server) highlightCSS(w http.ResponseWriter, r *http.Request) {
	if s.css == nil {
		httputil.WriteNotFoundError(w, "highlight stylesheet not configured")
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(s.css)
}

func (s *Server) writeTopic(w http.ResponseWriter, r *http.Request, id int64) {
	e, err := s.source.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, s.engine.Render(e))
}

// fail writes the mapped error response and logs server-side failures
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httputil.WriteStoreError(w, err)
	if status >= http.StatusInternalServerError {
		ctx := r.Context()
		if _, ok := ctx.Value(observability.LoggerKey).(*observability.Logger); !ok {
			ctx = observability.WithLogger(ctx, s.logger)
		}
		observability.FromContext(ctx).WithError(err).
			WithField("path", r.URL.Path).
			Error("Request failed")
	}
}
