package browser

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
	"github.com/platinummonkey/conceptdoc/pkg/httputil"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/render"
)

//go:embed public
var embeddedPublic embed.FS

// Stylesheet supplies the highlight stylesheet served at HighlightCSSPath
type Stylesheet interface {
	CSS() (string, error)
}

// HighlightCSSPath is generated rather than read from the public directory
const HighlightCSSPath = "/public/resources/highlight.css"

// Options configures a Server
type Options struct {
	// PublicDir replaces the embedded static assets when set
	PublicDir      string
	Stylesheet     Stylesheet
	RequestTimeout time.Duration
	Logger         *observability.Logger
	Metrics        *observability.Metrics // optional
	ServiceName    string
}

// Server serves the documentation browser
type Server struct {
	router  *mux.Router
	handler http.Handler
	source  entity.Source
	engine  *render.Engine
	public  fs.FS
	css     []byte
	logger  *observability.Logger
}

// NewServer creates a browser server reading entities from source
func NewServer(source entity.Source, engine *render.Engine, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "conceptdoc"
	}

	public, err := publicFS(opts.PublicDir)
	if err != nil {
		return nil, err
	}

	var css []byte
	if opts.Stylesheet != nil {
		sheet, err := opts.Stylesheet.CSS()
		if err != nil {
			return nil, err
		}
		css = []byte(sheet)
	}

	s := &Server{
		router: mux.NewRouter(),
		source: source,
		engine: engine,
		public: public,
		css:    css,
		logger: opts.Logger,
	}

	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware(opts.Logger),
		httputil.LoggingMiddleware(opts.Logger),
		httputil.RecoveryMiddleware(opts.Logger),
		otelhttp.NewMiddleware(opts.ServiceName),
	}
	if opts.Metrics != nil {
		// route templates are only known once mux has matched
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	middlewares = append(middlewares, httputil.TimeoutMiddleware(opts.RequestTimeout))

	s.setupRoutes()
	s.handler = httputil.Chain(middlewares...)(s.router)
	return s, nil
}

func publicFS(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embeddedPublic, "public")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("public directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("public directory %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// setupRoutes configures all the browser routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.index).Methods("GET")

	// Original browser endpoints
	s.router.HandleFunc("/get", s.getPage).Methods("GET")
	s.router.HandleFunc("/get_topic", s.getTopic).Methods("GET")
	s.router.HandleFunc("/get_tree_level", s.getTreeLevel).Methods("GET")

	// JSON API
	s.router.HandleFunc("/api/v1/entities/{id}", s.getEntity).Methods("GET")
	s.router.HandleFunc("/api/v1/entities/{id}/topic", s.getEntityTopic).Methods("GET")

	// Static assets; the highlight stylesheet must win over the prefix route
	s.router.HandleFunc(HighlightCSSPath, s.highlightCSS).Methods("GET")
	s.router.PathPrefix("/public/").Handler(
		http.StripPrefix("/public/", http.FileServer(http.FS(s.public))),
	).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
