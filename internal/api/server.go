package api

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/evlog/evlog/internal/enrich"
	"github.com/evlog/evlog/internal/hub"
	"github.com/evlog/evlog/internal/logstore"
)

// Deps carries everything the API routes need.
type Deps struct {
	Store    *logstore.Store
	Enricher *enrich.Enricher
	Hub      *hub.Hub

	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// AdminToken guards /api/; empty leaves the API open.
	AdminToken   string
	MaxBodyBytes int64
	// MaxConns caps concurrent HTTP connections; 0 means unlimited.
	MaxConns int

	Version string
}

// Server wraps the HTTP server and mux for the evlog API.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	maxConns   int
}

// NewServer creates an API server wired with all routes.
func NewServer(listenAddress string, port int, deps Deps) *Server {
	mux := http.NewServeMux()

	// Public (no auth)
	mux.Handle("GET /healthz", HandleHealthz())
	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	apiMux := http.NewServeMux()
	apiMux.Handle("GET /api/logs", HandleListLogs(deps.Store, deps.Enricher))
	apiMux.Handle("GET /api/logs/stream", HandleStreamLogs(deps.Store, deps.Enricher, deps.Hub))
	apiMux.Handle("GET /api/export", HandleExportLogs(deps.Store, deps.Enricher))
	apiMux.Handle("GET /api/hosts", HandleListHosts(deps.Store))
	apiMux.Handle("POST /api/hosts/{ip}/name", HandleSetHostName(deps.Store, deps.Enricher))
	apiMux.Handle("POST /api/markers", HandleCreateMarker(deps.Store, deps.Enricher, deps.Hub))
	apiMux.Handle("GET /api/stats", HandleStats(deps.Store, deps.Hub, deps.Version))

	var apiHandler http.Handler = RequestBodyLimitMiddleware(deps.MaxBodyBytes, apiMux)
	if deps.AdminToken != "" {
		apiHandler = AuthMiddleware(deps.AdminToken, apiHandler)
	}
	mux.Handle("/api/", apiHandler)

	registerEmbeddedWebUI(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:    net.JoinHostPort(listenAddress, strconv.Itoa(port)),
			Handler: mux,
		},
		mux:      mux,
		maxConns: deps.MaxConns,
	}
}

// ListenAndServe starts the HTTP server, capping concurrent
// connections when configured. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}
