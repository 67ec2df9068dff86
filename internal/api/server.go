package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/illenko/blacklight/internal/api/handler"
)

// Handlers groups the route handlers. Nil handlers leave their routes
// unregistered.
type Handlers struct {
	Health      *handler.HealthHandler
	Refresh     *handler.RefreshHandler
	Analysis    *handler.AnalysisHandler
	Churn       *handler.ChurnHandler
	Trees       *handler.TreesHandler
	Simulate    *handler.SimulateHandler
	Connections *handler.ConnectionsHandler
	Remediation *handler.RemediationHandler
}

type Server struct {
	httpServer *http.Server
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Router       RouterConfig
}

type RouterConfig struct {
	// Registry is served on /metrics when set.
	Registry *prometheus.Registry
	// RequestTimeout bounds each handler's context. Zero means 30s.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func NewServer(h Handlers, cfg ServerConfig) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      NewRouter(h, cfg.Router),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// NewRouter registers every route on a fresh mux and wraps it in the
// middleware chain: access log, panic recovery, CORS, request timeout.
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "api")
	}

	mux := http.NewServeMux()

	if h.Health != nil {
		mux.HandleFunc("GET /health", h.Health.Health)
	}

	if h.Refresh != nil {
		mux.HandleFunc("POST /api/refresh", h.Refresh.Trigger)
		mux.HandleFunc("GET /api/refresh/status", h.Refresh.Status)
	}

	if a := h.Analysis; a != nil {
		mux.HandleFunc("GET /api/overview", a.Overview)
		mux.HandleFunc("GET /api/snapshot", a.Snapshot)
		mux.HandleFunc("GET /api/snapshots", a.Snapshots)
		mux.HandleFunc("GET /api/trends", a.Trends)
		mux.HandleFunc("GET /api/metrics/{metric}/history", a.MetricHistory)
		mux.HandleFunc("GET /api/histograms", a.Histograms)
		mux.HandleFunc("GET /api/labels", a.Labels)
		mux.HandleFunc("GET /api/recommendations", a.Recommendations)
		mux.HandleFunc("GET /api/scrapes", a.Scrapes)
	}

	if h.Churn != nil {
		mux.HandleFunc("GET /api/churn", h.Churn.Churn)
	}

	if t := h.Trees; t != nil {
		mux.HandleFunc("GET /api/trees", t.List)
		mux.HandleFunc("GET /api/trees/{metric}", t.Get)
		mux.HandleFunc("POST /api/trees/{metric}", t.Expand)
		mux.HandleFunc("DELETE /api/trees/{metric}", t.Collapse)
	}

	if s := h.Simulate; s != nil {
		mux.HandleFunc("POST /api/simulate", s.Simulate)
		mux.HandleFunc("GET /api/simulations", s.List)
		mux.HandleFunc("GET /api/simulations/{name}", s.Get)
		mux.HandleFunc("PUT /api/simulations/{name}", s.Save)
		mux.HandleFunc("DELETE /api/simulations/{name}", s.Delete)
	}

	if c := h.Connections; c != nil {
		mux.HandleFunc("GET /api/connections", c.List)
		mux.HandleFunc("POST /api/connections", c.Add)
		mux.HandleFunc("DELETE /api/connections", c.Remove)
	}

	if h.Remediation != nil {
		mux.HandleFunc("POST /api/remediation/preview", h.Remediation.Preview)
	}

	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{Registry: cfg.Registry}))
	}

	return chain(mux,
		accessLog(cfg.Logger),
		recoverPanics(cfg.Logger),
		cors,
		withTimeout(cfg.RequestTimeout),
	)
}

func (s *Server) Start() error {
	slog.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
