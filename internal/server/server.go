package server

import (
	"log/slog"
	"net/http"

	"storefront-dashboard/internal/handlers"
	"storefront-dashboard/internal/metrics"
	"storefront-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
	metrics     *metrics.Metrics
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, m *metrics.Metrics, apiOpts handlers.APIOptions, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger, apiOpts),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
		metrics:     m,
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	// REST API endpoints
	s.mux.HandleFunc("GET /api/report", s.apiHandlers.HandleReport)
	s.mux.HandleFunc("GET /api/presets", s.apiHandlers.HandlePresets)
	s.mux.HandleFunc("GET /api/export.csv", s.apiHandlers.HandleExportCSV)
	s.mux.HandleFunc("GET /api/export.xlsx", s.apiHandlers.HandleExportXLSX)
	s.mux.HandleFunc("POST /api/refresh", s.apiHandlers.HandleRefresh)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/report", s.sseHandlers.HandleReport)
	s.mux.HandleFunc("GET /sse/refresh", s.sseHandlers.HandleRefresh)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
