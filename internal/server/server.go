package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"happymart-dashboard/internal/handlers"
	"happymart-dashboard/internal/middleware"
	"happymart-dashboard/internal/observability"
	"happymart-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	router      chi.Router
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
	metrics     *observability.Metrics
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// NewServer wires the routes. Middlewares run inside the router so they can
// see the matched route pattern.
func NewServer(analytics *services.Analytics, logger *slog.Logger, metrics *observability.Metrics, templateHandlers *TemplateHandlers, middlewares ...middleware.Middleware) *Server {
	s := &Server{
		analytics:   analytics,
		router:      chi.NewRouter(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
		metrics:     metrics,
	}
	for _, mw := range middlewares {
		s.router.Use(mw)
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	r := s.router

	r.Get("/", templateHandlers.Dashboard)
	r.Get("/health", s.apiHandlers.HandleHealth)
	r.Get("/admin/stats", s.apiHandlers.HandleStats)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/monthly-orders", s.apiHandlers.HandleMonthlyOrders)
		r.Get("/categories", s.apiHandlers.HandleCategories)
		r.Get("/review-scores", s.apiHandlers.HandleReviewScores)
		r.Get("/rfm", s.apiHandlers.HandleRFM)
		r.Get("/report", s.apiHandlers.HandleReport)
		r.Get("/tables/{table}", s.apiHandlers.HandleTableCSV)
		r.Get("/export.xlsx", s.apiHandlers.HandleExport)
	})

	r.Get("/sse/report", s.sseHandlers.HandleReport)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
