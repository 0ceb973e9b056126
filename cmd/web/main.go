package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"happymart-dashboard/internal/config"
	"happymart-dashboard/internal/dataset"
	"happymart-dashboard/internal/format"
	"happymart-dashboard/internal/handlers"
	"happymart-dashboard/internal/middleware"
	"happymart-dashboard/internal/models"
	"happymart-dashboard/internal/observability"
	"happymart-dashboard/internal/server"
	"happymart-dashboard/internal/services"
	"happymart-dashboard/internal/ui/templates"
)

const (
	renderTimeout    = 10 * time.Second
	cacheMaxAge      = "public, max-age=300"
	dashboardTitle   = "Happy Mart Dashboard"
	rateLimiterSweep = time.Minute
)

// dashboardHandler serves the page shell with the date picker bounded by the
// dataset and preset to its full range.
func dashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	def := analytics.DefaultRange()
	props := templates.DashboardProps{
		Title:     dashboardTitle,
		MinDate:   def.Start.Format(models.DateLayout),
		MaxDate:   def.End.Format(models.DateLayout),
		StartDate: def.Start.Format(models.DateLayout),
		EndDate:   def.End.Format(models.DateLayout),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(props).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func analyticsOptions(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, formatter *format.Formatter) []services.Option {
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMetrics(metrics),
		services.WithFormatter(formatter),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, services.WithCache(cfg.Cache.MaxEntries))
	}
	if cfg.SnapshotEnabled() {
		opts = append(opts, services.WithSnapshot(services.NewFileSnapshot(cfg.Data.SnapshotFile)))
	}
	return opts
}

func newHandler(cfg *config.Config, logger *slog.Logger, analytics *services.Analytics, metrics *observability.Metrics, limiter *middleware.RateLimiter) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics),
	}

	return server.NewServer(analytics, logger, metrics, templateHandlers,
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger(logger),
		middleware.Metrics(metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger,
		"service", cfg.Tracing.ServiceName,
		"version", handlers.Version,
	)
	slog.SetDefault(logger)

	logger.Info("starting application", "config", cfg)

	shutdownTracing, err := observability.InitTracing(cfg.Tracing, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	formatter, err := format.NewFormatter(cfg.Display.Currency, cfg.Display.Locale)
	if err != nil {
		logger.Error("invalid display settings", "error", err)
		os.Exit(1)
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	start := time.Now()
	ds, err := dataset.LoadCSV(loadCtx, cfg.Data.CSVFile)
	cancelLoad()
	if err != nil {
		logger.Error("failed to load CSV data", "file", cfg.Data.CSVFile, "error", err)
		os.Exit(1)
	}
	first, last := ds.Bounds()
	logger.Info("CSV data loaded successfully",
		"records", ds.Len(),
		"first_order", first,
		"last_order", last,
		"duration", time.Since(start),
	)

	metrics := observability.NewMetrics()
	analytics := services.NewAnalytics(ds, analyticsOptions(cfg, logger, metrics, formatter)...)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go rateLimiter.Run(sweepCtx, rateLimiterSweep)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, logger, analytics, metrics, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		stopSweep()
		return nil
	})
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("flushing traces")
		return shutdownTracing(ctx)
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
