package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"storefront-dashboard/internal/config"
	"storefront-dashboard/internal/handlers"
	"storefront-dashboard/internal/metrics"
	"storefront-dashboard/internal/middleware"
	"storefront-dashboard/internal/observability"
	"storefront-dashboard/internal/server"
	"storefront-dashboard/internal/services"
	"storefront-dashboard/internal/source"
	"storefront-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
	sweepInterval = time.Minute
	visitorIdle   = 3 * time.Minute
)

var presetLabels = map[services.Preset]string{
	services.PresetToday:       "Today",
	services.PresetLast7Days:   "Last 7 days",
	services.PresetThisMonth:   "This month",
	services.PresetLastMonth:   "Last month",
	services.PresetLast3Months: "Last 3 months",
	services.PresetLastYear:    "Last year",
}

func presetLinks() []templates.PresetLink {
	links := make([]templates.PresetLink, 0, len(services.Presets))
	for _, p := range services.Presets {
		links = append(links, templates.PresetLink{Name: string(p), Label: presetLabels[p]})
	}
	return links
}

// Template handler functions that can access the template functions
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Cache-Control", cacheMaxAge)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(presetLinks()).Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// openSource returns the configured row source and a function releasing it.
func openSource(ctx context.Context, cfg config.SourceConfig) (services.RowSource, func() error, error) {
	switch cfg.Driver {
	case source.DriverCSV:
		return source.NewCSV(cfg.CSVDir), func() error { return nil }, nil
	case source.DriverPostgres, source.DriverSQLite:
		src, err := source.OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported source driver %q", cfg.Driver)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"source_driver", cfg.Source.Driver,
		"views", cfg.Source.ViewNames(),
		"timezone", cfg.Report.Location().String(),
	)

	aliases := services.DefaultAliases()
	if cfg.Report.AliasFile != "" {
		aliases, err = services.LoadAliasFile(cfg.Report.AliasFile)
		if err != nil {
			logger.Error("failed to load alias file", "error", err, "path", cfg.Report.AliasFile)
			os.Exit(1)
		}
	}

	openCtx, cancelOpen := context.WithTimeout(context.Background(), cfg.Source.FetchTimeout)
	src, closeSource, err := openSource(openCtx, cfg.Source)
	cancelOpen()
	if err != nil {
		logger.Error("failed to open row source", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	analytics := services.NewAnalytics(src, services.Options{
		Views:    cfg.Source.ViewNames(),
		Aliases:  aliases,
		Location: cfg.Report.Location(),
		Logger:   logger,
		Metrics:  m,
	})

	// A failed first load leaves an empty snapshot; POST /api/refresh retries.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Source.FetchTimeout)
	if err := analytics.Refresh(loadCtx); err != nil {
		logger.Error("initial snapshot load failed, serving empty data", "error", err)
	}
	cancelLoad()

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(analytics, logger, m, handlers.APIOptions{
		ExportPrefix:   cfg.Report.ExportPrefix,
		RefreshTimeout: cfg.Source.FetchTimeout,
	}, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go rateLimiter.RunSweeper(sweepCtx, sweepInterval, visitorIdle)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.TrustedProxy(cfg.Security),
		middleware.Logger(logger, "/health", "/metrics"),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("row source", func(ctx context.Context) error {
		return closeSource()
	})
	gracefulServer.RegisterShutdownHook("rate limit sweeper", func(ctx context.Context) error {
		stopSweeper()
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(context.Background()); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
