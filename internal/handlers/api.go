package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"storefront-dashboard/internal/errors"
	"storefront-dashboard/internal/models"
	"storefront-dashboard/internal/observability"
	"storefront-dashboard/internal/services"
)

const (
	defaultExportPrefix   = "orders"
	defaultRefreshTimeout = 30 * time.Second
	csvContentType        = "text/csv; charset=utf-8"
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type APIOptions struct {
	ExportPrefix   string
	RefreshTimeout time.Duration
}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	opts      APIOptions
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger, opts APIOptions) *APIHandlers {
	if opts.ExportPrefix == "" {
		opts.ExportPrefix = defaultExportPrefix
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
		opts:      opts,
	}
}

// recompute resolves the query string and runs one aggregation under a span.
func recompute(r *http.Request, analytics *services.Analytics, logger *slog.Logger) (services.Result, error) {
	q := r.URL.Query()
	query, err := analytics.ResolveQuery(q.Get("preset"), q.Get("from"), q.Get("to"), q.Get("granularity"))
	if err != nil {
		return services.Result{}, errors.ValidationWrap(err, "Invalid report parameters")
	}

	_, span := observability.StartSpan(r.Context(), "report.recompute")
	result := analytics.Recompute(query)
	span.SetTag("granularity", string(query.Granularity))
	span.SetTag("records", strconv.Itoa(result.Report.Diagnostics.Records))
	span.Finish(logger)

	return result, nil
}

func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	result, err := recompute(r, h.analytics, h.logger)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.RequestIDFrom(r.Context()))
		return
	}

	headers := map[string]string{
		"Cache-Control": "no-store",
	}

	errors.WriteSuccessWithHeaders(w, result.Report, headers)
}

func (h *APIHandlers) HandlePresets(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.PresetOptions())
}

func (h *APIHandlers) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", csvContentType, services.WriteCSV)
}

func (h *APIHandlers) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", xlsxContentType, services.WriteXLSX)
}

type tableWriter func(w io.Writer, records []models.NormalizedRecord, loc *time.Location) error

// export renders into memory first so a failure can still produce a JSON
// error instead of a truncated download.
func (h *APIHandlers) export(w http.ResponseWriter, r *http.Request, ext, contentType string, write tableWriter) {
	requestID := observability.RequestIDFrom(r.Context())

	result, err := recompute(r, h.analytics, h.logger)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, result.Records, h.analytics.Location()); err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Export failed"), requestID)
		return
	}

	filename := services.ExportFilename(h.opts.ExportPrefix, ext, h.analytics.Now())
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("export write interrupted", "error", err, "request_id", requestID)
	}
}

func (h *APIHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.RefreshTimeout)
	defer cancel()

	if err := h.analytics.Refresh(ctx); err != nil {
		errors.WriteError(w, h.logger,
			errors.ServiceUnavailableWrap(err, "Data source unavailable, previous data kept"),
			observability.RequestIDFrom(r.Context()))
		return
	}

	errors.WriteSuccess(w, h.analytics.Stats())
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
