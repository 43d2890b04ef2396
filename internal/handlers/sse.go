package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"storefront-dashboard/internal/models"
	"storefront-dashboard/internal/services"
)

var kpiCardsTemplate = template.Must(template.New("kpiCards").Parse(`
<div id="kpi-content" class="kpi-grid">
<div class="kpi-card"><span class="kpi-label">Revenue</span><strong>${{printf "%.2f" .TotalRevenue}}</strong></div>
<div class="kpi-card"><span class="kpi-label">Orders</span><strong>{{.OrderCount}}</strong></div>
<div class="kpi-card"><span class="kpi-label">Average ticket</span><strong>${{printf "%.2f" .AverageTicket}}</strong></div>
<div class="kpi-card"><span class="kpi-label">Units / order</span><strong>{{printf "%.2f" .UnitsPerTransaction}}</strong></div>
<div class="kpi-card"><span class="kpi-label">Realized</span><strong>{{printf "%.1f" .RealizedRevenueRatio}}%</strong></div>
</div>`))

var topProductsTemplate = template.Must(template.New("topProducts").Funcs(template.FuncMap{
	"rank": func(i int) int { return i + 1 },
}).Parse(`
<div id="top-products-content">
<table class="modern-table">
<thead><tr><th>#</th><th>Product</th><th>Revenue</th></tr></thead>
<tbody>
{{range $i, $p := .}}<tr>
<td>{{rank $i}}</td>
<td>{{$p.Name}}</td>
<td><strong>${{printf "%.2f" $p.Value}}</strong></td>
</tr>{{else}}<tr><td colspan="3">No sales in this range</td></tr>{{end}}
</tbody>
</table>
</div>`))

type SSEHandlers struct {
	analytics      *services.Analytics
	logger         *slog.Logger
	refreshTimeout time.Duration
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics:      analytics,
		logger:         logger,
		refreshTimeout: defaultRefreshTimeout,
	}
}

func renderKPICards(k models.KPISnapshot) (string, error) {
	var buf strings.Builder
	err := kpiCardsTemplate.Execute(&buf, k)
	return buf.String(), err
}

func renderTopProducts(products []models.DistributionEntry) (string, error) {
	var buf strings.Builder
	err := topProductsTemplate.Execute(&buf, products)
	return buf.String(), err
}

// patchReport pushes the KPI cards, the product table and the full report as
// signals for the chart layer.
func (h *SSEHandlers) patchReport(sse *datastar.ServerSentEventGenerator, report models.Report) error {
	cards, err := renderKPICards(report.KPIs)
	if err != nil {
		return err
	}
	if err := sse.PatchElements(cards); err != nil {
		return err
	}

	table, err := renderTopProducts(report.TopProducts)
	if err != nil {
		return err
	}
	if err := sse.PatchElements(table); err != nil {
		return err
	}

	signals, err := json.Marshal(map[string]any{
		"report": report,
	})
	if err != nil {
		return err
	}
	return sse.PatchSignals(signals)
}

func (h *SSEHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	result, err := recompute(r, h.analytics, h.logger)

	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.logger.Warn("invalid report parameters", "error", err)
		sse.PatchElements(`<div id="report-error" class="error">Invalid date range or granularity</div>`)
		return
	}

	if err := h.patchReport(sse, result.Report); err != nil {
		h.logger.Error("patch report", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleRefresh refetches the snapshot and then streams the recomputed
// report. A failed fetch still streams the report from the kept snapshot.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.refreshTimeout)
	refreshErr := h.analytics.Refresh(ctx)
	cancel()

	result, err := recompute(r, h.analytics, h.logger)

	sse := datastar.NewSSE(w, r)
	if err != nil {
		h.logger.Warn("invalid report parameters", "error", err)
		sse.PatchElements(`<div id="report-error" class="error">Invalid date range or granularity</div>`)
		return
	}

	if refreshErr != nil {
		sse.PatchElements(`<div id="report-error" class="error">Data source unavailable, showing previous data</div>`)
	} else {
		sse.PatchElements(`<div id="report-error"></div>`)
	}

	if err := h.patchReport(sse, result.Report); err != nil {
		h.logger.Error("patch report", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
