// Package templates holds the server-rendered dashboard shell. Live content
// is patched in afterwards over SSE by the handlers package.
package templates

//go:generate templ generate

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

// PresetLink is one date-range shortcut in the toolbar.
type PresetLink struct {
	Name  string
	Label string
}

var granularities = []string{"daily", "weekly", "monthly", "yearly"}

var chartIDs = []string{"trend-chart", "cash-flow-chart", "category-chart", "size-chart", "gender-chart", "brand-chart", "heatmap-chart"}

const reportQuery = "'?preset=' + $preset + '&granularity=' + $granularity"

func selectPreset(name string) string {
	return "$preset = '" + name + "'; @get('/sse/report' + " + reportQuery + ")"
}

func refreshAction() string {
	return "@get('/sse/refresh' + " + reportQuery + ")"
}

func exportHref(ext string) string {
	return "'/api/export." + ext + "?preset=' + $preset"
}
