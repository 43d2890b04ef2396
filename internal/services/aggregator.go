package services

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"storefront-dashboard/internal/models"
)

const topProductsLimit = 5

// accumulator holds the per-call grouping maps. Each Aggregate call owns its
// own accumulator, so concurrent calls never share state.
type accumulator struct {
	location *time.Location

	totalRevenue    float64
	realizedRevenue float64
	pendingRevenue  float64
	units           int
	orders          map[string]struct{}

	categories map[string]float64
	sizes      map[string]float64
	genders    map[string]float64
	brands     map[string]float64
	products   map[string]float64

	buckets map[int]*models.TimeBucket
	heatmap models.HeatmapGrid
	invalid int
}

func newAccumulator(loc *time.Location) *accumulator {
	return &accumulator{
		location:   loc,
		orders:     make(map[string]struct{}),
		categories: make(map[string]float64),
		sizes:      make(map[string]float64),
		genders:    make(map[string]float64),
		brands:     make(map[string]float64),
		products:   make(map[string]float64),
		buckets:    make(map[int]*models.TimeBucket),
	}
}

// Aggregate derives every dashboard view from records in a single pass.
// Records with invalid timestamps count toward KPIs and distributions but are
// left out of the trend and the heatmap.
func Aggregate(records []models.NormalizedRecord, granularity models.Granularity, loc *time.Location) models.Report {
	if loc == nil {
		loc = time.Local
	}

	acc := newAccumulator(loc)
	for _, rec := range records {
		acc.add(rec, granularity)
	}

	return models.Report{
		KPIs:        acc.kpis(),
		CashFlow:    acc.cashFlow(),
		Categories:  sortDistribution(acc.categories),
		Sizes:       sortDistribution(acc.sizes),
		Genders:     sortDistribution(acc.genders),
		Brands:      sortDistribution(acc.brands),
		TopProducts: topN(sortDistribution(acc.products), topProductsLimit),
		Trend:       acc.trend(),
		Heatmap:     acc.heatmap,
		Diagnostics: models.Diagnostics{
			Records:           len(records),
			InvalidTimestamps: acc.invalid,
			Granularity:       granularity,
		},
	}
}

func (a *accumulator) add(rec models.NormalizedRecord, granularity models.Granularity) {
	a.totalRevenue += rec.Total
	a.units += rec.Quantity
	a.orders[rec.OrderID] = struct{}{}

	if ClassifyStatus(rec.Status) == SettlementRealized {
		a.realizedRevenue += rec.Total
	} else {
		a.pendingRevenue += rec.Total
	}

	qty := float64(rec.Quantity)
	a.categories[rec.Category] += qty
	a.sizes[rec.Size] += qty
	a.genders[rec.Gender] += qty
	if rec.Brand != "" {
		a.brands[rec.Brand] += qty
	}
	a.products[rec.ProductName] += rec.Total

	if !rec.HasValidTimestamp() {
		a.invalid++
		return
	}

	ts := rec.Timestamp.In(a.location)

	label, key := bucketFor(ts, granularity)
	if a.buckets[key] == nil {
		a.buckets[key] = &models.TimeBucket{Label: label, SortKey: key}
	}
	a.buckets[key].Total += rec.Total

	a.heatmap[ts.Weekday()][ts.Hour()]++
}

func (a *accumulator) kpis() models.KPISnapshot {
	k := models.KPISnapshot{
		TotalRevenue: a.totalRevenue,
		OrderCount:   len(a.orders),
	}
	if k.OrderCount > 0 {
		k.AverageTicket = a.totalRevenue / float64(k.OrderCount)
		k.UnitsPerTransaction = float64(a.units) / float64(k.OrderCount)
	}
	if a.totalRevenue > 0 {
		k.RealizedRevenueRatio = a.realizedRevenue / a.totalRevenue * 100
	}
	return k
}

func (a *accumulator) cashFlow() []models.DistributionEntry {
	entries := make([]models.DistributionEntry, 0, 2)
	if a.realizedRevenue > 0 {
		entries = append(entries, models.DistributionEntry{Name: string(SettlementRealized), Value: a.realizedRevenue})
	}
	if a.pendingRevenue > 0 {
		entries = append(entries, models.DistributionEntry{Name: string(SettlementPending), Value: a.pendingRevenue})
	}
	return entries
}

func (a *accumulator) trend() []models.TimeBucket {
	result := make([]models.TimeBucket, 0, len(a.buckets))
	for _, b := range a.buckets {
		result = append(result, *b)
	}
	slices.SortFunc(result, func(x, y models.TimeBucket) int {
		return cmp.Compare(x.SortKey, y.SortKey)
	})
	return result
}

// bucketFor returns the period label and a sort key that increases with the
// calendar period.
func bucketFor(t time.Time, granularity models.Granularity) (string, int) {
	switch granularity {
	case models.Weekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week), year*100 + week
	case models.Monthly:
		return t.Format("2006-01"), t.Year()*100 + int(t.Month())
	case models.Yearly:
		return t.Format("2006"), t.Year()
	default:
		return t.Format("2006-01-02"), t.Year()*10000 + int(t.Month())*100 + t.Day()
	}
}

// sortDistribution orders groups by value descending, then by name, so the
// output never depends on map iteration order.
func sortDistribution(groups map[string]float64) []models.DistributionEntry {
	result := make([]models.DistributionEntry, 0, len(groups))
	for name, value := range groups {
		result = append(result, models.DistributionEntry{Name: name, Value: value})
	}
	slices.SortFunc(result, func(a, b models.DistributionEntry) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return result
}

func topN(entries []models.DistributionEntry, n int) []models.DistributionEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[:n]
}
