package models

import (
	"fmt"
	"time"
)

// RawRow is one row as delivered by a data source. Key names vary between
// views, so nothing about its shape is trusted.
type RawRow map[string]any

type NormalizedRecord struct {
	OrderID      string    `json:"order_id"`
	Timestamp    time.Time `json:"timestamp"`
	DisplayDate  string    `json:"display_date,omitempty"`
	CustomerName string    `json:"customer_name"`
	CustomerID   string    `json:"customer_id,omitempty"`
	ProductName  string    `json:"product_name"`
	Category     string    `json:"category"`
	Size         string    `json:"size"`
	Gender       string    `json:"gender"`
	Status       string    `json:"status"`
	Total        float64   `json:"total"`
	Quantity     int       `json:"quantity"`
	Brand        string    `json:"brand,omitempty"`
}

// HasValidTimestamp reports whether the source supplied a usable date.
// Unparseable dates are stored as the zero time.
func (r NormalizedRecord) HasValidTimestamp() bool {
	return !r.Timestamp.IsZero()
}

type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Daily, Weekly, Monthly, Yearly:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// DateRange is an inclusive pair of calendar days. A nil bound is unbounded.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

func (r DateRange) Bounded() bool {
	return r.From != nil && r.To != nil
}

type TimeBucket struct {
	Label   string  `json:"label"`
	SortKey int     `json:"sort_key"`
	Total   float64 `json:"total"`
}

type DistributionEntry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// HeatmapGrid counts records by weekday (0=Sunday) and hour of day.
type HeatmapGrid [7][24]int

func (g *HeatmapGrid) Sum() int {
	n := 0
	for _, day := range g {
		for _, c := range day {
			n += c
		}
	}
	return n
}

type KPISnapshot struct {
	TotalRevenue         float64 `json:"total_revenue"`
	OrderCount           int     `json:"order_count"`
	AverageTicket        float64 `json:"average_ticket"`
	UnitsPerTransaction  float64 `json:"units_per_transaction"`
	RealizedRevenueRatio float64 `json:"realized_revenue_ratio"`
}

type Diagnostics struct {
	Records           int         `json:"records"`
	InvalidTimestamps int         `json:"invalid_timestamps"`
	Granularity       Granularity `json:"granularity"`
}

type Report struct {
	KPIs        KPISnapshot         `json:"kpis"`
	CashFlow    []DistributionEntry `json:"cash_flow"`
	Categories  []DistributionEntry `json:"categories"`
	Sizes       []DistributionEntry `json:"sizes"`
	Genders     []DistributionEntry `json:"genders"`
	Brands      []DistributionEntry `json:"brands"`
	TopProducts []DistributionEntry `json:"top_products"`
	Trend       []TimeBucket        `json:"trend"`
	Heatmap     HeatmapGrid         `json:"heatmap"`
	Diagnostics Diagnostics         `json:"diagnostics"`
}
