package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront-dashboard/internal/metrics"
	"storefront-dashboard/internal/models"
)

const maxConcurrentFetches = 4

// RowSource is the external data store. A view names one logical table or
// file; different views may use different key conventions.
type RowSource interface {
	FetchRows(ctx context.Context, view string) ([]models.RawRow, error)
}

type Options struct {
	Views    []string
	Aliases  AliasTable
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

type Query struct {
	Range       models.DateRange
	Granularity models.Granularity
}

type Result struct {
	Report  models.Report
	Records []models.NormalizedRecord
}

type snapshot struct {
	rows        []models.RawRow
	refreshedAt time.Time
}

// Analytics owns the latest raw-row snapshot. Every Recompute derives a fresh
// report from it; nothing derived is kept between calls.
type Analytics struct {
	mu         sync.RWMutex
	current    snapshot
	source     RowSource
	views      []string
	normalizer *Normalizer
	location   *time.Location
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewAnalytics(source RowSource, opts Options) *Analytics {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Analytics{
		source:     source,
		views:      opts.Views,
		normalizer: NewNormalizer(opts.Aliases, opts.Location, opts.Now),
		location:   opts.Location,
		now:        opts.Now,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// SetRows replaces the snapshot without touching the source.
func (a *Analytics) SetRows(rows []models.RawRow) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = snapshot{rows: rows, refreshedAt: a.now()}
	a.metrics.SetSnapshotRows(len(rows))
}

// Refresh fetches every configured view concurrently and swaps in the
// combined rows. On failure the previous snapshot is kept.
func (a *Analytics) Refresh(ctx context.Context) error {
	if a.source == nil {
		return fmt.Errorf("no row source configured")
	}

	start := time.Now()
	perView := make([][]models.RawRow, len(a.views))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, view := range a.views {
		g.Go(func() error {
			rows, err := a.source.FetchRows(ctx, view)
			if err != nil {
				return fmt.Errorf("fetch view %q: %w", view, err)
			}
			perView[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.metrics.IncFetchErrors()
		a.logger.Error("snapshot refresh failed", "error", err, "views", a.views)
		return err
	}

	total := 0
	for _, rows := range perView {
		total += len(rows)
	}
	combined := make([]models.RawRow, 0, total)
	for _, rows := range perView {
		combined = append(combined, rows...)
	}

	a.SetRows(combined)
	a.logger.Info("snapshot refreshed",
		"rows", total,
		"views", a.views,
		"duration", time.Since(start))
	return nil
}

// Recompute runs normalize, filter and aggregate over the current snapshot.
func (a *Analytics) Recompute(q Query) Result {
	a.mu.RLock()
	rows := a.current.rows
	a.mu.RUnlock()

	start := time.Now()
	if q.Granularity == "" {
		q.Granularity = models.Daily
	}

	records := FilterByDateRange(a.normalizer.NormalizeAll(rows), q.Range, a.location)
	report := Aggregate(records, q.Granularity, a.location)

	a.metrics.ObserveRecompute(string(q.Granularity), time.Since(start), report.Diagnostics.InvalidTimestamps)
	if n := report.Diagnostics.InvalidTimestamps; n > 0 {
		a.logger.Warn("records with invalid timestamps left out of trend and heatmap",
			"count", n,
			"records", report.Diagnostics.Records)
	}

	return Result{Report: report, Records: records}
}

// ResolveQuery turns request parameters into a Query. Explicit from/to days
// win over a preset; a preset's granularity applies unless one is given.
func (a *Analytics) ResolveQuery(preset, from, to, granularity string) (Query, error) {
	var q Query

	if preset != "" {
		p, err := ParsePreset(preset)
		if err != nil {
			return Query{}, err
		}
		rng, g, err := PresetRange(p, a.now().In(a.location))
		if err != nil {
			return Query{}, err
		}
		q.Range, q.Granularity = rng, g
	}

	if from != "" || to != "" {
		rng, err := a.parseRange(from, to)
		if err != nil {
			return Query{}, err
		}
		q.Range = rng
	}

	if granularity != "" {
		g, err := models.ParseGranularity(granularity)
		if err != nil {
			return Query{}, err
		}
		q.Granularity = g
	}

	if q.Granularity == "" {
		q.Granularity = models.Daily
	}
	return q, nil
}

func (a *Analytics) parseRange(from, to string) (models.DateRange, error) {
	var rng models.DateRange
	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, a.location)
		if err != nil {
			return rng, fmt.Errorf("invalid from date %q: %w", from, err)
		}
		rng.From = &t
	}
	if to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, a.location)
		if err != nil {
			return rng, fmt.Errorf("invalid to date %q: %w", to, err)
		}
		rng.To = &t
	}
	if rng.Bounded() && rng.To.Before(*rng.From) {
		return rng, fmt.Errorf("to date %s is before from date %s", to, from)
	}
	return rng, nil
}

type PresetOption struct {
	Name        Preset             `json:"name"`
	From        string             `json:"from"`
	To          string             `json:"to"`
	Granularity models.Granularity `json:"granularity"`
}

// PresetOptions resolves every preset against the current clock.
func (a *Analytics) PresetOptions() []PresetOption {
	now := a.now().In(a.location)
	options := make([]PresetOption, 0, len(Presets))
	for _, p := range Presets {
		rng, g, err := PresetRange(p, now)
		if err != nil {
			continue
		}
		options = append(options, PresetOption{
			Name:        p,
			From:        rng.From.Format("2006-01-02"),
			To:          rng.To.Format("2006-01-02"),
			Granularity: g,
		})
	}
	return options
}

func (a *Analytics) Location() *time.Location {
	return a.location
}

func (a *Analytics) Now() time.Time {
	return a.now().In(a.location)
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"rows":           len(a.current.rows),
		"last_refreshed": a.current.refreshedAt,
		"views":          a.views,
		"timezone":       a.location.String(),
	}
}
