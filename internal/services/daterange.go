package services

import (
	"fmt"
	"time"

	"storefront-dashboard/internal/models"
)

type Preset string

const (
	PresetToday       Preset = "today"
	PresetLast7Days   Preset = "last7days"
	PresetThisMonth   Preset = "thisMonth"
	PresetLastMonth   Preset = "lastMonth"
	PresetLast3Months Preset = "last3Months"
	PresetLastYear    Preset = "lastYear"
)

// Presets lists the named ranges in display order.
var Presets = []Preset{
	PresetToday,
	PresetLast7Days,
	PresetThisMonth,
	PresetLastMonth,
	PresetLast3Months,
	PresetLastYear,
}

func ParsePreset(s string) (Preset, error) {
	for _, p := range Presets {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

// PresetRange resolves a preset against now, in now's location, into a pair
// of calendar days and the granularity the dashboard should switch to.
func PresetRange(p Preset, now time.Time) (models.DateRange, models.Granularity, error) {
	today := StartOfDay(now)
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	var from, to time.Time
	granularity := models.Daily

	switch p {
	case PresetToday:
		from, to = today, today
	case PresetLast7Days:
		from, to = today.AddDate(0, 0, -7), today
	case PresetThisMonth:
		from, to = firstOfMonth, firstOfMonth.AddDate(0, 1, -1)
	case PresetLastMonth:
		from, to = firstOfMonth.AddDate(0, -1, 0), firstOfMonth.AddDate(0, 0, -1)
	case PresetLast3Months:
		from, to = today.AddDate(0, -3, 0), today
		granularity = models.Monthly
	case PresetLastYear:
		from, to = today.AddDate(-1, 0, 0), today
		granularity = models.Monthly
	default:
		return models.DateRange{}, "", fmt.Errorf("unknown preset %q", p)
	}

	return models.DateRange{From: &from, To: &to}, granularity, nil
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// calendarDay reinterprets t's calendar date as midnight in loc.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// FilterByDateRange keeps records whose timestamp lies in
// [start-of-day(From), end-of-day(To)]. Bounds are read as calendar days in
// loc. If either bound is missing every record passes, including those with
// invalid timestamps.
func FilterByDateRange(records []models.NormalizedRecord, rng models.DateRange, loc *time.Location) []models.NormalizedRecord {
	if !rng.Bounded() {
		return records
	}
	if loc == nil {
		loc = time.Local
	}

	lower := calendarDay(*rng.From, loc)
	upper := EndOfDay(calendarDay(*rng.To, loc))

	filtered := make([]models.NormalizedRecord, 0, len(records))
	for _, rec := range records {
		if !rec.HasValidTimestamp() {
			continue
		}
		if rec.Timestamp.Before(lower) || rec.Timestamp.After(upper) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}
