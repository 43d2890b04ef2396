package services

import (
	"testing"
	"time"

	"storefront-dashboard/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPresetRange(t *testing.T) {
	tests := []struct {
		preset      Preset
		from, to    time.Time
		granularity models.Granularity
	}{
		{PresetToday, day(2024, 3, 15), day(2024, 3, 15), models.Daily},
		{PresetLast7Days, day(2024, 3, 8), day(2024, 3, 15), models.Daily},
		{PresetThisMonth, day(2024, 3, 1), day(2024, 3, 31), models.Daily},
		{PresetLastMonth, day(2024, 2, 1), day(2024, 2, 29), models.Daily},
		{PresetLast3Months, day(2023, 12, 15), day(2024, 3, 15), models.Monthly},
		{PresetLastYear, day(2023, 3, 15), day(2024, 3, 15), models.Monthly},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			rng, g, err := PresetRange(tt.preset, testNow)
			if err != nil {
				t.Fatalf("PresetRange() error = %v", err)
			}
			if !rng.From.Equal(tt.from) {
				t.Errorf("from = %v, want %v", rng.From, tt.from)
			}
			if !rng.To.Equal(tt.to) {
				t.Errorf("to = %v, want %v", rng.To, tt.to)
			}
			if g != tt.granularity {
				t.Errorf("granularity = %q, want %q", g, tt.granularity)
			}
		})
	}
}

func TestPresetRange_LastMonthInJanuary(t *testing.T) {
	rng, _, err := PresetRange(PresetLastMonth, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if !rng.From.Equal(day(2023, 12, 1)) || !rng.To.Equal(day(2023, 12, 31)) {
		t.Errorf("unexpected range %v - %v", rng.From, rng.To)
	}
}

func TestPresetRange_Unknown(t *testing.T) {
	if _, _, err := PresetRange(Preset("fortnight"), testNow); err == nil {
		t.Error("expected error for unknown preset")
	}
	if _, err := ParsePreset("fortnight"); err == nil {
		t.Error("ParsePreset() should reject unknown names")
	}
}

func TestEndOfDay(t *testing.T) {
	got := EndOfDay(testNow)
	want := time.Date(2024, 3, 15, 23, 59, 59, 999999999, time.UTC)
	if !got.Equal(want) {
		t.Errorf("EndOfDay() = %v, want %v", got, want)
	}
}

func recordAt(ts time.Time) models.NormalizedRecord {
	return models.NormalizedRecord{OrderID: ts.String(), Timestamp: ts, Quantity: 1}
}

func TestFilterByDateRange_InclusiveDays(t *testing.T) {
	from, to := day(2024, 3, 1), day(2024, 3, 2)
	records := []models.NormalizedRecord{
		recordAt(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)),
		recordAt(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		recordAt(time.Date(2024, 3, 2, 23, 59, 59, 999000000, time.UTC)),
		recordAt(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)),
	}

	got := FilterByDateRange(records, models.DateRange{From: &from, To: &to}, time.UTC)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Timestamp.Day() != 1 || got[1].Timestamp.Day() != 2 {
		t.Errorf("wrong records kept: %v, %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestFilterByDateRange_BoundsReadInLocation(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	from, to := day(2024, 3, 1), day(2024, 3, 1)

	// 01:00 UTC on the 2nd is still the 1st in UTC-3.
	late := recordAt(time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC))
	// 02:00 UTC on the 1st is the 29th of February in UTC-3.
	early := recordAt(time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC))

	got := FilterByDateRange([]models.NormalizedRecord{late, early}, models.DateRange{From: &from, To: &to}, loc)
	if len(got) != 1 || !got[0].Timestamp.Equal(late.Timestamp) {
		t.Errorf("expected only the late record, got %v", got)
	}
}

func TestFilterByDateRange_Unbounded(t *testing.T) {
	from := day(2024, 3, 1)
	records := []models.NormalizedRecord{
		recordAt(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
		{OrderID: "invalid"},
	}

	for _, rng := range []models.DateRange{{}, {From: &from}, {To: &from}} {
		got := FilterByDateRange(records, rng, time.UTC)
		if len(got) != len(records) {
			t.Errorf("range %+v: expected every record to pass, got %d", rng, len(got))
		}
	}
}

func TestFilterByDateRange_ExcludesInvalidWhenBounded(t *testing.T) {
	from, to := time.Time{}, day(2100, 1, 1)
	records := []models.NormalizedRecord{{OrderID: "invalid"}, recordAt(testNow)}

	got := FilterByDateRange(records, models.DateRange{From: &from, To: &to}, time.UTC)
	if len(got) != 1 || got[0].OrderID == "invalid" {
		t.Errorf("invalid timestamp should be excluded, got %v", got)
	}
}

func TestFilterByDateRange_PreservesOrder(t *testing.T) {
	from, to := day(2024, 1, 1), day(2024, 12, 31)
	records := []models.NormalizedRecord{
		recordAt(day(2024, 5, 1)),
		recordAt(day(2024, 2, 1)),
		recordAt(day(2024, 9, 1)),
	}

	got := FilterByDateRange(records, models.DateRange{From: &from, To: &to}, time.UTC)
	for i := range records {
		if !got[i].Timestamp.Equal(records[i].Timestamp) {
			t.Errorf("index %d: order changed", i)
		}
	}
}
