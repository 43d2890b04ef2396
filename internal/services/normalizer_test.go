package services

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront-dashboard/internal/models"
)

var testNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newTestNormalizer() *Normalizer {
	return NewNormalizer(nil, time.UTC, fixedNow)
}

func TestNormalize_Defaults(t *testing.T) {
	rec := newTestNormalizer().Normalize(models.RawRow{})

	if rec.CustomerName != DefaultCustomerName {
		t.Errorf("expected customer %q, got %q", DefaultCustomerName, rec.CustomerName)
	}
	if rec.ProductName != DefaultProductName {
		t.Errorf("expected product %q, got %q", DefaultProductName, rec.ProductName)
	}
	if rec.Category != DefaultCategory || rec.Size != DefaultSize || rec.Gender != DefaultGender {
		t.Errorf("unexpected defaults: %+v", rec)
	}
	if rec.Status != DefaultStatus {
		t.Errorf("expected status %q, got %q", DefaultStatus, rec.Status)
	}
	if rec.Total != 0 {
		t.Errorf("expected total 0, got %v", rec.Total)
	}
	if rec.Quantity != 1 {
		t.Errorf("expected quantity 1, got %d", rec.Quantity)
	}
	if !rec.Timestamp.Equal(testNow) {
		t.Errorf("missing timestamp should default to now, got %v", rec.Timestamp)
	}
}

func TestNormalize_Aliases(t *testing.T) {
	tests := []struct {
		name string
		row  models.RawRow
	}{
		{
			name: "snake case",
			row: models.RawRow{
				"order_id": "A1", "created_at": "2024-03-01T10:00:00Z", "customer_name": "Ana",
				"product_name": "Jacket", "category": "Outerwear", "size": "M", "gender": "Women",
				"status": "paid", "total": 120.5, "quantity": 2,
			},
		},
		{
			name: "camel case",
			row: models.RawRow{
				"orderId": "A1", "createdAt": "2024-03-01T10:00:00Z", "customerName": "Ana",
				"productName": "Jacket", "category": "Outerwear", "size": "M", "gender": "Women",
				"status": "paid", "amount": "120.5", "qty": "2",
			},
		},
		{
			name: "spanish",
			row: models.RawRow{
				"id_pedido": "A1", "fecha": "2024-03-01T10:00:00Z", "cliente": "Ana",
				"producto": "Jacket", "categoria": "Outerwear", "talla": "M", "genero": "Women",
				"estado": "paid", "monto": 120.5, "cantidad": 2.0,
			},
		},
	}

	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestNormalizer().Normalize(tt.row)
			if rec.OrderID != "A1" || rec.CustomerName != "Ana" || rec.ProductName != "Jacket" {
				t.Errorf("identity fields not resolved: %+v", rec)
			}
			if rec.Category != "Outerwear" || rec.Size != "M" || rec.Gender != "Women" || rec.Status != "paid" {
				t.Errorf("attribute fields not resolved: %+v", rec)
			}
			if rec.Total != 120.5 {
				t.Errorf("expected total 120.5, got %v", rec.Total)
			}
			if rec.Quantity != 2 {
				t.Errorf("expected quantity 2, got %d", rec.Quantity)
			}
			if !rec.Timestamp.Equal(want) {
				t.Errorf("expected timestamp %v, got %v", want, rec.Timestamp)
			}
		})
	}
}

func TestNormalize_FirstAliasWins(t *testing.T) {
	rec := newTestNormalizer().Normalize(models.RawRow{
		"customer_name": "First",
		"cliente":       "Second",
	})
	if rec.CustomerName != "First" {
		t.Errorf("expected first alias to win, got %q", rec.CustomerName)
	}
}

func TestNormalize_BlankCountsAsAbsent(t *testing.T) {
	rec := newTestNormalizer().Normalize(models.RawRow{
		"customer_name": "   ",
		"cliente":       "Ana",
		"category":      "",
		"status":        nil,
	})
	if rec.CustomerName != "Ana" {
		t.Errorf("blank alias should fall through, got %q", rec.CustomerName)
	}
	if rec.Category != DefaultCategory {
		t.Errorf("empty category should default, got %q", rec.Category)
	}
	if rec.Status != DefaultStatus {
		t.Errorf("nil status should default, got %q", rec.Status)
	}
}

func TestNormalize_NumericCoercion(t *testing.T) {
	tests := []struct {
		name      string
		total     any
		quantity  any
		wantTotal float64
		wantQty   int
	}{
		{"numbers", 50.0, 3, 50, 3},
		{"numeric strings", " 19.99 ", "4", 19.99, 4},
		{"garbage", "n/a", "lots", 0, 1},
		{"negative", -10.0, -2, 0, 1},
		{"zero quantity", 10.0, 0, 10, 1},
		{"fractional quantity", 10.0, 2.7, 10, 2},
		{"nan", math.NaN(), math.Inf(1), 0, 1},
		{"bytes", []byte("7.5"), []byte("2"), 7.5, 2},
		{"quantity beyond int range", 10.0, "1e20", 10, 1},
		{"quantity just past int64", 10.0, 1e19, 10, 1},
		{"quantity near int64 max", 10.0, "9.3e18", 10, 1},
		{"largest quantity", 10.0, int64(math.MaxInt32), 10, math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestNormalizer().Normalize(models.RawRow{"total": tt.total, "quantity": tt.quantity})
			if rec.Total != tt.wantTotal {
				t.Errorf("expected total %v, got %v", tt.wantTotal, rec.Total)
			}
			if rec.Quantity != tt.wantQty {
				t.Errorf("expected quantity %d, got %d", tt.wantQty, rec.Quantity)
			}
		})
	}
}

func TestNormalize_Timestamps(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	n := NewNormalizer(nil, loc, fixedNow)

	tests := []struct {
		name  string
		value any
		want  time.Time
	}{
		{"rfc3339", "2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"local datetime", "2024-03-01 10:00:00", time.Date(2024, 3, 1, 10, 0, 0, 0, loc)},
		{"date only", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, loc)},
		{"time value", time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC), time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)},
		{"epoch millis", int64(1709287200000), time.UnixMilli(1709287200000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := n.Normalize(models.RawRow{"created_at": tt.value})
			if !rec.Timestamp.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, rec.Timestamp)
			}
		})
	}
}

func TestNormalize_UnparseableTimestampIsInvalid(t *testing.T) {
	rec := newTestNormalizer().Normalize(models.RawRow{"created_at": "yesterday-ish"})
	if rec.HasValidTimestamp() {
		t.Errorf("expected invalid timestamp, got %v", rec.Timestamp)
	}
}

func TestNormalize_EpochMillisOutOfRangeIsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"huge float", 1e300},
		{"past year 9999", int64(253402300800000)},
		{"before year 1", float64(-62135596800001)},
		{"infinity", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestNormalizer().Normalize(models.RawRow{"created_at": tt.value})
			if rec.HasValidTimestamp() {
				t.Errorf("expected invalid timestamp, got %v", rec.Timestamp)
			}
		})
	}

	last := time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC)
	rec := newTestNormalizer().Normalize(models.RawRow{"created_at": last.UnixMilli()})
	if !rec.Timestamp.Equal(last) {
		t.Errorf("expected %v, got %v", last, rec.Timestamp)
	}
}

func TestAggregate_HugeQuantityKeepsUnitsPositive(t *testing.T) {
	records := newTestNormalizer().NormalizeAll([]models.RawRow{
		{"order_id": "A", "total": 10.0, "quantity": "1e20"},
		{"order_id": "B", "total": 10.0, "quantity": 3},
	})
	report := Aggregate(records, models.Daily, time.UTC)
	if report.KPIs.UnitsPerTransaction != 2 {
		t.Errorf("expected 2 units per order, got %v", report.KPIs.UnitsPerTransaction)
	}
}

func TestNormalizeAll_SharesCaptureInstant(t *testing.T) {
	calls := 0
	n := NewNormalizer(nil, time.UTC, func() time.Time {
		calls++
		return testNow.Add(time.Duration(calls) * time.Second)
	})

	records := n.NormalizeAll([]models.RawRow{{"order_id": "1"}, {"order_id": "2"}, {"order_id": "3"}})
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if !rec.Timestamp.Equal(records[0].Timestamp) {
			t.Errorf("record %d has timestamp %v, want %v", i, rec.Timestamp, records[0].Timestamp)
		}
	}
	if calls != 1 {
		t.Errorf("expected clock read once, got %d", calls)
	}
}

func TestNormalizeAll_PreservesOrder(t *testing.T) {
	records := newTestNormalizer().NormalizeAll([]models.RawRow{
		{"order_id": "c"}, {"order_id": "a"}, {"order_id": "b"},
	})
	got := []string{records[0].OrderID, records[1].OrderID, records[2].OrderID}
	if got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Errorf("order not preserved: %v", got)
	}
}

func TestLoadAliasFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := "customer_name:\n  - buyer\n  - client\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	table, err := LoadAliasFile(path)
	if err != nil {
		t.Fatalf("LoadAliasFile() error = %v", err)
	}
	if got := table[FieldCustomerName]; len(got) != 2 || got[0] != "buyer" {
		t.Errorf("override not applied: %v", got)
	}
	if len(table[FieldProductName]) == 0 {
		t.Error("untouched fields should keep their defaults")
	}

	rec := NewNormalizer(table, time.UTC, fixedNow).Normalize(models.RawRow{"client": "Luis"})
	if rec.CustomerName != "Luis" {
		t.Errorf("expected custom alias to resolve, got %q", rec.CustomerName)
	}
}

func TestLoadAliasFile_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "shoe_size:\n  - talla_zapato\n"},
		{"empty list", "category: []\n"},
		{"bad yaml", "category: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadAliasFile(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := LoadAliasFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
