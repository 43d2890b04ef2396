package services

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"storefront-dashboard/internal/models"
)

// Logical field names used as keys of an AliasTable.
const (
	FieldOrderID      = "order_id"
	FieldTimestamp    = "timestamp"
	FieldDisplayDate  = "display_date"
	FieldCustomerName = "customer_name"
	FieldCustomerID   = "customer_id"
	FieldProductName  = "product_name"
	FieldCategory     = "category"
	FieldSize         = "size"
	FieldGender       = "gender"
	FieldStatus       = "status"
	FieldTotal        = "total"
	FieldQuantity     = "quantity"
	FieldBrand        = "brand"
)

const (
	DefaultCustomerName = "Guest"
	DefaultProductName  = "Unknown product"
	DefaultCategory     = "Other"
	DefaultSize         = "Unisize"
	DefaultGender       = "Unisex"
	DefaultStatus       = "Pending"
)

// Larger quantities are treated as unparseable and fall back to 1, which
// keeps unit sums far from int overflow.
const maxQuantity = math.MaxInt32

// AliasTable maps a logical field to the raw keys that may carry it, in
// lookup order.
type AliasTable map[string][]string

func DefaultAliases() AliasTable {
	return AliasTable{
		FieldOrderID:      {"order_id", "orderId", "id_pedido", "pedido_id", "id"},
		FieldTimestamp:    {"created_at", "createdAt", "fecha", "date", "timestamp"},
		FieldDisplayDate:  {"display_date", "displayDate", "fecha_formateada"},
		FieldCustomerName: {"customer_name", "customerName", "cliente", "nombre_cliente"},
		FieldCustomerID:   {"customer_id", "customerId", "id_cliente"},
		FieldProductName:  {"product_name", "productName", "producto", "nombre_producto"},
		FieldCategory:     {"category", "categoria"},
		FieldSize:         {"size", "talla"},
		FieldGender:       {"gender", "genero"},
		FieldStatus:       {"status", "estado"},
		FieldTotal:        {"total", "monto", "amount", "total_price"},
		FieldQuantity:     {"quantity", "cantidad", "qty"},
		FieldBrand:        {"brand", "marca"},
	}
}

// LoadAliasFile reads a YAML document of field -> alias list and merges it
// over the defaults. Listed fields replace the default list entirely.
func LoadAliasFile(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse alias file: %w", err)
	}

	table := DefaultAliases()
	for field, aliases := range overrides {
		if _, known := table[field]; !known {
			return nil, fmt.Errorf("alias file: unknown field %q", field)
		}
		if len(aliases) == 0 {
			return nil, fmt.Errorf("alias file: field %q has no aliases", field)
		}
		table[field] = aliases
	}
	return table, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalizer reshapes raw rows into NormalizedRecords. It holds no mutable
// state and may be shared between goroutines.
type Normalizer struct {
	aliases  AliasTable
	location *time.Location
	now      func() time.Time
}

func NewNormalizer(aliases AliasTable, loc *time.Location, now func() time.Time) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{aliases: aliases, location: loc, now: now}
}

// NormalizeAll normalizes rows in order. Every row that lacks a timestamp
// receives the same capture instant.
func (n *Normalizer) NormalizeAll(rows []models.RawRow) []models.NormalizedRecord {
	captured := n.now()
	records := make([]models.NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, n.normalize(row, captured))
	}
	return records
}

func (n *Normalizer) Normalize(row models.RawRow) models.NormalizedRecord {
	return n.normalize(row, n.now())
}

func (n *Normalizer) normalize(row models.RawRow, captured time.Time) models.NormalizedRecord {
	rec := models.NormalizedRecord{
		OrderID:      n.str(row, FieldOrderID, ""),
		DisplayDate:  n.str(row, FieldDisplayDate, ""),
		CustomerName: n.str(row, FieldCustomerName, DefaultCustomerName),
		CustomerID:   n.str(row, FieldCustomerID, ""),
		ProductName:  n.str(row, FieldProductName, DefaultProductName),
		Category:     n.str(row, FieldCategory, DefaultCategory),
		Size:         n.str(row, FieldSize, DefaultSize),
		Gender:       n.str(row, FieldGender, DefaultGender),
		Status:       n.str(row, FieldStatus, DefaultStatus),
		Brand:        n.str(row, FieldBrand, ""),
		Total:        0,
		Quantity:     1,
	}

	if v, ok := n.lookup(row, FieldTotal); ok {
		if f, ok := toFloat(v); ok && f >= 0 {
			rec.Total = f
		}
	}

	if v, ok := n.lookup(row, FieldQuantity); ok {
		if f, ok := toFloat(v); ok && f >= 1 && f <= maxQuantity {
			rec.Quantity = int(f)
		}
	}

	if v, ok := n.lookup(row, FieldTimestamp); ok {
		rec.Timestamp = n.toTime(v)
	} else {
		rec.Timestamp = captured
	}

	return rec
}

func (n *Normalizer) lookup(row models.RawRow, field string) (any, bool) {
	for _, key := range n.aliases[field] {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		if b, isBytes := v.([]byte); isBytes && len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		return v, true
	}
	return nil, false
}

func (n *Normalizer) str(row models.RawRow, field, fallback string) string {
	v, ok := n.lookup(row, field)
	if !ok {
		return fallback
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case []byte:
		return strings.TrimSpace(string(s))
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func (n *Normalizer) toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		return n.parseTime(t)
	case []byte:
		return n.parseTime(string(t))
	default:
		if ms, ok := toFloat(v); ok && ms >= minEpochMillis && ms <= maxEpochMillis {
			return time.UnixMilli(int64(ms)).In(n.location)
		}
	}
	return time.Time{}
}

// Numeric dates are epoch milliseconds within years 1 to 9999.
var (
	minEpochMillis = float64(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli())
	maxEpochMillis = float64(time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli())
)

func (n *Normalizer) parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, n.location); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case []byte:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
