// Package source reads raw order rows from the stores the dashboard can be
// pointed at: CSV exports and SQL databases. Each source returns rows keyed by
// the column names it found, untouched; reconciling naming conventions is the
// normalizer's job.
package source

import (
	"context"
	"fmt"
	"strings"

	"storefront-dashboard/internal/models"
)

const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Static serves fixed rows per view. Unknown views yield an error.
type Static map[string][]models.RawRow

func (s Static) FetchRows(ctx context.Context, view string) ([]models.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, ok := s[view]
	if !ok {
		return nil, fmt.Errorf("unknown view %q", view)
	}
	return rows, nil
}

func normalizeKey(k string) string {
	return strings.TrimSpace(strings.TrimPrefix(k, "\ufeff"))
}
