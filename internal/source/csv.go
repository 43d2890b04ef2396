package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"storefront-dashboard/internal/models"
)

const ctxCheckEvery = 1000

// CSV reads each view from a file named by the view, relative to Dir unless
// absolute. The first line is the header.
type CSV struct {
	Dir string
}

func NewCSV(dir string) *CSV {
	return &CSV{Dir: dir}
}

func (c *CSV) FetchRows(ctx context.Context, view string) ([]models.RawRow, error) {
	path := view
	if !filepath.IsAbs(path) && c.Dir != "" {
		path = filepath.Join(c.Dir, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return ReadCSV(ctx, file)
}

// ReadCSV parses a header-led CSV stream. Short rows leave the missing
// columns absent; extra cells are dropped.
func ReadCSV(ctx context.Context, r io.Reader) ([]models.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = normalizeKey(header[i])
	}

	var rows []models.RawRow
	for line := 2; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make(models.RawRow, len(header))
		for i, key := range header {
			if i >= len(record) || key == "" {
				continue
			}
			row[key] = record[i]
		}
		rows = append(rows, row)
	}

	return rows, nil
}
