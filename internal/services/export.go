package services

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"storefront-dashboard/internal/models"
)

const exportSheet = "Orders"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportHeaders is the fixed column order of every table export.
func ExportHeaders() []string {
	return []string{"Date", "Customer", "Product", "Category", "Size", "Total", "Status"}
}

// ExportFilename embeds the current date, e.g. orders_2024-03-01.csv.
func ExportFilename(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("2006-01-02"), ext)
}

func displayDate(rec models.NormalizedRecord, loc *time.Location) string {
	if rec.DisplayDate != "" {
		return rec.DisplayDate
	}
	if !rec.HasValidTimestamp() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return rec.Timestamp.In(loc).Format("2006-01-02")
}

func exportRow(rec models.NormalizedRecord, loc *time.Location) []string {
	return []string{
		displayDate(rec, loc),
		rec.CustomerName,
		rec.ProductName,
		rec.Category,
		rec.Size,
		strconv.FormatFloat(rec.Total, 'f', 2, 64),
		rec.Status,
	}
}

// WriteCSV writes a BOM, a header row and one row per record. Every field is
// quoted and rows are joined by a single "\n" with no trailing newline.
func WriteCSV(w io.Writer, records []models.NormalizedRecord, loc *time.Location) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	writeLine(bw, ExportHeaders())
	for _, rec := range records {
		bw.WriteByte('\n')
		writeLine(bw, exportRow(rec, loc))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeLine(bw *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('"')
		bw.WriteString(strings.ReplaceAll(f, `"`, `""`))
		bw.WriteByte('"')
	}
}

// WriteXLSX writes the same table as WriteCSV into a single-sheet workbook.
// Totals are stored as numbers.
func WriteXLSX(w io.Writer, records []models.NormalizedRecord, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := ExportHeaders()
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			displayDate(rec, loc),
			rec.CustomerName,
			rec.ProductName,
			rec.Category,
			rec.Size,
			rec.Total,
			rec.Status,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
