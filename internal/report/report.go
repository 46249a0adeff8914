package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	googlegw "citas/internal/google"
)

const sheetTitle = "Citas"

// RowSource reads the raw ledger rows, header row included.
type RowSource interface {
	Rows(ctx context.Context) ([][]string, error)
}

// Exporter renders the spreadsheet ledger as an XLSX workbook for staff
// who prefer a downloadable copy over the live sheet.
type Exporter struct {
	source RowSource
	tz     *time.Location
}

func NewExporter(source RowSource, tz *time.Location) *Exporter {
	return &Exporter{source: source, tz: tz}
}

// Export builds the workbook and returns its bytes and a dated filename.
func (e *Exporter) Export(ctx context.Context) ([]byte, string, error) {
	rows, err := e.source.Rows(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("export ledger: %w", err)
	}

	w := NewExcelizeWriter()
	defer w.Close()

	if err := w.AddSheet(sheetTitle); err != nil {
		return nil, "", err
	}
	if err := w.WriteHeader(googlegw.LedgerHeaders()); err != nil {
		return nil, "", err
	}
	for i, row := range rows {
		// Row 0 is the sheet's own header.
		if i == 0 {
			continue
		}
		if err := w.WriteRow(row); err != nil {
			return nil, "", err
		}
	}

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}

	filename := fmt.Sprintf("citas_%s.xlsx", time.Now().In(e.tz).Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
