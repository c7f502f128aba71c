package export

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/mail-comb/app/harvest"
	"github.com/xuri/excelize/v2"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName   = "Sheet1"
)

var ErrEmptyTable = errors.New("no rows to export")

// XLSXExporter writes a result table as a single-sheet workbook: the header
// row followed by the rows in table order, values untouched.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) Run(table harvest.Table) ([]byte, error) {
	if table.Len() == 0 {
		return nil, ErrEmptyTable
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Debug("Failed to close workbook", "error", err)
		}
	}()

	if err := writeRow(f, 1, table.Columns); err != nil {
		return nil, err
	}
	for i, row := range table.Rows {
		if err := writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, rowIdx int, values []string) error {
	for colIdx, v := range values {
		cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetCellStr(SheetName, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}
