package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/lysyi3m/mail-comb/app/harvest"
	"github.com/xuri/excelize/v2"
)

func TestXLSXExporter_Run(t *testing.T) {
	table := harvest.Table{
		Columns: harvest.FeedColumns,
		Rows: [][]string{
			{"Site Engineer", "2024-01-10", "https://jobs.example/a", "hr@a.com"},
			{"Accountant", "2024-01-09", "https://jobs.example/b", "0123@b.com"},
		},
	}

	data, err := NewXLSXExporter().Run(table)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Sheet1" {
		t.Errorf("Expected single sheet 'Sheet1', got %v", sheets)
	}

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	expected := [][]string{
		{"Title", "Published Date", "Link", "Email"},
		table.Rows[0],
		table.Rows[1],
	}
	for i := range expected {
		for j := range expected[i] {
			if rows[i][j] != expected[i][j] {
				t.Errorf("Cell (%d,%d): expected '%s', got '%s'", i, j, expected[i][j], rows[i][j])
			}
		}
	}
}

func TestXLSXExporter_EmptyTable(t *testing.T) {
	data, err := NewXLSXExporter().Run(harvest.Table{Columns: harvest.DocumentColumns})
	if !errors.Is(err, ErrEmptyTable) {
		t.Errorf("Expected ErrEmptyTable, got %v", err)
	}
	if data != nil {
		t.Error("Expected no artifact for empty table")
	}
}
