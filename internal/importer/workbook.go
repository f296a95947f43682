package importer

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"threepl/internal/core"
)

// ReadWorkbook opens an .xlsx file and parses one of its sheets. An empty
// sheet name selects the first sheet in the workbook.
func ReadWorkbook(path, sheet string, b core.BucketMap) ([]core.MonthlyLedgerRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return ReadFile(f, sheet, b)
}

// ReadFile parses a sheet of an already opened workbook.
func ReadFile(f *excelize.File, sheet string, b core.BucketMap) ([]core.MonthlyLedgerRecord, error) {
	if strings.TrimSpace(sheet) == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyGrid
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	recs, err := ParseGrid(rows, b)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	return recs, nil
}
