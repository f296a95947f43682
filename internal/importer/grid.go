// Package importer seeds a ledger from tabular sources: plain string grids,
// .xlsx workbooks and Google Sheets ranges.
//
// All sources share one layout. The first row is a header of "Month"
// followed by category names; every following row is one month.
//
//	Month | Handling | Storage | ... | DirectLabor | Facility | ...
//	Jan   | 115000   | 105000  | ... | 85000       | 60000    | ...
package importer

import (
	"errors"
	"fmt"
	"strings"

	"threepl/internal/core"
)

const monthHeader = "Month"

var (
	ErrEmptyGrid      = errors.New("grid has no header row")
	ErrBadHeader      = errors.New("unexpected header")
	ErrEmptyMonthName = errors.New("empty month label")
)

type column struct {
	index    int
	kind     core.LineKind
	category string
}

// ParseGrid converts rows into ledger records, classifying each category
// column with the bucket map. Rows whose cells are all blank are skipped.
// Every record is checked against the map, so a sheet that lacks a mapped
// category fails with a MissingCategoryError.
func ParseGrid(rows [][]string, b core.BucketMap) ([]core.MonthlyLedgerRecord, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyGrid
	}
	cols, err := parseHeader(rows[0], b)
	if err != nil {
		return nil, err
	}

	var out []core.MonthlyLedgerRecord
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		label := strings.TrimSpace(safeGet(row, 0))
		if label == "" {
			return nil, fmt.Errorf("row %d: %w", i+1, ErrEmptyMonthName)
		}
		rec := core.MonthlyLedgerRecord{
			Month:   label,
			Revenue: map[string]float64{},
			Costs:   map[string]float64{},
		}
		for _, c := range cols {
			amt, err := core.ParseAmount(safeGet(row, c.index))
			if err != nil {
				return nil, fmt.Errorf("row %d, %s: %q: %w", i+1, c.category, safeGet(row, c.index), err)
			}
			rec.Items(c.kind)[c.category] = amt
		}
		if err := b.CheckRecord(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseHeader(header []string, b core.BucketMap) ([]column, error) {
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), monthHeader) {
		return nil, fmt.Errorf("%w: first column must be %q, got %v", ErrBadHeader, monthHeader, header)
	}
	seen := map[string]bool{}
	cols := make([]column, 0, len(header)-1)
	for i := 1; i < len(header); i++ {
		name := strings.TrimSpace(header[i])
		if name == "" {
			continue
		}
		kind, ok := b.KindOf(name)
		if !ok {
			return nil, fmt.Errorf("%w: column %q is not a mapped category", ErrBadHeader, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: column %q appears twice", ErrBadHeader, name)
		}
		seen[name] = true
		cols = append(cols, column{index: i, kind: kind, category: name})
	}
	return cols, nil
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
