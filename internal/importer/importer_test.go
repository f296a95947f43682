package importer

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"threepl/internal/catalog"
	"threepl/internal/core"
)

var (
	revenueCols = []string{"Handling", "Storage", "VAS", "ManagementFees", "PassThrough"}
	costCols    = []string{"DirectLabor", "IndirectLabor", "Overtime", "Facility", "MHE", "Consumables", "ITAdmin", "CorpAllocation", "Depreciation"}
)

func standardBuckets(t *testing.T) core.BucketMap {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}
	v, err := c.Variant("standard")
	if err != nil {
		t.Fatalf("Variant: %v", err)
	}
	return v.Buckets
}

func header() []string {
	h := []string{"Month"}
	h = append(h, revenueCols...)
	return append(h, costCols...)
}

func janRow() []string {
	return []string{"Jan",
		"115000", "$105,000.00", "45000", "15000", "20000",
		"85000", "25000", "8500", "60000", "12000", "6000", "9000", "14000", "7500"}
}

func TestParseGrid(t *testing.T) {
	b := standardBuckets(t)
	feb := janRow()
	feb[0] = "Feb"
	feb[2] = "110000"

	recs, err := ParseGrid([][]string{header(), janRow(), {"", " "}, feb}, b)
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2 (blank row skipped)", len(recs))
	}
	if recs[0].Revenue["Storage"] != 105000 || recs[1].Revenue["Storage"] != 110000 {
		t.Errorf("Storage = %v, %v", recs[0].Revenue["Storage"], recs[1].Revenue["Storage"])
	}
	if recs[0].Costs["Depreciation"] != 7500 {
		t.Errorf("Depreciation = %v, want 7500", recs[0].Costs["Depreciation"])
	}
	if _, ok := recs[0].Revenue["DirectLabor"]; ok {
		t.Errorf("cost column classified as revenue")
	}
}

func TestParseGridMissingTrailingCellsReadAsZero(t *testing.T) {
	b := standardBuckets(t)
	row := janRow()[:len(janRow())-1]
	recs, err := ParseGrid([][]string{header(), row}, b)
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}
	if recs[0].Costs["Depreciation"] != 0 {
		t.Errorf("Depreciation = %v, want 0", recs[0].Costs["Depreciation"])
	}
}

func TestParseGridErrors(t *testing.T) {
	b := standardBuckets(t)

	badAmount := janRow()
	badAmount[3] = "-45"
	noLabel := janRow()
	noLabel[0] = ""
	dup := append(header(), "Storage")

	cases := []struct {
		name string
		rows [][]string
		want error
	}{
		{"empty", nil, ErrEmptyGrid},
		{"first column", [][]string{{"Period", "Storage"}}, ErrBadHeader},
		{"unknown column", [][]string{append(header(), "Fuel")}, ErrBadHeader},
		{"duplicate column", [][]string{dup}, ErrBadHeader},
		{"missing category", [][]string{header()[:len(header())-1], janRow()[:len(janRow())-1]}, core.ErrMissingCategory},
		{"negative amount", [][]string{header(), badAmount}, core.ErrInvalidAmount},
		{"no label", [][]string{header(), noLabel}, ErrEmptyMonthName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseGrid(tc.rows, b)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReadWorkbook(t *testing.T) {
	b := standardBuckets(t)
	f := excelize.NewFile()
	defer f.Close()

	hdr := header()
	row := []interface{}{"Jan", 115000, 105000.5, 45000, 15000, 20000, 85000, 25000, 8500, 60000, 12000, 6000, 9000, 14000, 7500}
	cells := make([]interface{}, len(hdr))
	for i, h := range hdr {
		cells[i] = h
	}
	if err := f.SetSheetRow("Sheet1", "A1", &cells); err != nil {
		t.Fatalf("SetSheetRow header: %v", err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &row); err != nil {
		t.Fatalf("SetSheetRow data: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}

	recs, err := ReadWorkbook(path, "", b)
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	if len(recs) != 1 || recs[0].Month != "Jan" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if recs[0].Revenue["Storage"] != 105000.5 {
		t.Errorf("Storage = %v, want 105000.5", recs[0].Revenue["Storage"])
	}

	if _, err := ReadWorkbook(path, "Missing", b); err == nil {
		t.Errorf("expected error for missing sheet")
	}
}

func TestParseValues(t *testing.T) {
	b := standardBuckets(t)
	values := [][]interface{}{
		{"Month", "Handling", "Storage", "VAS", "ManagementFees", "PassThrough",
			"DirectLabor", "IndirectLabor", "Overtime", "Facility", "MHE", "Consumables", "ITAdmin", "CorpAllocation", "Depreciation"},
		{"Jan", 115000.0, 1.05e6, "45,000", 15000.0, 20000.0, 85000.0, 25000.0, 8500.0, 60000.0, 12000.0, 6000.0, 9000.0, 14000.0, nil},
	}
	recs, err := parseValues(values, b)
	if err != nil {
		t.Fatalf("parseValues: %v", err)
	}
	if recs[0].Revenue["Storage"] != 1050000 {
		t.Errorf("Storage = %v, want 1050000", recs[0].Revenue["Storage"])
	}
	if recs[0].Revenue["VAS"] != 45000 || recs[0].Costs["Depreciation"] != 0 {
		t.Errorf("unexpected record: %+v", recs[0])
	}
}
