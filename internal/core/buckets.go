package core

import (
	"errors"
	"fmt"
	"strings"
)

// BucketMap assigns ledger categories to the P&L and labor buckets. One map
// describes one dashboard variant.
//
// Cost categories fall in exactly one of DirectCost, Overhead, Depreciation
// or Memo. Memo categories are carried on the ledger and feed the labor
// ratios but are never subtracted in the P&L, which is how overtime is
// tracked in the canonical grouping. The labor lists are views over cost
// categories and may overlap the P&L buckets. Classifying indirect labor as direct or overhead
// is done by listing it under DirectCost or Overhead.
type BucketMap struct {
	Revenue     []string `toml:"revenue" json:"revenue"`
	PassThrough []string `toml:"pass_through" json:"pass_through"`
	Storage     string   `toml:"storage" json:"storage"`

	DirectCost   []string `toml:"direct_cost" json:"direct_cost"`
	Overhead     []string `toml:"overhead" json:"overhead"`
	Depreciation []string `toml:"depreciation" json:"depreciation"`
	Memo         []string `toml:"memo" json:"memo,omitempty"`

	DirectLabor     []string `toml:"direct_labor" json:"direct_labor"`
	IndirectLabor   []string `toml:"indirect_labor" json:"indirect_labor"`
	Overtime        []string `toml:"overtime" json:"overtime"`
	QualifyingLabor []string `toml:"qualifying_labor" json:"qualifying_labor"`
	MHE             []string `toml:"mhe" json:"mhe"`
}

// Validate checks that the lists form a consistent partition.
func (b BucketMap) Validate() error {
	var problems []string

	if len(b.Revenue) == 0 {
		problems = append(problems, "no revenue categories")
	}
	revenue, dup := toSet(b.Revenue)
	if dup != "" {
		problems = append(problems, fmt.Sprintf("revenue category %q listed twice", dup))
	}
	for _, c := range b.PassThrough {
		if _, ok := revenue[c]; !ok {
			problems = append(problems, fmt.Sprintf("pass-through category %q is not a revenue category", c))
		}
	}
	if b.Storage == "" {
		problems = append(problems, "no storage revenue category")
	} else if _, ok := revenue[b.Storage]; !ok {
		problems = append(problems, fmt.Sprintf("storage category %q is not a revenue category", b.Storage))
	}

	costs := map[string]string{}
	for _, group := range []struct {
		name string
		list []string
	}{
		{"direct_cost", b.DirectCost},
		{"overhead", b.Overhead},
		{"depreciation", b.Depreciation},
		{"memo", b.Memo},
	} {
		for _, c := range group.list {
			if strings.TrimSpace(c) == "" {
				problems = append(problems, fmt.Sprintf("empty category in %s", group.name))
				continue
			}
			if prev, ok := costs[c]; ok {
				problems = append(problems, fmt.Sprintf("cost category %q in both %s and %s", c, prev, group.name))
				continue
			}
			costs[c] = group.name
		}
	}
	if len(costs) == 0 {
		problems = append(problems, "no cost categories")
	}
	for _, group := range []struct {
		name string
		list []string
	}{
		{"direct_labor", b.DirectLabor},
		{"indirect_labor", b.IndirectLabor},
		{"overtime", b.Overtime},
		{"qualifying_labor", b.QualifyingLabor},
		{"mhe", b.MHE},
	} {
		for _, c := range group.list {
			if _, ok := costs[c]; !ok {
				problems = append(problems, fmt.Sprintf("%s category %q is not a cost category", group.name, c))
			}
		}
	}

	if len(problems) > 0 {
		return errors.New("bucket map: " + strings.Join(problems, "; "))
	}
	return nil
}

// Categories lists every category the map expects on the given side.
func (b BucketMap) Categories(kind LineKind) []string {
	if kind == KindRevenue {
		return append([]string(nil), b.Revenue...)
	}
	out := make([]string, 0, len(b.DirectCost)+len(b.Overhead)+len(b.Depreciation)+len(b.Memo))
	out = append(out, b.DirectCost...)
	out = append(out, b.Overhead...)
	out = append(out, b.Depreciation...)
	out = append(out, b.Memo...)
	return out
}

// KindOf reports which side a category belongs to.
func (b BucketMap) KindOf(category string) (LineKind, bool) {
	for _, kind := range []LineKind{KindRevenue, KindCost} {
		for _, c := range b.Categories(kind) {
			if c == category {
				return kind, true
			}
		}
	}
	return "", false
}

// CheckRecord verifies that a record carries exactly the mapped categories.
func (b BucketMap) CheckRecord(r MonthlyLedgerRecord) error {
	for _, kind := range []LineKind{KindRevenue, KindCost} {
		items := r.Items(kind)
		expected := b.Categories(kind)
		for _, c := range expected {
			if _, ok := items[c]; !ok {
				return &MissingCategoryError{Month: r.Month, Kind: kind, Category: c}
			}
		}
		if len(items) != len(expected) {
			known, _ := toSet(expected)
			for c := range items {
				if _, ok := known[c]; !ok {
					return &MissingCategoryError{Month: r.Month, Kind: kind, Category: c, Unmapped: true}
				}
			}
		}
	}
	return nil
}

func toSet(list []string) (map[string]struct{}, string) {
	set := make(map[string]struct{}, len(list))
	dup := ""
	for _, v := range list {
		if _, ok := set[v]; ok && dup == "" {
			dup = v
		}
		set[v] = struct{}{}
	}
	return set, dup
}
