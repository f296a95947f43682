package core

import (
	"errors"
	"math"
)

const (
	KindRevenue LineKind = "revenue"
	KindCost    LineKind = "cost"
)

type (
	// LineKind tells which side of the ledger a category lives on.
	LineKind string

	// MonthlyLedgerRecord is one row of the ledger. Position in the ledger
	// slice defines ordering; labels are free text.
	MonthlyLedgerRecord struct {
		Month   string             `json:"month"`
		Revenue map[string]float64 `json:"revenue"`
		Costs   map[string]float64 `json:"costs"`
	}

	// OperatingDrivers are facility scalars supplied with every evaluation.
	OperatingDrivers struct {
		PalletThroughput int     `json:"pallet_throughput" toml:"pallet_throughput"`
		FacilitySqFt     float64 `json:"facility_sqft" toml:"facility_sqft"`
		ActualRent       float64 `json:"actual_rent" toml:"actual_rent"`
		Headcount        int     `json:"headcount" toml:"headcount"`
		MHEFleet         int     `json:"mhe_fleet" toml:"mhe_fleet"`

		TargetGrossMarginPct float64 `json:"target_gross_margin_pct" toml:"target_gross_margin_pct"`
		TargetEBITDAPct      float64 `json:"target_ebitda_pct" toml:"target_ebitda_pct"`
		TargetOvertimePct    float64 `json:"target_overtime_pct" toml:"target_overtime_pct"`
		TargetDirIndRatio    float64 `json:"target_dir_ind_ratio" toml:"target_dir_ind_ratio"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidKind   = errors.New("invalid line kind")
	ErrEmptyCategory = errors.New("empty category")
)

func (k LineKind) Validate() error {
	switch k {
	case KindRevenue, KindCost:
		return nil
	default:
		return ErrInvalidKind
	}
}

// ValidateAmount accepts finite, non-negative ledger amounts.
func ValidateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Items returns the category map for the given side of the record.
func (r MonthlyLedgerRecord) Items(kind LineKind) map[string]float64 {
	if kind == KindRevenue {
		return r.Revenue
	}
	return r.Costs
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (r MonthlyLedgerRecord) Clone() MonthlyLedgerRecord {
	out := MonthlyLedgerRecord{
		Month:   r.Month,
		Revenue: make(map[string]float64, len(r.Revenue)),
		Costs:   make(map[string]float64, len(r.Costs)),
	}
	for k, v := range r.Revenue {
		out.Revenue[k] = v
	}
	for k, v := range r.Costs {
		out.Costs[k] = v
	}
	return out
}

func (r MonthlyLedgerRecord) Validate() error {
	for _, items := range []map[string]float64{r.Revenue, r.Costs} {
		for name, v := range items {
			if name == "" {
				return ErrEmptyCategory
			}
			if err := ValidateAmount(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// CloneLedger deep-copies a ledger sequence.
func CloneLedger(in []MonthlyLedgerRecord) []MonthlyLedgerRecord {
	out := make([]MonthlyLedgerRecord, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// Validate checks the drivers the formulas divide by. Headcount and fleet
// size are optional; the per-head and per-unit metrics read zero without them.
func (d OperatingDrivers) Validate() error {
	switch {
	case d.PalletThroughput <= 0:
		return &InvalidDriversError{Field: "pallet_throughput", Reason: "must be positive"}
	case !positive(d.FacilitySqFt):
		return &InvalidDriversError{Field: "facility_sqft", Reason: "must be positive"}
	case !positive(d.ActualRent):
		return &InvalidDriversError{Field: "actual_rent", Reason: "must be positive"}
	case d.Headcount < 0:
		return &InvalidDriversError{Field: "headcount", Reason: "must not be negative"}
	case d.MHEFleet < 0:
		return &InvalidDriversError{Field: "mhe_fleet", Reason: "must not be negative"}
	}
	targets := []struct {
		name string
		v    float64
	}{
		{"target_gross_margin_pct", d.TargetGrossMarginPct},
		{"target_ebitda_pct", d.TargetEBITDAPct},
		{"target_overtime_pct", d.TargetOvertimePct},
		{"target_dir_ind_ratio", d.TargetDirIndRatio},
	}
	for _, t := range targets {
		if math.IsNaN(t.v) || math.IsInf(t.v, 0) || t.v < 0 {
			return &InvalidDriversError{Field: t.name, Reason: "must be a finite non-negative number"}
		}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
