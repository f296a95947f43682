package core

import "fmt"

// DerivedMetrics is the full set of figures shown for one month. Values are
// unrounded; use Rounded for presentation.
type DerivedMetrics struct {
	Month string `json:"month"`

	GrossRevenue       float64 `json:"gross_revenue"`
	PassThroughRevenue float64 `json:"pass_through_revenue"`
	NetRevenue         float64 `json:"net_revenue"`
	TotalDirectCost    float64 `json:"total_direct_cost"`
	GrossProfit        float64 `json:"gross_profit"`
	Overhead           float64 `json:"overhead"`
	EBITDA             float64 `json:"ebitda"`
	Depreciation       float64 `json:"depreciation"`
	EBIT               float64 `json:"ebit"`

	GrossMarginPct  float64 `json:"gross_margin_pct"`
	EBITDAMarginPct float64 `json:"ebitda_margin_pct"`
	EBITMarginPct   float64 `json:"ebit_margin_pct"`

	GPPerPallet    float64 `json:"gp_per_pallet"`
	RevPerSqFt     float64 `json:"rev_per_sqft"`
	RevPerHead     float64 `json:"rev_per_head"`
	MHECostPerUnit float64 `json:"mhe_cost_per_unit"`

	StorageRevenue  float64 `json:"storage_revenue"`
	RentRecovery    float64 `json:"rent_recovery"`
	DirectLabor     float64 `json:"direct_labor"`
	IndirectLabor   float64 `json:"indirect_labor"`
	OvertimeExpense float64 `json:"overtime_expense"`
	TotalLabor      float64 `json:"total_labor"`
	LaborEfficiency float64 `json:"labor_efficiency"`
	OvertimePct     float64 `json:"overtime_pct"`
	DirIndRatio     float64 `json:"dir_ind_ratio"`

	GrossMarginVsTarget  float64 `json:"gross_margin_vs_target"`
	EBITDAMarginVsTarget float64 `json:"ebitda_margin_vs_target"`
	OvertimeVsTarget     float64 `json:"overtime_vs_target"`
	DirIndVsTarget       float64 `json:"dir_ind_vs_target"`
}

// Calculator derives metrics for one dashboard variant.
type Calculator struct {
	buckets BucketMap
}

// NewCalculator validates the bucket map and returns a calculator bound to it.
func NewCalculator(b BucketMap) (*Calculator, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{buckets: b}, nil
}

// Buckets returns the map the calculator was built with.
func (c *Calculator) Buckets() BucketMap {
	return c.buckets
}

// ComputeMonthlyMetrics derives the metrics of the month at monthIndex.
// The index only selects the row; it plays no part in the arithmetic.
func (c *Calculator) ComputeMonthlyMetrics(ledger []MonthlyLedgerRecord, drivers OperatingDrivers, monthIndex int) (DerivedMetrics, error) {
	if err := CheckIndex(monthIndex, len(ledger)); err != nil {
		return DerivedMetrics{}, err
	}
	return c.Compute(ledger[monthIndex], drivers)
}

// ComputeTable derives one metrics record per month, in ledger order.
func (c *Calculator) ComputeTable(ledger []MonthlyLedgerRecord, drivers OperatingDrivers) ([]DerivedMetrics, error) {
	out := make([]DerivedMetrics, 0, len(ledger))
	for i, rec := range ledger {
		m, err := c.Compute(rec, drivers)
		if err != nil {
			return nil, fmt.Errorf("month %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Compute derives the metrics for a single record.
func (c *Calculator) Compute(rec MonthlyLedgerRecord, drivers OperatingDrivers) (DerivedMetrics, error) {
	if err := drivers.Validate(); err != nil {
		return DerivedMetrics{}, err
	}
	if err := c.buckets.CheckRecord(rec); err != nil {
		return DerivedMetrics{}, err
	}
	b := c.buckets
	m := DerivedMetrics{Month: rec.Month}

	// Summed in bucket order, not map order, so repeated runs are bit-identical.
	m.GrossRevenue = sum(rec.Revenue, b.Revenue)
	m.PassThroughRevenue = sum(rec.Revenue, b.PassThrough)
	m.NetRevenue = m.GrossRevenue - m.PassThroughRevenue

	m.TotalDirectCost = sum(rec.Costs, b.DirectCost)
	m.GrossProfit = m.NetRevenue - m.TotalDirectCost
	m.Overhead = sum(rec.Costs, b.Overhead)
	m.EBITDA = m.GrossProfit - m.Overhead
	m.Depreciation = sum(rec.Costs, b.Depreciation)
	m.EBIT = m.EBITDA - m.Depreciation

	netRev := nonZero(m.NetRevenue)
	m.GrossMarginPct = m.GrossProfit / netRev
	m.EBITDAMarginPct = m.EBITDA / netRev
	m.EBITMarginPct = m.EBIT / netRev

	m.GPPerPallet = m.GrossProfit / float64(drivers.PalletThroughput)
	m.RevPerSqFt = m.NetRevenue / drivers.FacilitySqFt
	if drivers.Headcount > 0 {
		m.RevPerHead = m.NetRevenue / float64(drivers.Headcount)
	}
	if drivers.MHEFleet > 0 {
		m.MHECostPerUnit = sum(rec.Costs, b.MHE) / float64(drivers.MHEFleet)
	}

	m.StorageRevenue = rec.Revenue[b.Storage]
	m.RentRecovery = m.StorageRevenue / drivers.ActualRent

	m.DirectLabor = sum(rec.Costs, b.DirectLabor)
	m.IndirectLabor = sum(rec.Costs, b.IndirectLabor)
	m.OvertimeExpense = sum(rec.Costs, b.Overtime)
	m.TotalLabor = m.DirectLabor + m.IndirectLabor + m.OvertimeExpense
	m.LaborEfficiency = sum(rec.Costs, b.QualifyingLabor) / netRev
	m.OvertimePct = m.OvertimeExpense / nonZero(m.TotalLabor)
	m.DirIndRatio = m.DirectLabor / nonZero(m.IndirectLabor)

	m.GrossMarginVsTarget = m.GrossMarginPct - drivers.TargetGrossMarginPct
	m.EBITDAMarginVsTarget = m.EBITDAMarginPct - drivers.TargetEBITDAPct
	m.OvertimeVsTarget = m.OvertimePct - drivers.TargetOvertimePct
	m.DirIndVsTarget = m.DirIndRatio - drivers.TargetDirIndRatio

	// Each amount is finite, but sums and ratios of them can still overflow.
	for _, f := range m.figures() {
		if !finite(*f.p) {
			return DerivedMetrics{}, fmt.Errorf("month %q: %s overflows: %w", rec.Month, f.name, ErrInvalidAmount)
		}
	}
	return m, nil
}

// Rounded returns the presentation copy: money to cents, ratios to four places.
func (m DerivedMetrics) Rounded() DerivedMetrics {
	out := m
	for _, f := range out.figures() {
		if f.ratio {
			*f.p = RoundRatio(*f.p)
		} else {
			*f.p = RoundMoney(*f.p)
		}
	}
	return out
}

type figure struct {
	name  string
	p     *float64
	ratio bool
}

func (m *DerivedMetrics) figures() []figure {
	return []figure{
		{"gross_revenue", &m.GrossRevenue, false},
		{"pass_through_revenue", &m.PassThroughRevenue, false},
		{"net_revenue", &m.NetRevenue, false},
		{"total_direct_cost", &m.TotalDirectCost, false},
		{"gross_profit", &m.GrossProfit, false},
		{"overhead", &m.Overhead, false},
		{"ebitda", &m.EBITDA, false},
		{"depreciation", &m.Depreciation, false},
		{"ebit", &m.EBIT, false},
		{"gp_per_pallet", &m.GPPerPallet, false},
		{"rev_per_sqft", &m.RevPerSqFt, false},
		{"rev_per_head", &m.RevPerHead, false},
		{"mhe_cost_per_unit", &m.MHECostPerUnit, false},
		{"storage_revenue", &m.StorageRevenue, false},
		{"direct_labor", &m.DirectLabor, false},
		{"indirect_labor", &m.IndirectLabor, false},
		{"overtime_expense", &m.OvertimeExpense, false},
		{"total_labor", &m.TotalLabor, false},

		{"gross_margin_pct", &m.GrossMarginPct, true},
		{"ebitda_margin_pct", &m.EBITDAMarginPct, true},
		{"ebit_margin_pct", &m.EBITMarginPct, true},
		{"rent_recovery", &m.RentRecovery, true},
		{"labor_efficiency", &m.LaborEfficiency, true},
		{"overtime_pct", &m.OvertimePct, true},
		{"dir_ind_ratio", &m.DirIndRatio, true},
		{"gross_margin_vs_target", &m.GrossMarginVsTarget, true},
		{"ebitda_margin_vs_target", &m.EBITDAMarginVsTarget, true},
		{"overtime_vs_target", &m.OvertimeVsTarget, true},
		{"dir_ind_vs_target", &m.DirIndVsTarget, true},
	}
}

func sum(items map[string]float64, categories []string) float64 {
	var total float64
	for _, c := range categories {
		total += items[c]
	}
	return total
}

// nonZero substitutes 1 for an exactly-zero denominator taken from ledger
// values, so an empty month yields 0 rather than NaN or Inf.
func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
