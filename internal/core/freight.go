package core

import (
	"strings"
)

const (
	ModeFTL Mode = "FTL"
	ModeLTL Mode = "LTL"

	EquipmentDryVan Equipment = "DryVan"
	EquipmentReefer Equipment = "Reefer"
)

type (
	Mode      string
	Equipment string

	// FreightShipment is a single quote request. Dimensions are inches,
	// weight pounds, distance miles, fuel price dollars per gallon.
	FreightShipment struct {
		Mode         Mode      `json:"mode"`
		ActualWeight float64   `json:"actual_weight"`
		Length       float64   `json:"length"`
		Width        float64   `json:"width"`
		Height       float64   `json:"height"`
		Distance     float64   `json:"distance"`
		FuelPrice    float64   `json:"fuel_price"`
		Equipment    Equipment `json:"equipment"`
	}

	QuoteBreakdown struct {
		Mode             Mode    `json:"mode"`
		DimWeight        float64 `json:"dim_weight"`
		ChargeableWeight float64 `json:"chargeable_weight"`
		BaseFreight      float64 `json:"base_freight"`
		FuelSurcharge    float64 `json:"fuel_surcharge"`
		Total            float64 `json:"total_landed_cost"`
	}

	// RateCard holds the pricing levers of the quote calculator.
	RateCard struct {
		DimFactor         float64 `toml:"dim_factor" json:"dim_factor"`
		PerMileRate       float64 `toml:"per_mile_rate" json:"per_mile_rate"`
		ReeferMultiplier  float64 `toml:"reefer_multiplier" json:"reefer_multiplier"`
		RatePerCWT        float64 `toml:"rate_per_cwt" json:"rate_per_cwt"`
		FuelPegPrice      float64 `toml:"fuel_peg_price" json:"fuel_peg_price"`
		FuelEfficiencyMPG float64 `toml:"fuel_efficiency_mpg" json:"fuel_efficiency_mpg"`
	}
)

// DefaultRateCard returns the domestic contract levers.
func DefaultRateCard() RateCard {
	return RateCard{
		DimFactor:         194,
		PerMileRate:       2.50,
		ReeferMultiplier:  1.3,
		RatePerCWT:        15.00,
		FuelPegPrice:      3.50,
		FuelEfficiencyMPG: 6.5,
	}
}

func (rc RateCard) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"dim_factor", rc.DimFactor},
		{"per_mile_rate", rc.PerMileRate},
		{"reefer_multiplier", rc.ReeferMultiplier},
		{"rate_per_cwt", rc.RatePerCWT},
		{"fuel_peg_price", rc.FuelPegPrice},
		{"fuel_efficiency_mpg", rc.FuelEfficiencyMPG},
	} {
		if !positive(f.v) {
			return &InvalidDriversError{Field: "rate_card." + f.name, Reason: "must be positive"}
		}
	}
	return nil
}

// ParseMode accepts FTL or LTL in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ModeFTL):
		return ModeFTL, nil
	case string(ModeLTL):
		return ModeLTL, nil
	default:
		return "", &InvalidModeError{Field: "mode", Value: s}
	}
}

// ParseEquipment accepts "DryVan", "Dry Van" and "Reefer" in any case.
// Blank means dry van.
func ParseEquipment(s string) (Equipment, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	switch norm {
	case "", "dryvan":
		return EquipmentDryVan, nil
	case "reefer":
		return EquipmentReefer, nil
	default:
		return "", &InvalidModeError{Field: "equipment", Value: s}
	}
}

// Quoter prices shipments against a rate card. It is stateless and safe to
// share.
type Quoter struct {
	rates RateCard
}

func NewQuoter(rc RateCard) (Quoter, error) {
	if err := rc.Validate(); err != nil {
		return Quoter{}, err
	}
	return Quoter{rates: rc}, nil
}

func (q Quoter) Rates() RateCard {
	return q.rates
}

// DimWeight is the billable weight implied by the package volume.
func (q Quoter) DimWeight(length, width, height float64) float64 {
	return (length * width * height) / q.rates.DimFactor
}

// FuelSurcharge is zero at or below the peg and ramps linearly above it.
func (q Quoter) FuelSurcharge(fuelPrice, distance float64) float64 {
	if fuelPrice <= q.rates.FuelPegPrice {
		return 0
	}
	return (fuelPrice - q.rates.FuelPegPrice) / q.rates.FuelEfficiencyMPG * distance
}

// Quote prices a shipment. The breakdown is rounded to cents; the total is
// taken from unrounded components.
func (q Quoter) Quote(s FreightShipment) (QuoteBreakdown, error) {
	mode, err := ParseMode(string(s.Mode))
	if err != nil {
		return QuoteBreakdown{}, err
	}
	equipment, err := ParseEquipment(string(s.Equipment))
	if err != nil {
		return QuoteBreakdown{}, err
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"actual_weight", s.ActualWeight},
		{"length", s.Length},
		{"width", s.Width},
		{"height", s.Height},
		{"distance", s.Distance},
		{"fuel_price", s.FuelPrice},
	} {
		if !positive(f.v) {
			return QuoteBreakdown{}, &InvalidShipmentError{Field: f.name, Value: f.v}
		}
	}

	dim := q.DimWeight(s.Length, s.Width, s.Height)
	chargeable := max(s.ActualWeight, dim)

	var base float64
	switch mode {
	case ModeFTL:
		multiplier := 1.0
		if equipment == EquipmentReefer {
			multiplier = q.rates.ReeferMultiplier
		}
		base = s.Distance * q.rates.PerMileRate * multiplier
	case ModeLTL:
		base = chargeable / 100 * q.rates.RatePerCWT
	}

	fsc := q.FuelSurcharge(s.FuelPrice, s.Distance)

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"dimensions", dim},
		{"base_freight", base},
		{"fuel_surcharge", fsc},
		{"total", base + fsc},
	} {
		if !finite(f.v) {
			return QuoteBreakdown{}, &InvalidShipmentError{Field: f.name, Value: f.v, Reason: "overflows the representable range"}
		}
	}

	return QuoteBreakdown{
		Mode:             mode,
		DimWeight:        RoundMoney(dim),
		ChargeableWeight: RoundMoney(chargeable),
		BaseFreight:      RoundMoney(base),
		FuelSurcharge:    RoundMoney(fsc),
		Total:            RoundMoney(base + fsc),
	}, nil
}
