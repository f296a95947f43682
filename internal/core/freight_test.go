package core

import (
	"errors"
	"math"
	"testing"
)

func defaultQuoter(t *testing.T) Quoter {
	t.Helper()
	q, err := NewQuoter(DefaultRateCard())
	if err != nil {
		t.Fatalf("NewQuoter: %v", err)
	}
	return q
}

func TestDimWeightUnit(t *testing.T) {
	q := defaultQuoter(t)
	if got := q.DimWeight(194, 1, 1); got != 1.0 {
		t.Fatalf("DimWeight(194,1,1) = %v, want 1", got)
	}
}

func TestQuoteReeferFTL(t *testing.T) {
	q := defaultQuoter(t)
	got, err := q.Quote(FreightShipment{
		Mode:         ModeFTL,
		ActualWeight: 42000,
		Length:       636,
		Width:        102,
		Height:       110,
		Distance:     500,
		FuelPrice:    4.20,
		Equipment:    EquipmentReefer,
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got.ChargeableWeight != 42000 {
		t.Errorf("ChargeableWeight = %v, want 42000", got.ChargeableWeight)
	}
	if got.BaseFreight != 1625.00 {
		t.Errorf("BaseFreight = %v, want 1625.00", got.BaseFreight)
	}
	if got.FuelSurcharge != 53.85 {
		t.Errorf("FuelSurcharge = %v, want 53.85", got.FuelSurcharge)
	}
	if got.Total != 1678.85 {
		t.Errorf("Total = %v, want 1678.85", got.Total)
	}
}

func TestQuoteLTL(t *testing.T) {
	q := defaultQuoter(t)
	got, err := q.Quote(FreightShipment{
		Mode:         ModeLTL,
		ActualWeight: 1000,
		Length:       48,
		Width:        40,
		Height:       48,
		Distance:     500,
		FuelPrice:    4.20,
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got.ChargeableWeight != 1000 {
		t.Errorf("ChargeableWeight = %v, want 1000", got.ChargeableWeight)
	}
	if got.BaseFreight != 150.00 || got.FuelSurcharge != 53.85 || got.Total != 203.85 {
		t.Errorf("got base=%v fsc=%v total=%v, want 150.00 53.85 203.85", got.BaseFreight, got.FuelSurcharge, got.Total)
	}
}

func TestQuoteLTLBillsDimWeight(t *testing.T) {
	q := defaultQuoter(t)
	// 96*96*97 / 194 = 4608 lbs of dimensional weight for a 300 lb load.
	got, err := q.Quote(FreightShipment{
		Mode: ModeLTL, ActualWeight: 300, Length: 96, Width: 96, Height: 97,
		Distance: 100, FuelPrice: 3.00,
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if got.ChargeableWeight != 4608 {
		t.Errorf("ChargeableWeight = %v, want 4608", got.ChargeableWeight)
	}
	if got.BaseFreight != 691.20 {
		t.Errorf("BaseFreight = %v, want 691.20", got.BaseFreight)
	}
	if got.FuelSurcharge != 0 {
		t.Errorf("FuelSurcharge below peg = %v, want 0", got.FuelSurcharge)
	}
}

func TestDryVanFTLHasNoPremium(t *testing.T) {
	q := defaultQuoter(t)
	for _, eq := range []Equipment{EquipmentDryVan, "Dry Van", ""} {
		got, err := q.Quote(FreightShipment{
			Mode: "ftl", ActualWeight: 20000, Length: 10, Width: 10, Height: 10,
			Distance: 200, FuelPrice: 3.50, Equipment: eq,
		})
		if err != nil {
			t.Fatalf("equipment %q: %v", eq, err)
		}
		if got.BaseFreight != 500 || got.Total != 500 {
			t.Errorf("equipment %q: base=%v total=%v, want 500", eq, got.BaseFreight, got.Total)
		}
	}
}

func TestFuelSurchargeFloorAndRamp(t *testing.T) {
	q := defaultQuoter(t)
	for _, price := range []float64{0.5, 2, 3.49, 3.50} {
		for _, miles := range []float64{1, 500, 3000} {
			if got := q.FuelSurcharge(price, miles); got != 0 {
				t.Errorf("FuelSurcharge(%v, %v) = %v, want 0", price, miles, got)
			}
		}
	}

	prev := 0.0
	for _, price := range []float64{3.51, 3.75, 4.20, 5, 7.5} {
		got := q.FuelSurcharge(price, 500)
		if got <= prev {
			t.Errorf("not increasing in price at %v: %v <= %v", price, got, prev)
		}
		prev = got
	}

	prev = 0
	for _, miles := range []float64{1, 10, 250, 500, 2500} {
		got := q.FuelSurcharge(4.20, miles)
		if got <= prev {
			t.Errorf("not increasing in distance at %v: %v <= %v", miles, got, prev)
		}
		prev = got
	}
}

func TestQuoteIsIdempotent(t *testing.T) {
	q := defaultQuoter(t)
	s := FreightShipment{Mode: ModeLTL, ActualWeight: 812, Length: 40, Width: 48, Height: 60, Distance: 730, FuelPrice: 4.87}
	a, err := q.Quote(s)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	b, _ := q.Quote(s)
	if a != b {
		t.Fatalf("quotes differ: %+v vs %+v", a, b)
	}
}

func TestQuoteInvalidShipment(t *testing.T) {
	q := defaultQuoter(t)
	base := FreightShipment{Mode: ModeFTL, ActualWeight: 1, Length: 1, Width: 1, Height: 1, Distance: 1, FuelPrice: 1}
	cases := []struct {
		field  string
		mutate func(*FreightShipment)
	}{
		{"actual_weight", func(s *FreightShipment) { s.ActualWeight = 0 }},
		{"length", func(s *FreightShipment) { s.Length = -4 }},
		{"width", func(s *FreightShipment) { s.Width = 0 }},
		{"height", func(s *FreightShipment) { s.Height = -1 }},
		{"distance", func(s *FreightShipment) { s.Distance = 0 }},
		{"fuel_price", func(s *FreightShipment) { s.FuelPrice = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			s := base
			tc.mutate(&s)
			_, err := q.Quote(s)
			var ise *InvalidShipmentError
			if !errors.As(err, &ise) {
				t.Fatalf("expected InvalidShipmentError, got %v", err)
			}
			if ise.Field != tc.field {
				t.Errorf("Field = %q, want %q", ise.Field, tc.field)
			}
		})
	}
}

func TestQuoteInvalidMode(t *testing.T) {
	q := defaultQuoter(t)
	base := FreightShipment{Mode: ModeFTL, ActualWeight: 1, Length: 1, Width: 1, Height: 1, Distance: 1, FuelPrice: 1}

	s := base
	s.Mode = "Air"
	if _, err := q.Quote(s); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("mode Air: expected ErrInvalidMode, got %v", err)
	}

	s = base
	s.Equipment = "Flatbed"
	_, err := q.Quote(s)
	var ime *InvalidModeError
	if !errors.As(err, &ime) || ime.Field != "equipment" {
		t.Errorf("equipment Flatbed: expected equipment InvalidModeError, got %v", err)
	}
}

func TestRateCardValidate(t *testing.T) {
	rc := DefaultRateCard()
	rc.DimFactor = 0
	if _, err := NewQuoter(rc); err == nil {
		t.Fatalf("expected error for zero dim factor")
	}
}

func TestQuoteOverflow(t *testing.T) {
	q := defaultQuoter(t)
	cases := []struct {
		name  string
		s     FreightShipment
		field string
	}{
		{"huge dimensions", FreightShipment{Mode: ModeLTL, ActualWeight: 1, Length: 1e120, Width: 1e120, Height: 1e120, Distance: 10, FuelPrice: 4}, "dimensions"},
		{"huge distance", FreightShipment{Mode: ModeFTL, ActualWeight: 1, Length: 1, Width: 1, Height: 1, Distance: 1e308, FuelPrice: 3.5}, "base_freight"},
		{"huge surcharge", FreightShipment{Mode: ModeLTL, ActualWeight: 1, Length: 1, Width: 1, Height: 1, Distance: 1e308, FuelPrice: 1e300}, "fuel_surcharge"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := q.Quote(tc.s)
			var ise *InvalidShipmentError
			if !errors.As(err, &ise) {
				t.Fatalf("expected InvalidShipmentError, got %v", err)
			}
			if ise.Field != tc.field || ise.Reason == "" {
				t.Errorf("got field %q reason %q, want field %q", ise.Field, ise.Reason, tc.field)
			}
		})
	}
}

func TestRoundingKeepsNonFinite(t *testing.T) {
	if v := RoundMoney(math.Inf(1)); !math.IsInf(v, 1) {
		t.Errorf("RoundMoney(+Inf) = %v", v)
	}
	if v := RoundRatio(math.NaN()); !math.IsNaN(v) {
		t.Errorf("RoundRatio(NaN) = %v", v)
	}
}
