// Package catalog loads the dashboard variants and the freight rate card
// from TOML. A default catalog is embedded; deployments can point at their
// own file instead.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"threepl/internal/core"
)

//go:embed catalog.toml
var defaultCatalog []byte

// DefaultMonths labels a fresh twelve-month ledger.
var DefaultMonths = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var ErrUnknownVariant = errors.New("unknown variant")

type (
	Catalog struct {
		Freight  core.RateCard `toml:"freight"`
		Variants []Variant     `toml:"variant"`
	}

	Variant struct {
		Name        string                `toml:"name"`
		Description string                `toml:"description"`
		Buckets     core.BucketMap        `toml:"buckets"`
		Defaults    Defaults              `toml:"defaults"`
		Drivers     core.OperatingDrivers `toml:"drivers"`
	}

	// Defaults are the per-category amounts a new month starts with.
	Defaults struct {
		Revenue map[string]float64 `toml:"revenue"`
		Costs   map[string]float64 `toml:"costs"`
	}
)

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, falling back to the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	var problems []string
	if err := c.Freight.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(c.Variants) == 0 {
		problems = append(problems, "no variants defined")
	}
	seen := map[string]bool{}
	for i, v := range c.Variants {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("variant %d has no name", i))
			continue
		}
		if seen[name] {
			problems = append(problems, fmt.Sprintf("variant %q defined twice", name))
			continue
		}
		seen[name] = true
		if err := v.Buckets.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("variant %q: %v", name, err))
			continue
		}
		if err := v.Buckets.CheckRecord(v.SeedRecord("defaults")); err != nil {
			problems = append(problems, fmt.Sprintf("variant %q defaults: %v", name, err))
		}
		if err := v.Drivers.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("variant %q drivers: %v", name, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("catalog validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Variant looks a variant up by name.
func (c *Catalog) Variant(name string) (Variant, error) {
	for _, v := range c.Variants {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w %q (have %s)", ErrUnknownVariant, name, strings.Join(c.Names(), ", "))
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Variants))
	for _, v := range c.Variants {
		names = append(names, v.Name)
	}
	return names
}

// SeedRecord builds one month populated with the variant defaults.
func (v Variant) SeedRecord(label string) core.MonthlyLedgerRecord {
	rec := core.MonthlyLedgerRecord{
		Month:   label,
		Revenue: make(map[string]float64, len(v.Buckets.Revenue)),
		Costs:   make(map[string]float64),
	}
	for k, amt := range v.Defaults.Revenue {
		rec.Revenue[k] = amt
	}
	for k, amt := range v.Defaults.Costs {
		rec.Costs[k] = amt
	}
	// Categories without a default start at zero.
	for _, c := range v.Buckets.Categories(core.KindRevenue) {
		if _, ok := rec.Revenue[c]; !ok {
			rec.Revenue[c] = 0
		}
	}
	for _, c := range v.Buckets.Categories(core.KindCost) {
		if _, ok := rec.Costs[c]; !ok {
			rec.Costs[c] = 0
		}
	}
	return rec
}

// SeedLedger builds a ledger with one default month per label.
func (v Variant) SeedLedger(labels []string) []core.MonthlyLedgerRecord {
	out := make([]core.MonthlyLedgerRecord, 0, len(labels))
	for _, l := range labels {
		out = append(out, v.SeedRecord(l))
	}
	return out
}
