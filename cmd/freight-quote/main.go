// Command freight-quote prices a single shipment against the catalog rate
// card and prints the breakdown as JSON.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"threepl/internal/catalog"
	"threepl/internal/core"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "freight-quote:", err)
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("freight-quote", flag.ContinueOnError)
	var (
		s           core.FreightShipment
		mode, equip string
		catalogFile string
	)
	fs.StringVar(&mode, "mode", string(core.ModeFTL), "FTL or LTL")
	fs.StringVar(&equip, "equipment", string(core.EquipmentDryVan), "DryVan or Reefer (FTL only)")
	fs.Float64Var(&s.ActualWeight, "weight", 0, "actual weight in lbs")
	fs.Float64Var(&s.Length, "length", 0, "length in inches")
	fs.Float64Var(&s.Width, "width", 0, "width in inches")
	fs.Float64Var(&s.Height, "height", 0, "height in inches")
	fs.Float64Var(&s.Distance, "distance", 0, "distance in miles")
	fs.Float64Var(&s.FuelPrice, "fuel", 3.50, "diesel price in $/gal")
	fs.StringVar(&catalogFile, "catalog", "", "catalog TOML with a [freight] table (default: embedded)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s.Mode = core.Mode(mode)
	s.Equipment = core.Equipment(equip)

	var (
		c   *catalog.Catalog
		err error
	)
	if catalogFile != "" {
		c, err = catalog.Load(catalogFile)
	} else {
		c, err = catalog.Default()
	}
	if err != nil {
		return err
	}

	q, err := core.NewQuoter(c.Freight)
	if err != nil {
		return err
	}
	breakdown, err := q.Quote(s)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(breakdown)
}
