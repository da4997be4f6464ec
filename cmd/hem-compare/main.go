// Command hem-compare runs several dwelling definitions against the same
// weather year and prints a side-by-side cost and carbon table, e.g. to
// weigh up retrofit options.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/home-energy-foundry/hem0424/internal/aggregate"
	"github.com/home-energy-foundry/hem0424/internal/building"
	"github.com/home-energy-foundry/hem0424/internal/config"
	"github.com/home-energy-foundry/hem0424/internal/engine"
	"github.com/home-energy-foundry/hem0424/pkg/logging"
)

type result struct {
	name    string
	summary *aggregate.AnnualSummary
}

func main() {
	weatherPath := flag.String("weather", "", "weather file overriding every config's source (.epw or CIBSE .csv)")
	flag.Parse()

	configs := flag.Args()
	if len(configs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: hem-compare [-weather site.epw] dwelling1.yaml dwelling2.yaml ...")
		os.Exit(2)
	}

	log := logging.New("hem-compare", logging.ErrorLevel)
	log.SetOutput(io.Discard)

	results := make([]result, 0, len(configs))
	for _, path := range configs {
		summary, err := simulate(log, path, *weatherPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
		results = append(results, result{name: displayName(path), summary: summary})
		fmt.Fprintf(os.Stderr, "  %s done\n", path)
	}

	printTable(results)
}

func simulate(log *logging.Logger, configPath, weatherPath string) (*aggregate.AnnualSummary, error) {
	doc, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	wx, err := doc.BuildWeather(weatherPath)
	if err != nil {
		return nil, err
	}
	d, err := building.New(doc)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(d, wx, log, nil)
	if err != nil {
		return nil, err
	}
	if err := eng.Run(context.Background()); err != nil {
		return nil, err
	}
	return aggregate.Summarize(d, eng.Results(), eng.Dispatcher().Supplies())
}

func printTable(results []result) {
	if len(results) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("Dwelling Comparison")
	fmt.Printf("  %d configurations, %.0f simulation steps each\n",
		len(results), float64(results[0].summary.Steps))
	fmt.Println()

	fmt.Printf(" %-20s │ %10s │ %9s │ %10s │ %8s │ %8s │ %6s\n",
		"Config", "Space Heat", "Hot Water", "Import", "Cost", "kgCO2", "Rating")
	fmt.Printf("──────────────────────┼────────────┼───────────┼────────────┼──────────┼──────────┼────────\n")

	base := results[0].summary.TotalCost
	for i, r := range results {
		s := r.summary
		var importKWh float64
		for _, f := range s.Fuels {
			importKWh += f.ImportKWh
		}

		delta := ""
		if i > 0 {
			delta = fmt.Sprintf(" (%+.0f)", s.TotalCost-base)
		}

		fmt.Printf(" %-20s │ %7.0f kWh│ %6.0f kWh│ %7.0f kWh│ %8s │ %8.0f │ %3s %2.0f\n",
			r.name,
			s.SpaceHeatDeliveredKWh,
			s.HotWaterDeliveredKWh,
			importKWh,
			fmt.Sprintf("%.0f%s", s.TotalCost, delta),
			s.TotalEmissionsKgCO2,
			s.Rating.Band,
			s.Rating.Value,
		)
	}
	fmt.Println()
}

func displayName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	if len(name) > 20 {
		name = name[:20]
	}
	return name
}
