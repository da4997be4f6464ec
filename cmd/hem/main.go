// Command hem runs one annual dwelling simulation and writes the summary
// as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/home-energy-foundry/hem0424/internal/aggregate"
	"github.com/home-energy-foundry/hem0424/internal/building"
	"github.com/home-energy-foundry/hem0424/internal/config"
	"github.com/home-energy-foundry/hem0424/internal/engine"
	"github.com/home-energy-foundry/hem0424/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "dwelling definition (JSON or YAML)")
	weatherPath := flag.String("weather", "", "weather file overriding the config's source (.epw or CIBSE .csv)")
	outPath := flag.String("out", "", "write the annual summary here instead of stdout")
	stepsPath := flag.String("steps", "", "optionally write the full per-step log here (JSON)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: hem -config dwelling.yaml [-weather site.epw] [-out summary.json]")
		os.Exit(2)
	}

	runID := uuid.New().String()
	log := logging.New("hem", logging.ParseLevel(*logLevel)).
		WithFields(logging.Fields{"run_id": runID})

	if err := run(log, *configPath, *weatherPath, *outPath, *stepsPath); err != nil {
		log.Error("run failed", nil, err)
		os.Exit(1)
	}
}

func run(log *logging.Logger, configPath, weatherPath, outPath, stepsPath string) error {
	doc, err := config.Load(configPath)
	if err != nil {
		return err
	}
	wx, err := doc.BuildWeather(weatherPath)
	if err != nil {
		return err
	}
	d, err := building.New(doc)
	if err != nil {
		return err
	}

	log.Info("starting run", logging.Fields{
		"zones":      len(d.Zones),
		"step_hours": d.StepHours,
	})

	eng, err := engine.New(d, wx, log, nil)
	if err != nil {
		return err
	}
	if err := eng.Run(context.Background()); err != nil {
		return err
	}

	summary, err := aggregate.Summarize(d, eng.Results(), eng.Dispatcher().Supplies())
	if err != nil {
		return err
	}
	log.Info("run complete", logging.Fields{
		"space_heat_kwh": summary.SpaceHeatDeliveredKWh,
		"rating":         summary.Rating.Band,
	})

	if stepsPath != "" {
		if err := writeJSON(stepsPath, eng.Results()); err != nil {
			return err
		}
	}
	if outPath != "" {
		return writeJSON(outPath, summary)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
