// Package aggregate folds a per-step simulation log into annual totals,
// regulatory factors and a cost-based efficiency rating.
package aggregate

import (
	"fmt"
	"math"

	"github.com/home-energy-foundry/hem0424/internal/building"
	"github.com/home-energy-foundry/hem0424/internal/dispatch"
	"github.com/home-energy-foundry/hem0424/internal/engine"
)

// AggregationError reports a step log that cannot represent a full year.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return "aggregation: " + e.Reason
}

// FuelSummary is the annual ledger roll-up for one energy carrier.
type FuelSummary struct {
	Name          string             `json:"name"`
	DemandKWh     float64            `json:"demand_kwh"`
	GenerationKWh float64            `json:"generation_kwh"`
	ImportKWh     float64            `json:"import_kwh"`
	ExportKWh     float64            `json:"export_kwh"`
	ByEndUser     map[string]float64 `json:"by_end_user"`

	Cost             float64 `json:"cost"`
	PrimaryEnergyKWh float64 `json:"primary_energy_kwh"`
	EmissionsKgCO2   float64 `json:"emissions_kg_co2"`
}

// Rating is a SAP-style cost-based rating with its A to G band.
type Rating struct {
	Value float64 `json:"value"`
	Band  string  `json:"band"`
}

// AnnualSummary is the result of one full-year run.
type AnnualSummary struct {
	Steps     int     `json:"steps"`
	StepHours float64 `json:"step_hours"`

	FloorAreaM2 float64 `json:"floor_area_m2"`

	SpaceHeatDemandKWh    float64 `json:"space_heat_demand_kwh"`
	SpaceHeatDeliveredKWh float64 `json:"space_heat_delivered_kwh"`
	SpaceUnmetKWh         float64 `json:"space_unmet_kwh"`

	HotWaterDemandKWh    float64 `json:"hot_water_demand_kwh"`
	HotWaterDeliveredKWh float64 `json:"hot_water_delivered_kwh"`
	HotWaterUnmetKWh     float64 `json:"hot_water_unmet_kwh"`
	StorageLossKWh       float64 `json:"storage_loss_kwh"`

	PVGenerationKWh float64 `json:"pv_generation_kwh"`

	MeanZoneTempC    []float64 `json:"mean_zone_temp_c"`
	MinZoneTempC     []float64 `json:"min_zone_temp_c"`
	MaxZoneTempC     []float64 `json:"max_zone_temp_c"`
	UnconvergedSteps int       `json:"unconverged_steps"`

	Fuels []FuelSummary `json:"fuels"`

	TotalCost               float64 `json:"total_cost"`
	TotalPrimaryEnergyKWh   float64 `json:"total_primary_energy_kwh"`
	TotalEmissionsKgCO2     float64 `json:"total_emissions_kg_co2"`
	EnergyUseIntensityKWhM2 float64 `json:"energy_use_intensity_kwh_m2"`

	Rating Rating `json:"rating"`
}

// costDeflator converts annual fuel cost to the rating scale's reference
// price level.
const costDeflator = 0.42

// Summarize folds a completed step log and the fuel ledgers into annual
// totals. It is a pure fold: calling it twice on the same inputs yields
// identical summaries.
func Summarize(d *building.Dwelling, results []engine.StepResult, supplies []*dispatch.Supply) (*AnnualSummary, error) {
	if len(results) == 0 {
		return nil, &AggregationError{Reason: "empty step log"}
	}
	wantSteps := int(math.Round(8760 / d.StepHours))
	if len(results) != wantSteps {
		return nil, &AggregationError{
			Reason: fmt.Sprintf("step log covers %d of %d steps", len(results), wantSteps),
		}
	}

	nZones := len(d.Zones)
	s := &AnnualSummary{
		Steps:         len(results),
		StepHours:     d.StepHours,
		MeanZoneTempC: make([]float64, nZones),
		MinZoneTempC:  make([]float64, nZones),
		MaxZoneTempC:  make([]float64, nZones),
	}
	for zi, z := range d.Zones {
		s.FloorAreaM2 += z.Area
		s.MinZoneTempC[zi] = math.Inf(1)
		s.MaxZoneTempC[zi] = math.Inf(-1)
	}

	toKWh := d.StepHours / 1000
	for _, r := range results {
		for zi := 0; zi < nZones; zi++ {
			if r.DemandW[zi] > 0 {
				s.SpaceHeatDemandKWh += r.DemandW[zi] * toKWh
			}
			s.SpaceHeatDeliveredKWh += r.DeliveredW[zi] * toKWh
			s.SpaceUnmetKWh += r.UnmetW[zi] * toKWh

			t := r.ZoneTemps[zi]
			s.MeanZoneTempC[zi] += t
			if t < s.MinZoneTempC[zi] {
				s.MinZoneTempC[zi] = t
			}
			if t > s.MaxZoneTempC[zi] {
				s.MaxZoneTempC[zi] = t
			}
		}
		s.HotWaterDemandKWh += r.HotWater.DemandKWh
		s.HotWaterDeliveredKWh += r.HotWater.DeliveredKWh
		s.HotWaterUnmetKWh += r.HotWater.UnmetKWh
		s.StorageLossKWh += r.HotWater.StandingLoss
		s.PVGenerationKWh += r.PVKWh
		if !r.Converged {
			s.UnconvergedSteps++
		}
	}
	for zi := 0; zi < nZones; zi++ {
		s.MeanZoneTempC[zi] /= float64(len(results))
	}

	for _, sp := range supplies {
		fuel := sp.Fuel()
		fs := FuelSummary{
			Name:      fuel.Name,
			ByEndUser: make(map[string]float64),
		}
		for step := range sp.ResultsTotal() {
			fs.ImportKWh += sp.NetImport(step)
			fs.ExportKWh += sp.Export(step)
		}
		for _, total := range sp.ResultsTotal() {
			fs.DemandKWh += total
		}
		for _, gen := range sp.ResultsGeneration() {
			fs.GenerationKWh += gen
		}
		for _, user := range sp.EndUsers() {
			var sum float64
			for _, kwh := range sp.ResultsByEndUser()[user] {
				sum += kwh
			}
			fs.ByEndUser[user] = sum
		}
		fs.Cost = fs.ImportKWh * fuel.UnitPrice
		fs.PrimaryEnergyKWh = fs.ImportKWh * fuel.PrimaryEnergyFactor
		fs.EmissionsKgCO2 = fs.ImportKWh * fuel.EmissionFactor

		s.TotalCost += fs.Cost
		s.TotalPrimaryEnergyKWh += fs.PrimaryEnergyKWh
		s.TotalEmissionsKgCO2 += fs.EmissionsKgCO2
		s.Fuels = append(s.Fuels, fs)
	}

	if s.FloorAreaM2 > 0 {
		s.EnergyUseIntensityKWhM2 = s.TotalPrimaryEnergyKWh / s.FloorAreaM2
	}
	s.Rating = rate(s.TotalCost, s.FloorAreaM2)
	return s, nil
}

// rate computes the cost-based rating: an energy cost factor normalized by
// floor area, mapped onto a 1 to 100 scale and banded A to G.
func rate(annualCost, floorArea float64) Rating {
	ecf := costDeflator * annualCost / (floorArea + 45)
	var value float64
	if ecf >= 3.5 {
		value = 117 - 121*math.Log10(ecf)
	} else {
		value = 100 - 13.95*ecf
	}
	if value < 1 {
		value = 1
	}
	if value > 100 {
		value = 100
	}
	value = math.Round(value)
	return Rating{Value: value, Band: band(value)}
}

func band(value float64) string {
	switch {
	case value >= 92:
		return "A"
	case value >= 81:
		return "B"
	case value >= 69:
		return "C"
	case value >= 55:
		return "D"
	case value >= 39:
		return "E"
	case value >= 21:
		return "F"
	default:
		return "G"
	}
}
