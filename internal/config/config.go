// Package config defines the input document the engine is driven by and
// loads it from JSON or YAML.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the structured description of one dwelling and its simulation
// run. Field names mirror the calculation methodology's input dictionary.
type Document struct {
	Simulation Simulation           `json:"simulation" yaml:"simulation"`
	Weather    Weather              `json:"weather" yaml:"weather"`
	Fuels      map[string]Fuel      `json:"fuels" yaml:"fuels"`
	Zones      map[string]Zone      `json:"zones" yaml:"zones"`
	Couplings  []Coupling           `json:"couplings,omitempty" yaml:"couplings,omitempty"`
	Controls   map[string]Control   `json:"controls,omitempty" yaml:"controls,omitempty"`
	Generators map[string]Generator `json:"generators,omitempty" yaml:"generators,omitempty"`
	Storage    map[string]Storage   `json:"storage,omitempty" yaml:"storage,omitempty"`
	HotWater   *HotWater            `json:"hot_water,omitempty" yaml:"hot_water,omitempty"`
	PV         map[string]PV        `json:"pv,omitempty" yaml:"pv,omitempty"`
}

// Simulation holds run-level settings.
type Simulation struct {
	StepHours float64 `json:"step_hours" yaml:"step_hours"`
}

// Weather selects and, for the embedded source, carries the weather input.
type Weather struct {
	Source string `json:"source" yaml:"source"` // "embedded", "epw" or "cibse"
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Site   Site   `json:"site" yaml:"site"`

	AirTemperatures    []float64 `json:"air_temperatures,omitempty" yaml:"air_temperatures,omitempty"`
	DirectBeam         []float64 `json:"direct_beam,omitempty" yaml:"direct_beam,omitempty"`
	DiffuseHorizontal  []float64 `json:"diffuse_horizontal,omitempty" yaml:"diffuse_horizontal,omitempty"`
	WindSpeeds         []float64 `json:"wind_speeds,omitempty" yaml:"wind_speeds,omitempty"`
	GroundTemperatures []float64 `json:"ground_temperatures,omitempty" yaml:"ground_temperatures,omitempty"`
}

// Site locates the dwelling and its weather data.
type Site struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Timezone  float64 `json:"timezone" yaml:"timezone"`
	Elevation float64 `json:"elevation" yaml:"elevation"`
}

// Fuel declares an energy carrier and its regulatory factors.
type Fuel struct {
	EmissionFactor      float64 `json:"emission_factor_kg_per_kwh" yaml:"emission_factor_kg_per_kwh"`
	PrimaryEnergyFactor float64 `json:"primary_energy_factor" yaml:"primary_energy_factor"`
	UnitPrice           float64 `json:"unit_price_per_kwh,omitempty" yaml:"unit_price_per_kwh,omitempty"`
	Electricity         bool    `json:"electricity,omitempty" yaml:"electricity,omitempty"`
}

// Zone describes one thermal zone.
type Zone struct {
	AreaM2            float64            `json:"area_m2" yaml:"area_m2"`
	VolumeM3          float64            `json:"volume_m3" yaml:"volume_m3"`
	HeatingSetpointC  *float64           `json:"heating_setpoint_c,omitempty" yaml:"heating_setpoint_c,omitempty"`
	CoolingSetpointC  *float64           `json:"cooling_setpoint_c,omitempty" yaml:"cooling_setpoint_c,omitempty"`
	AirChangesPerHour float64            `json:"air_changes_per_hour" yaml:"air_changes_per_hour"`
	Curtailment       string             `json:"curtailment,omitempty" yaml:"curtailment,omitempty"` // "shed" (default) or "strict"
	InternalGains     *Schedule          `json:"internal_gains,omitempty" yaml:"internal_gains,omitempty"`
	Elements          map[string]Element `json:"elements" yaml:"elements"`
}

// Element describes one fabric element bounding a zone.
type Element struct {
	Kind             string  `json:"kind" yaml:"kind"` // "opaque", "window" or "bridge"
	AreaM2           float64 `json:"area_m2,omitempty" yaml:"area_m2,omitempty"`
	UValue           float64 `json:"u_value,omitempty" yaml:"u_value,omitempty"`
	ArealHeatCapJM2K float64 `json:"areal_heat_capacity_j_per_m2k,omitempty" yaml:"areal_heat_capacity_j_per_m2k,omitempty"`
	MassDistribution string  `json:"mass_distribution,omitempty" yaml:"mass_distribution,omitempty"` // I, E, IE, D or M
	OrientationDeg   float64 `json:"orientation_deg,omitempty" yaml:"orientation_deg,omitempty"`     // from south, east +90
	PitchDeg         float64 `json:"pitch_deg,omitempty" yaml:"pitch_deg,omitempty"`                 // 0 flat, 90 vertical
	Absorptivity     float64 `json:"absorptivity,omitempty" yaml:"absorptivity,omitempty"`
	GValue           float64 `json:"g_value,omitempty" yaml:"g_value,omitempty"`
	ShadingFactor    float64 `json:"shading_factor,omitempty" yaml:"shading_factor,omitempty"`
	// Boundary is "external" (default) or "ground" for floors in ground
	// contact.
	Boundary string `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	// Bridge elements
	HeatTransferWPerK float64 `json:"heat_transfer_w_per_k,omitempty" yaml:"heat_transfer_w_per_k,omitempty"`
}

// Coupling declares an inter-zone thermal connection.
type Coupling struct {
	Zones            []string `json:"zones" yaml:"zones"`
	ConductanceWPerK float64  `json:"conductance_w_per_k" yaml:"conductance_w_per_k"`
}

// Schedule is a repeating numeric time series.
type Schedule struct {
	Values    []float64 `json:"values" yaml:"values"`
	StartDay  int       `json:"start_day,omitempty" yaml:"start_day,omitempty"`
	StepHours float64   `json:"step_hours,omitempty" yaml:"step_hours,omitempty"`
}

// Control is a repeating on/off time series.
type Control struct {
	Schedule  []bool  `json:"schedule" yaml:"schedule"`
	StartDay  int     `json:"start_day,omitempty" yaml:"start_day,omitempty"`
	StepHours float64 `json:"step_hours,omitempty" yaml:"step_hours,omitempty"`
}

// Generator describes one heat generator.
type Generator struct {
	Type       string  `json:"type" yaml:"type"` // "instant_elec", "boiler" or "heat_pump"
	Zone       string  `json:"zone" yaml:"zone"`
	Fuel       string  `json:"fuel" yaml:"fuel"`
	CapacityKW float64 `json:"capacity_kw" yaml:"capacity_kw"`
	Efficiency float64 `json:"efficiency,omitempty" yaml:"efficiency,omitempty"`
	Control    string  `json:"control,omitempty" yaml:"control,omitempty"`
	Priority   int     `json:"priority,omitempty" yaml:"priority,omitempty"`
	// Heat pump COP at the test points of its performance line.
	COPAt7C      float64 `json:"cop_at_7c,omitempty" yaml:"cop_at_7c,omitempty"`
	COPAtMinus7C float64 `json:"cop_at_minus_7c,omitempty" yaml:"cop_at_minus_7c,omitempty"`
}

// Storage describes a thermal store.
type Storage struct {
	VolumeLitres        float64  `json:"volume_litres" yaml:"volume_litres"`
	HotTempC            float64  `json:"hot_temp_c" yaml:"hot_temp_c"`
	ColdFeedC           float64  `json:"cold_feed_c" yaml:"cold_feed_c"`
	InitialHotFraction  float64  `json:"initial_hot_fraction,omitempty" yaml:"initial_hot_fraction,omitempty"`
	StandingLossKWhDay  float64  `json:"standing_loss_kwh_per_day,omitempty" yaml:"standing_loss_kwh_per_day,omitempty"`
	RoundTripEfficiency float64  `json:"round_trip_efficiency,omitempty" yaml:"round_trip_efficiency,omitempty"`
	HeatSources         []string `json:"heat_sources" yaml:"heat_sources"`
}

// HotWater describes the dwelling's hot water draw-off.
type HotWater struct {
	DrawOffLitres Schedule `json:"draw_off_litres" yaml:"draw_off_litres"`
	ServedBy      string   `json:"served_by" yaml:"served_by"`
}

// PV describes an on-site photovoltaic system.
type PV struct {
	PeakKW              float64 `json:"peak_kw" yaml:"peak_kw"`
	VentilationStrategy string  `json:"ventilation_strategy,omitempty" yaml:"ventilation_strategy,omitempty"`
	PitchDeg            float64 `json:"pitch_deg" yaml:"pitch_deg"`
	OrientationDeg      float64 `json:"orientation_deg" yaml:"orientation_deg"`
	Fuel                string  `json:"fuel" yaml:"fuel"`
}

// Load reads a Document from a JSON or YAML file, chosen by extension.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	doc.applyDefaults()
	return &doc, nil
}

// Parse reads a Document from raw JSON, for callers that receive the
// document over the wire rather than from disk.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config document: %w", err)
	}
	doc.applyDefaults()
	return &doc, nil
}

func (d *Document) applyDefaults() {
	if d.Simulation.StepHours == 0 {
		d.Simulation.StepHours = 1
	}
	if d.Weather.Source == "" {
		d.Weather.Source = "embedded"
	}
}
