// Package weather turns a weather source (embedded hourly arrays or an
// external meteorological file) into the canonical annual series consumed by
// the rest of the engine.
package weather

import (
	"fmt"
	"math"
)

// HoursPerYear is the length of the non-leap calendar year the engine
// simulates.
const HoursPerYear = 8760

// Site identifies the location a series was recorded at.
type Site struct {
	Latitude  float64 // degrees, north positive
	Longitude float64 // degrees, east positive
	Timezone  float64 // hours offset from UTC
	Elevation float64 // metres above sea level
}

// Series is a fixed-resolution annual time series of external drivers.
// All slices have equal length and one entry per timestep. Immutable once
// built; the engine and solver only read from it.
type Series struct {
	StepHours float64
	Site      Site

	AirTemp     []float64 // dry bulb, degC
	DirectBeam  []float64 // direct beam irradiance, W/m2
	DiffuseHorz []float64 // diffuse horizontal irradiance, W/m2
	WindSpeed   []float64 // m/s
	GroundTemp  []float64 // degC
}

// FormatError reports weather input whose record count, units or calendar
// coverage is inconsistent with an annual series.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "weather format: " + e.Reason
}

// SourceError reports an external weather file that could not be read or
// parsed.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("weather source %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Len returns the number of timesteps in the series.
func (s *Series) Len() int { return len(s.AirTemp) }

// At returns the external drivers for one timestep.
func (s *Series) At(idx int) Drivers {
	return Drivers{
		AirTemp:     s.AirTemp[idx],
		DirectBeam:  s.DirectBeam[idx],
		DiffuseHorz: s.DiffuseHorz[idx],
		WindSpeed:   s.WindSpeed[idx],
		GroundTemp:  s.GroundTemp[idx],
	}
}

// Drivers holds the physical drivers for a single timestep.
type Drivers struct {
	AirTemp     float64
	DirectBeam  float64
	DiffuseHorz float64
	WindSpeed   float64
	GroundTemp  float64
}

// NewSeries assembles and validates a Series from raw columns. The columns
// must all have the same length, and that length times stepHours must span
// exactly one non-leap year.
func NewSeries(stepHours float64, site Site, airTemp, directBeam, diffuseHorz, windSpeed, groundTemp []float64) (*Series, error) {
	if stepHours <= 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("non-positive step length %g h", stepHours)}
	}
	n := len(airTemp)
	for name, col := range map[string][]float64{
		"direct beam":        directBeam,
		"diffuse horizontal": diffuseHorz,
		"wind speed":         windSpeed,
		"ground temperature": groundTemp,
	} {
		if len(col) != n {
			return nil, &FormatError{Reason: fmt.Sprintf("%s column has %d records, want %d", name, len(col), n)}
		}
	}
	want := float64(HoursPerYear) / stepHours
	if math.Abs(float64(n)-want) > 1e-9 || want != math.Trunc(want) {
		return nil, &FormatError{
			Reason: fmt.Sprintf("%d records at %g h step covers %g h, want %d h", n, stepHours, float64(n)*stepHours, HoursPerYear),
		}
	}
	for i, v := range airTemp {
		if v < -100 || v > 70 {
			return nil, &FormatError{Reason: fmt.Sprintf("air temperature %g degC at record %d out of plausible range", v, i)}
		}
	}
	for i, v := range directBeam {
		if v < 0 || diffuseHorz[i] < 0 {
			return nil, &FormatError{Reason: fmt.Sprintf("negative irradiance at record %d", i)}
		}
	}
	return &Series{
		StepHours:   stepHours,
		Site:        site,
		AirTemp:     airTemp,
		DirectBeam:  directBeam,
		DiffuseHorz: diffuseHorz,
		WindSpeed:   windSpeed,
		GroundTemp:  groundTemp,
	}, nil
}
