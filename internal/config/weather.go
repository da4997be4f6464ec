package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/home-energy-foundry/hem0424/internal/weather"
)

// BuildWeather resolves the document's weather section into a series
// normalized to the simulation step. overridePath, when non-empty, loads
// that file instead of whatever the document names; the format follows the
// file extension (.epw, or .csv for the CIBSE layout).
func (d *Document) BuildWeather(overridePath string) (*weather.Series, error) {
	var (
		s   *weather.Series
		err error
	)
	switch {
	case overridePath != "":
		s, err = readFile(overridePath)
	case d.Weather.Source == "embedded":
		if len(d.Weather.AirTemperatures) == 0 {
			return nil, fmt.Errorf("embedded weather source carries no data")
		}
		site := weather.Site{
			Latitude:  d.Weather.Site.Latitude,
			Longitude: d.Weather.Site.Longitude,
			Timezone:  d.Weather.Site.Timezone,
			Elevation: d.Weather.Site.Elevation,
		}
		stepHours := 8760 / float64(len(d.Weather.AirTemperatures))
		s, err = weather.NewSeries(stepHours, site,
			d.Weather.AirTemperatures,
			d.Weather.DirectBeam,
			d.Weather.DiffuseHorizontal,
			d.Weather.WindSpeeds,
			d.Weather.GroundTemperatures,
		)
	case d.Weather.Source == "epw":
		s, err = weather.ReadEPW(d.Weather.File)
	case d.Weather.Source == "cibse":
		s, err = weather.ReadCIBSE(d.Weather.File)
	default:
		return nil, fmt.Errorf("unknown weather source %q", d.Weather.Source)
	}
	if err != nil {
		return nil, err
	}
	return weather.Normalize(s, d.Simulation.StepHours)
}

func readFile(path string) (*weather.Series, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epw":
		return weather.ReadEPW(path)
	case ".csv":
		return weather.ReadCIBSE(path)
	default:
		return nil, fmt.Errorf("unrecognized weather file extension: %s", path)
	}
}
