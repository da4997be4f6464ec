package weather

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/home-energy-foundry/hem0424/internal/solar"
)

// CIBSE weather file layout: metadata rows at the top, hourly records from
// row 33 onwards.
const (
	cibseColLongitude = 1
	cibseColLatitude  = 3
	cibseColDryBulb   = 6
	cibseColWindSpeed = 11
	cibseColGlobal    = 12
	cibseColDiffuse   = 13

	cibseSiteRow      = 5
	cibseFirstDataRow = 32
)

// ReadCIBSE parses a CIBSE hourly weather csv into a Series. The file's
// global horizontal irradiation column is split into beam and diffuse by
// subtracting the diffuse column; the horizontal beam component is then
// projected onto the sun direction to give direct normal irradiance.
func ReadCIBSE(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	if len(rows) <= cibseFirstDataRow {
		return nil, &SourceError{Path: path, Err: fmt.Errorf("only %d rows, want data from row %d", len(rows), cibseFirstDataRow+1)}
	}

	var site Site
	siteRow := rows[cibseSiteRow]
	if len(siteRow) > cibseColLatitude {
		site.Longitude, _ = strconv.ParseFloat(strings.TrimSpace(siteRow[cibseColLongitude]), 64)
		site.Latitude, _ = strconv.ParseFloat(strings.TrimSpace(siteRow[cibseColLatitude]), 64)
	}

	data := rows[cibseFirstDataRow:]
	n := len(data)

	airTemp := make([]float64, n)
	directBeam := make([]float64, n)
	diffuseHorz := make([]float64, n)
	windSpeed := make([]float64, n)
	groundTemp := make([]float64, n)

	stepHours := float64(HoursPerYear) / float64(n)

	var airSum float64
	for i, row := range data {
		if len(row) <= cibseColDiffuse {
			return nil, &SourceError{Path: path, Err: fmt.Errorf("data row %d has %d fields, want at least %d", i+1, len(row), cibseColDiffuse+1)}
		}
		vals, err := cibseFloats(row, i, cibseColDryBulb, cibseColWindSpeed, cibseColGlobal, cibseColDiffuse)
		if err != nil {
			return nil, &SourceError{Path: path, Err: err}
		}
		airTemp[i] = vals[0]
		windSpeed[i] = vals[1]
		diffuseHorz[i] = vals[3]
		beamHorz := vals[2] - vals[3]
		if beamHorz < 0 {
			beamHorz = 0
		}
		// The sun is evaluated at the interval start, matching where
		// the engine evaluates gains.
		directBeam[i] = beamNormal(beamHorz, site, float64(i)*stepHours)
		airSum += vals[0]
	}

	mean := airSum / float64(n)
	for i := range groundTemp {
		groundTemp[i] = mean
	}

	return NewSeries(stepHours, site, airTemp, directBeam, diffuseHorz, windSpeed, groundTemp)
}

// beamNormal converts a horizontal beam flux to direct normal irradiance.
// Below 5 degrees altitude the projection blows up, so the beam is dropped.
func beamNormal(beamHorz float64, site Site, hourOfYear float64) float64 {
	if beamHorz <= 0 {
		return 0
	}
	pos := solar.SunPosition(site.Latitude, site.Longitude, site.Timezone, hourOfYear)
	if pos.AltitudeDeg < 5 {
		return 0
	}
	return beamHorz / math.Sin(pos.AltitudeDeg*math.Pi/180)
}

func cibseFloats(row []string, rowIdx int, cols ...int) ([]float64, error) {
	out := make([]float64, len(cols))
	for i, c := range cols {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64)
		if err != nil {
			return nil, fmt.Errorf("data row %d column %d: %q is not numeric", rowIdx+1, c, row[c])
		}
		out[i] = v
	}
	return out, nil
}
