package weather

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EPW column indices for the fields the engine needs, per the EnergyPlus
// weather file specification.
const (
	epwColDryBulb      = 6
	epwColGlobalHorz   = 13
	epwColDirectNormal = 14
	epwColDiffuseHorz  = 15
	epwColWindSpeed    = 21

	epwHeaderRows = 8
	epwMinColumns = 22
)

// ReadEPW parses an EnergyPlus weather (.epw) file into a Series at the
// file's native resolution. Files with several records per hour produce a
// sub-hourly series; pass the result through Normalize to reach the engine
// resolution.
func ReadEPW(path string) (*Series, error) {
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
	if len(rows) <= epwHeaderRows {
		return nil, &SourceError{Path: path, Err: fmt.Errorf("only %d rows, want header plus data", len(rows))}
	}

	site, err := epwSite(rows[0])
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	monthlyGround := epwGroundTemps(rows)

	data := rows[epwHeaderRows:]
	n := len(data)

	airTemp := make([]float64, n)
	directBeam := make([]float64, n)
	diffuseHorz := make([]float64, n)
	windSpeed := make([]float64, n)
	groundTemp := make([]float64, n)

	var airSum float64
	for i, row := range data {
		if len(row) < epwMinColumns {
			return nil, &SourceError{Path: path, Err: fmt.Errorf("data row %d has %d fields, want at least %d", i+1, len(row), epwMinColumns)}
		}
		vals, err := epwFloats(row, i, epwColDryBulb, epwColDirectNormal, epwColDiffuseHorz, epwColWindSpeed)
		if err != nil {
			return nil, &SourceError{Path: path, Err: err}
		}
		airTemp[i] = vals[0]
		directBeam[i] = vals[1]
		diffuseHorz[i] = vals[2]
		windSpeed[i] = vals[3]
		airSum += vals[0]
	}

	// For sub-hourly files this gives a fractional step; NewSeries rejects
	// record counts that do not cover the year.
	stepHours := float64(HoursPerYear) / float64(n)

	// Ground temperature: monthly values from the header where present,
	// otherwise the annual mean air temperature.
	fallback := airSum / float64(n)
	for i := range groundTemp {
		hour := float64(i) * stepHours
		groundTemp[i] = groundTempAt(monthlyGround, hour, fallback)
	}

	return NewSeries(stepHours, site, airTemp, directBeam, diffuseHorz, windSpeed, groundTemp)
}

func epwSite(location []string) (Site, error) {
	// LOCATION,city,state,country,source,WMO,lat,lon,tz,elevation
	if len(location) < 10 || !strings.EqualFold(location[0], "LOCATION") {
		return Site{}, fmt.Errorf("missing LOCATION header")
	}
	var site Site
	var err error
	if site.Latitude, err = strconv.ParseFloat(strings.TrimSpace(location[6]), 64); err != nil {
		return Site{}, fmt.Errorf("bad latitude %q", location[6])
	}
	if site.Longitude, err = strconv.ParseFloat(strings.TrimSpace(location[7]), 64); err != nil {
		return Site{}, fmt.Errorf("bad longitude %q", location[7])
	}
	if site.Timezone, err = strconv.ParseFloat(strings.TrimSpace(location[8]), 64); err != nil {
		return Site{}, fmt.Errorf("bad timezone %q", location[8])
	}
	if site.Elevation, err = strconv.ParseFloat(strings.TrimSpace(location[9]), 64); err != nil {
		return Site{}, fmt.Errorf("bad elevation %q", location[9])
	}
	return site, nil
}

// epwGroundTemps extracts the twelve monthly ground temperatures for the
// first reported depth, or nil when the header is absent or malformed.
func epwGroundTemps(rows [][]string) []float64 {
	for _, row := range rows[:epwHeaderRows] {
		if len(row) == 0 || !strings.EqualFold(row[0], "GROUND TEMPERATURES") {
			continue
		}
		// GROUND TEMPERATURES,nDepths,depth,cond,density,specheat,t1..t12,...
		if len(row) < 18 {
			return nil
		}
		temps := make([]float64, 12)
		for m := 0; m < 12; m++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[6+m]), 64)
			if err != nil {
				return nil
			}
			temps[m] = v
		}
		return temps
	}
	return nil
}

// monthStartHours gives the starting hour of each month in a non-leap year.
var monthStartHours = [13]float64{0, 744, 1416, 2160, 2880, 3624, 4344, 5088, 5832, 6552, 7296, 8016, 8760}

func groundTempAt(monthly []float64, hour, fallback float64) float64 {
	if len(monthly) != 12 {
		return fallback
	}
	for m := 0; m < 12; m++ {
		if hour < monthStartHours[m+1] {
			return monthly[m]
		}
	}
	return monthly[11]
}

func epwFloats(row []string, rowIdx int, cols ...int) ([]float64, error) {
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
