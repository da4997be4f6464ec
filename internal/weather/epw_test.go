package weather

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeEPW generates a minimal synthetic .epw file: the standard eight
// header rows followed by 8760 hourly records with 22 columns.
func writeEPW(t *testing.T, withGround bool, temp func(i int) float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("LOCATION,London,ENG,GBR,test,037760,51.15,-0.18,0.0,62.0\n")
	b.WriteString("DESIGN CONDITIONS,0\n")
	b.WriteString("TYPICAL/EXTREME PERIODS,0\n")
	if withGround {
		b.WriteString("GROUND TEMPERATURES,1,0.5,,,,9.5,9.0,10.0,11.0,13.0,15.0,16.5,17.0,16.0,14.0,12.0,10.5\n")
	} else {
		b.WriteString("GROUND TEMPERATURES,0\n")
	}
	b.WriteString("HOLIDAYS/DAYLIGHT SAVINGS,No,0,0,0\n")
	b.WriteString("COMMENTS 1,synthetic\n")
	b.WriteString("COMMENTS 2,\n")
	b.WriteString("DATA PERIODS,1,1,Data,Sunday, 1/ 1,12/31\n")

	for i := 0; i < 8760; i++ {
		row := make([]string, 22)
		for c := range row {
			row[c] = "0"
		}
		row[0] = "2015"
		row[6] = fmt.Sprintf("%.1f", temp(i)) // dry bulb
		row[14] = "120"                       // direct normal
		row[15] = "60"                        // diffuse horizontal
		row[21] = "3.5"                       // wind speed
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}

	path := filepath.Join(t.TempDir(), "test.epw")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestReadEPW_ParsesSiteAndColumns(t *testing.T) {
	path := writeEPW(t, true, func(i int) float64 { return 10 })
	s, err := ReadEPW(path)
	require.NoError(t, err)

	assert.InDelta(t, 51.15, s.Site.Latitude, 1e-9)
	assert.InDelta(t, -0.18, s.Site.Longitude, 1e-9)
	assert.InDelta(t, 0.0, s.Site.Timezone, 1e-9)
	assert.InDelta(t, 62.0, s.Site.Elevation, 1e-9)

	require.Equal(t, 8760, s.Len())
	assert.Equal(t, 1.0, s.StepHours)
	assert.InDelta(t, 10, s.AirTemp[0], 1e-9)
	assert.InDelta(t, 120, s.DirectBeam[100], 1e-9)
	assert.InDelta(t, 60, s.DiffuseHorz[100], 1e-9)
	assert.InDelta(t, 3.5, s.WindSpeed[100], 1e-9)
}

func TestReadEPW_MonthlyGroundTemperatures(t *testing.T) {
	path := writeEPW(t, true, func(i int) float64 { return 10 })
	s, err := ReadEPW(path)
	require.NoError(t, err)

	// January and February values from the header.
	assert.InDelta(t, 9.5, s.GroundTemp[0], 1e-9)
	assert.InDelta(t, 9.0, s.GroundTemp[744], 1e-9)
	// December.
	assert.InDelta(t, 10.5, s.GroundTemp[8759], 1e-9)
}

func TestReadEPW_GroundFallsBackToMeanAirTemp(t *testing.T) {
	path := writeEPW(t, false, func(i int) float64 {
		if i%2 == 0 {
			return 8
		}
		return 12
	})
	s, err := ReadEPW(path)
	require.NoError(t, err)
	assert.InDelta(t, 10, s.GroundTemp[5000], 1e-9)
}

func TestReadEPW_MissingFile(t *testing.T) {
	_, err := ReadEPW(filepath.Join(t.TempDir(), "nope.epw"))
	var serr *SourceError
	require.ErrorAs(t, err, &serr)
}

func TestReadEPW_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.epw")
	require.NoError(t, os.WriteFile(path, []byte("LOCATION,x\n"), 0o644))
	_, err := ReadEPW(path)
	var serr *SourceError
	require.ErrorAs(t, err, &serr)
}

func TestReadEPW_NonNumericField(t *testing.T) {
	path := writeEPW(t, true, func(i int) float64 { return 10 })
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(string(raw), "\n")
	fields := strings.Split(lines[8], ",")
	fields[6] = "n/a"
	lines[8] = strings.Join(fields, ",")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	_, err = ReadEPW(path)
	var serr *SourceError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, err.Error(), "not numeric")
}
