package weather

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/home-energy-foundry/hem0424/internal/solar"
)

// writeCIBSE generates a synthetic CIBSE-layout csv: 32 metadata rows with
// the site row at index 5, then 8760 hourly records.
func writeCIBSE(t *testing.T, global, diffuse float64) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < 32; i++ {
		if i == 5 {
			b.WriteString("Longitude,-0.45,Latitude,51.48,,\n")
			continue
		}
		b.WriteString(fmt.Sprintf("meta%d,,\n", i))
	}
	for i := 0; i < 8760; i++ {
		row := make([]string, 14)
		for c := range row {
			row[c] = "0"
		}
		row[6] = "12.5" // dry bulb
		row[11] = "4.2" // wind speed
		row[12] = fmt.Sprintf("%.1f", global)
		row[13] = fmt.Sprintf("%.1f", diffuse)
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "test.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestReadCIBSE_ParsesSiteAndColumns(t *testing.T) {
	s, err := ReadCIBSE(writeCIBSE(t, 100, 100))
	require.NoError(t, err)

	assert.InDelta(t, 51.48, s.Site.Latitude, 1e-9)
	assert.InDelta(t, -0.45, s.Site.Longitude, 1e-9)
	require.Equal(t, 8760, s.Len())
	assert.InDelta(t, 12.5, s.AirTemp[0], 1e-9)
	assert.InDelta(t, 4.2, s.WindSpeed[0], 1e-9)
	assert.InDelta(t, 100, s.DiffuseHorz[0], 1e-9)
}

func TestReadCIBSE_BeamFromGlobalMinusDiffuse(t *testing.T) {
	s, err := ReadCIBSE(writeCIBSE(t, 300, 100))
	require.NoError(t, err)

	// Midnight on Jan 1: sun below the horizon, beam dropped.
	assert.Equal(t, 0.0, s.DirectBeam[0])

	// Midsummer noon: the 200 W/m2 horizontal beam maps to a larger
	// direct normal value.
	noon := 172*24 + 12
	assert.Greater(t, s.DirectBeam[noon], 200.0)
	// But not absurdly larger at a UK June noon (altitude ~62 deg).
	assert.Less(t, s.DirectBeam[noon], 300.0)

	// The projection uses the sun position at the interval start, the
	// same instant the engine samples when computing gains.
	pos := solar.SunPosition(51.48, -0.45, 0, float64(noon))
	assert.InDelta(t, 200/math.Sin(pos.AltitudeDeg*math.Pi/180), s.DirectBeam[noon], 1e-9)
}

func TestReadCIBSE_GlobalBelowDiffuseClampsToZero(t *testing.T) {
	s, err := ReadCIBSE(writeCIBSE(t, 50, 100))
	require.NoError(t, err)
	for _, v := range s.DirectBeam {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestReadCIBSE_GroundIsMeanAirTemp(t *testing.T) {
	s, err := ReadCIBSE(writeCIBSE(t, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 12.5, s.GroundTemp[4000], 1e-9)
}

func TestReadCIBSE_TooFewRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\nc,d\n"), 0o644))
	_, err := ReadCIBSE(path)
	var serr *SourceError
	require.ErrorAs(t, err, &serr)
}
