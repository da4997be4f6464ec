package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// annualSeries builds a valid hourly test year with constant drivers.
func annualSeries(t *testing.T) *Series {
	t.Helper()
	s, err := NewSeries(1, Site{Latitude: 51.5},
		constant(8760, 10),
		constant(8760, 100),
		constant(8760, 50),
		constant(8760, 4),
		constant(8760, 11),
	)
	require.NoError(t, err)
	return s
}

func TestNewSeries_Valid(t *testing.T) {
	s := annualSeries(t)
	assert.Equal(t, 8760, s.Len())

	drv := s.At(100)
	assert.Equal(t, 10.0, drv.AirTemp)
	assert.Equal(t, 100.0, drv.DirectBeam)
	assert.Equal(t, 11.0, drv.GroundTemp)
}

func TestNewSeries_ColumnLengthMismatch(t *testing.T) {
	_, err := NewSeries(1, Site{},
		constant(8760, 10),
		constant(8759, 0),
		constant(8760, 0),
		constant(8760, 0),
		constant(8760, 0),
	)
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
}

func TestNewSeries_MustCoverFullYear(t *testing.T) {
	// 8760 half-hour records span only half a year.
	_, err := NewSeries(0.5, Site{},
		constant(8760, 10),
		constant(8760, 0),
		constant(8760, 0),
		constant(8760, 0),
		constant(8760, 0),
	)
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)

	// Leap-year hourly data does not fit either.
	_, err = NewSeries(1, Site{},
		constant(8784, 10),
		constant(8784, 0),
		constant(8784, 0),
		constant(8784, 0),
		constant(8784, 0),
	)
	require.ErrorAs(t, err, &ferr)
}

func TestNewSeries_ImplausibleTemperature(t *testing.T) {
	air := constant(8760, 10)
	air[4000] = 120
	_, err := NewSeries(1, Site{}, air,
		constant(8760, 0), constant(8760, 0), constant(8760, 0), constant(8760, 0))
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, err.Error(), "plausible")
}

func TestNewSeries_NegativeIrradiance(t *testing.T) {
	beam := constant(8760, 0)
	beam[12] = -5
	_, err := NewSeries(1, Site{},
		constant(8760, 10), beam, constant(8760, 0), constant(8760, 0), constant(8760, 0))
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
}

func TestNormalize_Identity(t *testing.T) {
	s := annualSeries(t)
	out, err := Normalize(s, 1)
	require.NoError(t, err)
	assert.Same(t, s, out)
}

func TestNormalize_AveragesFinerRecords(t *testing.T) {
	// Half-hourly series alternating 0/200 W/m2 averages to 100.
	n := 17520
	beam := make([]float64, n)
	for i := range beam {
		if i%2 == 1 {
			beam[i] = 200
		}
	}
	s, err := NewSeries(0.5, Site{},
		constant(n, 10), beam, constant(n, 0), constant(n, 0), constant(n, 0))
	require.NoError(t, err)

	out, err := Normalize(s, 1)
	require.NoError(t, err)
	require.Equal(t, 8760, out.Len())
	assert.InDelta(t, 100, out.DirectBeam[0], 1e-12)
	assert.InDelta(t, 100, out.DirectBeam[8759], 1e-12)

	// Averaging conserves the annual energy total.
	var fine, coarse float64
	for _, v := range s.DirectBeam {
		fine += v * s.StepHours
	}
	for _, v := range out.DirectBeam {
		coarse += v * out.StepHours
	}
	assert.InDelta(t, fine, coarse, 1e-6)
}

func TestNormalize_RejectsCoarserSource(t *testing.T) {
	s := annualSeries(t)
	_, err := Normalize(s, 0.5)
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
}

func TestNormalize_RejectsNonIntegerRatio(t *testing.T) {
	s := annualSeries(t)
	_, err := Normalize(s, 1.5)
	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
}
