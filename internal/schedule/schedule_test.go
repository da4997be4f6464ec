package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/home-energy-foundry/hem0424/internal/simtime"
)

// advance moves a fresh annual timeline to the given hour.
func advance(t *testing.T, step float64, hours float64) *simtime.Timeline {
	t.Helper()
	tl := simtime.Annual(step)
	for tl.Next() {
		if tl.Current() >= hours {
			break
		}
	}
	return tl
}

func TestOnOff_DailyCycleRepeats(t *testing.T) {
	// On from 07:00 to 09:00 each day.
	entries := make([]bool, 24)
	entries[7] = true
	entries[8] = true
	s := NewOnOff(entries, 0, 1)

	assert.False(t, s.IsOn(advance(t, 1, 6)))
	assert.True(t, s.IsOn(advance(t, 1, 7)))
	assert.True(t, s.IsOn(advance(t, 1, 8)))
	assert.False(t, s.IsOn(advance(t, 1, 9)))

	// Same pattern on day 40.
	assert.True(t, s.IsOn(advance(t, 1, 40*24+7)))
	assert.False(t, s.IsOn(advance(t, 1, 40*24+10)))
}

func TestOnOff_SubHourlyLookup(t *testing.T) {
	entries := []bool{true, false}
	s := NewOnOff(entries, 0, 1)

	// Half-hour steps within hour 0 see the hour-0 entry.
	assert.True(t, s.IsOn(advance(t, 0.5, 0)))
	assert.True(t, s.IsOn(advance(t, 0.5, 0.5)))
	assert.False(t, s.IsOn(advance(t, 0.5, 1)))
}

func TestOnOff_StartDayOffset(t *testing.T) {
	// A schedule anchored to day 1 indexed before its start wraps
	// cyclically rather than panicking.
	s := NewOnOff([]bool{true, false}, 1, 1)
	assert.NotPanics(t, func() {
		s.IsOn(advance(t, 1, 0))
	})
}

func TestOnOff_AlwaysOn(t *testing.T) {
	s := AlwaysOn()
	assert.True(t, s.IsOn(advance(t, 1, 0)))
	assert.True(t, s.IsOn(advance(t, 1, 4000)))
}

func TestOnOff_EmptyNeverOn(t *testing.T) {
	s := NewOnOff(nil, 0, 1)
	assert.False(t, s.IsOn(advance(t, 1, 12)))
}

func TestValues_Constant(t *testing.T) {
	s := Constant(150)
	assert.Equal(t, 150.0, s.At(advance(t, 1, 0)))
	assert.Equal(t, 150.0, s.At(advance(t, 1, 5000)))
}

func TestValues_DailyProfile(t *testing.T) {
	entries := make([]float64, 24)
	entries[18] = 90 // evening draw-off
	s := NewValues(entries, 0, 1)

	assert.Equal(t, 0.0, s.At(advance(t, 1, 17)))
	assert.Equal(t, 90.0, s.At(advance(t, 1, 18)))
	assert.Equal(t, 90.0, s.At(advance(t, 1, 3*24+18)))
}

func TestValues_QuantitySpreadsEntryAcrossSubSteps(t *testing.T) {
	// An hourly 100 L entry looked up at half-hour steps yields 50 L per
	// sub-step, not 100 L twice.
	s := NewValues([]float64{100}, 0, 1)
	assert.Equal(t, 50.0, s.Quantity(advance(t, 0.5, 0)))
	assert.Equal(t, 50.0, s.Quantity(advance(t, 0.5, 0.5)))

	// At matching resolution the entry passes through unchanged.
	assert.Equal(t, 100.0, s.Quantity(advance(t, 1, 0)))
}

func TestValues_EmptyIsZero(t *testing.T) {
	s := NewValues(nil, 0, 1)
	assert.Equal(t, 0.0, s.At(advance(t, 1, 10)))
}
