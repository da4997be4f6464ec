// Package schedule provides time series lookups for controls and gains.
// A schedule is declared at its own time-series step, which may be coarser
// than the simulation step; entries repeat cyclically, so a 24-entry hourly
// schedule describes a repeating day.
package schedule

import "github.com/home-energy-foundry/hem0424/internal/simtime"

// OnOff is a boolean schedule governing whether a system is allowed to run.
type OnOff struct {
	entries   []bool
	startDay  int
	stepHours float64
}

// NewOnOff creates an on/off schedule starting on startDay (day of year,
// zero-based) with entries stepHours apart.
func NewOnOff(entries []bool, startDay int, stepHours float64) *OnOff {
	return &OnOff{entries: entries, startDay: startDay, stepHours: stepHours}
}

// AlwaysOn returns a schedule that never blocks operation.
func AlwaysOn() *OnOff {
	return &OnOff{entries: []bool{true}, startDay: 0, stepHours: 1}
}

// IsOn reports whether the schedule allows operation at the current time.
func (s *OnOff) IsOn(tl *simtime.Timeline) bool {
	if len(s.entries) == 0 {
		return false
	}
	idx := tl.SeriesIndex(s.startDay, s.stepHours)
	return s.entries[mod(idx, len(s.entries))]
}

// Len returns the number of entries.
func (s *OnOff) Len() int { return len(s.entries) }

// Values is a numeric schedule, e.g. internal gains in W or hot water
// draw-off volume in litres.
type Values struct {
	entries   []float64
	startDay  int
	stepHours float64
}

// NewValues creates a numeric schedule starting on startDay with entries
// stepHours apart.
func NewValues(entries []float64, startDay int, stepHours float64) *Values {
	return &Values{entries: entries, startDay: startDay, stepHours: stepHours}
}

// Constant returns a schedule holding one repeating value.
func Constant(v float64) *Values {
	return &Values{entries: []float64{v}, startDay: 0, stepHours: 1}
}

// At returns the scheduled value for the current time. Use it for rates
// and levels (gains in W, setpoints), which hold for however long a
// simulation step lasts.
func (s *Values) At(tl *simtime.Timeline) float64 {
	if len(s.entries) == 0 {
		return 0
	}
	idx := tl.SeriesIndex(s.startDay, s.stepHours)
	return s.entries[mod(idx, len(s.entries))]
}

// Quantity returns the scheduled amount pro-rated to the simulation step.
// Entries are amounts per schedule interval (litres drawn, for example),
// so a simulation running finer than the schedule spreads each entry
// evenly across its sub-steps instead of repeating it.
func (s *Values) Quantity(tl *simtime.Timeline) float64 {
	if len(s.entries) == 0 {
		return 0
	}
	idx := tl.SeriesIndex(s.startDay, s.stepHours)
	return s.entries[mod(idx, len(s.entries))] * tl.StepHours() / s.stepHours
}

// Len returns the number of entries.
func (s *Values) Len() int { return len(s.entries) }

func mod(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}
