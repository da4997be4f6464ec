// Package simtime tracks the simulation clock. A Timeline is the single
// source of truth for the current step index and length; every component
// that needs to know "what time is it" holds a reference to one.
package simtime

import "math"

// Timeline iterates over the simulation period in fixed steps. Times are
// expressed in hours from an arbitrary zero point (hour 0 is assumed to be
// midnight on the first simulated day).
type Timeline struct {
	start float64
	end   float64
	step  float64

	current float64
	idx     int
	total   int
	first   bool
}

// New creates a Timeline covering [start, end) hours in increments of step
// hours.
func New(start, end, step float64) *Timeline {
	return &Timeline{
		start:   start,
		end:     end,
		step:    step,
		current: start,
		total:   int(math.Ceil((end - start) / step)),
		first:   true,
	}
}

// Annual returns a Timeline covering a full non-leap year at the given step
// length in hours.
func Annual(step float64) *Timeline {
	return New(0, 8760, step)
}

// Next advances to the next timestep. It returns false once the end of the
// simulation period is reached. The first call does not advance, so the
// usual loop shape is:
//
//	for tl.Next() {
//	    i := tl.Index()
//	    ...
//	}
func (t *Timeline) Next() bool {
	if t.first {
		t.first = false
	} else {
		t.idx++
		t.current += t.step
	}
	return t.current < t.end
}

// Reset rewinds the Timeline to its start.
func (t *Timeline) Reset() {
	t.current = t.start
	t.idx = 0
	t.first = true
}

// Current returns the current simulation time in hours from the zero point.
func (t *Timeline) Current() float64 { return t.current }

// Index returns the zero-based ordinal of the current timestep.
func (t *Timeline) Index() int { return t.idx }

// StepHours returns the timestep length in hours.
func (t *Timeline) StepHours() float64 { return t.step }

// TotalSteps returns the number of timesteps in the simulation.
func (t *Timeline) TotalSteps() int { return t.total }

// CurrentHour returns the whole hour containing the current time.
func (t *Timeline) CurrentHour() int { return int(math.Floor(t.current)) }

// HourOfDay returns the hour of day, where 00:00-01:00 is hour zero.
func (t *Timeline) HourOfDay() int {
	return int(math.Floor(math.Mod(t.current, 24)))
}

// CurrentDay returns the day of the year containing the current time,
// counting from zero.
func (t *Timeline) CurrentDay() int { return int(math.Floor(t.current / 24)) }

// SeriesIndex maps the current time onto an external time series that starts
// on startDay (day of year, zero-based) with entries seriesStep hours long.
// Schedules and weather series declared at a coarser resolution than the
// simulation step are looked up through this.
func (t *Timeline) SeriesIndex(startDay int, seriesStep float64) int {
	offset := t.current - float64(startDay)*24
	return int(math.Floor(offset / seriesStep))
}
