package dispatch

import (
	"github.com/home-energy-foundry/hem0424/internal/building"
	"github.com/home-energy-foundry/hem0424/internal/simtime"
)

// Generator wraps one heat generator spec with its fuel connection.
type Generator struct {
	spec *building.GeneratorSpec
	conn *Connection
}

// Spec returns the generator's validated description.
func (g *Generator) Spec() *building.GeneratorSpec { return g.spec }

// Available reports whether the generator's control schedule allows it to
// run at the current time.
func (g *Generator) Available(tl *simtime.Timeline) bool {
	return g.spec.Control == nil || g.spec.Control.IsOn(tl)
}

// MaxOutputKWh returns the most heat the generator can deliver in one
// timestep: zero when its control is off, capacity times step length
// otherwise.
func (g *Generator) MaxOutputKWh(tl *simtime.Timeline) float64 {
	if !g.Available(tl) {
		return 0
	}
	return g.spec.CapacityKW * tl.StepHours()
}

// Plan returns the heat the generator would deliver against demandKWh,
// without recording fuel use. Delivery never exceeds the per-step capacity.
func (g *Generator) Plan(tl *simtime.Timeline, demandKWh float64) float64 {
	if demandKWh <= 0 {
		return 0
	}
	max := g.MaxOutputKWh(tl)
	if demandKWh < max {
		return demandKWh
	}
	return max
}

// CommitDelivery records the fuel consumed to deliver deliveredKWh of heat
// at the given step and outdoor air temperature.
func (g *Generator) CommitDelivery(step int, deliveredKWh, extAirTemp float64) {
	if deliveredKWh <= 0 {
		return
	}
	g.conn.DemandEnergy(step, deliveredKWh/g.efficiencyAt(extAirTemp))
}

// efficiencyAt returns heat output per unit fuel input. For heat pumps this
// is the COP interpolated on outdoor temperature between the -7 degC and
// 7 degC test points, clamped outside that range.
func (g *Generator) efficiencyAt(extAirTemp float64) float64 {
	if g.spec.Kind != building.GenHeatPump {
		return g.spec.Efficiency
	}
	switch {
	case extAirTemp <= -7:
		return g.spec.COPAtMinus7C
	case extAirTemp >= 7:
		return g.spec.COPAt7C
	default:
		frac := (extAirTemp + 7) / 14
		return g.spec.COPAtMinus7C + frac*(g.spec.COPAt7C-g.spec.COPAtMinus7C)
	}
}
