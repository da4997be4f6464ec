// Package dispatch allocates installed system capacity to the demand
// signals produced by the heat balance solver, and keeps the per-fuel
// energy ledger the aggregator reads at the end of the run.
package dispatch

import (
	"fmt"

	"github.com/home-energy-foundry/hem0424/internal/building"
)

// Supply is the energy ledger for one fuel. End users register named
// connections and record demand against them per timestep; on-site
// generation is recorded separately and offsets imports.
type Supply struct {
	fuel       building.Fuel
	total      []float64 // kWh demanded per step
	generation []float64 // kWh generated on site per step
	byEndUser  map[string][]float64
	userOrder  []string
}

// NewSupply creates a Supply with one ledger slot per timestep.
func NewSupply(fuel building.Fuel, totalSteps int) *Supply {
	return &Supply{
		fuel:       fuel,
		total:      make([]float64, totalSteps),
		generation: make([]float64, totalSteps),
		byEndUser:  make(map[string][]float64),
	}
}

// Fuel returns the fuel this supply delivers.
func (s *Supply) Fuel() building.Fuel { return s.fuel }

// Connection registers a named end user on this supply. Registering the
// same name twice is a programming error.
func (s *Supply) Connection(endUser string) (*Connection, error) {
	if _, ok := s.byEndUser[endUser]; ok {
		return nil, fmt.Errorf("end user name already used: %s", endUser)
	}
	s.byEndUser[endUser] = make([]float64, len(s.total))
	s.userOrder = append(s.userOrder, endUser)
	return &Connection{supply: s, endUser: endUser}, nil
}

func (s *Supply) demandEnergy(endUser string, step int, kwh float64) {
	s.total[step] += kwh
	s.byEndUser[endUser][step] += kwh
}

func (s *Supply) supplyEnergy(step int, kwh float64) {
	s.generation[step] += kwh
}

// ResultsTotal returns the demand on this supply per timestep, before
// generation offset.
func (s *Supply) ResultsTotal() []float64 { return s.total }

// ResultsGeneration returns the on-site generation per timestep.
func (s *Supply) ResultsGeneration() []float64 { return s.generation }

// ResultsByEndUser returns per-step demand for each registered end user,
// in registration order.
func (s *Supply) ResultsByEndUser() map[string][]float64 { return s.byEndUser }

// EndUsers returns end user names in registration order.
func (s *Supply) EndUsers() []string { return s.userOrder }

// NetImport returns the grid import for one step: demand minus generation,
// floored at zero. Surplus generation is exported, not banked.
func (s *Supply) NetImport(step int) float64 {
	net := s.total[step] - s.generation[step]
	if net < 0 {
		return 0
	}
	return net
}

// Export returns surplus generation for one step.
func (s *Supply) Export(step int) float64 {
	surplus := s.generation[step] - s.total[step]
	if surplus < 0 {
		return 0
	}
	return surplus
}

// Connection records one end user's demand against a Supply, so callers do
// not repeat the end user name on every call.
type Connection struct {
	supply  *Supply
	endUser string
}

// DemandEnergy records kwh of demand for this connection's end user at the
// given step.
func (c *Connection) DemandEnergy(step int, kwh float64) {
	c.supply.demandEnergy(c.endUser, step, kwh)
}

// SupplyEnergy records kwh of on-site generation at the given step.
func (c *Connection) SupplyEnergy(step int, kwh float64) {
	c.supply.supplyEnergy(step, kwh)
}
