package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/home-energy-foundry/hem0424/internal/building"
)

// Load probe used to measure the response of zone temperature to heat
// input, in W/m2 of floor area (BS EN ISO 52016-1:2017 heating/cooling
// load procedure).
const probeFluxWPerM2 = 10

// DivergenceError reports a numerical failure inside a timestep that
// persisted through the sub-step retry.
type DivergenceError struct {
	Zone string
	Step int
	Err  error
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("simulation diverged at step %d (zone %s): %v", e.Step, e.Zone, e.Err)
}

func (e *DivergenceError) Unwrap() error { return e.Err }

// Mode reports what the solver did for a zone in one step.
type Mode int

const (
	ModeFree Mode = iota
	ModeHeating
	ModeCooling
)

// ZoneResult holds the per-zone outcome of one solve.
type ZoneResult struct {
	Mode    Mode
	AirTemp float64 // degC after the step
	// DemandW is the heat input required to hold the setpoint (positive
	// heating, negative cooling); zero in free-running mode.
	DemandW float64
}

// Solver computes zone demand and commits realized temperatures.
type Solver struct {
	d  *building.Dwelling
	nw *Network
}

// New creates a Solver for a dwelling.
func New(d *building.Dwelling) *Solver {
	return &Solver{d: d, nw: NewNetwork(d)}
}

// Network exposes the underlying node layout, mainly for the engine's
// initial state.
func (s *Solver) Network() *Network { return s.nw }

// Demand determines, for each zone, whether a setpoint is in control and
// the heat input needed to hold it. The thermal network is linear in the
// heat inputs, so the required loads for all controlled zones are found
// exactly from one free-running solve plus one probe solve per controlled
// zone. in.HeatCool is ignored; demand is computed from scratch.
func (s *Solver) Demand(step int, prev []float64, in StepInput) ([]ZoneResult, error) {
	return s.demand(step, prev, in, nil)
}

// DemandLimited recomputes demand with some zones pinned to a fixed heat
// input, in W. A NaN entry leaves the zone under normal setpoint control;
// any other value is imposed as that zone's system flux and the zone
// evolves freely around it, so a capacity shortfall in one zone
// propagates into the loads of the zones coupled to it.
func (s *Solver) DemandLimited(step int, prev []float64, in StepInput, pinnedW []float64) ([]ZoneResult, error) {
	return s.demand(step, prev, in, pinnedW)
}

func (s *Solver) demand(step int, prev []float64, in StepInput, pinnedW []float64) ([]ZoneResult, error) {
	nZones := len(s.d.Zones)
	pinned := func(zi int) bool {
		return pinnedW != nil && !math.IsNaN(pinnedW[zi])
	}

	free := cloneInput(in, nZones)
	for zi := 0; zi < nZones; zi++ {
		if pinned(zi) {
			free.HeatCool[zi] = pinnedW[zi]
		}
	}
	freeTemps, err := s.solveWithRetry(step, prev, free)
	if err != nil {
		return nil, err
	}

	results := make([]ZoneResult, nZones)
	var controlled []int
	targets := make([]float64, 0, nZones)
	for zi, z := range s.d.Zones {
		airT := freeTemps[s.nw.airIdx[zi]]
		results[zi] = ZoneResult{Mode: ModeFree, AirTemp: airT}
		if pinned(zi) {
			results[zi].DemandW = pinnedW[zi]
			switch {
			case pinnedW[zi] > 0:
				results[zi].Mode = ModeHeating
			case pinnedW[zi] < 0:
				results[zi].Mode = ModeCooling
			}
			continue
		}
		switch {
		case z.HeatSetpoint != nil && airT < *z.HeatSetpoint:
			results[zi].Mode = ModeHeating
			controlled = append(controlled, zi)
			targets = append(targets, *z.HeatSetpoint)
		case z.CoolSetpoint != nil && airT > *z.CoolSetpoint:
			results[zi].Mode = ModeCooling
			controlled = append(controlled, zi)
			targets = append(targets, *z.CoolSetpoint)
		}
	}
	if len(controlled) == 0 {
		return results, nil
	}

	// Sensitivity of every controlled zone's air temperature to a probe
	// load in each controlled zone.
	m := len(controlled)
	sens := mat.NewDense(m, m, nil)
	rhs := mat.NewVecDense(m, nil)
	for j, zj := range controlled {
		probe := cloneInput(in, nZones)
		for zi := 0; zi < nZones; zi++ {
			if pinned(zi) {
				probe.HeatCool[zi] = pinnedW[zi]
			}
		}
		probeW := probeFluxWPerM2 * s.d.Zones[zj].Area
		probe.HeatCool[zj] = probeW
		probeTemps, err := s.solveWithRetry(step, prev, probe)
		if err != nil {
			return nil, err
		}
		for i, zi := range controlled {
			sens.Set(i, j, (probeTemps[s.nw.airIdx[zi]]-freeTemps[s.nw.airIdx[zi]])/probeW)
		}
	}
	for i, zi := range controlled {
		rhs.SetVec(i, targets[i]-freeTemps[s.nw.airIdx[zi]])
	}

	var loads mat.VecDense
	if err := loads.SolveVec(sens, rhs); err != nil {
		zi := controlled[0]
		return nil, &DivergenceError{Zone: s.d.Zones[zi].Name, Step: step, Err: fmt.Errorf("load sensitivity solve: %w", err)}
	}

	for i, zi := range controlled {
		w := loads.AtVec(i)
		// A heating zone can be pushed past its setpoint by its
		// neighbours; it then needs no input, not a negative one.
		if results[zi].Mode == ModeHeating && w < 0 {
			w = 0
			results[zi].Mode = ModeFree
		}
		if results[zi].Mode == ModeCooling && w > 0 {
			w = 0
			results[zi].Mode = ModeFree
		}
		results[zi].DemandW = w
		if results[zi].Mode != ModeFree {
			results[zi].AirTemp = targets[i]
		}
	}
	return results, nil
}

// ZoneFlows decomposes a zone's air-node heat balance for one committed
// step, in W. Positive values heat the zone air.
type ZoneFlows struct {
	Fabric      float64 `json:"fabric"`      // convective exchange with internal surfaces
	Ventilation float64 `json:"ventilation"` // includes thermal bridging to outside air
	Coupling    float64 `json:"coupling"`    // net exchange with coupled zones
	Internal    float64 `json:"internal"`    // convective share of internal gains
	Solar       float64 `json:"solar"`       // convective share of solar gains
	System      float64 `json:"system"`      // convective share of system heating/cooling
	Stored      float64 `json:"stored"`      // rate of change of air node stored heat
}

// Commit solves the network with the realized system gains and returns the
// new temperature vector together with the air-node flow decomposition.
func (s *Solver) Commit(step int, prev []float64, in StepInput) ([]float64, []ZoneFlows, error) {
	temps, err := s.solveWithRetry(step, prev, in)
	if err != nil {
		return nil, nil, err
	}
	flows := make([]ZoneFlows, len(s.d.Zones))
	for zi, z := range s.d.Zones {
		airT := temps[s.nw.airIdx[zi]]
		f := &flows[zi]
		for ei, el := range z.Elements {
			surfT := temps[s.nw.elemPos[zi][ei].End]
			f.Fabric += el.Area * building.HCi * (surfT - airT)
		}
		f.Ventilation = (z.VentilationHeatTransfer() + z.BridgeWPerK) * (in.ExtAirTemp - airT)
		f.Internal = fIntC * in.InternalGains[zi]
		f.Solar = fSolC * in.SolarGains[zi]
		f.System = fHCC * in.HeatCool[zi]
		cInt := building.AirArealHeatCapacity * z.Area
		f.Stored = cInt * (airT - prev[s.nw.airIdx[zi]]) / in.DeltaTSeconds
	}
	for _, c := range s.d.Couplings {
		ta := temps[s.nw.airIdx[c.ZoneA]]
		tb := temps[s.nw.airIdx[c.ZoneB]]
		flows[c.ZoneA].Coupling += c.ConductanceWPerK * (tb - ta)
		flows[c.ZoneB].Coupling += c.ConductanceWPerK * (ta - tb)
	}
	return temps, flows, nil
}

// solveWithRetry runs the implicit solve, retrying once with a halved
// internal sub-step on numerical failure.
func (s *Solver) solveWithRetry(step int, prev []float64, in StepInput) ([]float64, error) {
	temps, err := s.nw.solve(prev, in)
	if err == nil {
		return temps, nil
	}

	half := in
	half.DeltaTSeconds = in.DeltaTSeconds / 2
	mid, err2 := s.nw.solve(prev, half)
	if err2 == nil {
		var final []float64
		final, err2 = s.nw.solve(mid, half)
		if err2 == nil {
			return final, nil
		}
	}
	return nil, &DivergenceError{Zone: s.d.Zones[0].Name, Step: step, Err: err}
}

func cloneInput(in StepInput, nZones int) StepInput {
	out := in
	out.HeatCool = make([]float64, nZones)
	return out
}
