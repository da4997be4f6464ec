// Package solver resolves the zone heat balance for one timestep. All zones
// of the dwelling are assembled into a single thermal network so that
// coupled zones are solved jointly; the node model and heat balance
// equations follow BS EN ISO 52016-1:2017, section 6.5.6.
package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/home-energy-foundry/hem0424/internal/building"
)

// Convective fractions (default values from BS EN ISO 52016-1:2017,
// Table B.11).
const (
	fIntC = 0.4 // internal gains
	fSolC = 0.1 // solar gains
	fHCC  = 0.4 // heating/cooling gains
)

// elemSpan locates one element's nodes in the global temperature vector:
// Start is the external surface node, End the internal surface node.
type elemSpan struct {
	Start, End int
}

// Network is the assembled thermal network for a dwelling. It holds only
// index structure; all state is passed through Solve.
type Network struct {
	dwelling *building.Dwelling

	elemPos [][]elemSpan // per zone, per element
	airIdx  []int        // per zone: index of the air node
	nTemps  int
}

// NewNetwork lays out the temperature vector for a dwelling: every fabric
// element contributes its nodes and every zone contributes one air node.
func NewNetwork(d *building.Dwelling) *Network {
	nw := &Network{
		dwelling: d,
		elemPos:  make([][]elemSpan, len(d.Zones)),
		airIdx:   make([]int, len(d.Zones)),
	}
	n := 0
	for zi, z := range d.Zones {
		nw.elemPos[zi] = make([]elemSpan, len(z.Elements))
		for ei, el := range z.Elements {
			nw.elemPos[zi][ei] = elemSpan{Start: n, End: n + el.NodeCount() - 1}
			n += el.NodeCount()
		}
		nw.airIdx[zi] = n
		n++
	}
	nw.nTemps = n
	return nw
}

// NumTemps returns the length of the temperature vector.
func (nw *Network) NumTemps() int { return nw.nTemps }

// AirIndex returns the temperature vector index of a zone's air node.
func (nw *Network) AirIndex(zone int) int { return nw.airIdx[zone] }

// InitialTemps returns a temperature vector with every node at t degC.
func (nw *Network) InitialTemps(t float64) []float64 {
	temps := make([]float64, nw.nTemps)
	for i := range temps {
		temps[i] = t
	}
	return temps
}

// StepInput carries the external drivers and gains for one solve.
type StepInput struct {
	DeltaTSeconds float64
	ExtAirTemp    float64 // degC
	GroundTemp    float64 // degC

	// Per zone, in W.
	InternalGains []float64
	SolarGains    []float64 // transmitted through glazing
	HeatCool      []float64 // system heating (positive) or cooling (negative)

	// Per zone, per element: solar flux absorbed at the external surface,
	// W/m2. Nil entries mean zero.
	SolarAbsorbed [][]float64
}

// solve assembles and solves the matrix equation A.X = B for the new
// temperature vector. prev is the committed vector from the previous step.
func (nw *Network) solve(prev []float64, in StepInput) ([]float64, error) {
	d := nw.dwelling
	n := nw.nTemps
	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	dt := in.DeltaTSeconds

	for zi, z := range d.Zones {
		areaTotal := 0.0
		for _, el := range z.Elements {
			areaTotal += el.Area
		}
		zoneIdx := nw.airIdx[zi]

		for ei, el := range z.Elements {
			span := nw.elemPos[zi][ei]
			extTemp := in.ExtAirTemp
			if el.GroundContact {
				extTemp = in.GroundTemp
			}
			absorbed := 0.0
			if in.SolarAbsorbed != nil && in.SolarAbsorbed[zi] != nil {
				absorbed = in.SolarAbsorbed[zi][ei]
			}

			// External surface node (eqn 41).
			idx := span.Start
			a.Set(idx, idx, el.KPli[0]/dt+building.HCe+building.HRe+el.HPli[0])
			a.Set(idx, idx+1, -el.HPli[0])
			b.SetVec(idx, el.KPli[0]/dt*prev[idx]+(building.HCe+building.HRe)*extTemp+absorbed)

			// Inside nodes, if any (eqn 40).
			for i := 1; i < el.NodeCount()-1; i++ {
				idx++
				a.Set(idx, idx-1, -el.HPli[i-1])
				a.Set(idx, idx, el.KPli[i]/dt+el.HPli[i]+el.HPli[i-1])
				a.Set(idx, idx+1, -el.HPli[i])
				b.SetVec(idx, el.KPli[i]/dt*prev[idx])
			}

			// Internal surface node (eqn 39).
			idx++
			last := el.NodeCount() - 1
			a.Set(idx, idx, a.At(idx, idx)+el.KPli[last]/dt+building.HCi+building.HRi+el.HPli[last-1])
			a.Set(idx, idx-1, -el.HPli[last-1])
			// Radiative exchange with the other internal surfaces of the
			// zone, weighted by area fraction.
			for ej := range z.Elements {
				col := nw.elemPos[zi][ej].End
				a.Set(idx, col, a.At(idx, col)-z.Elements[ej].Area/areaTotal*building.HRi)
			}
			a.Set(idx, zoneIdx, a.At(idx, zoneIdx)-building.HCi)
			b.SetVec(idx, el.KPli[last]/dt*prev[idx]+
				((1-fIntC)*in.InternalGains[zi]+(1-fSolC)*in.SolarGains[zi]+(1-fHCC)*in.HeatCool[zi])/areaTotal)
		}

		// Zone air heat balance (eqn 38).
		cInt := building.AirArealHeatCapacity * z.Area
		hVe := z.VentilationHeatTransfer()
		diag := cInt/dt + hVe + z.BridgeWPerK
		for ei, el := range z.Elements {
			diag += el.Area * building.HCi
			col := nw.elemPos[zi][ei].End
			a.Set(zoneIdx, col, a.At(zoneIdx, col)-el.Area*building.HCi)
		}
		a.Set(zoneIdx, zoneIdx, a.At(zoneIdx, zoneIdx)+diag)
		b.SetVec(zoneIdx, cInt/dt*prev[zoneIdx]+
			(hVe+z.BridgeWPerK)*in.ExtAirTemp+
			fIntC*in.InternalGains[zi]+fSolC*in.SolarGains[zi]+fHCC*in.HeatCool[zi])
	}

	// Inter-zone couplings act between air nodes.
	for _, c := range d.Couplings {
		ia, ib := nw.airIdx[c.ZoneA], nw.airIdx[c.ZoneB]
		h := c.ConductanceWPerK
		a.Set(ia, ia, a.At(ia, ia)+h)
		a.Set(ia, ib, a.At(ia, ib)-h)
		a.Set(ib, ib, a.At(ib, ib)+h)
		a.Set(ib, ia, a.At(ib, ia)-h)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("thermal network solve: %w", err)
	}
	out := make([]float64, n)
	for i := range out {
		v := x.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("thermal network solve: non-finite temperature at node %d", i)
		}
		out[i] = v
	}
	return out, nil
}
