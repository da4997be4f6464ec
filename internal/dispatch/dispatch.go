package dispatch

import (
	"fmt"
	"sort"

	"github.com/home-energy-foundry/hem0424/internal/building"
	"github.com/home-energy-foundry/hem0424/internal/simtime"
	"github.com/home-energy-foundry/hem0424/internal/weather"
)

// UnmetDemandError is returned when a zone with the strict curtailment
// policy cannot have its demand met.
type UnmetDemandError struct {
	Zone    string
	Step    int
	UnmetKW float64
}

func (e *UnmetDemandError) Error() string {
	return fmt.Sprintf("unmet demand at step %d: zone %s short %.3f kW under strict curtailment", e.Step, e.Zone, e.UnmetKW)
}

// Dispatcher owns the operational state of the installed systems and the
// per-fuel ledgers for one run.
type Dispatcher struct {
	d  *building.Dwelling
	tl *simtime.Timeline

	supplies   map[string]*Supply
	fuelOrder  []string
	generators []*Generator // dwelling priority order
	byZone     [][]int      // generator indices per zone
	stores     map[string]*ThermalStore
	storeOrder []string
	pvs        []*PVGenerator
}

// New wires the dwelling's systems to fuel supplies. Structural problems
// were already rejected by the building model, so errors here indicate
// duplicate end-user registration only.
func New(d *building.Dwelling, tl *simtime.Timeline) (*Dispatcher, error) {
	dp := &Dispatcher{
		d:        d,
		tl:       tl,
		supplies: make(map[string]*Supply, len(d.Fuels)),
		byZone:   make([][]int, len(d.Zones)),
		stores:   make(map[string]*ThermalStore, len(d.Storage)),
	}

	for name := range d.Fuels {
		dp.fuelOrder = append(dp.fuelOrder, name)
	}
	sort.Strings(dp.fuelOrder)
	for _, name := range dp.fuelOrder {
		dp.supplies[name] = NewSupply(d.Fuels[name], tl.TotalSteps())
	}

	for _, spec := range d.Generators {
		conn, err := dp.supplies[spec.Fuel].Connection(spec.Name)
		if err != nil {
			return nil, err
		}
		dp.generators = append(dp.generators, &Generator{spec: spec, conn: conn})
		dp.byZone[spec.Zone] = append(dp.byZone[spec.Zone], len(dp.generators)-1)
	}

	for _, spec := range d.Storage {
		dp.stores[spec.Name] = NewThermalStore(spec)
		dp.storeOrder = append(dp.storeOrder, spec.Name)
	}

	for _, spec := range d.PV {
		conn, err := dp.supplies[spec.Fuel].Connection(spec.Name)
		if err != nil {
			return nil, err
		}
		dp.pvs = append(dp.pvs, &PVGenerator{spec: spec, conn: conn})
	}

	return dp, nil
}

// SpacePlan is the realized response to one space conditioning demand
// signal. Plans are pure: computing one neither records fuel nor mutates
// system state, so the engine can re-plan freely inside its fixed-point
// loop and commit exactly once.
type SpacePlan struct {
	// RealizedW is the heat actually delivered to each zone, in W.
	// Never exceeds demand or installed capacity.
	RealizedW []float64
	// UnmetW is the shortfall per zone in W: heating deficit, plus the
	// magnitude of any cooling demand (no cooling plant is modelled).
	UnmetW []float64

	deliveries []delivery
}

type delivery struct {
	gen  int
	kwh  float64
	zone int
}

// PlanSpace allocates generator capacity to the per-zone demand signal
// (W, positive heating, negative cooling) in priority order.
func (dp *Dispatcher) PlanSpace(demandW []float64) SpacePlan {
	plan := SpacePlan{
		RealizedW: make([]float64, len(dp.d.Zones)),
		UnmetW:    make([]float64, len(dp.d.Zones)),
	}
	stepHours := dp.tl.StepHours()

	for zi := range dp.d.Zones {
		w := demandW[zi]
		if w < 0 {
			// Cooling demand is shed: the model carries no cooling
			// plant.
			plan.UnmetW[zi] = -w
			continue
		}
		if w == 0 {
			continue
		}
		remaining := w * stepHours / 1000 // kWh
		for _, gi := range dp.byZone[zi] {
			if remaining <= 0 {
				break
			}
			got := dp.generators[gi].Plan(dp.tl, remaining)
			if got > 0 {
				plan.deliveries = append(plan.deliveries, delivery{gen: gi, kwh: got, zone: zi})
				remaining -= got
			}
		}
		deliveredKWh := w*stepHours/1000 - remaining
		plan.RealizedW[zi] = deliveredKWh * 1000 / stepHours
		plan.UnmetW[zi] = remaining * 1000 / stepHours
	}
	return plan
}

// CommitSpace records the fuel use of a converged plan and returns the
// per-generator heat output, which bounds what remains for hot water
// reheat this step. Strict-curtailment zones with a shortfall fail here.
func (dp *Dispatcher) CommitSpace(step int, plan SpacePlan, extAirTemp float64) (map[int]float64, error) {
	for zi, z := range dp.d.Zones {
		if z.Curtailment == building.CurtailStrict && plan.UnmetW[zi] > 1e-9 {
			return nil, &UnmetDemandError{Zone: z.Name, Step: step, UnmetKW: plan.UnmetW[zi] / 1000}
		}
	}
	used := make(map[int]float64, len(plan.deliveries))
	for _, del := range plan.deliveries {
		dp.generators[del.gen].CommitDelivery(step, del.kwh, extAirTemp)
		used[del.gen] += del.kwh
	}
	return used, nil
}

// HotWaterResult reports one step's hot water energy flows, in kWh.
type HotWaterResult struct {
	DemandKWh    float64 `json:"demand_kwh"`
	DeliveredKWh float64 `json:"delivered_kwh"`
	UnmetKWh     float64 `json:"unmet_kwh"`
	StandingLoss float64 `json:"standing_loss_kwh"`
	// ReheatKWh is the heat put into stores by their heat sources.
	ReheatKWh float64 `json:"reheat_kwh"`
	// StoreChargeKWh is the total charge across stores after the step.
	StoreChargeKWh float64 `json:"store_charge_kwh"`
}

// DispatchHotWater serves the draw-off schedule from the stores, then
// reheats them with their listed heat sources, respecting capacity already
// spent on space heating this step.
func (dp *Dispatcher) DispatchHotWater(step int, extAirTemp float64, spaceUsed map[int]float64) HotWaterResult {
	var res HotWaterResult
	stepHours := dp.tl.StepHours()

	for _, name := range dp.storeOrder {
		res.StandingLoss += dp.stores[name].ApplyStandingLoss(stepHours)
	}

	if dp.d.HotWater != nil {
		litres := dp.d.HotWater.DrawOffLitres.Quantity(dp.tl)
		store := dp.stores[dp.d.HotWater.ServedBy]
		spec := store.spec
		res.DemandKWh = litres * 4.184 * (spec.HotTempC - spec.ColdFeedC) / 3600
		res.DeliveredKWh = store.Draw(res.DemandKWh)
		res.UnmetKWh = res.DemandKWh - res.DeliveredKWh
	}

	// Reheat pass: each store demands heat from its sources in listed
	// order once its thermostat trips.
	for _, name := range dp.storeOrder {
		store := dp.stores[name]
		need := store.ReheatDemandKWh()
		for _, srcName := range store.spec.HeatSources {
			if need <= 0 {
				break
			}
			gi := dp.generatorIndex(srcName)
			if gi < 0 {
				continue
			}
			gen := dp.generators[gi]
			headroom := gen.MaxOutputKWh(dp.tl) - spaceUsed[gi]
			if headroom <= 0 {
				continue
			}
			offer := need
			if offer > headroom {
				offer = headroom
			}
			supplied := store.Charge(offer)
			if supplied > 0 {
				gen.CommitDelivery(step, supplied, extAirTemp)
				spaceUsed[gi] += supplied
				res.ReheatKWh += supplied
				need -= supplied
			}
		}
	}

	for _, name := range dp.storeOrder {
		res.StoreChargeKWh += dp.stores[name].ChargeKWh()
	}
	return res
}

// GeneratePV runs every PV system for one step and returns total output in
// kWh.
func (dp *Dispatcher) GeneratePV(step int, drv weather.Drivers, site weather.Site, hourOfYear float64) float64 {
	var total float64
	for _, pv := range dp.pvs {
		total += pv.Generate(step, drv, site, hourOfYear, dp.tl.StepHours())
	}
	return total
}

// Supplies returns the per-fuel ledgers in deterministic (sorted) order.
func (dp *Dispatcher) Supplies() []*Supply {
	out := make([]*Supply, 0, len(dp.fuelOrder))
	for _, name := range dp.fuelOrder {
		out = append(out, dp.supplies[name])
	}
	return out
}

// Supply returns the ledger for one fuel, or nil.
func (dp *Dispatcher) Supply(fuel string) *Supply { return dp.supplies[fuel] }

// StoreCharge returns a store's charge level in kWh, for state reporting.
func (dp *Dispatcher) StoreCharge(name string) float64 {
	st, ok := dp.stores[name]
	if !ok {
		return 0
	}
	return st.ChargeKWh()
}

func (dp *Dispatcher) generatorIndex(name string) int {
	for i, g := range dp.generators {
		if g.spec.Name == name {
			return i
		}
	}
	return -1
}
