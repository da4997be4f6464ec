// Package engine runs the annual simulation loop: weather in, zone solve,
// system dispatch, results out.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/home-energy-foundry/hem0424/internal/building"
	"github.com/home-energy-foundry/hem0424/internal/dispatch"
	"github.com/home-energy-foundry/hem0424/internal/simtime"
	"github.com/home-energy-foundry/hem0424/internal/solver"
	"github.com/home-energy-foundry/hem0424/internal/weather"
	"github.com/home-energy-foundry/hem0424/pkg/logging"
)

// Fixed-point settle criteria for the solver/dispatch exchange within one
// step.
const (
	convergenceTolKWh = 1e-3
	maxIterations     = 10
	// shortfallTolW separates genuine capacity shortfalls from float
	// noise when deciding whether to pin a zone.
	shortfallTolW = 1e-6
)

// StepResult is the outcome of one simulation step.
type StepResult struct {
	Step       int     `json:"step"`
	HourOfYear float64 `json:"hour_of_year"`
	ExtAirTemp float64 `json:"ext_air_temp"`

	// Per zone.
	ZoneTemps  []float64 `json:"zone_temps"`
	DemandW    []float64 `json:"demand_w"`
	DeliveredW []float64 `json:"delivered_w"`
	UnmetW     []float64 `json:"unmet_w"`

	Flows []solver.ZoneFlows `json:"flows,omitempty"`

	HotWater dispatch.HotWaterResult `json:"hot_water"`
	PVKWh    float64                 `json:"pv_kwh"`

	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
}

// Callback receives simulation events. Implementations must be fast; they
// run on the simulation goroutine.
type Callback interface {
	OnStep(res StepResult)
	OnFinish(results []StepResult)
}

// Engine drives one annual run. It advances strictly sequentially so runs
// are reproducible step for step.
type Engine struct {
	mu sync.Mutex

	d   *building.Dwelling
	wx  *weather.Series
	tl  *simtime.Timeline
	sv  *solver.Solver
	dp  *dispatch.Dispatcher
	log *logging.Logger
	cb  Callback

	temps   []float64
	results []StepResult
	done    bool
}

// New assembles an engine for one dwelling and weather year. cb may be
// nil. The weather series must already be normalized to the simulation
// step.
func New(d *building.Dwelling, wx *weather.Series, log *logging.Logger, cb Callback) (*Engine, error) {
	if wx.StepHours != d.StepHours {
		return nil, fmt.Errorf("weather step %.3fh does not match simulation step %.3fh", wx.StepHours, d.StepHours)
	}
	tl := simtime.Annual(d.StepHours)
	dp, err := dispatch.New(d, tl)
	if err != nil {
		return nil, err
	}
	sv := solver.New(d)
	e := &Engine{
		d:   d,
		wx:  wx,
		tl:  tl,
		sv:  sv,
		dp:  dp,
		log: log,
		cb:  cb,
	}
	e.temps = sv.Network().InitialTemps(e.initialTemp())
	return e, nil
}

// initialTemp seeds the whole network at the first heating setpoint found,
// falling back to the first hour's outdoor temperature.
func (e *Engine) initialTemp() float64 {
	for _, z := range e.d.Zones {
		if z.HeatSetpoint != nil {
			return *z.HeatSetpoint
		}
	}
	return e.wx.AirTemp[0]
}

// Dispatcher exposes the fuel ledgers after a run.
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dp }

// Results returns the per-step log. Valid after Run returns.
func (e *Engine) Results() []StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results
}

// Run executes the full annual simulation. It returns the first fatal
// error: solver divergence after retry, or unmet demand in a zone with
// the strict curtailment policy.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return fmt.Errorf("engine already ran")
	}
	e.results = make([]StepResult, 0, e.tl.TotalSteps())
	e.mu.Unlock()

	nZones := len(e.d.Zones)
	for e.tl.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		step := e.tl.Index()
		drv := e.wx.At(step)
		hourOfYear := e.tl.Current()

		in := solver.StepInput{
			DeltaTSeconds: e.tl.StepHours() * 3600,
			ExtAirTemp:    drv.AirTemp,
			GroundTemp:    drv.GroundTemp,
			InternalGains: make([]float64, nZones),
			HeatCool:      make([]float64, nZones),
		}
		for zi, z := range e.d.Zones {
			if z.InternalGains != nil {
				in.InternalGains[zi] = z.InternalGains.At(e.tl)
			}
		}
		in.SolarGains, in.SolarAbsorbed = solver.SolarGains(e.d, drv, e.wx.Site, hourOfYear)

		res, err := e.runStep(step, hourOfYear, drv, in)
		if err != nil {
			e.log.Error("simulation halted", logging.Fields{"step": step}, err)
			return err
		}

		e.mu.Lock()
		e.results = append(e.results, res)
		e.mu.Unlock()
		if e.cb != nil {
			e.cb.OnStep(res)
		}
	}

	e.mu.Lock()
	e.done = true
	results := e.results
	e.mu.Unlock()
	if e.cb != nil {
		e.cb.OnFinish(results)
	}
	e.log.Info("simulation complete", logging.Fields{"steps": len(results)})
	return nil
}

func (e *Engine) runStep(step int, hourOfYear float64, drv weather.Drivers, in solver.StepInput) (StepResult, error) {
	zoneRes, err := e.sv.Demand(step, e.temps, in)
	if err != nil {
		return StepResult{}, err
	}
	demandW := make([]float64, len(zoneRes))
	for zi, zr := range zoneRes {
		demandW[zi] = zr.DemandW
	}

	// Settle the solver/dispatch exchange. A zone whose plant cannot
	// meet its load is pinned at the realized flux and the remaining
	// zones are re-solved under that shortfall, since a cold neighbour
	// raises the load of every zone coupled to it. Pinning is monotone,
	// so the delivered energy settles within the tolerance well inside
	// the iteration cap.
	var plan dispatch.SpacePlan
	prevKWh := math.Inf(1)
	pinned := make([]float64, len(demandW))
	for zi := range pinned {
		pinned[zi] = math.NaN()
	}
	iters := 0
	converged := false
	for iters < maxIterations {
		iters++
		plan = e.dp.PlanSpace(demandW)
		kwh := deliveredKWh(plan, e.tl.StepHours())
		if math.Abs(kwh-prevKWh) < convergenceTolKWh {
			converged = true
			break
		}
		prevKWh = kwh

		repin := false
		for zi := range demandW {
			if math.IsNaN(pinned[zi]) && math.Abs(demandW[zi]-plan.RealizedW[zi]) > shortfallTolW {
				pinned[zi] = plan.RealizedW[zi]
				repin = true
			}
		}
		if !repin {
			continue
		}
		limited, err := e.sv.DemandLimited(step, e.temps, in, pinned)
		if err != nil {
			return StepResult{}, err
		}
		// Pinned zones keep their unconstrained demand for reporting;
		// only the zones still under setpoint control are updated.
		for zi, zr := range limited {
			if math.IsNaN(pinned[zi]) {
				demandW[zi] = zr.DemandW
			}
		}
	}
	if !converged {
		e.log.Warn("step failed to settle", logging.Fields{"step": step, "iterations": iters})
	}

	used, err := e.dp.CommitSpace(step, plan, drv.AirTemp)
	if err != nil {
		return StepResult{}, err
	}

	in.HeatCool = plan.RealizedW
	temps, flows, err := e.sv.Commit(step, e.temps, in)
	if err != nil {
		return StepResult{}, err
	}
	e.temps = temps

	hw := e.dp.DispatchHotWater(step, drv.AirTemp, used)
	pv := e.dp.GeneratePV(step, drv, e.wx.Site, hourOfYear)

	res := StepResult{
		Step:       step,
		HourOfYear: hourOfYear,
		ExtAirTemp: drv.AirTemp,
		ZoneTemps:  make([]float64, len(e.d.Zones)),
		DemandW:    demandW,
		DeliveredW: plan.RealizedW,
		UnmetW:     plan.UnmetW,
		Flows:      flows,
		HotWater:   hw,
		PVKWh:      pv,
		Iterations: iters,
		Converged:  converged,
	}
	for zi := range e.d.Zones {
		res.ZoneTemps[zi] = temps[e.sv.Network().AirIndex(zi)]
	}
	return res, nil
}

func deliveredKWh(plan dispatch.SpacePlan, stepHours float64) float64 {
	var total float64
	for _, w := range plan.RealizedW {
		total += w * stepHours / 1000
	}
	return total
}
