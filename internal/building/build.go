package building

import (
	"fmt"
	"sort"

	"github.com/home-energy-foundry/hem0424/internal/config"
	"github.com/home-energy-foundry/hem0424/internal/schedule"
	"github.com/home-energy-foundry/hem0424/internal/solar"
)

// pvPerformanceFactors maps ventilation strategy to system performance
// factor (informative values from BS EN 15316-4-3:2017, Annex C Table C.4).
var pvPerformanceFactors = map[string]float64{
	"unventilated":                  0.76,
	"moderately_ventilated":         0.80,
	"strongly_or_forced_ventilated": 0.82,
	"rear_surface_free":             1.00,
}

// New builds and validates a Dwelling from the input document. All
// structural invariants are checked here; a Dwelling that constructs
// successfully will not produce configuration failures during the run.
func New(doc *config.Document) (*Dwelling, error) {
	if doc.Simulation.StepHours <= 0 {
		return nil, &ConfigurationError{Entity: "simulation", Reason: fmt.Sprintf("step_hours must be positive, got %g", doc.Simulation.StepHours)}
	}
	if len(doc.Zones) == 0 {
		return nil, &ConfigurationError{Entity: "zones", Reason: "at least one zone is required"}
	}

	d := &Dwelling{
		StepHours: doc.Simulation.StepHours,
		Fuels:     make(map[string]Fuel, len(doc.Fuels)),
	}

	for _, name := range sortedKeys(doc.Fuels) {
		f := doc.Fuels[name]
		d.Fuels[name] = Fuel{
			Name:                name,
			EmissionFactor:      f.EmissionFactor,
			PrimaryEnergyFactor: f.PrimaryEnergyFactor,
			UnitPrice:           f.UnitPrice,
			Electricity:         f.Electricity,
		}
	}

	controls := make(map[string]*schedule.OnOff, len(doc.Controls))
	for _, name := range sortedKeys(doc.Controls) {
		c := doc.Controls[name]
		if len(c.Schedule) == 0 {
			return nil, &ConfigurationError{Entity: name, Reason: "control schedule is empty"}
		}
		step := c.StepHours
		if step == 0 {
			step = 1
		}
		controls[name] = schedule.NewOnOff(c.Schedule, c.StartDay, step)
	}

	for _, name := range sortedKeys(doc.Zones) {
		zone, err := buildZone(name, doc.Zones[name])
		if err != nil {
			return nil, err
		}
		d.Zones = append(d.Zones, zone)
	}

	for i, c := range doc.Couplings {
		entity := fmt.Sprintf("coupling %d", i)
		if len(c.Zones) != 2 {
			return nil, &ConfigurationError{Entity: entity, Reason: fmt.Sprintf("couples %d zones, want exactly 2", len(c.Zones))}
		}
		a, b := d.ZoneIndex(c.Zones[0]), d.ZoneIndex(c.Zones[1])
		if a < 0 {
			return nil, &ConfigurationError{Entity: entity, Reason: "unknown zone " + c.Zones[0]}
		}
		if b < 0 {
			return nil, &ConfigurationError{Entity: entity, Reason: "unknown zone " + c.Zones[1]}
		}
		if a == b {
			return nil, &ConfigurationError{Entity: entity, Reason: "zone " + c.Zones[0] + " coupled to itself"}
		}
		if c.ConductanceWPerK <= 0 {
			return nil, &ConfigurationError{Entity: entity, Reason: fmt.Sprintf("conductance must be positive, got %g", c.ConductanceWPerK)}
		}
		for _, prev := range d.Couplings {
			if (prev.ZoneA == a && prev.ZoneB == b) || (prev.ZoneA == b && prev.ZoneB == a) {
				return nil, &ConfigurationError{Entity: entity, Reason: "duplicate coupling between " + c.Zones[0] + " and " + c.Zones[1]}
			}
		}
		d.Couplings = append(d.Couplings, Coupling{ZoneA: a, ZoneB: b, ConductanceWPerK: c.ConductanceWPerK})
	}

	for _, name := range sortedKeys(doc.Generators) {
		gen, err := buildGenerator(name, doc.Generators[name], d, controls)
		if err != nil {
			return nil, err
		}
		d.Generators = append(d.Generators, gen)
	}
	sort.SliceStable(d.Generators, func(i, j int) bool {
		if d.Generators[i].Priority != d.Generators[j].Priority {
			return d.Generators[i].Priority < d.Generators[j].Priority
		}
		return d.Generators[i].Name < d.Generators[j].Name
	})

	genNames := make(map[string]bool, len(d.Generators))
	for _, g := range d.Generators {
		genNames[g.Name] = true
	}

	for _, name := range sortedKeys(doc.Storage) {
		st := doc.Storage[name]
		if st.VolumeLitres <= 0 {
			return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("storage volume must be positive, got %g", st.VolumeLitres)}
		}
		if st.HotTempC <= st.ColdFeedC {
			return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("hot temperature %g degC not above cold feed %g degC", st.HotTempC, st.ColdFeedC)}
		}
		if len(st.HeatSources) == 0 {
			return nil, &ConfigurationError{Entity: name, Reason: "storage has no heat sources"}
		}
		for _, hs := range st.HeatSources {
			if !genNames[hs] {
				return nil, &ConfigurationError{Entity: name, Reason: "unknown heat source " + hs}
			}
		}
		spec := &StorageSpec{
			Name:                name,
			VolumeLitres:        st.VolumeLitres,
			HotTempC:            st.HotTempC,
			ColdFeedC:           st.ColdFeedC,
			InitialHotFraction:  st.InitialHotFraction,
			StandingLossKWhDay:  st.StandingLossKWhDay,
			RoundTripEfficiency: st.RoundTripEfficiency,
			HeatSources:         st.HeatSources,
		}
		if spec.RoundTripEfficiency == 0 {
			spec.RoundTripEfficiency = 1
		}
		if spec.RoundTripEfficiency < 0 || spec.RoundTripEfficiency > 1 {
			return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("round trip efficiency %g outside (0, 1]", spec.RoundTripEfficiency)}
		}
		d.Storage = append(d.Storage, spec)
	}

	if doc.HotWater != nil {
		hw := doc.HotWater
		if len(hw.DrawOffLitres.Values) == 0 {
			return nil, &ConfigurationError{Entity: "hot_water", Reason: "draw-off schedule is empty"}
		}
		found := false
		for _, st := range d.Storage {
			if st.Name == hw.ServedBy {
				found = true
				break
			}
		}
		if !found {
			return nil, &ConfigurationError{Entity: "hot_water", Reason: "unknown storage " + hw.ServedBy}
		}
		step := hw.DrawOffLitres.StepHours
		if step == 0 {
			step = 1
		}
		d.HotWater = &HotWaterSpec{
			DrawOffLitres: schedule.NewValues(hw.DrawOffLitres.Values, hw.DrawOffLitres.StartDay, step),
			ServedBy:      hw.ServedBy,
		}
	}

	for _, name := range sortedKeys(doc.PV) {
		pv := doc.PV[name]
		if pv.PeakKW <= 0 {
			return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("peak power must be positive, got %g", pv.PeakKW)}
		}
		fuel, ok := d.Fuels[pv.Fuel]
		if !ok {
			return nil, &ConfigurationError{Entity: name, Reason: "unknown fuel " + pv.Fuel}
		}
		if !fuel.Electricity {
			return nil, &ConfigurationError{Entity: name, Reason: "pv fuel " + pv.Fuel + " is not an electricity supply"}
		}
		perf, ok := pvPerformanceFactors[pv.VentilationStrategy]
		if !ok {
			if pv.VentilationStrategy == "" {
				perf = pvPerformanceFactors["moderately_ventilated"]
			} else {
				return nil, &ConfigurationError{Entity: name, Reason: "unknown ventilation strategy " + pv.VentilationStrategy}
			}
		}
		d.PV = append(d.PV, &PVSpec{
			Name:              name,
			PeakKW:            pv.PeakKW,
			PerformanceFactor: perf,
			Surface:           solar.Surface{TiltDeg: pv.PitchDeg, AzimuthDeg: pv.OrientationDeg},
			Fuel:              pv.Fuel,
		})
	}

	return d, nil
}

func buildZone(name string, zc config.Zone) (*Zone, error) {
	if zc.AreaM2 <= 0 {
		return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("area must be positive, got %g", zc.AreaM2)}
	}
	if zc.VolumeM3 <= 0 {
		return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("volume must be positive, got %g", zc.VolumeM3)}
	}
	if zc.AirChangesPerHour < 0 {
		return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("air change rate must not be negative, got %g", zc.AirChangesPerHour)}
	}
	if zc.HeatingSetpointC != nil && zc.CoolingSetpointC != nil && *zc.CoolingSetpointC <= *zc.HeatingSetpointC {
		return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("cooling setpoint %g degC not above heating setpoint %g degC", *zc.CoolingSetpointC, *zc.HeatingSetpointC)}
	}

	z := &Zone{
		Name:              name,
		Area:              zc.AreaM2,
		Volume:            zc.VolumeM3,
		HeatSetpoint:      zc.HeatingSetpointC,
		CoolSetpoint:      zc.CoolingSetpointC,
		AirChangesPerHour: zc.AirChangesPerHour,
	}

	switch zc.Curtailment {
	case "", "shed":
		z.Curtailment = CurtailShed
	case "strict":
		z.Curtailment = CurtailStrict
	default:
		return nil, &ConfigurationError{Entity: name, Reason: "unknown curtailment policy " + zc.Curtailment}
	}

	if zc.InternalGains != nil {
		step := zc.InternalGains.StepHours
		if step == 0 {
			step = 1
		}
		z.InternalGains = schedule.NewValues(zc.InternalGains.Values, zc.InternalGains.StartDay, step)
	}

	if len(zc.Elements) == 0 {
		return nil, &ConfigurationError{Entity: name, Reason: "zone has no fabric elements"}
	}
	for _, elName := range sortedKeys(zc.Elements) {
		el, err := buildElement(name+"."+elName, zc.Elements[elName])
		if err != nil {
			return nil, err
		}
		if el.Kind == ElementBridge {
			z.BridgeWPerK += el.HeatTransferWPerK
			continue
		}
		z.Elements = append(z.Elements, el)
	}
	if len(z.Elements) == 0 {
		return nil, &ConfigurationError{Entity: name, Reason: "zone has no opaque or window elements"}
	}
	return z, nil
}

func buildElement(entity string, ec config.Element) (*FabricElement, error) {
	el := &FabricElement{
		Name:    entity,
		Area:    ec.AreaM2,
		UValue:  ec.UValue,
		Surface: solar.Surface{TiltDeg: ec.PitchDeg, AzimuthDeg: ec.OrientationDeg},
	}

	switch ec.Kind {
	case "opaque":
		el.Kind = ElementOpaque
	case "window":
		el.Kind = ElementWindow
	case "bridge":
		el.Kind = ElementBridge
		if ec.HeatTransferWPerK <= 0 {
			return nil, &ConfigurationError{Entity: entity, Reason: fmt.Sprintf("bridge heat transfer must be positive, got %g", ec.HeatTransferWPerK)}
		}
		el.HeatTransferWPerK = ec.HeatTransferWPerK
		return el, nil
	default:
		return nil, &ConfigurationError{Entity: entity, Reason: "unknown element kind " + ec.Kind}
	}

	switch ec.Boundary {
	case "", "external":
	case "ground":
		if el.Kind != ElementOpaque {
			return nil, &ConfigurationError{Entity: entity, Reason: "only opaque elements can be in ground contact"}
		}
		el.GroundContact = true
	default:
		return nil, &ConfigurationError{Entity: entity, Reason: "unknown boundary " + ec.Boundary}
	}

	if ec.AreaM2 <= 0 {
		return nil, &ConfigurationError{Entity: entity, Reason: fmt.Sprintf("area must be positive, got %g", ec.AreaM2)}
	}
	if ec.UValue <= 0 {
		return nil, &ConfigurationError{Entity: entity, Reason: fmt.Sprintf("u-value must be positive, got %g", ec.UValue)}
	}

	// Construction resistance excluding surface films.
	rc := 1/ec.UValue - 1/(HCi+HRi) - 1/(HCe+HRe)
	if rc < 0.01 {
		rc = 0.01
	}

	switch el.Kind {
	case ElementOpaque:
		el.Absorptivity = ec.Absorptivity
		if el.Absorptivity == 0 {
			el.Absorptivity = 0.6
		}
		if ec.ArealHeatCapJM2K < 0 {
			return nil, &ConfigurationError{Entity: entity, Reason: fmt.Sprintf("areal heat capacity must not be negative, got %g", ec.ArealHeatCapJM2K)}
		}
		// Node conductances and heat capacities per
		// BS EN ISO 52016-1:2017, section 6.5.7.2: five nodes, four
		// conductances.
		hOuter, hInner := 6.0/rc, 3.0/rc
		el.HPli = []float64{hOuter, hInner, hInner, hOuter}
		kp, err := massDistribution(entity, ec.MassDistribution, ec.ArealHeatCapJM2K)
		if err != nil {
			return nil, err
		}
		el.KPli = kp
	case ElementWindow:
		el.GValue = ec.GValue
		if el.GValue == 0 {
			el.GValue = 0.76
		}
		el.ShadingFactor = ec.ShadingFactor
		if el.ShadingFactor == 0 {
			el.ShadingFactor = 1
		}
		if el.ShadingFactor < 0 || el.ShadingFactor > 1 {
			return nil, &ConfigurationError{Entity: entity, Reason: fmt.Sprintf("shading factor %g outside [0, 1]", el.ShadingFactor)}
		}
		// Transparent elements: two massless nodes
		// (BS EN ISO 52016-1:2017, section 6.5.7.3).
		el.HPli = []float64{1 / rc}
		el.KPli = []float64{0, 0}
	}
	return el, nil
}

func massDistribution(entity, class string, km float64) ([]float64, error) {
	switch class {
	case "I", "": // mass on internal side (default)
		return []float64{0, 0, 0, 0, km}, nil
	case "E":
		return []float64{km, 0, 0, 0, 0}, nil
	case "IE":
		h := km / 2
		return []float64{h, 0, 0, 0, h}, nil
	case "D":
		in, out := km/4, km/8
		return []float64{out, in, in, in, out}, nil
	case "M":
		return []float64{0, 0, km, 0, 0}, nil
	default:
		return nil, &ConfigurationError{Entity: entity, Reason: "unknown mass distribution class " + class}
	}
}

func sortedKeys[M map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildGenerator(name string, gc config.Generator, d *Dwelling, controls map[string]*schedule.OnOff) (*GeneratorSpec, error) {
	zi := d.ZoneIndex(gc.Zone)
	if zi < 0 {
		return nil, &ConfigurationError{Entity: name, Reason: "unknown zone " + gc.Zone}
	}
	if _, ok := d.Fuels[gc.Fuel]; !ok {
		return nil, &ConfigurationError{Entity: name, Reason: "unknown fuel " + gc.Fuel}
	}
	if gc.CapacityKW <= 0 {
		return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("capacity must be positive, got %g kW", gc.CapacityKW)}
	}

	g := &GeneratorSpec{
		Name:       name,
		Zone:       zi,
		Fuel:       gc.Fuel,
		CapacityKW: gc.CapacityKW,
		Efficiency: gc.Efficiency,
		Priority:   gc.Priority,
	}

	if gc.Control != "" {
		ctrl, ok := controls[gc.Control]
		if !ok {
			return nil, &ConfigurationError{Entity: name, Reason: "unknown control " + gc.Control}
		}
		g.Control = ctrl
	}

	switch gc.Type {
	case "instant_elec":
		g.Kind = GenInstantElec
		if g.Efficiency == 0 {
			g.Efficiency = 1
		}
	case "boiler":
		g.Kind = GenBoiler
		if g.Efficiency <= 0 || g.Efficiency > 1 {
			return nil, &ConfigurationError{Entity: name, Reason: fmt.Sprintf("boiler efficiency %g outside (0, 1]", g.Efficiency)}
		}
	case "heat_pump":
		g.Kind = GenHeatPump
		g.COPAt7C = gc.COPAt7C
		g.COPAtMinus7C = gc.COPAtMinus7C
		if g.COPAt7C <= 0 || g.COPAtMinus7C <= 0 {
			return nil, &ConfigurationError{Entity: name, Reason: "heat pump requires positive cop_at_7c and cop_at_minus_7c"}
		}
		if g.COPAtMinus7C > g.COPAt7C {
			return nil, &ConfigurationError{Entity: name, Reason: "cop_at_minus_7c exceeds cop_at_7c"}
		}
	default:
		return nil, &ConfigurationError{Entity: name, Reason: "unknown generator type " + gc.Type}
	}

	if g.Efficiency <= 0 && g.Kind != GenHeatPump {
		return nil, &ConfigurationError{Entity: name, Reason: "efficiency must be positive"}
	}
	return g, nil
}
