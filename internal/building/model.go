// Package building assembles and validates the static dwelling description.
// A Dwelling is built once from a config.Document and is read-only for the
// rest of the run.
package building

import (
	"fmt"

	"github.com/home-energy-foundry/hem0424/internal/schedule"
	"github.com/home-energy-foundry/hem0424/internal/solar"
)

// Surface heat transfer coefficients, W/(m2.K)
// (default values from BS EN ISO 52016-1:2017, Table B.7 and B.8).
const (
	HCi = 2.5  // internal convective
	HRi = 5.13 // internal radiative
	HCe = 20.0 // external convective
	HRe = 4.14 // external radiative
)

// Areal thermal capacity of zone air and furniture, J/(m2.K)
// (default value from BS EN ISO 52016-1:2017, Table B.17).
const AirArealHeatCapacity = 10000

// ConfigurationError reports an invalid or inconsistent dwelling
// description. Entity names the offending zone, element or system.
type ConfigurationError struct {
	Entity string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Entity, e.Reason)
}

// CurtailmentPolicy determines what happens to demand a zone's systems
// cannot meet.
type CurtailmentPolicy int

const (
	// CurtailShed records the deficit as unmet demand and continues.
	CurtailShed CurtailmentPolicy = iota
	// CurtailStrict treats any unmet demand as a fatal condition.
	CurtailStrict
)

// ElementKind distinguishes the fabric element types.
type ElementKind int

const (
	ElementOpaque ElementKind = iota
	ElementWindow
	ElementBridge
)

// FabricElement is a wall, roof, floor, window or thermal bridge bounding a
// zone. Opaque and window elements carry the node conductances (HPli) and
// areal heat capacities (KPli) used by the thermal network; bridges are a
// plain conductance.
type FabricElement struct {
	Name string
	Kind ElementKind

	Area    float64 // m2
	UValue  float64 // W/(m2.K)
	Surface solar.Surface

	// Solar properties
	Absorptivity  float64 // opaque surface absorption coefficient
	GValue        float64 // glazing total solar energy transmittance
	ShadingFactor float64 // 0 fully shaded, 1 unshaded

	// Thermal network per BS EN ISO 52016-1:2017, section 6.5.7.
	HPli []float64 // node-to-node conductances, W/(m2.K), len nodes-1
	KPli []float64 // node areal heat capacities, J/(m2.K), len nodes

	// GroundContact marks elements whose external side faces the ground
	// rather than outdoor air (solid floors). They see the ground
	// temperature and receive no solar.
	GroundContact bool

	// Bridges only.
	HeatTransferWPerK float64
}

// NodeCount returns the number of temperature nodes this element
// contributes to the zone matrix. Bridges contribute none.
func (e *FabricElement) NodeCount() int { return len(e.KPli) }

// Zone is one thermally lumped region of the dwelling.
type Zone struct {
	Name string

	Area   float64 // useful floor area, m2
	Volume float64 // m3

	HeatSetpoint *float64 // degC, nil = no heating control
	CoolSetpoint *float64 // degC, nil = no cooling control

	AirChangesPerHour float64
	Curtailment       CurtailmentPolicy
	InternalGains     *schedule.Values // W, nil = none

	Elements    []*FabricElement // opaque and window elements only
	BridgeWPerK float64          // summed thermal bridge conductance
}

// VentilationHeatTransfer returns the ventilation heat transfer coefficient
// h_ve in W/K, from the air change rate and zone volume
// (0.33 Wh/(m3.K) volumetric heat capacity of air).
func (z *Zone) VentilationHeatTransfer() float64 {
	return 0.33 * z.AirChangesPerHour * z.Volume
}

// Coupling is a thermal connection between two zones, e.g. a party wall or
// open doorway air exchange.
type Coupling struct {
	ZoneA, ZoneB     int // indices into Dwelling.Zones
	ConductanceWPerK float64
}

// Fuel carries the regulatory factors for one energy carrier.
type Fuel struct {
	Name                string
	EmissionFactor      float64 // kgCO2/kWh
	PrimaryEnergyFactor float64
	UnitPrice           float64 // currency/kWh
	Electricity         bool
}

// GeneratorKind distinguishes heat generator types.
type GeneratorKind int

const (
	GenInstantElec GeneratorKind = iota
	GenBoiler
	GenHeatPump
)

// GeneratorSpec is the validated description of one heat generator.
type GeneratorSpec struct {
	Name       string
	Kind       GeneratorKind
	Zone       int // index into Dwelling.Zones
	Fuel       string
	CapacityKW float64
	Efficiency float64
	Control    *schedule.OnOff // nil = always available
	Priority   int

	// Heat pumps: COP at the two outdoor test temperatures.
	COPAt7C      float64
	COPAtMinus7C float64
}

// StorageSpec is the validated description of one thermal store.
type StorageSpec struct {
	Name                string
	VolumeLitres        float64
	HotTempC            float64
	ColdFeedC           float64
	InitialHotFraction  float64
	StandingLossKWhDay  float64
	RoundTripEfficiency float64
	HeatSources         []string // generator names, in priority order
}

// CapacityKWh returns the store's usable heat capacity.
func (s *StorageSpec) CapacityKWh() float64 {
	// 4.184 kJ/(kg.K) specific heat of water, 1 kg/litre.
	return s.VolumeLitres * 4.184 * (s.HotTempC - s.ColdFeedC) / 3600
}

// HotWaterSpec describes the dwelling's hot water draw-off demand.
type HotWaterSpec struct {
	DrawOffLitres *schedule.Values
	ServedBy      string // storage name
}

// PVSpec is the validated description of one photovoltaic system.
type PVSpec struct {
	Name              string
	PeakKW            float64
	PerformanceFactor float64
	Surface           solar.Surface
	Fuel              string
}

// Dwelling is the complete validated building model. Immutable during
// simulation; operational state lives in dispatch and engine structures.
type Dwelling struct {
	StepHours float64

	Zones     []*Zone
	Couplings []Coupling

	Fuels      map[string]Fuel
	Generators []*GeneratorSpec // sorted by priority then name
	Storage    []*StorageSpec
	HotWater   *HotWaterSpec
	PV         []*PVSpec
}

// ZoneIndex returns the index of the named zone, or -1.
func (d *Dwelling) ZoneIndex(name string) int {
	for i, z := range d.Zones {
		if z.Name == name {
			return i
		}
	}
	return -1
}
