package dispatch

import "github.com/home-energy-foundry/hem0424/internal/building"

// Thermostat position as a fraction of the store volume: reheat starts
// once the hot fraction drops below this.
const thermostatFraction = 2.0 / 3.0

// ThermalStore models a stratified hot water store. Charge level is the
// only operational state the dispatch engine carries between steps for a
// store.
type ThermalStore struct {
	spec      *building.StorageSpec
	chargeKWh float64
}

// NewThermalStore creates a store at its configured initial hot fraction.
func NewThermalStore(spec *building.StorageSpec) *ThermalStore {
	return &ThermalStore{
		spec:      spec,
		chargeKWh: spec.CapacityKWh() * spec.InitialHotFraction,
	}
}

// CapacityKWh returns the store's usable heat capacity.
func (t *ThermalStore) CapacityKWh() float64 { return t.spec.CapacityKWh() }

// ChargeKWh returns the current charge level.
func (t *ThermalStore) ChargeKWh() float64 { return t.chargeKWh }

// Draw discharges up to kwh of heat and returns what the store could
// actually deliver.
func (t *ThermalStore) Draw(kwh float64) float64 {
	if kwh <= 0 {
		return 0
	}
	if kwh > t.chargeKWh {
		kwh = t.chargeKWh
	}
	t.chargeKWh -= kwh
	return kwh
}

// Charge absorbs offered heat, bounded by the remaining headroom, and
// returns the amount of heat the caller must supply. Round-trip losses are
// applied on the way in: heat stored = heat supplied * efficiency.
func (t *ThermalStore) Charge(offeredKWh float64) (acceptedKWh float64) {
	if offeredKWh <= 0 {
		return 0
	}
	headroom := t.CapacityKWh() - t.chargeKWh
	if headroom <= 0 {
		return 0
	}
	stored := offeredKWh * t.spec.RoundTripEfficiency
	if stored > headroom {
		stored = headroom
	}
	t.chargeKWh += stored
	return stored / t.spec.RoundTripEfficiency
}

// ReheatDemandKWh returns the heat needed to refill the store, or zero
// while the charge is still above the thermostat position.
func (t *ThermalStore) ReheatDemandKWh() float64 {
	if t.chargeKWh >= t.CapacityKWh()*thermostatFraction {
		return 0
	}
	return t.CapacityKWh() - t.chargeKWh
}

// ApplyStandingLoss drains the configured standing loss for one step and
// returns the heat lost.
func (t *ThermalStore) ApplyStandingLoss(stepHours float64) float64 {
	loss := t.spec.StandingLossKWhDay * stepHours / 24
	if loss > t.chargeKWh {
		loss = t.chargeKWh
	}
	t.chargeKWh -= loss
	return loss
}
