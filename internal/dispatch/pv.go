package dispatch

import (
	"github.com/home-energy-foundry/hem0424/internal/building"
	"github.com/home-energy-foundry/hem0424/internal/solar"
	"github.com/home-energy-foundry/hem0424/internal/weather"
)

// PVGenerator produces electricity from irradiance on the panel plane,
// per BS EN 15316-4-3:2017.
type PVGenerator struct {
	spec *building.PVSpec
	conn *Connection
}

// Generate records this step's PV output on the electricity supply and
// returns it in kWh.
func (p *PVGenerator) Generate(step int, drv weather.Drivers, site weather.Site, hourOfYear, stepHours float64) float64 {
	pos := solar.SunPosition(site.Latitude, site.Longitude, site.Timezone, hourOfYear)
	irradianceWM2 := solar.TotalIrradiance(pos, p.spec.Surface, drv.DirectBeam, drv.DiffuseHorz)

	// E = H_sol * P_pk * f_perf / I_ref, with I_ref = 1 kW/m2.
	irradiationKWhM2 := irradianceWM2 * stepHours / 1000
	energyKWh := irradiationKWhM2 * p.spec.PeakKW * p.spec.PerformanceFactor

	if energyKWh > 0 {
		p.conn.SupplyEnergy(step, energyKWh)
	}
	return energyKWh
}
