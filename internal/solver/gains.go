package solver

import (
	"github.com/home-energy-foundry/hem0424/internal/building"
	"github.com/home-energy-foundry/hem0424/internal/solar"
	"github.com/home-energy-foundry/hem0424/internal/weather"
)

// SolarGains computes, for every zone, the solar gain transmitted through
// glazing (W) and the flux absorbed at each opaque element's external
// surface (W/m2) for one timestep.
func SolarGains(d *building.Dwelling, drv weather.Drivers, site weather.Site, hourOfYear float64) (transmitted []float64, absorbed [][]float64) {
	pos := solar.SunPosition(site.Latitude, site.Longitude, site.Timezone, hourOfYear)

	transmitted = make([]float64, len(d.Zones))
	absorbed = make([][]float64, len(d.Zones))
	for zi, z := range d.Zones {
		absorbed[zi] = make([]float64, len(z.Elements))
		for ei, el := range z.Elements {
			if el.GroundContact {
				continue
			}
			beam, diffuse := solar.Irradiance(pos, el.Surface, drv.DirectBeam, drv.DiffuseHorz)
			switch el.Kind {
			case building.ElementWindow:
				transmitted[zi] += el.Area * el.GValue * (beam*el.ShadingFactor + diffuse)
			case building.ElementOpaque:
				absorbed[zi][ei] = el.Absorptivity * (beam + diffuse)
			}
		}
	}
	return transmitted, absorbed
}
