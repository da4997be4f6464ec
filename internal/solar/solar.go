// Package solar computes solar position and irradiance on tilted surfaces,
// used for glazing gains and photovoltaic yield.
package solar

import "math"

// GroundAlbedo is the solar reflectivity assumed for the ground plane.
const GroundAlbedo = 0.2

// Surface describes the orientation of a receiving plane.
type Surface struct {
	// TiltDeg is the inclination from horizontal: 0 = flat, 90 = vertical.
	TiltDeg float64
	// AzimuthDeg is the horizontal orientation of the surface normal,
	// measured from south: east +90, west -90.
	AzimuthDeg float64
}

// Position holds the sun's position for one instant.
type Position struct {
	AltitudeDeg float64
	AzimuthDeg  float64 // from south, east positive
}

// SunPosition returns the solar position for the given hour of the year
// (0 = midnight January 1st, local clock time) at a site.
func SunPosition(latitudeDeg, longitudeDeg, timezone, hourOfYear float64) Position {
	day := math.Floor(hourOfYear/24) + 1
	clock := math.Mod(hourOfYear, 24)

	// Equation of time, in minutes.
	b := 2 * math.Pi * (day - 81) / 364
	eot := 9.87*math.Sin(2*b) - 7.53*math.Cos(b) - 1.5*math.Sin(b)

	// Longitude correction: 4 minutes per degree from the zone meridian.
	solarTime := clock + (4*(longitudeDeg-15*timezone)+eot)/60

	decl := rad(23.45 * math.Sin(2*math.Pi*(284+day)/365))
	hourAngle := rad(15 * (solarTime - 12))
	lat := rad(latitudeDeg)

	sinAlt := math.Sin(lat)*math.Sin(decl) + math.Cos(lat)*math.Cos(decl)*math.Cos(hourAngle)
	alt := math.Asin(clamp(sinAlt, -1, 1))

	cosAz := (math.Sin(alt)*math.Sin(lat) - math.Sin(decl)) / (math.Cos(alt) * math.Cos(lat))
	az := math.Acos(clamp(cosAz, -1, 1))
	if hourAngle > 0 {
		az = -az // afternoon: sun west of south
	}

	return Position{AltitudeDeg: deg(alt), AzimuthDeg: deg(az)}
}

// Irradiance splits irradiance on a tilted surface into its direct and
// diffuse-plus-reflected parts, in W/m2. directNormal is beam irradiance at
// normal incidence, diffuseHorz the diffuse irradiance on the horizontal.
func Irradiance(pos Position, surf Surface, directNormal, diffuseHorz float64) (direct, diffuse float64) {
	tilt := rad(surf.TiltDeg)

	var beam float64
	if pos.AltitudeDeg > 0 && directNormal > 0 {
		cosInc := incidenceCosine(pos, surf)
		if cosInc > 0 {
			beam = directNormal * cosInc
		}
	}

	// Isotropic sky diffuse plus ground reflection.
	skyView := (1 + math.Cos(tilt)) / 2
	groundView := (1 - math.Cos(tilt)) / 2
	beamHorz := 0.0
	if pos.AltitudeDeg > 0 {
		beamHorz = directNormal * math.Sin(rad(pos.AltitudeDeg))
	}
	diffuse = diffuseHorz*skyView + (beamHorz+diffuseHorz)*GroundAlbedo*groundView

	return beam, diffuse
}

// TotalIrradiance returns the combined irradiance on a surface, in W/m2.
func TotalIrradiance(pos Position, surf Surface, directNormal, diffuseHorz float64) float64 {
	b, d := Irradiance(pos, surf, directNormal, diffuseHorz)
	return b + d
}

// incidenceCosine returns the cosine of the angle between the sun direction
// and the surface normal.
func incidenceCosine(pos Position, surf Surface) float64 {
	alt := rad(pos.AltitudeDeg)
	tilt := rad(surf.TiltDeg)
	azDiff := rad(pos.AzimuthDeg - surf.AzimuthDeg)

	cosInc := math.Sin(alt)*math.Cos(tilt) + math.Cos(alt)*math.Sin(tilt)*math.Cos(azDiff)
	if cosInc < 0 {
		return 0
	}
	return cosInc
}

func rad(d float64) float64 { return d * math.Pi / 180 }

func deg(r float64) float64 { return r * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
