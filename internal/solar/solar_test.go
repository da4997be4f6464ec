package solar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	londonLat = 51.5
	londonLon = -0.1
)

// solar noon on day n at a site near the Greenwich meridian is close to
// clock noon.
func noonHour(day int) float64 { return float64(day)*24 + 12 }

func TestSunPosition_SummerNoonHighWinterNoonLow(t *testing.T) {
	summer := SunPosition(londonLat, londonLon, 0, noonHour(171)) // June 21
	winter := SunPosition(londonLat, londonLon, 0, noonHour(355)) // December 22

	// Max altitude = 90 - lat + decl = 61.95 in summer, 15.05 in winter.
	assert.InDelta(t, 90-londonLat+23.45, summer.AltitudeDeg, 1.5)
	assert.InDelta(t, 90-londonLat-23.45, winter.AltitudeDeg, 1.5)
}

func TestSunPosition_NoonNearSouth(t *testing.T) {
	pos := SunPosition(londonLat, londonLon, 0, noonHour(171))
	assert.InDelta(t, 0, pos.AzimuthDeg, 5)
}

func TestSunPosition_MorningEastAfternoonWest(t *testing.T) {
	morning := SunPosition(londonLat, londonLon, 0, 171*24+8)
	afternoon := SunPosition(londonLat, londonLon, 0, 171*24+16)

	assert.Greater(t, morning.AzimuthDeg, 0.0, "morning sun east of south")
	assert.Less(t, afternoon.AzimuthDeg, 0.0, "afternoon sun west of south")
}

func TestSunPosition_BelowHorizonAtNight(t *testing.T) {
	pos := SunPosition(londonLat, londonLon, 0, 171*24) // midnight
	assert.Less(t, pos.AltitudeDeg, 0.0)
}

func TestIrradiance_NightIsDiffuseOnly(t *testing.T) {
	pos := Position{AltitudeDeg: -10}
	direct, diffuse := Irradiance(pos, Surface{TiltDeg: 90}, 500, 40)
	assert.Equal(t, 0.0, direct)
	// Vertical surface sees half the sky plus ground reflection of the
	// diffuse: 40*0.5 + 40*0.2*0.5 = 24.
	assert.InDelta(t, 24, diffuse, 1e-9)
}

func TestIrradiance_HorizontalSurface(t *testing.T) {
	pos := Position{AltitudeDeg: 30, AzimuthDeg: 0}
	direct, diffuse := Irradiance(pos, Surface{TiltDeg: 0}, 600, 100)

	// Flat surface: beam = DNI * sin(alt), full sky view, no ground view.
	assert.InDelta(t, 600*math.Sin(30*math.Pi/180), direct, 1e-9)
	assert.InDelta(t, 100, diffuse, 1e-9)
}

func TestIrradiance_SurfaceFacingAwayGetsNoBeam(t *testing.T) {
	// Sun due south at 30 degrees, surface facing north.
	pos := Position{AltitudeDeg: 30, AzimuthDeg: 0}
	direct, _ := Irradiance(pos, Surface{TiltDeg: 90, AzimuthDeg: 180}, 600, 100)
	assert.Equal(t, 0.0, direct)
}

func TestIrradiance_NormalIncidence(t *testing.T) {
	// Surface tilted to face the sun directly.
	pos := Position{AltitudeDeg: 40, AzimuthDeg: 0}
	direct, _ := Irradiance(pos, Surface{TiltDeg: 50, AzimuthDeg: 0}, 700, 0)
	assert.InDelta(t, 700, direct, 1e-9)
}

func TestTotalIrradiance_SouthBeatsNorthInWinter(t *testing.T) {
	pos := SunPosition(londonLat, londonLon, 0, noonHour(20))
	south := TotalIrradiance(pos, Surface{TiltDeg: 90, AzimuthDeg: 0}, 400, 50)
	north := TotalIrradiance(pos, Surface{TiltDeg: 90, AzimuthDeg: 180}, 400, 50)
	assert.Greater(t, south, north)
}
