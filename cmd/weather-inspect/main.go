// Command weather-inspect summarizes a weather file: site metadata,
// temperature range and annual solar totals. Useful for sanity-checking
// inputs before a run.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/home-energy-foundry/hem0424/internal/weather"
)

func main() {
	stepFlag := flag.Float64("step", 0, "resample to this step in hours before summarizing (0 = native)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: weather-inspect [-step hours] file.epw|file.csv")
		os.Exit(2)
	}
	path := flag.Arg(0)

	var (
		s   *weather.Series
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epw":
		s, err = weather.ReadEPW(path)
	case ".csv":
		s, err = weather.ReadCIBSE(path)
	default:
		log.Fatalf("unrecognized extension: %s", path)
	}
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	if *stepFlag > 0 {
		s, err = weather.Normalize(s, *stepFlag)
		if err != nil {
			log.Fatalf("resample: %v", err)
		}
	}

	fmt.Printf("file:      %s\n", path)
	fmt.Printf("site:      lat %.3f lon %.3f tz %+.1f elev %.0fm\n",
		s.Site.Latitude, s.Site.Longitude, s.Site.Timezone, s.Site.Elevation)
	fmt.Printf("step:      %.3g h (%d records)\n", s.StepHours, len(s.AirTemp))

	minT, maxT, meanT := stats(s.AirTemp)
	fmt.Printf("air temp:  min %.1f  mean %.1f  max %.1f degC\n", minT, meanT, maxT)
	minG, maxG, meanG := stats(s.GroundTemp)
	fmt.Printf("ground:    min %.1f  mean %.1f  max %.1f degC\n", minG, meanG, maxG)

	fmt.Printf("beam:      %.0f kWh/m2/yr\n", annualKWh(s.DirectBeam, s.StepHours))
	fmt.Printf("diffuse:   %.0f kWh/m2/yr\n", annualKWh(s.DiffuseHorz, s.StepHours))
	_, _, meanW := stats(s.WindSpeed)
	fmt.Printf("wind:      mean %.1f m/s\n", meanW)
}

func stats(vals []float64) (min, max, mean float64) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		mean += v
	}
	mean /= float64(len(vals))
	return min, max, mean
}

func annualKWh(flux []float64, stepHours float64) float64 {
	var sum float64
	for _, w := range flux {
		sum += w * stepHours / 1000
	}
	return sum
}
