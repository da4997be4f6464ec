package weather

import "fmt"

// Normalize resamples a series to the target resolution. A series already at
// the target step is returned unchanged. Finer series are aggregated by
// averaging every record that falls inside each target interval, which
// conserves energy totals for power-like quantities; records are never
// subsampled. A series coarser than the target cannot be normalized.
func Normalize(s *Series, targetStepHours float64) (*Series, error) {
	if targetStepHours <= 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("non-positive target step %g h", targetStepHours)}
	}
	if s.StepHours == targetStepHours {
		return s, nil
	}
	if s.StepHours > targetStepHours {
		return nil, &FormatError{
			Reason: fmt.Sprintf("cannot refine %g h series to %g h step", s.StepHours, targetStepHours),
		}
	}
	ratio := targetStepHours / s.StepHours
	per := int(ratio)
	if float64(per) != ratio {
		return nil, &FormatError{
			Reason: fmt.Sprintf("source step %g h does not divide target step %g h", s.StepHours, targetStepHours),
		}
	}

	n := s.Len() / per
	out := &Series{
		StepHours:   targetStepHours,
		Site:        s.Site,
		AirTemp:     make([]float64, n),
		DirectBeam:  make([]float64, n),
		DiffuseHorz: make([]float64, n),
		WindSpeed:   make([]float64, n),
		GroundTemp:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		lo, hi := i*per, (i+1)*per
		out.AirTemp[i] = mean(s.AirTemp[lo:hi])
		out.DirectBeam[i] = mean(s.DirectBeam[lo:hi])
		out.DiffuseHorz[i] = mean(s.DiffuseHorz[lo:hi])
		out.WindSpeed[i] = mean(s.WindSpeed[lo:hi])
		out.GroundTemp[i] = mean(s.GroundTemp[lo:hi])
	}
	return out, nil
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
