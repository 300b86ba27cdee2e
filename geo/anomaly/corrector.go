// Package anomaly detects and corrects implausible jumps in a GPS trace.
//
// An interior sample is anomalous when the speed from its predecessor
// or the speed to its successor exceeds a threshold (200 m/s by default).
// Each anomalous sample is replaced by the midpoint of its original neighbors,
// keeping its own timestamp. The first and last samples always pass through.
// Corrections are never fed back: neighbors are always read from the input,
// so two adjacent anomalies both interpolate from the same original samples.
package anomaly

import (
	"log/slog"

	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/types/sample"
)

type Corrector struct {
	Config *params.AnomalyConfig
	logger *slog.Logger
}

func NewCorrector(config *params.AnomalyConfig) *Corrector {
	if config == nil {
		config = params.DefaultAnomalyConfig
	}
	return &Corrector{
		Config: config,
		logger: slog.With("d", "anomaly"),
	}
}

var defaultCorrector = NewCorrector(params.DefaultAnomalyConfig)

// Process runs a single correction pass over the trace with the default configuration.
func Process(trace sample.Trace) sample.Result {
	return defaultCorrector.Process(trace)
}

func (c *Corrector) speed(a, b sample.Sample) float64 {
	return SpeedOnSphere(a, b, c.Config.EarthRadius)
}

// IsAnomalous classifies cur given its immediate neighbors.
// Negative and NaN speeds never exceed the threshold.
func (c *Corrector) IsAnomalous(prev, cur, next sample.Sample) bool {
	return c.speed(prev, cur) > c.Config.SpeedThreshold ||
		c.speed(cur, next) > c.Config.SpeedThreshold
}

// Interpolate returns the replacement for cur: the lat/lon midpoint of prev and next,
// at cur's time.
func Interpolate(prev, cur, next sample.Sample) sample.Sample {
	return sample.Sample{
		Lat:  (prev.Lat + next.Lat) / 2,
		Lon:  (prev.Lon + next.Lon) / 2,
		Time: cur.Time,
	}
}

// Process runs a single correction pass over the trace.
// The returned trace has the same length and order as the input,
// and the input is not modified.
func (c *Corrector) Process(trace sample.Trace) sample.Result {
	res := sample.Result{
		CorrectedPoints: make(sample.Trace, 0, len(trace)),
	}
	for i, cur := range trace {
		if i == 0 || i == len(trace)-1 {
			res.CorrectedPoints = append(res.CorrectedPoints, cur)
			continue
		}
		prev, next := trace[i-1], trace[i+1]
		if !c.IsAnomalous(prev, cur, next) {
			res.CorrectedPoints = append(res.CorrectedPoints, cur)
			continue
		}
		res.AnomaliesDetected++
		fixed := Interpolate(prev, cur, next)
		c.logger.Debug("Corrected anomaly", "index", i, "time", cur.Time,
			"speed.prev", c.speed(prev, cur), "speed.next", c.speed(cur, next))
		res.CorrectedPoints = append(res.CorrectedPoints, fixed)
		res.CorrectedIndices = append(res.CorrectedIndices, i)
		res.AnomaliesCorrected++
	}
	return res
}
