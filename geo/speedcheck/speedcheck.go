// Package speedcheck reports on the interval speeds of a (cleaned) trace,
// flagging intervals that are still implausible and traces whose
// top speed strays too far from their mean.
package speedcheck

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/rotblauer/trackfix/geo/anomaly"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/types/sample"
)

type Report struct {
	// Intervals is the number of consecutive pairs with positive elapsed time.
	Intervals int `json:"intervals"`

	MeanSpeed   float64 `json:"mean_speed"`
	MedianSpeed float64 `json:"median_speed"`
	MaxSpeed    float64 `json:"max_speed"`

	// DeviationPercent is (max - mean) / mean * 100, or 0 when the mean is 0.
	DeviationPercent float64 `json:"deviation_percent"`

	// Residual lists the indices i for which the interval ending at i
	// exceeds the speed threshold.
	Residual []int `json:"residual,omitempty"`

	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Check computes the speed report for trace.
// Intervals with zero or negative elapsed time are skipped.
// An empty trace fails and a single sample passes trivially.
// A longer trace with no usable interval fails.
func Check(trace sample.Trace, config *params.SpeedCheckConfig) Report {
	if config == nil {
		config = params.DefaultSpeedCheckConfig
	}
	r := Report{}
	switch len(trace) {
	case 0:
		r.Reason = "empty trace"
		return r
	case 1:
		r.OK = true
		r.Reason = "single sample"
		return r
	}

	speeds := make(stats.Float64Data, 0, len(trace)-1)
	for i := 1; i < len(trace); i++ {
		if trace[i].Time-trace[i-1].Time <= 0 {
			continue
		}
		speed := anomaly.Speed(trace[i-1], trace[i])
		speeds = append(speeds, speed)
		if speed > config.SpeedThreshold {
			r.Residual = append(r.Residual, i)
		}
	}
	r.Intervals = len(speeds)
	if r.Intervals == 0 {
		r.Reason = "no intervals with positive elapsed time"
		return r
	}

	// Errors are only returned for empty input, which is ruled out above.
	r.MeanSpeed, _ = speeds.Mean()
	r.MedianSpeed, _ = speeds.Median()
	r.MaxSpeed, _ = speeds.Max()
	if r.MeanSpeed > 0 {
		r.DeviationPercent = (r.MaxSpeed - r.MeanSpeed) / r.MeanSpeed * 100
	}

	switch {
	case len(r.Residual) > 0:
		i := r.Residual[0]
		r.Reason = fmt.Sprintf("%d interval(s) above %.2f m/s, first between samples %d and %d",
			len(r.Residual), config.SpeedThreshold, i-1, i)
	case r.DeviationPercent > config.DeviationTolerancePercent:
		r.Reason = fmt.Sprintf("max speed %.2f m/s deviates %.2f%% from mean %.2f m/s",
			r.MaxSpeed, r.DeviationPercent, r.MeanSpeed)
	default:
		r.OK = true
	}
	return r
}
