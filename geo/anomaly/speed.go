package anomaly

import (
	"github.com/rotblauer/trackfix/common"
	"github.com/rotblauer/trackfix/types/sample"
)

// Speed returns the speed in m/s from a to b.
// It assumes b.Time > a.Time and does not check:
// equal times give +Inf (or NaN if the points coincide),
// and b before a gives a negative speed.
func Speed(a, b sample.Sample) float64 {
	return SpeedOnSphere(a, b, common.EarthRadiusMean)
}

// SpeedOnSphere is Speed with an explicit sphere radius.
func SpeedOnSphere(a, b sample.Sample, radius float64) float64 {
	return DistanceOnSphere(a, b, radius) / float64(b.Time-a.Time)
}
