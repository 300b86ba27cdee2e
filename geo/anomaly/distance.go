package anomaly

import (
	"math"

	"github.com/rotblauer/trackfix/common"
	"github.com/rotblauer/trackfix/types/sample"
)

// Distance returns the great-circle distance in meters between two samples,
// using the haversine formula on a sphere of radius common.EarthRadiusMean.
// Non-finite coordinates yield non-finite distances.
func Distance(a, b sample.Sample) float64 {
	return DistanceOnSphere(a, b, common.EarthRadiusMean)
}

// DistanceOnSphere is Distance with an explicit sphere radius.
func DistanceOnSphere(a, b sample.Sample, radius float64) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	sinDLat := math.Sin(toRadians(b.Lat-a.Lat) / 2)
	sinDLon := math.Sin(toRadians(b.Lon-a.Lon) / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * radius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
