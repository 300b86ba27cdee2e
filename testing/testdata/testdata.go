package testdata

import (
	"path/filepath"
	"runtime"

	"github.com/rotblauer/trackfix/types/sample"
)

// basepath is the root directory of this package.
var basepath string

func init() {
	_, currentFile, _, _ := runtime.Caller(0)
	basepath = filepath.Dir(currentFile)
}

// Path returns the absolute path the given relative file or directory path,
// relative to this testdata/ directory in the user's GOPATH.
// If rel is already absolute, it is returned unmodified.
// Taken from https://github.com/grpc/grpc-go/blob/master/testdata/testdata.go.
func Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(basepath, rel)
}

// Source_Points is a JSON array of samples with one 5km glitch at index 3.
var Source_Points = "./points.json"

// Source_PointsMicro is the same shape, with integer microdegree coordinates.
var Source_PointsMicro = "./points_micro.json"

// Source_PointsNDJSON is a walk without anomalies, newline delimited.
var Source_PointsNDJSON = "./points.ndjson"

// Walk returns n samples starting at start, stepping stepLat degrees north
// every interval seconds.
// 0.0001 degrees of latitude is about 11m.
func Walk(start sample.Sample, n int, stepLat float64, interval int64) sample.Trace {
	trace := make(sample.Trace, n)
	for i := range trace {
		trace[i] = sample.Sample{
			Lat:  start.Lat + float64(i)*stepLat,
			Lon:  start.Lon,
			Time: start.Time + int64(i)*interval,
		}
	}
	return trace
}

// WithJump returns a copy of trace with sample i displaced dLat degrees north.
// 0.045 degrees of latitude is about 5km.
func WithJump(trace sample.Trace, i int, dLat float64) sample.Trace {
	cp := make(sample.Trace, len(trace))
	copy(cp, trace)
	cp[i].Lat += dLat
	return cp
}

// Minneapolis is a walking start point.
var Minneapolis = sample.Sample{Lat: 44.985164, Lon: -93.259307, Time: 1731711463}
