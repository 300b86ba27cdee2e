package params

import (
	"github.com/rotblauer/trackfix/common"
	"github.com/rotblauer/trackfix/s2"
)

type AnomalyConfig struct {
	// SpeedThreshold is the speed, in m/s, above which a sample is anomalous.
	// A sample is anomalous if the speed from its predecessor OR to its successor
	// exceeds this value. The comparison is strict.
	SpeedThreshold float64

	// EarthRadius is the sphere radius, in meters, used by the haversine distance.
	EarthRadius float64
}

var DefaultAnomalyConfig = &AnomalyConfig{
	SpeedThreshold: common.SpeedImplausibleGround,
	EarthRadius:    common.EarthRadiusMean,
}

type SpeedCheckConfig struct {
	// SpeedThreshold is the speed, in m/s, that no interval of a cleaned trace should exceed.
	SpeedThreshold float64

	// DeviationTolerancePercent bounds how far the maximum interval speed
	// may exceed the mean interval speed, as a percentage of the mean.
	DeviationTolerancePercent float64
}

var DefaultSpeedCheckConfig = &SpeedCheckConfig{
	SpeedThreshold:            common.SpeedImplausibleGround,
	DeviationTolerancePercent: 35,
}

type DecodeConfig struct {
	// CoordScale multiplies raw lat/lon values on decode.
	// Use 1e-6 for traces with integer microdegree coordinates.
	// Zero is treated as 1.
	CoordScale float64
}

var DefaultDecodeConfig = &DecodeConfig{
	CoordScale: 1,
}

type CleanerConfig struct {
	Anomaly *AnomalyConfig

	// Check, if not nil, attaches a speed report of the corrected trace to each run.
	Check *SpeedCheckConfig

	// CellLevel is the S2 level of the cell tokens attached to each run.
	CellLevel s2.CellLevel

	DataDir string

	// Store persists runs with a trace id under DataDir.
	Store bool

	// Influx is optional. If nil, runs are not exported.
	Influx *InfluxConfig `json:"-"`
}

func DefaultCleanerConfig() *CleanerConfig {
	return &CleanerConfig{
		Anomaly:   DefaultAnomalyConfig,
		CellLevel: AnomalyCellLevel,
		DataDir:   DefaultDatadirRoot,
	}
}
