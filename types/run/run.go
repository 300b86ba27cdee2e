package run

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/geo/speedcheck"
	"github.com/rotblauer/trackfix/types/sample"
)

// Run is one correction pass over one trace, with its provenance.
type Run struct {
	TraceID   conceptual.TraceID `json:"trace_id,omitempty"`
	Started   time.Time          `json:"started"`
	Duration  time.Duration      `json:"duration"`
	Threshold float64            `json:"threshold"`

	Result sample.Result `json:"result"`

	// Check is the speed report of the corrected trace, if requested.
	Check *speedcheck.Report `json:"check,omitempty"`

	// Cells are the S2 cell tokens of the corrected samples, in order.
	Cells []string `json:"cells,omitempty"`
}

// Summary is a Run without its samples.
type Summary struct {
	TraceID            conceptual.TraceID `json:"trace_id,omitempty"`
	Started            time.Time          `json:"started"`
	Duration           time.Duration      `json:"duration"`
	Threshold          float64            `json:"threshold"`
	Samples            int                `json:"samples"`
	AnomaliesDetected  int                `json:"anomalies_detected"`
	AnomaliesCorrected int                `json:"anomalies_corrected"`
	Bound              orb.Bound          `json:"bound"`
	CheckOK            *bool              `json:"check_ok,omitempty"`
	MeanSpeed          float64            `json:"mean_speed,omitempty"`
	MaxSpeed           float64            `json:"max_speed,omitempty"`
}

func (r *Run) Summary() Summary {
	s := Summary{
		TraceID:            r.TraceID,
		Started:            r.Started,
		Duration:           r.Duration,
		Threshold:          r.Threshold,
		Samples:            len(r.Result.CorrectedPoints),
		AnomaliesDetected:  r.Result.AnomaliesDetected,
		AnomaliesCorrected: r.Result.AnomaliesCorrected,
		Bound:              r.Result.CorrectedPoints.Bound(),
	}
	if r.Check != nil {
		ok := r.Check.OK
		s.CheckOK = &ok
		s.MeanSpeed = r.Check.MeanSpeed
		s.MaxSpeed = r.Check.MaxSpeed
	}
	return s
}
