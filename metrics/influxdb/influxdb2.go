package influxdb

import (
	"errors"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/types/run"
)

var ErrNoConfig = errors.New("no influxdb config")

// ExportRun posts a run summary point and one point per corrected sample to an InfluxDB Write API.
// The Write API will buffer and flush.
// The last error encountered is returned.
func ExportRun(config *params.InfluxConfig, r *run.Run) error {
	if config == nil || config.URL == "" {
		return ErrNoConfig
	}
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(config.URL, config.Token, opts)
	writeAPI := client.WriteAPI(config.Org, config.Bucket)

	// Errors returns a channel for reading errors which occurs during async writes.
	// Must be called before performing any writes for errors to be collected.
	// The chan is unbuffered and must be drained or the writer will block.
	// https://github.com/influxdata/influxdb-client-go?tab=readme-ov-file#reading-async-errors
	errorsCh := writeAPI.Errors()
	var err error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				err = e
			}
		}
	}()

	trace := r.TraceID.String()
	summary := influxdb2.NewPointWithMeasurement("trackfix_run").
		SetTime(r.Started).
		AddTag("trace", trace).
		AddField("samples", len(r.Result.CorrectedPoints)).
		AddField("anomalies_detected", r.Result.AnomaliesDetected).
		AddField("anomalies_corrected", r.Result.AnomaliesCorrected).
		AddField("threshold", r.Threshold).
		AddField("duration_ms", r.Duration.Milliseconds())
	if r.Check != nil {
		ok := 0
		if r.Check.OK {
			ok = 1
		}
		summary.AddField("check_ok", ok).
			AddField("mean_speed", r.Check.MeanSpeed).
			AddField("max_speed", r.Check.MaxSpeed)
	}
	writeAPI.WritePoint(summary)

	corrected := make(map[int]bool, len(r.Result.CorrectedIndices))
	for _, i := range r.Result.CorrectedIndices {
		corrected[i] = true
	}
	for i, s := range r.Result.CorrectedPoints {
		p := influxdb2.NewPointWithMeasurement("trackfix_sample").
			SetTime(time.Unix(s.Time, 0)).
			AddTag("trace", trace).
			AddField("latitude", s.Lat).
			AddField("longitude", s.Lon)
		if corrected[i] {
			p.AddField("corrected", 1)
		}
		writeAPI.WritePoint(p)
	}
	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}
