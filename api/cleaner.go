package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rotblauer/trackfix/catdb/cache"
	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/events"
	"github.com/rotblauer/trackfix/geo/anomaly"
	"github.com/rotblauer/trackfix/geo/speedcheck"
	"github.com/rotblauer/trackfix/metrics/influxdb"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/s2"
	"github.com/rotblauer/trackfix/state"
	"github.com/rotblauer/trackfix/stream"
	"github.com/rotblauer/trackfix/types/run"
	"github.com/rotblauer/trackfix/types/sample"
)

// Cleaner runs the anomaly corrector over traces and handles everything around it:
// caching, speed reports, cell tokens, events, storage and export.
type Cleaner struct {
	Config *params.CleanerConfig

	// Ledger is open only if the config stores runs.
	Ledger *state.Ledger

	corrector *anomaly.Corrector
	results   *cache.ResultCache
	logger    *slog.Logger
}

func NewCleaner(config *params.CleanerConfig) (*Cleaner, error) {
	if config == nil {
		config = params.DefaultCleanerConfig()
	}
	if config.Anomaly == nil {
		config.Anomaly = params.DefaultAnomalyConfig
	}
	if !config.CellLevel.Valid() {
		return nil, fmt.Errorf("invalid cell level %d", config.CellLevel)
	}
	results, err := cache.NewResultCache(params.ResultCacheSize)
	if err != nil {
		return nil, err
	}
	c := &Cleaner{
		Config:    config,
		corrector: anomaly.NewCorrector(config.Anomaly),
		results:   results,
		logger:    slog.With("d", "cleaner"),
	}
	if config.Store {
		c.Ledger, err = state.OpenLedger(config.DataDir, false)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithThreshold returns a Cleaner sharing c's caches and ledger
// that flags samples above the given speed, in m/s.
func (c *Cleaner) WithThreshold(threshold float64) *Cleaner {
	if threshold == c.Config.Anomaly.SpeedThreshold {
		return c
	}
	config := *c.Config
	anomalyConfig := *c.Config.Anomaly
	anomalyConfig.SpeedThreshold = threshold
	config.Anomaly = &anomalyConfig
	cp := *c
	cp.Config = &config
	cp.corrector = anomaly.NewCorrector(&anomalyConfig)
	return &cp
}

func (c *Cleaner) Close() error {
	if c.Ledger == nil {
		return nil
	}
	return c.Ledger.Close()
}

// Clean corrects the trace. The input trace is not modified.
// An empty trace id skips storage and the last-run cache.
func (c *Cleaner) Clean(ctx context.Context, traceID conceptual.TraceID, trace sample.Trace) (*run.Run, error) {
	started := time.Now()
	threshold := c.Config.Anomaly.SpeedThreshold

	key, err := cache.ResultKey(trace, threshold)
	if err != nil {
		c.logger.Warn("Failed to hash trace, skipping result cache", "error", err)
	}
	var res sample.Result
	var ok bool
	if key != "" {
		res, ok = c.results.Get(key)
	}
	if ok {
		c.logger.Debug("Result cache hit", "trace", traceID, "samples", len(trace))
	} else {
		res = c.corrector.Process(trace)
		if key != "" {
			c.results.Add(key, res)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.finish(ctx, traceID, trace, res, started)
}

// CleanStream corrects samples as they arrive, then finishes the run as Clean does.
// errs, if not nil, is the decoder's error channel for in (see stream.NDJSON); it is read
// once in is drained. A decode error fails the run before it is cached, sent, stored or exported.
func (c *Cleaner) CleanStream(ctx context.Context, traceID conceptual.TraceID, in <-chan sample.Sample, errs <-chan error) (*run.Run, error) {
	started := time.Now()
	meter := stream.NewTickMeter(params.TickMeterInterval)
	defer meter.Stop()

	var input sample.Trace
	tee := stream.Transform(ctx, func(s sample.Sample) sample.Sample {
		input = append(input, s)
		meter.Mark(s.Time, 1)
		return s
	}, in)

	sc := anomaly.NewStreamCorrector(c.corrector)
	corrected := stream.Collect(ctx, sc.Correct(ctx, tee))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs != nil {
		if err := <-errs; err != nil {
			c.logger.Error("Invalid sample stream", "trace", traceID, "samples", len(input), "error", err)
			return nil, fmt.Errorf("decode stream: %w", err)
		}
	}
	return c.finish(ctx, traceID, input, sc.Result(corrected), started)
}

func (c *Cleaner) finish(ctx context.Context, traceID conceptual.TraceID, input sample.Trace, res sample.Result, started time.Time) (*run.Run, error) {
	r := &run.Run{
		TraceID:   traceID,
		Started:   started.UTC(),
		Threshold: c.Config.Anomaly.SpeedThreshold,
		Result:    res,
	}
	if c.Config.Check != nil {
		report := speedcheck.Check(res.CorrectedPoints, c.Config.Check)
		r.Check = &report
		if !report.OK {
			c.logger.Warn("Speed check failed", "trace", traceID, "reason", report.Reason)
		}
	}
	r.Cells = make([]string, len(res.CorrectedPoints))
	for i, s := range res.CorrectedPoints {
		token, err := s2.CellToken(s.Point(), c.Config.CellLevel)
		if err != nil {
			return nil, err
		}
		r.Cells[i] = token
	}
	r.Duration = time.Since(started)

	c.logger.Info("Cleaned trace", "trace", traceID,
		"samples", len(res.CorrectedPoints),
		"detected", res.AnomaliesDetected,
		"corrected", res.AnomaliesCorrected,
		"elapsed", r.Duration.Round(time.Millisecond))

	if !traceID.Empty() {
		cache.SetLastRun(traceID, r)
	}
	events.RunFeed.Send(r)

	var errs []error
	if c.Config.Store && !traceID.Empty() {
		if err := c.Store(input, r); err != nil {
			c.logger.Error("Failed to store run", "trace", traceID, "error", err)
			errs = append(errs, err)
		}
	}
	if c.Config.Influx != nil {
		if err := influxdb.ExportRun(c.Config.Influx, r); err != nil {
			c.logger.Error("Failed to export run", "trace", traceID, "error", err)
			errs = append(errs, err)
		}
	}
	return r, errors.Join(errs...)
}
