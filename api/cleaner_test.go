package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rotblauer/trackfix/catdb/cache"
	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/events"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/state"
	"github.com/rotblauer/trackfix/stream"
	"github.com/rotblauer/trackfix/testing/testdata"
	"github.com/rotblauer/trackfix/types/run"
	"github.com/rotblauer/trackfix/types/sample"
)

func glitchTrace() sample.Trace {
	return testdata.WithJump(testdata.Walk(testdata.Minneapolis, 8, 0.0001, 10), 4, 0.045)
}

func newTestCleaner(t *testing.T, store bool) *Cleaner {
	config := params.DefaultCleanerConfig()
	config.DataDir = t.TempDir()
	config.Store = store
	config.Check = params.DefaultSpeedCheckConfig
	c, err := NewCleaner(config)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Error(err)
		}
	})
	return c
}

func TestCleaner_Clean(t *testing.T) {
	c := newTestCleaner(t, false)
	trace := glitchTrace()
	orig := append(sample.Trace{}, trace...)

	r, err := c.Clean(context.Background(), "", trace)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(trace, orig) {
		t.Error("input trace was modified")
	}
	if r.Result.AnomaliesDetected != 3 || r.Result.AnomaliesCorrected != 3 {
		t.Errorf("unexpected counts %d %d", r.Result.AnomaliesDetected, r.Result.AnomaliesCorrected)
	}
	if !reflect.DeepEqual(r.Result.CorrectedIndices, []int{3, 4, 5}) {
		t.Errorf("unexpected indices %v", r.Result.CorrectedIndices)
	}
	if len(r.Cells) != len(trace) {
		t.Errorf("expected %d cells, got %d", len(trace), len(r.Cells))
	}
	if r.Check == nil {
		t.Fatal("expected speed report")
	}
	if r.Threshold != 200 {
		t.Errorf("unexpected threshold %v", r.Threshold)
	}

	// A second identical call is served from the result cache, and is equal.
	r2, err := c.Clean(context.Background(), "", trace)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Result, r2.Result) {
		t.Error("cached result differs")
	}
}

func TestCleaner_CleanCanceled(t *testing.T) {
	c := newTestCleaner(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Clean(ctx, "", glitchTrace()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCleaner_CleanStreamMatchesClean(t *testing.T) {
	c := newTestCleaner(t, false)
	trace := glitchTrace()
	ctx := context.Background()

	want, err := c.Clean(ctx, "", trace)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.CleanStream(ctx, "", stream.Slice(ctx, trace), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want.Result, got.Result) {
		t.Errorf("stream result differs:\nwant %+v\ngot  %+v", want.Result, got.Result)
	}
	if !reflect.DeepEqual(want.Cells, got.Cells) {
		t.Error("stream cells differ")
	}
}

func TestCleaner_StoreAndReclean(t *testing.T) {
	c := newTestCleaner(t, true)
	ctx := context.Background()
	id := conceptual.TraceID("rye")
	trace := glitchTrace()

	r, err := c.Clean(ctx, id, trace)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{params.InputGZFileName, params.CorrectedGZFileName} {
		p := filepath.Join(c.Config.DataDir, params.TracesDir, id.String(), name)
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s: %v", p, err)
		}
	}

	s, err := c.Ledger.Summary(id)
	if err != nil {
		t.Fatal(err)
	}
	if s.Samples != len(trace) || s.AnomaliesCorrected != 3 || s.CheckOK == nil {
		t.Errorf("unexpected summary %+v", s)
	}
	hot, err := c.Ledger.Hotspots(0)
	if err != nil {
		t.Fatal(err)
	}
	var n uint64
	for _, h := range hot {
		n += h.Count
	}
	if n != 3 {
		t.Errorf("expected 3 hotspot samples, got %d", n)
	}

	// From storage, without the last-run cache.
	cache.LastRunTTLCache.Delete(id.String())
	res, err := c.LastResult(id)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.CorrectedPoints, r.Result.CorrectedPoints) {
		t.Error("stored result differs")
	}

	again, err := c.Reclean(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(again.Result.CorrectedPoints, r.Result.CorrectedPoints) {
		t.Error("reclean result differs")
	}

	if _, err := c.LastResult("nobody"); !errors.Is(err, ErrNotStored) {
		t.Errorf("expected ErrNotStored, got %v", err)
	}
	if _, err := c.Reclean(ctx, "nobody"); !errors.Is(err, ErrNotStored) {
		t.Errorf("expected ErrNotStored, got %v", err)
	}
}

func TestCleaner_RunFeed(t *testing.T) {
	c := newTestCleaner(t, false)
	ch := make(chan *run.Run, 1)
	sub := events.RunFeed.Subscribe(ch)
	defer sub.Unsubscribe()

	go func() {
		if _, err := c.Clean(context.Background(), "ia", glitchTrace()); err != nil {
			t.Error(err)
		}
	}()
	select {
	case r := <-ch:
		if r.TraceID != "ia" {
			t.Errorf("unexpected trace id %q", r.TraceID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no run event")
	}
}

func TestCleaner_WithThreshold(t *testing.T) {
	c := newTestCleaner(t, false)
	trace := glitchTrace()

	// The glitch moves at about 500 m/s.
	loose := c.WithThreshold(1000)
	r, err := loose.Clean(context.Background(), "", trace)
	if err != nil {
		t.Fatal(err)
	}
	if r.Result.AnomaliesDetected != 0 || r.Threshold != 1000 {
		t.Errorf("expected no anomalies at 1000 m/s, got %d (threshold %v)", r.Result.AnomaliesDetected, r.Threshold)
	}
	if c.Config.Anomaly.SpeedThreshold != 200 {
		t.Error("original cleaner threshold changed")
	}
	r, err = c.Clean(context.Background(), "", trace)
	if err != nil {
		t.Fatal(err)
	}
	if r.Result.AnomaliesDetected != 3 {
		t.Errorf("expected 3 anomalies at 200 m/s, got %d", r.Result.AnomaliesDetected)
	}
}

func TestCleaner_CleanStreamRejectsMalformed(t *testing.T) {
	c := newTestCleaner(t, true)
	ctx := context.Background()
	id := conceptual.TraceID("malformed")

	ch := make(chan *run.Run, 1)
	sub := events.RunFeed.Subscribe(ch)
	defer sub.Unsubscribe()

	body := `{"lat": 44.9851, "lon": -93.2593, "time": 1731711463}
{"lat": 44.9852, "lon": -93.2593, "time": 1731711473}
{"lat": 0, "lon": "oops", "time": 1731711483}
{"lat": 44.9854, "lon": -93.2593, "time": 1731711493}
`
	samples, errs := stream.NDJSON[sample.Sample](ctx, strings.NewReader(body))
	r, err := c.CleanStream(ctx, id, samples, errs)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !errors.Is(err, sample.ErrFieldType) {
		t.Errorf("expected ErrFieldType, got %v", err)
	}
	if r != nil {
		t.Errorf("expected no run, got %+v", r)
	}

	// Nothing of the partial trace is kept.
	if _, err := c.StoredInput(id); !errors.Is(err, ErrNotStored) {
		t.Errorf("expected ErrNotStored, got %v", err)
	}
	if _, err := c.Ledger.Summary(id); !errors.Is(err, state.ErrNoRun) {
		t.Errorf("expected ErrNoRun, got %v", err)
	}
	if _, ok := cache.GetLastRun(id); ok {
		t.Error("expected no cached last run")
	}
	select {
	case r := <-ch:
		t.Errorf("unexpected run event %v", r.TraceID)
	default:
	}
}

func TestCleaner_CleanStreamNDJSON(t *testing.T) {
	c := newTestCleaner(t, true)
	ctx := context.Background()
	id := conceptual.TraceID("ndjson")

	f, err := os.Open(testdata.Path(testdata.Source_PointsNDJSON))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	samples, errs := stream.NDJSON[sample.Sample](ctx, f)
	r, err := c.CleanStream(ctx, id, samples, errs)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Result.CorrectedPoints) != 4 || r.Result.AnomaliesDetected != 0 {
		t.Errorf("unexpected result %+v", r.Result)
	}
	input, err := c.StoredInput(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(input) != 4 {
		t.Errorf("expected 4 stored samples, got %d", len(input))
	}
}
