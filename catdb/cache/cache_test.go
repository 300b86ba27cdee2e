package cache

import (
	"testing"

	"github.com/rotblauer/trackfix/geo/anomaly"
	"github.com/rotblauer/trackfix/testing/testdata"
	"github.com/rotblauer/trackfix/types/run"
	"github.com/rotblauer/trackfix/types/sample"
)

func mustKey(t *testing.T, trace sample.Trace, threshold float64) string {
	t.Helper()
	key, err := ResultKey(trace, threshold)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestResultKey(t *testing.T) {
	trace := testdata.WithJump(testdata.Walk(testdata.Minneapolis, 6, 0.0001, 10), 3, 0.045)
	key := mustKey(t, trace, 200)

	// Same samples, equal key.
	cp := append(trace[:0:0], trace...)
	if mustKey(t, cp, 200) != key {
		t.Error("expected equal key for equal trace")
	}
	// Threshold is part of the key.
	if mustKey(t, trace, 100) == key {
		t.Error("expected other key for other threshold")
	}
	// So is every sample.
	cp[5].Time++
	if mustKey(t, cp, 200) == key {
		t.Error("expected other key for other samples")
	}
}

func TestResultCache(t *testing.T) {
	c, err := NewResultCache(2)
	if err != nil {
		t.Fatal(err)
	}
	trace := testdata.WithJump(testdata.Walk(testdata.Minneapolis, 6, 0.0001, 10), 3, 0.045)
	key := mustKey(t, trace, 200)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss")
	}
	res := anomaly.Process(trace)
	c.Add(key, res)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.AnomaliesDetected != res.AnomaliesDetected || len(got.CorrectedPoints) != len(res.CorrectedPoints) {
		t.Errorf("unexpected cached result %+v", got)
	}

	// Mutating a returned result must not touch the cache.
	got.CorrectedPoints[0].Lat = 0
	again, _ := c.Get(key)
	if again.CorrectedPoints[0].Lat != trace[0].Lat {
		t.Error("cached result was mutated")
	}

	if _, ok := c.Get(mustKey(t, trace, 100)); ok {
		t.Error("expected miss for other threshold")
	}
}

func TestResultCache_Evicts(t *testing.T) {
	c, err := NewResultCache(1)
	if err != nil {
		t.Fatal(err)
	}
	a := testdata.Walk(testdata.Minneapolis, 3, 0.0001, 10)
	b := testdata.Walk(testdata.Minneapolis, 4, 0.0001, 10)
	c.Add(mustKey(t, a, 200), anomaly.Process(a))
	c.Add(mustKey(t, b, 200), anomaly.Process(b))
	if c.Len() != 1 {
		t.Errorf("expected len 1, got %d", c.Len())
	}
	if _, ok := c.Get(mustKey(t, a, 200)); ok {
		t.Error("expected a evicted")
	}
}

func TestLastRun(t *testing.T) {
	r := &run.Run{TraceID: "rye", Threshold: 200}
	SetLastRun(r.TraceID, r)
	got, ok := GetLastRun("rye")
	if !ok || got != r {
		t.Errorf("expected last run, got %v %v", got, ok)
	}
	if _, ok := GetLastRun("nobody"); ok {
		t.Error("expected miss")
	}
}
