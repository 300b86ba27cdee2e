package state

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/geo/anomaly"
	"github.com/rotblauer/trackfix/s2"
	"github.com/rotblauer/trackfix/testing/testdata"
	"github.com/rotblauer/trackfix/types/run"
)

func newTestRun(id string) *run.Run {
	trace := testdata.WithJump(testdata.Walk(testdata.Minneapolis, 7, 0.0001, 10), 3, 0.045)
	res := anomaly.Process(trace)
	cells := make([]string, len(res.CorrectedPoints))
	for i := range cells {
		cells[i] = "cell-a"
	}
	cells[3] = "cell-b"
	return &run.Run{
		TraceID:   conceptual.TraceID(id),
		Started:   time.Date(2024, 11, 15, 22, 57, 43, 0, time.UTC),
		Threshold: 200,
		Result:    res,
		Cells:     cells,
	}
}

func TestLedger(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenLedger(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Record(newTestRun("rye")); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(newTestRun("ia")); err != nil {
		t.Fatal(err)
	}

	s, err := l.Summary("rye")
	if err != nil {
		t.Fatal(err)
	}
	if s.Samples != 7 || s.AnomaliesDetected != 3 || s.AnomaliesCorrected != 3 {
		t.Errorf("unexpected summary %+v", s)
	}
	if !s.Started.Equal(time.Date(2024, 11, 15, 22, 57, 43, 0, time.UTC)) {
		t.Errorf("unexpected started %v", s.Started)
	}

	if _, err := l.Summary("nobody"); !errors.Is(err, ErrNoRun) {
		t.Errorf("expected ErrNoRun, got %v", err)
	}

	all, err := l.Summaries()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].TraceID != "ia" || all[1].TraceID != "rye" {
		t.Errorf("unexpected summaries %+v", all)
	}

	// Each run corrected indices 2, 3, 4; index 3 is in cell-b.
	hot, err := l.Hotspots(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hot) != 2 {
		t.Fatalf("expected 2 hotspots, got %v", hot)
	}
	if hot[0] != (Hotspot{Cell: "cell-a", Count: 4}) || hot[1] != (Hotspot{Cell: "cell-b", Count: 2}) {
		t.Errorf("unexpected hotspots %v", hot)
	}
	if top, _ := l.Hotspots(1); len(top) != 1 {
		t.Errorf("expected limit 1, got %v", top)
	}

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	// Re-opened read-only, the ledger is intact.
	ro, err := OpenLedger(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()
	if _, err := ro.Summary("ia"); err != nil {
		t.Errorf("read-only summary: %v", err)
	}
}

func TestLedger_RecordEmptyID(t *testing.T) {
	l, err := OpenLedger(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if err := l.Record(newTestRun("")); err == nil {
		t.Error("expected error for empty trace id")
	}
}

// TestBBoltReadOnlyBoth shows that a bbolt db with only a read-only conn open
// will allow another read-only conn.
func TestBBoltReadOnlyBoth(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenLedger(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()

	ro1, err := OpenLedger(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	defer ro1.Close()
	done := make(chan error)
	go func() {
		ro2, err := OpenLedger(dir, true)
		if err == nil {
			ro2.Close()
		}
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second read-only conn blocked")
	}
}

func TestLedger_HotspotCenter(t *testing.T) {
	l, err := OpenLedger(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	r := newTestRun("rye")
	for i, s := range r.Result.CorrectedPoints {
		token, err := s2.CellToken(s.Point(), s2.CellLevel16)
		if err != nil {
			t.Fatal(err)
		}
		r.Cells[i] = token
	}
	if err := l.Record(r); err != nil {
		t.Fatal(err)
	}
	hot, err := l.Hotspots(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hot) != 1 {
		t.Fatalf("expected 1 hotspot, got %v", hot)
	}
	// Level 16 cells are a couple hundred meters across.
	c := hot[0].Center
	if math.Abs(c.Lat()-testdata.Minneapolis.Lat) > 0.05 || math.Abs(c.Lon()-testdata.Minneapolis.Lon) > 0.01 {
		t.Errorf("unexpected hotspot center %v", c)
	}
}
