package stream

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/trackfix/common"
)

// TickMeter periodically logs the throughput of a sample stream.
type TickMeter struct {
	label      atomic.Int64 // last sample time, unix seconds
	interval   time.Duration
	started    time.Time
	ticker     *time.Ticker
	done       chan struct{}
	reg        metrics.Registry
	count      metrics.Counter
	countMeter metrics.Meter
	sizeMeter  metrics.Meter
}

func NewTickMeter(interval time.Duration) *TickMeter {
	// Enable metrics package.
	// Won't work without this global setting.
	metrics.Enabled = true

	reg := metrics.NewRegistry()
	tm := &TickMeter{
		reg:        reg,
		interval:   interval,
		started:    time.Now(),
		done:       make(chan struct{}),
		count:      metrics.NewCounter(),
		countMeter: metrics.NewMeter(),
		sizeMeter:  metrics.NewMeter(),
	}

	if err := reg.Register("sample.count", tm.count); err != nil {
		panic(err)
	}
	if err := reg.Register("sample.meter", tm.countMeter); err != nil {
		panic(err)
	}
	if err := reg.Register("size.meter", tm.sizeMeter); err != nil {
		panic(err)
	}
	tm.ticker = time.NewTicker(interval)
	go tm.run()
	return tm
}

// Mark records one sample with the given time and encoded size.
func (tm *TickMeter) Mark(unix int64, size int) {
	tm.label.Store(unix)
	tm.count.Inc(1)
	tm.countMeter.Mark(1)
	tm.sizeMeter.Mark(int64(size))
}

// Count returns the number of samples marked.
func (tm *TickMeter) Count() int64 {
	return tm.count.Snapshot().Count()
}

func (tm *TickMeter) run() {
	for {
		select {
		case <-tm.done:
			return
		case <-tm.ticker.C:
			tm.log()
		}
	}
}

func (tm *TickMeter) log() {
	countSnap := tm.countMeter.Snapshot()
	sizeSnap := tm.sizeMeter.Snapshot()

	slog.Info("Read samples", "n", humanize.Comma(countSnap.Count()),
		"read.last", time.Unix(tm.label.Load(), 0).UTC().Format(time.DateTime),
		"sps", common.DecimalToFixed(countSnap.Rate1(), 0),
		"bps", humanize.Bytes(uint64(sizeSnap.Rate1())),
		"total.bytes", humanize.Bytes(uint64(sizeSnap.Count())),
		"running", time.Since(tm.started).Round(time.Second))
}

// Stop stops the ticker and logs a final line.
func (tm *TickMeter) Stop() {
	if tm == nil || tm.ticker == nil {
		return
	}
	tm.ticker.Stop()
	close(tm.done)
	tm.log()
	tm.countMeter.Stop()
	tm.sizeMeter.Stop()
}
