package params

import (
	"compress/gzip"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/mitchellh/go-homedir"
	"github.com/rotblauer/trackfix/s2"
)

func init() {
	metrics.Enabled = true
}

const (
	TracesDir = "traces"

	InputGZFileName     = "input.json.gz"
	CorrectedGZFileName = "corrected.json.gz"
	LedgerDBName        = "ledger.db"
)

var DefaultDatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".trackfix")
}()

var LedgerRunsBucket = []byte("runs")
var LedgerHotspotsBucket = []byte("hotspots")

// AnomalyCellLevel is the S2 level at which corrected samples are tallied.
// About 140m on an edge.
var AnomalyCellLevel = s2.CellLevel16

var DefaultGZipCompressionLevel = gzip.BestCompression

var (
	ResultCacheSize   = 1_000
	CacheLastRunTTL   = 24 * time.Hour
	TickMeterInterval = 5 * time.Second
)
