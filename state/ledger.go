// Package state keeps a ledger of correction runs in a bbolt database:
// the latest run summary per trace, and a tally of corrected samples per S2 cell.
package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb"
	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/s2"
	"github.com/rotblauer/trackfix/types/run"
	"go.etcd.io/bbolt"
)

var ErrNoRun = errors.New("no run for trace")

type Ledger struct {
	DB     *bbolt.DB
	logger *slog.Logger
}

// Hotspot is an S2 cell and the number of corrected samples recorded in it.
type Hotspot struct {
	Cell  string `json:"cell"`
	Count uint64 `json:"count"`

	// Center is zero if the cell token is not valid.
	Center orb.Point `json:"center"`
}

// OpenLedger opens (or creates) the ledger database in dir.
// Opening a writable DB conn will block all other writers and readers
// with essentially a file lock/flock.
func OpenLedger(dir string, readOnly bool) (*Ledger, error) {
	if !readOnly {
		if err := os.MkdirAll(dir, 0770); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(filepath.Join(dir, params.LedgerDBName), 0600, &bbolt.Options{
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, err
	}
	if !readOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			for _, name := range [][]byte{params.LedgerRunsBucket, params.LedgerHotspotsBucket} {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Ledger{DB: db, logger: slog.With("d", "ledger")}, nil
}

func (l *Ledger) Close() error {
	return l.DB.Close()
}

// Record stores the run summary under its trace id, replacing any previous one,
// and adds the run's corrected-sample cells to the hotspot tally.
func (l *Ledger) Record(r *run.Run) error {
	if r.TraceID.Empty() {
		return fmt.Errorf("record run: empty trace id")
	}
	summary, err := json.Marshal(r.Summary())
	if err != nil {
		return err
	}
	return l.DB.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(params.LedgerRunsBucket).Put([]byte(r.TraceID), summary); err != nil {
			return err
		}
		hotspots := tx.Bucket(params.LedgerHotspotsBucket)
		for _, i := range r.Result.CorrectedIndices {
			if i >= len(r.Cells) {
				continue
			}
			key := []byte(r.Cells[i])
			var n uint64
			if v := hotspots.Get(key); len(v) == 8 {
				n = binary.BigEndian.Uint64(v)
			}
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, n+1)
			if err := hotspots.Put(key, buf); err != nil {
				return err
			}
		}
		l.logger.Debug("Recorded run", "trace", r.TraceID, "corrected", r.Result.AnomaliesCorrected)
		return nil
	})
}

// Summary returns the last recorded run summary for the trace.
func (l *Ledger) Summary(traceID conceptual.TraceID) (*run.Summary, error) {
	var out *run.Summary
	err := l.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(params.LedgerRunsBucket)
		if b == nil {
			return ErrNoRun
		}
		v := b.Get([]byte(traceID))
		if v == nil {
			return ErrNoRun
		}
		out = &run.Summary{}
		return json.Unmarshal(v, out)
	})
	return out, err
}

// Summaries returns all recorded run summaries, ordered by trace id.
func (l *Ledger) Summaries() ([]run.Summary, error) {
	out := []run.Summary{}
	err := l.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(params.LedgerRunsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			s := run.Summary{}
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("summary %q: %w", k, err)
			}
			out = append(out, s)
			return nil
		})
	})
	return out, err
}

// Hotspots returns up to limit cells with the most corrected samples, most first.
// A limit <= 0 returns all cells.
func (l *Ledger) Hotspots(limit int) ([]Hotspot, error) {
	out := []Hotspot{}
	err := l.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(params.LedgerHotspotsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if len(v) != 8 {
				return fmt.Errorf("hotspot %q: bad count", k)
			}
			h := Hotspot{Cell: string(k), Count: binary.BigEndian.Uint64(v)}
			if center, err := s2.CellCenter(h.Cell); err == nil {
				h.Center = center
			}
			out = append(out, h)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
