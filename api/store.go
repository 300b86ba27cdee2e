package api

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rotblauer/trackfix/catdb/cache"
	"github.com/rotblauer/trackfix/catdb/flat"
	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/types/run"
	"github.com/rotblauer/trackfix/types/sample"
)

var ErrNotStored = errors.New("trace not stored")

func (c *Cleaner) traceFlat(traceID conceptual.TraceID) *flat.Flat {
	return flat.NewFlatWithRoot(c.Config.DataDir).ForTrace(traceID)
}

// Store writes the input and corrected traces to <datadir>/traces/<id>/,
// replacing any earlier ones, and records the run in the ledger.
func (c *Cleaner) Store(input sample.Trace, r *run.Run) error {
	if r.TraceID.Empty() {
		return fmt.Errorf("store: empty trace id")
	}
	f := c.traceFlat(r.TraceID)
	if err := f.MkdirAll(); err != nil {
		return err
	}
	if input == nil {
		input = sample.Trace{}
	}
	if err := f.WriteJSONGZ(params.InputGZFileName, input); err != nil {
		return fmt.Errorf("write input: %w", err)
	}
	if err := f.WriteJSONGZ(params.CorrectedGZFileName, r.Result); err != nil {
		return fmt.Errorf("write corrected: %w", err)
	}
	if c.Ledger != nil {
		if err := c.Ledger.Record(r); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	c.logger.Debug("Stored run", "trace", r.TraceID, "path", f.Path())
	return nil
}

// LastResult returns the most recent result for the trace,
// from the last-run cache or else from storage.
// CorrectedIndices are only available from the cache.
func (c *Cleaner) LastResult(traceID conceptual.TraceID) (sample.Result, error) {
	if r, ok := cache.GetLastRun(traceID); ok {
		return r.Result, nil
	}
	res := sample.Result{}
	err := c.traceFlat(traceID).ReadJSONGZ(params.CorrectedGZFileName, &res)
	if errors.Is(err, os.ErrNotExist) {
		return res, ErrNotStored
	}
	return res, err
}

// StoredInput reads the stored input trace.
func (c *Cleaner) StoredInput(traceID conceptual.TraceID) (sample.Trace, error) {
	trace := sample.Trace{}
	err := c.traceFlat(traceID).ReadJSONGZ(params.InputGZFileName, &trace)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotStored
	}
	return trace, err
}

// Reclean runs the cleaner again over a stored input trace.
func (c *Cleaner) Reclean(ctx context.Context, traceID conceptual.TraceID) (*run.Run, error) {
	trace, err := c.StoredInput(traceID)
	if err != nil {
		return nil, err
	}
	return c.Clean(ctx, traceID, trace)
}
