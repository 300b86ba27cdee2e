package webd

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rotblauer/trackfix/api"
	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/state"
	"github.com/rotblauer/trackfix/types"
	"github.com/rotblauer/trackfix/types/run"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type webDaemonStatus struct {
	StartedAt time.Time               `json:"started_at"`
	Uptime    string                  `json:"uptime"`
	Config    *params.WebDaemonConfig `json:"config"`
	WSOpen    bool                    `json:"ws_open"`
	WSConns   int                     `json:"ws_conns"`
	Runs      []run.Summary           `json:"runs,omitempty"`
	Hotspots  []state.Hotspot         `json:"hotspots,omitempty"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	st := webDaemonStatus{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		WSOpen:    !s.closed.Load(),
		WSConns:   s.melodyInstance.Len(),
		Config:    s.Config,
	}
	if ledger := s.Cleaner.Ledger; ledger != nil {
		var err error
		if st.Runs, err = ledger.Summaries(); err != nil {
			s.logger.Warn("Failed to read run summaries", "error", err)
		}
		if st.Hotspots, err = ledger.Hotspots(10); err != nil {
			s.logger.Warn("Failed to read hotspots", "error", err)
		}
	}
	j, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal status", "error", err)
		http.Error(w, "Failed to marshal status", http.StatusInternalServerError)
		return
	}
	if _, err = w.Write(j); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

// getRequestTraceID reads the trace id from the route or the query.
// The second return is false if an id was given but nothing usable remains of it.
func getRequestTraceID(r *http.Request) (conceptual.TraceID, bool) {
	raw, ok := mux.Vars(r)["id"]
	if !ok {
		raw = r.URL.Query().Get("id")
	}
	id := conceptual.SanitizeTraceID(raw)
	return id, raw == "" || !id.Empty()
}

func parseThreshold(r *http.Request) (float64, bool, error) {
	v := r.URL.Query().Get("threshold")
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, err
	}
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, errors.New("threshold must be a positive number")
	}
	return f, true, nil
}

// handleClean decodes a trace from the request body, corrects it, and responds
// with the result. The body may be a JSON array of samples, newline-delimited
// samples, or a GeoJSON FeatureCollection of points.
// Query parameters:
//
//	id          stores the run under this trace id (if the daemon stores runs)
//	threshold   speed threshold in m/s, default 200
//	coord_scale multiplies raw coordinates, eg. 1e-6 for microdegrees
//	format      "geojson" for a FeatureCollection response
func (s *WebDaemon) handleClean(w http.ResponseWriter, r *http.Request) {
	traceID, ok := getRequestTraceID(r)
	if !ok {
		http.Error(w, "Invalid trace id", http.StatusBadRequest)
		return
	}
	cleaner := s.Cleaner
	threshold, set, err := parseThreshold(r)
	if err != nil {
		http.Error(w, "Invalid threshold: "+err.Error(), http.StatusBadRequest)
		return
	}
	if set {
		cleaner = cleaner.WithThreshold(threshold)
	}
	decodeConfig := &params.DecodeConfig{CoordScale: 1}
	if v := r.URL.Query().Get("coord_scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 {
			http.Error(w, "Invalid coord_scale", http.StatusBadRequest)
			return
		}
		decodeConfig.CoordScale = scale
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, params.MaxCleanRequestBytes))
	if err != nil {
		s.logger.Error("Failed to read request body", "error", err)
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	trace, err := types.DecodeTrace(body, decodeConfig)
	if err != nil {
		s.logger.Warn("Failed to decode", "error", err)
		http.Error(w, "Failed to decode: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	res, err := cleaner.Clean(r.Context(), traceID, trace)
	if err != nil {
		s.logger.Error("Failed to clean", "trace", traceID, "error", err)
		http.Error(w, "Failed to clean", http.StatusInternalServerError)
		return
	}

	var out any = res.Result
	if r.URL.Query().Get("format") == "geojson" {
		w.Header().Set("Content-Type", "application/geo+json")
		out = res.Result.FeatureCollection()
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *WebDaemon) handleLast(w http.ResponseWriter, r *http.Request) {
	traceID, ok := getRequestTraceID(r)
	if !ok || traceID.Empty() {
		http.Error(w, "Invalid trace id", http.StatusBadRequest)
		return
	}
	res, err := s.Cleaner.LastResult(traceID)
	if errors.Is(err, api.ErrNotStored) {
		http.Error(w, "No result for trace", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Warn("Failed to get last result", "trace", traceID, "error", err)
		http.Error(w, "Failed to get last result", http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}
