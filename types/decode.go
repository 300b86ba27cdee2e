package types

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/types/sample"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var ErrDecodeTrace = errors.New("could not decode as sample array or ndjson samples or geojson feature collection")
var ErrEmptyTrace = errors.New("empty trace")

// DecodeTrace decodes a trace from any of:
//   - a JSON array of samples, eg. [{"lat":..,"lon":..,"time":..}, ...]
//   - newline-delimited sample objects
//   - a GeoJSON FeatureCollection of Point features with a 'time' property
//
// Every sample must be well-formed; the first bad one fails the whole trace,
// and the error names its index.
// An empty trace is an error only for GeoJSON and NDJSON input; an empty
// JSON array is a valid (empty) trace.
func DecodeTrace(data []byte, config *params.DecodeConfig) (sample.Trace, error) {
	if config == nil {
		config = params.DefaultDecodeConfig
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyTrace
	}

	var trace sample.Trace
	var err error
	switch {
	case gjson.GetBytes(data, "features").Exists():
		trace, err = decodeFeatureCollection(data)
	case data[0] == '[':
		trace, err = decodeArray(data)
	case data[0] == '{':
		trace, err = DecodeNDJSON(bytes.NewReader(data))
	default:
		return nil, ErrDecodeTrace
	}
	if err != nil {
		return nil, err
	}
	return ScaleTrace(trace, config.CoordScale), nil
}

func decodeArray(data []byte) (sample.Trace, error) {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, ErrDecodeTrace
	}
	elements := parsed.Array()
	trace := make(sample.Trace, 0, len(elements))
	for i, el := range elements {
		s := sample.Sample{}
		if err := s.UnmarshalJSON([]byte(el.Raw)); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		trace = append(trace, s)
	}
	return trace, nil
}

// DecodeNDJSON reads newline-delimited sample objects until EOF.
func DecodeNDJSON(r io.Reader) (sample.Trace, error) {
	trace := sample.Trace{}
	dec := json.NewDecoder(bufio.NewReader(r))
	for i := 0; ; i++ {
		s := sample.Sample{}
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		trace = append(trace, s)
	}
	if len(trace) == 0 {
		return nil, ErrEmptyTrace
	}
	return trace, nil
}

func decodeFeatureCollection(data []byte) (sample.Trace, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, ErrEmptyTrace
	}
	trace := make(sample.Trace, 0, len(fc.Features))
	for i, f := range fc.Features {
		s, err := FeatureToSample(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		trace = append(trace, s)
	}
	return trace, nil
}

// FeatureToSample converts a GeoJSON Point feature to a Sample.
// The time is read from the 'time' property, falling back to 'UnixTime' and then 'Time'.
// Numeric times are seconds since the epoch; strings must be RFC3339.
func FeatureToSample(f *geojson.Feature) (sample.Sample, error) {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return sample.Sample{}, fmt.Errorf("%w: geometry must be a Point", sample.ErrFieldType)
	}
	var raw any
	for _, key := range []string{"time", "UnixTime", "Time"} {
		if v, ok := f.Properties[key]; ok && v != nil {
			raw = v
			break
		}
	}
	var unix int64
	switch v := raw.(type) {
	case nil:
		return sample.Sample{}, fmt.Errorf("%w: %q", sample.ErrMissingField, "time")
	case float64:
		if v != float64(int64(v)) {
			return sample.Sample{}, fmt.Errorf("%w: %q must be an integer, got %v", sample.ErrFieldType, "time", v)
		}
		unix = int64(v)
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return sample.Sample{}, fmt.Errorf("%w: %q: %v", sample.ErrFieldType, "time", err)
		}
		unix = t.Unix()
	default:
		return sample.Sample{}, fmt.Errorf("%w: %q has type %T", sample.ErrFieldType, "time", raw)
	}
	return sample.Sample{Lat: pt.Lat(), Lon: pt.Lon(), Time: unix}, nil
}

// ScaleTrace returns a trace with lat/lon multiplied by scale.
// Decimal arithmetic keeps eg. microdegree integers exact before the float conversion.
// A zero or unit scale returns the trace unmodified.
// Coordinates must be finite, which decoded JSON always is.
func ScaleTrace(trace sample.Trace, scale float64) sample.Trace {
	if scale == 0 || scale == 1 {
		return trace
	}
	factor := decimal.NewFromFloat(scale)
	out := make(sample.Trace, len(trace))
	for i, s := range trace {
		out[i] = sample.Sample{
			Lat:  decimal.NewFromFloat(s.Lat).Mul(factor).InexactFloat64(),
			Lon:  decimal.NewFromFloat(s.Lon).Mul(factor).InexactFloat64(),
			Time: s.Time,
		}
	}
	return out
}
