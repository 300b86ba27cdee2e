package sample

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"
)

var (
	ErrNotObject    = errors.New("sample is not a JSON object")
	ErrMissingField = errors.New("missing field")
	ErrFieldType    = errors.New("invalid field type")
)

// Sample is one GPS fix.
// Latitude and longitude are in degrees, and Time is in seconds since the Unix epoch.
// Samples are values; a corrected sample is a new Sample, never a mutation.
type Sample struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Time int64   `json:"time"`
}

// UnmarshalJSON requires all three of lat, lon and time to be present,
// with lat and lon numeric and time an integer.
func (s *Sample) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid JSON", ErrFieldType)
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return ErrNotObject
	}
	lat, err := numberField(obj, "lat")
	if err != nil {
		return err
	}
	lon, err := numberField(obj, "lon")
	if err != nil {
		return err
	}
	tm, err := numberField(obj, "time")
	if err != nil {
		return err
	}
	if strings.ContainsAny(tm.Raw, ".eE") {
		return fmt.Errorf("%w: %q must be an integer, got %s", ErrFieldType, "time", tm.Raw)
	}
	*s = Sample{Lat: lat.Float(), Lon: lon.Float(), Time: tm.Int()}
	return nil
}

func numberField(obj gjson.Result, key string) (gjson.Result, error) {
	v := obj.Get(key)
	if !v.Exists() {
		return v, fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	if v.Type != gjson.Number {
		return v, fmt.Errorf("%w: %q must be a number, got %s", ErrFieldType, key, v.Type)
	}
	return v, nil
}

// Point returns the sample's position as an orb.Point, which is [lon, lat].
func (s Sample) Point() orb.Point {
	return orb.Point{s.Lon, s.Lat}
}

// Feature renders the sample as a GeoJSON Point feature with a time property.
func (s Sample) Feature() *geojson.Feature {
	f := geojson.NewFeature(s.Point())
	f.Properties["time"] = s.Time
	return f
}

// Trace is an ordered sequence of samples, in order of observation.
type Trace []Sample

// Bound returns the bounding box of the trace.
// The zero Bound is returned for an empty trace.
func (t Trace) Bound() orb.Bound {
	if len(t) == 0 {
		return orb.Bound{}
	}
	mp := make(orb.MultiPoint, len(t))
	for i, s := range t {
		mp[i] = s.Point()
	}
	return mp.Bound()
}

// LineString returns the trace geometry.
func (t Trace) LineString() orb.LineString {
	ls := make(orb.LineString, len(t))
	for i, s := range t {
		ls[i] = s.Point()
	}
	return ls
}

// FeatureCollection renders each sample as a Point feature.
func (t Trace) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range t {
		fc.Append(s.Feature())
	}
	return fc
}

// Result is the output of an anomaly correction pass.
// Every detected anomaly is also corrected, so the two counters are always equal.
type Result struct {
	CorrectedPoints    Trace `json:"corrected_points"`
	AnomaliesDetected  int   `json:"anomalies_detected"`
	AnomaliesCorrected int   `json:"anomalies_corrected"`

	// CorrectedIndices are the indices of the replaced samples, ascending.
	// They are not part of the wire format.
	CorrectedIndices []int `json:"-"`
}

// FeatureCollection renders the corrected points, marking replaced samples
// with a "corrected" property.
func (r Result) FeatureCollection() *geojson.FeatureCollection {
	fc := r.CorrectedPoints.FeatureCollection()
	for _, i := range r.CorrectedIndices {
		if i >= 0 && i < len(fc.Features) {
			fc.Features[i].Properties["corrected"] = true
		}
	}
	fc.ExtraMembers = geojson.Properties{
		"anomalies_detected":  r.AnomaliesDetected,
		"anomalies_corrected": r.AnomaliesCorrected,
	}
	return fc
}
