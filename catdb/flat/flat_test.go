package flat

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/types/sample"
)

func TestFlat_ForTrace(t *testing.T) {
	root := t.TempDir()
	f := NewFlatWithRoot(root).ForTrace(conceptual.TraceID("kitty1"))
	if want := filepath.Join(root, params.TracesDir, "kitty1"); f.Path() != want {
		t.Errorf("want %s, got %s", want, f.Path())
	}
	if f.Exists() {
		t.Error("directory should not exist yet")
	}
	if err := f.MkdirAll(); err != nil {
		t.Fatal(err)
	}
	if !f.Exists() {
		t.Error("directory should exist")
	}
}

func TestFlat_JSONGZ(t *testing.T) {
	f := NewFlatWithRoot(t.TempDir()).ForTrace(conceptual.TraceID("kitty1"))
	trace := sample.Trace{{Lat: 1, Lon: 2, Time: 3}, {Lat: 4, Lon: 5, Time: 6}}

	// Written twice to show the file is replaced, not appended.
	for i := 0; i < 2; i++ {
		if err := f.WriteJSONGZ(params.CorrectedGZFileName, trace); err != nil {
			t.Fatal(err)
		}
	}

	got := sample.Trace{}
	if err := f.ReadJSONGZ(params.CorrectedGZFileName, &got); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(trace, got) {
		t.Errorf("want %v, got %v", trace, got)
	}
}

func TestFlat_NamedGZReader_NotExist(t *testing.T) {
	f := NewFlatWithRoot(t.TempDir())
	_, err := f.NamedGZReader("nope.json.gz")
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
