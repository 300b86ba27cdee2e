// Package s2 maps positions to S2 cells (areas of the Earth's surface),
// used to tally where corrected samples cluster.
package s2

import (
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// CellIDWithLevel truncates a cell ID to the given (coarser) level.
func CellIDWithLevel(cellID s2.CellID, level CellLevel) s2.CellID {
	// https://docs.s2cell.aliddell.com/en/stable/s2_concepts.html#truncation
	var lsb uint64 = 1 << (2 * (30 - level))
	truncatedCellID := (uint64(cellID) & -lsb) | lsb
	return s2.CellID(truncatedCellID)
}

// CellIDForPointLevel returns the cellID at some level for the given point.
func CellIDForPointLevel(pt orb.Point, level CellLevel) s2.CellID {
	return CellIDWithLevel(s2.CellIDFromLatLng(s2.LatLngFromDegrees(pt.Lat(), pt.Lon())), level)
}

// CellToken returns the compact token of the point's cell at level.
func CellToken(pt orb.Point, level CellLevel) (string, error) {
	if !level.Valid() {
		return "", fmt.Errorf("invalid cell level %d", level)
	}
	return CellIDForPointLevel(pt, level).ToToken(), nil
}

// CellCenter returns the center of the cell identified by token.
func CellCenter(token string) (orb.Point, error) {
	id := s2.CellIDFromToken(token)
	if !id.IsValid() {
		return orb.Point{}, fmt.Errorf("invalid cell token %q", token)
	}
	ll := id.LatLng()
	return orb.Point{ll.Lng.Degrees(), ll.Lat.Degrees()}, nil
}
