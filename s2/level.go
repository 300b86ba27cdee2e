package s2

/*
https://s2geometry.io/resources/s2cell_statistics.html

level  average area  edge (approx.)
08     1297.17 km2   27-38 km  -- about a day's walk/ride
13     1.27 km2      850-1225 m -- about a kilometer (square)
16     19793.17 m2   106-153 m -- throwing distance
18     1237.07 m2    27-38 m   -- small residential plot
23     1.21 m2       83-120 cm -- a human body
*/

// CellLevel represents the S2 cell level, from 0-30.
type CellLevel int

const (
	// CellLevel0 covers earth in 6 cells.
	CellLevel0 CellLevel = 0

	// CellLevel8 is about a day's walk or ride across.
	CellLevel8 CellLevel = 8

	// CellLevel13 is about a 1/2 section.
	CellLevel13 CellLevel = 13

	// CellLevel16 is approximately 140m on an edge, or an area of about 5 acres.
	CellLevel16 CellLevel = 16

	// CellLevel18 is about 100ft on a side, and has an area of about 1/4 acre.
	CellLevel18 CellLevel = 18

	// CellLevel23 is approximately a human body; 1 square meter.
	CellLevel23 CellLevel = 23

	CellLevel30 CellLevel = 30
)

// Valid reports whether the level is within 0-30.
func (l CellLevel) Valid() bool {
	return l >= CellLevel0 && l <= CellLevel30
}
