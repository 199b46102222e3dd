// Package model defines core domain types shared across the service.
package model

import "fmt"

// GeoPoint is a WGS84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Ring is an ordered polygon boundary. The closing vertex may or may not
// be repeated; consumers close it before use.
type Ring []GeoPoint

// Closed returns a copy of the ring with the first vertex appended when
// it is not already repeated as the last one.
func (r Ring) Closed() Ring {
	if len(r) == 0 {
		return nil
	}
	out := make(Ring, len(r), len(r)+1)
	copy(out, r)
	if r[0] != r[len(r)-1] {
		out = append(out, r[0])
	}
	return out
}

// Open drops a duplicated closing vertex if present.
func (r Ring) Open() Ring {
	if len(r) >= 2 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

func (r Ring) Clone() Ring {
	if r == nil {
		return nil
	}
	out := make(Ring, len(r))
	copy(out, r)
	return out
}

// Pairs renders the ring as [lat, lng] pairs, the persisted shape.
func (r Ring) Pairs() [][]float64 {
	out := make([][]float64, 0, len(r))
	for _, p := range r {
		out = append(out, []float64{p.Lat, p.Lng})
	}
	return out
}

// RingFromPairs is the inverse of Ring.Pairs. Pairs that do not hold
// exactly two values are rejected.
func RingFromPairs(pairs [][]float64) (Ring, error) {
	out := make(Ring, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("pair %d has %d values", i, len(p))
		}
		out = append(out, GeoPoint{Lat: p[0], Lng: p[1]})
	}
	return out, nil
}

// RestrictionPolygon is a catalogue footprint tagged with its survey year.
// It is never mutated after loading.
type RestrictionPolygon struct {
	ID   int  `json:"id"`
	Year int  `json:"year"`
	Ring Ring `json:"ring"`
}

// UserPolygon is a polygon drawn interactively. Restriction is a
// non-owning reference stamped at draw start.
type UserPolygon struct {
	Ring        Ring
	Restriction *RestrictionPolygon

	// last coordinates that passed validation, refreshed on edit start
	// and on every accepted edit
	Original Ring
}

// GeometryParameter is the drawable constraint context of one service
// parameter. MaxCount <= 0 means unbounded.
type GeometryParameter struct {
	Title        string `json:"title"`
	MaxCount     int    `json:"maxCount,omitempty"`
	MustBeInside bool   `json:"mustBeInside"`
}

func (g GeometryParameter) Bounded() bool { return g.MaxCount > 0 }

// Snapshot is the durable drawing state. Polygons hold [lat, lng] pairs.
type Snapshot struct {
	IsDrawingEnabled      bool          `json:"isDrawingEnabled"`
	Polygons              [][][]float64 `json:"polygons"`
	CurrentParameterTitle string        `json:"currentParameterTitle"`
}

type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

// String representation matching wfs/wms bbox format
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", b.X1, b.Y1, b.X2, b.Y2, b.SRID)
}
