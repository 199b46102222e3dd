// Package geometry implements point containment, area measurement and the
// wire codec for drawn polygons. Coordinates are handed to orb in
// (lng, lat) order.
package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
)

// ToOrb converts a ring to an orb ring in (lng, lat) order and closes it.
func ToOrb(r model.Ring) orb.Ring {
	closed := r.Closed()
	out := make(orb.Ring, 0, len(closed))
	for _, p := range closed {
		out = append(out, orb.Point{p.Lng, p.Lat})
	}
	return out
}

// Distinct counts vertices after dropping a repeated closing vertex and
// consecutive duplicates.
func Distinct(r model.Ring) int {
	open := r.Open()
	n := 0
	for i, p := range open {
		if i > 0 && p == open[i-1] {
			continue
		}
		n++
	}
	return n
}

// Contains reports whether p lies inside or on the boundary of r.
// Degenerate rings (fewer than three distinct vertices) contain nothing.
func Contains(r model.Ring, p model.GeoPoint) bool {
	if Distinct(r) < 3 {
		return false
	}
	ring := ToOrb(r)
	pt := orb.Point{p.Lng, p.Lat}
	if !ring.Bound().Contains(pt) {
		return false
	}
	return planar.RingContains(ring, pt)
}

// PointInAny reports whether any ring contains p. The first match wins.
func PointInAny(p model.GeoPoint, rings []model.Ring) bool {
	return FirstContaining(p, rings) >= 0
}

// FirstContaining returns the index of the first ring containing p, or -1.
func FirstContaining(p model.GeoPoint, rings []model.Ring) int {
	for i, r := range rings {
		if Contains(r, p) {
			return i
		}
	}
	return -1
}

// FirstOutside returns the first vertex of ring that container does not
// contain. ok is false when every vertex is inside.
func FirstOutside(ring, container model.Ring) (model.GeoPoint, bool) {
	for _, p := range ring.Open() {
		if !Contains(container, p) {
			return p, true
		}
	}
	return model.GeoPoint{}, false
}

// BoundsCenter is the centre of the ring's bounding box, where edit
// errors are anchored.
func BoundsCenter(r model.Ring) model.GeoPoint {
	if len(r) == 0 {
		return model.GeoPoint{}
	}
	c := ToOrb(r).Bound().Center()
	return model.GeoPoint{Lat: c.Lat(), Lng: c.Lon()}
}

// Bound returns the ring's bounding box.
func Bound(r model.Ring) orb.Bound {
	return ToOrb(r).Bound()
}
