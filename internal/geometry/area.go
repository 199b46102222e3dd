package geometry

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
)

const squareMetersPerHectare = 10000.0

// Measure is the summed size of a polygon set. Two-vertex sketches
// contribute length instead of area.
type Measure struct {
	SquareMeters float64
	LengthMeters float64
}

func (m Measure) Hectares() float64 { return m.SquareMeters / squareMetersPerHectare }

// Formatted renders hectares with two decimals.
func (m Measure) Formatted() string { return FormatHectares(m.Hectares()) }

// Recompute sums the spherical area of every ring. It never mutates its
// input.
func Recompute(rings []model.Ring) Measure {
	var m Measure
	for _, r := range rings {
		switch n := Distinct(r); {
		case n >= 3:
			m.SquareMeters += math.Abs(geo.Area(orb.Polygon{ToOrb(r)}))
		case n == 2:
			a, b := twoDistinct(r)
			m.LengthMeters += geo.DistanceHaversine(
				orb.Point{a.Lng, a.Lat},
				orb.Point{b.Lng, b.Lat},
			)
		}
	}
	return m
}

// FormatHectares renders ha with exactly two decimals and no grouping.
func FormatHectares(ha float64) string {
	if ha == 0 || math.IsNaN(ha) {
		return "0.00"
	}
	return strconv.FormatFloat(ha, 'f', 2, 64)
}

func twoDistinct(r model.Ring) (model.GeoPoint, model.GeoPoint) {
	open := r.Open()
	a := open[0]
	for _, p := range open[1:] {
		if p != a {
			return a, p
		}
	}
	return a, a
}
