package catalogue

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/geometry"
	"github.com/mohammed-shakir/aoi-drawing/internal/geometry/h3index"
)

// View is an immutable visible subset of the catalogue with a point
// lookup index.
type View struct {
	MinYear, MaxYear int

	polys []*model.RestrictionPolygon
	index *h3index.Index
}

func newView(polys []*model.RestrictionPolygon, minYear, maxYear, res, memoSize int) (*View, error) {
	rings := make([]model.Ring, len(polys))
	for i, p := range polys {
		rings[i] = p.Ring
	}
	ix, err := h3index.New(rings, res, memoSize)
	if err != nil {
		return nil, fmt.Errorf("index restriction view: %w", err)
	}
	return &View{MinYear: minYear, MaxYear: maxYear, polys: polys, index: ix}, nil
}

func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.polys)
}

func (v *View) Polygons() []*model.RestrictionPolygon { return v.polys }

// Locate returns the first visible footprint containing p, or nil.
func (v *View) Locate(p model.GeoPoint) *model.RestrictionPolygon {
	if v == nil {
		return nil
	}
	if i := v.index.Locate(p); i >= 0 {
		return v.polys[i]
	}
	return nil
}

// LocateRing returns the first visible footprint holding every vertex of r.
func (v *View) LocateRing(r model.Ring) *model.RestrictionPolygon {
	if v == nil || len(r) == 0 {
		return nil
	}
	cands, ok := v.index.Candidates(r[0])
	if !ok {
		cands = make([]int, len(v.polys))
		for i := range cands {
			cands[i] = i
		}
	}
	for _, i := range cands {
		if _, outside := geometry.FirstOutside(r, v.polys[i].Ring); !outside {
			return v.polys[i]
		}
	}
	return nil
}

// StyledPolygon is a footprint ready for rendering.
type StyledPolygon struct {
	ID    int         `json:"id"`
	Year  int         `json:"year"`
	Color string      `json:"color"`
	Label string      `json:"label"`
	Ring  [][]float64 `json:"ring"`
}

// Styled colours the visible footprints against the years actually
// present, optionally limited to those intersecting bbox.
func (v *View) Styled(bbox *orb.Bound) []StyledPolygon {
	lo, hi, ok := v.yearSpan()
	if !ok {
		return []StyledPolygon{}
	}
	out := make([]StyledPolygon, 0, len(v.polys))
	for _, p := range v.polys {
		if bbox != nil && !geometry.Bound(p.Ring).Intersects(*bbox) {
			continue
		}
		out = append(out, StyledPolygon{
			ID:    p.ID,
			Year:  p.Year,
			Color: ColorForYear(p.Year, lo, hi).String(),
			Label: YearLabel(p.Year),
			Ring:  p.Ring.Pairs(),
		})
	}
	return out
}

// Legend covers the years present in the view; ok is false when empty.
func (v *View) Legend() (Legend, bool) {
	lo, hi, ok := v.yearSpan()
	if !ok {
		return Legend{}, false
	}
	return NewLegend(lo, hi), true
}

func (v *View) yearSpan() (lo, hi int, ok bool) {
	if len(v.polys) == 0 {
		return 0, 0, false
	}
	lo, hi = v.polys[0].Year, v.polys[0].Year
	for _, p := range v.polys[1:] {
		lo = min(lo, p.Year)
		hi = max(hi, p.Year)
	}
	return lo, hi, true
}
