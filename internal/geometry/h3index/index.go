// Package h3index narrows restriction-polygon lookups to the polygons whose
// bounds touch the H3 cell of the query point. Candidate lists are memoised
// per cell, which keeps hover tracking cheap when the cursor stays inside
// one cell.
package h3index

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/observability"
	"github.com/mohammed-shakir/aoi-drawing/internal/geometry"
)

const (
	DefaultRes      = 6
	DefaultMemoSize = 4096

	// cell bounds are built from boundary vertices; edges are arcs, so pad
	// by a fraction of the cell size before intersecting
	cellPadRatio = 0.1

	// cells near a pole can contain the pole, which a vertex bound misses;
	// lookups above this latitude scan every ring
	polarLat = 85.0
)

type Index struct {
	res    int
	rings  []model.Ring
	bounds []orb.Bound
	memo   *lru.Cache[h3.Cell, []int]
}

// New indexes rings in order; Locate reports the first containing ring
// in that same order.
func New(rings []model.Ring, res, memoSize int) (*Index, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}
	memo, err := lru.New[h3.Cell, []int](memoSize)
	if err != nil {
		return nil, fmt.Errorf("h3index memo: %w", err)
	}
	ix := &Index{
		res:    res,
		rings:  rings,
		bounds: make([]orb.Bound, len(rings)),
		memo:   memo,
	}
	for i, r := range rings {
		ix.bounds[i] = geometry.Bound(r)
	}
	return ix, nil
}

func (ix *Index) Len() int { return len(ix.rings) }

// MemoLen is the number of cells with a cached candidate list.
func (ix *Index) MemoLen() int { return ix.memo.Len() }

// Locate returns the index of the first ring containing p, or -1.
func (ix *Index) Locate(p model.GeoPoint) int {
	if len(ix.rings) == 0 {
		observability.ObserveContainment(false)
		return -1
	}
	cands, ok := ix.Candidates(p)
	if !ok {
		// no usable cell, fall back to a full scan
		i := geometry.FirstContaining(p, ix.rings)
		observability.ObserveContainment(i >= 0)
		return i
	}
	for _, i := range cands {
		if geometry.Contains(ix.rings[i], p) {
			observability.ObserveContainment(true)
			return i
		}
	}
	observability.ObserveContainment(false)
	return -1
}

// Candidates lists ring indexes whose bounds intersect the cell of p, in
// ascending order. ok is false when p cannot be mapped to a cell or lies
// in a polar region.
func (ix *Index) Candidates(p model.GeoPoint) ([]int, bool) {
	if math.Abs(p.Lat) > polarLat {
		return nil, false
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), ix.res)
	if err != nil {
		return nil, false
	}
	if c, ok := ix.memo.Get(cell); ok {
		observability.ObserveIndexLookup(true)
		return c, true
	}
	observability.ObserveIndexLookup(false)

	cb, err := cellBound(cell)
	if err != nil {
		return nil, false
	}
	var out []int
	for i, b := range ix.bounds {
		if b.Intersects(cb) {
			out = append(out, i)
		}
	}
	ix.memo.Add(cell, out)
	return out, true
}

func cellBound(c h3.Cell) (orb.Bound, error) {
	boundary, err := c.Boundary()
	if err != nil {
		return orb.Bound{}, fmt.Errorf("h3 boundary: %w", err)
	}
	if len(boundary) == 0 {
		return orb.Bound{}, fmt.Errorf("h3 boundary of %s is empty", c.String())
	}
	first := orb.Point{boundary[0].Lng, boundary[0].Lat}
	b := orb.Bound{Min: first, Max: first}
	for _, ll := range boundary[1:] {
		b = b.Extend(orb.Point{ll.Lng, ll.Lat})
	}
	pad := cellPadRatio * max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])
	return b.Pad(pad), nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
