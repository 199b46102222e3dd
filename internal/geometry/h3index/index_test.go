package h3index

import (
	"testing"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
)

func square(lat0, lng0, size float64) model.Ring {
	return model.Ring{
		{Lat: lat0, Lng: lng0},
		{Lat: lat0, Lng: lng0 + size},
		{Lat: lat0 + size, Lng: lng0 + size},
		{Lat: lat0 + size, Lng: lng0},
	}
}

func TestLocate_FirstContainingInIndexOrder(t *testing.T) {
	rings := []model.Ring{
		square(55.0, 37.0, 0.2),
		square(55.1, 37.1, 0.2),
		square(60.0, 30.0, 0.1),
	}
	ix, err := New(rings, DefaultRes, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		p    model.GeoPoint
		want int
	}{
		{model.GeoPoint{Lat: 55.05, Lng: 37.05}, 0},
		{model.GeoPoint{Lat: 55.15, Lng: 37.15}, 0}, // overlap of 0 and 1
		{model.GeoPoint{Lat: 55.25, Lng: 37.25}, 1},
		{model.GeoPoint{Lat: 60.05, Lng: 30.05}, 2},
		{model.GeoPoint{Lat: 10, Lng: 10}, -1},
	}
	for _, tc := range cases {
		if got := ix.Locate(tc.p); got != tc.want {
			t.Fatalf("Locate(%v)=%d want %d", tc.p, got, tc.want)
		}
	}
}

func TestLocate_BoundaryPointNearCellEdge(t *testing.T) {
	// a tiny polygon whose edge runs right next to the query point
	rings := []model.Ring{square(48.0, 2.0, 0.0005)}
	ix, err := New(rings, 5, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := model.GeoPoint{Lat: 48.0, Lng: 2.00025}
	if got := ix.Locate(p); got != 0 {
		t.Fatalf("point on edge: got=%d want 0", got)
	}
}

func TestCandidates_MemoisedPerCell(t *testing.T) {
	ix, err := New([]model.Ring{square(55, 37, 1)}, DefaultRes, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := model.GeoPoint{Lat: 55.5, Lng: 37.5}
	first, ok := ix.Candidates(p)
	if !ok || len(first) != 1 {
		t.Fatalf("candidates=%v ok=%v", first, ok)
	}
	if ix.MemoLen() != 1 {
		t.Fatalf("memo len=%d want 1", ix.MemoLen())
	}
	// nudge within the same res-6 cell
	second, _ := ix.Candidates(model.GeoPoint{Lat: 55.5000001, Lng: 37.5000001})
	if ix.MemoLen() != 1 || len(second) != 1 {
		t.Fatalf("expected memo hit, memo len=%d", ix.MemoLen())
	}
}

func TestNew_InvalidResolution(t *testing.T) {
	if _, err := New(nil, -1, 0); err == nil {
		t.Fatalf("expected error for res=-1")
	}
	if _, err := New(nil, 16, 0); err == nil {
		t.Fatalf("expected error for res=16")
	}
}

func TestLocate_EmptyIndex(t *testing.T) {
	ix, err := New(nil, DefaultRes, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := ix.Locate(model.GeoPoint{Lat: 1, Lng: 1}); got != -1 {
		t.Fatalf("got=%d want -1", got)
	}
}

func TestLocate_PolarPointsScanEveryRing(t *testing.T) {
	rings := []model.Ring{
		{{Lat: 85.5, Lng: -5}, {Lat: 85.5, Lng: 5}, {Lat: 89.9, Lng: 5}, {Lat: 89.9, Lng: -5}},
		{{Lat: -89.9, Lng: 170}, {Lat: -89.9, Lng: 175}, {Lat: -85.5, Lng: 175}, {Lat: -85.5, Lng: 170}},
	}
	ix, err := New(rings, DefaultRes, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, tc := range []struct {
		p    model.GeoPoint
		want int
	}{
		{model.GeoPoint{Lat: 89.8, Lng: 0}, 0},
		{model.GeoPoint{Lat: -89.8, Lng: 172}, 1},
		{model.GeoPoint{Lat: 89.8, Lng: 90}, -1},
	} {
		if _, ok := ix.Candidates(tc.p); ok {
			t.Fatalf("Candidates(%v) must defer to a full scan", tc.p)
		}
		if got := ix.Locate(tc.p); got != tc.want {
			t.Fatalf("Locate(%v)=%d want %d", tc.p, got, tc.want)
		}
	}
	if ix.MemoLen() != 0 {
		t.Fatalf("polar lookups must not be memoised")
	}
}
