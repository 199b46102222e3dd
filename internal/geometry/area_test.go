package geometry

import (
	"math"
	"testing"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
)

func TestRecompute_EmptySetIsZero(t *testing.T) {
	m := Recompute(nil)
	if m.SquareMeters != 0 || m.LengthMeters != 0 {
		t.Fatalf("got=%+v want zero", m)
	}
	if got := m.Formatted(); got != "0.00" {
		t.Fatalf("formatted=%q want 0.00", got)
	}
}

func TestRecompute_SquareNearEquator(t *testing.T) {
	// 0.01 deg on a 6378137 m sphere is ~1113.2 m, so ~123.9 ha
	m := Recompute([]model.Ring{square(0, 0, 0.01)})
	ha := m.Hectares()
	if ha < 123.5 || ha > 124.3 {
		t.Fatalf("hectares=%f want ~123.9", ha)
	}
}

func TestRecompute_SumsPolygonsAndIgnoresClosure(t *testing.T) {
	a := square(0, 0, 0.01)
	one := Recompute([]model.Ring{a}).SquareMeters
	two := Recompute([]model.Ring{a, a.Closed()}).SquareMeters
	if math.Abs(two-2*one) > 1e-6 {
		t.Fatalf("sum=%f want %f", two, 2*one)
	}
}

func TestRecompute_DegenerateContributions(t *testing.T) {
	point := model.Ring{{Lat: 1, Lng: 1}}
	line := model.Ring{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.01}}

	m := Recompute([]model.Ring{point, line})
	if m.SquareMeters != 0 {
		t.Fatalf("degenerate rings must not contribute area, got %f", m.SquareMeters)
	}
	if m.LengthMeters < 1100 || m.LengthMeters > 1125 {
		t.Fatalf("length=%f want ~1113", m.LengthMeters)
	}
}

func TestRecompute_DoesNotMutateInput(t *testing.T) {
	r := square(5, 5, 1)
	before := r.Clone()
	_ = Recompute([]model.Ring{r})
	if len(r) != len(before) {
		t.Fatalf("input ring length changed")
	}
	for i := range r {
		if r[i] != before[i] {
			t.Fatalf("input ring vertex %d changed", i)
		}
	}
}

func TestFormatHectares(t *testing.T) {
	cases := map[float64]string{
		0:          "0.00",
		1.005:      "1.00",
		12345.678:  "12345.68",
		1234567.89: "1234567.89",
	}
	for in, want := range cases {
		if got := FormatHectares(in); got != want {
			t.Fatalf("FormatHectares(%v)=%q want %q", in, got, want)
		}
	}
}
