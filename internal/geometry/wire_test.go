package geometry

import (
	"testing"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
)

func TestFormatWire_LngLatOrder(t *testing.T) {
	r := model.Ring{
		{Lat: 55.75, Lng: 37.61},
		{Lat: 55.76, Lng: 37.62},
		{Lat: 55.75, Lng: 37.63},
	}
	want := "[37.61, 55.75; 37.62, 55.76; 37.63, 55.75]"
	if got := FormatWire(r); got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
	if got := FormatWire(r.Closed()); got != want {
		t.Fatalf("closed ring: got=%q want=%q", got, want)
	}
}

func TestFormatWire_Empty(t *testing.T) {
	if got := FormatWire(nil); got != "[]" {
		t.Fatalf("got=%q want []", got)
	}
}
