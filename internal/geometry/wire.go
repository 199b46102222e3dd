package geometry

import (
	"strconv"
	"strings"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
)

// FormatWire renders the ring as "[x1, y1; x2, y2; ...]" in (lng, lat)
// order, the shape expected by the cost and basket endpoints. The ring is
// written open, as drawn.
func FormatWire(r model.Ring) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range r.Open() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(formatCoord(p.Lng))
		b.WriteString(", ")
		b.WriteString(formatCoord(p.Lat))
	}
	b.WriteByte(']')
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
