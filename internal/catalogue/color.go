package catalogue

import (
	"fmt"
	"math"
	"strconv"
)

type Color struct {
	R, G, B uint8
}

var (
	OldestColor = Color{R: 255}
	NewestColor = Color{B: 255}
)

func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// ColorForYear interpolates linearly from OldestColor at minYear to
// NewestColor at maxYear. Equal bounds yield NewestColor; years outside
// the range are clamped.
func ColorForYear(year, minYear, maxYear int) Color {
	if minYear == maxYear {
		return NewestColor
	}
	f := float64(year-minYear) / float64(maxYear-minYear)
	f = math.Max(0, math.Min(1, f))
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + f*(float64(b)-float64(a))))
	}
	return Color{
		R: lerp(OldestColor.R, NewestColor.R),
		G: lerp(OldestColor.G, NewestColor.G),
		B: lerp(OldestColor.B, NewestColor.B),
	}
}

// Legend describes the year gradient of the visible footprints.
type Legend struct {
	MinYear  int    `json:"minYear"`
	MaxYear  int    `json:"maxYear"`
	MinLabel string `json:"minLabel"`
	MaxLabel string `json:"maxLabel"`
	From     string `json:"from"`
	To       string `json:"to"`
	Gradient string `json:"gradient"`
}

func NewLegend(minYear, maxYear int) Legend {
	from := ColorForYear(minYear, minYear, maxYear)
	to := ColorForYear(maxYear, minYear, maxYear)
	return Legend{
		MinYear:  minYear,
		MaxYear:  maxYear,
		MinLabel: strconv.Itoa(minYear),
		MaxLabel: strconv.Itoa(maxYear),
		From:     from.String(),
		To:       to.String(),
		Gradient: fmt.Sprintf("linear-gradient(to right, %s, %s)", from, to),
	}
}

// YearLabel is the hover text of a footprint.
func YearLabel(year int) string {
	return "Survey year: " + strconv.Itoa(year)
}
