package model

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a planar position in the backend coordinate system, in metres.
type Point = r2.Vec

// Dist returns the straight-line distance between a and b.
func Dist(a, b Point) float64 { return r2.Norm(r2.Sub(a, b)) }

// Dist2 returns the squared straight-line distance between a and b.
func Dist2(a, b Point) float64 { return r2.Norm2(r2.Sub(a, b)) }

// Manhattan returns |dx| + |dy|.
func Manhattan(a, b Point) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

// Colour is an RGBA display colour used for cosmetic annotations.
type Colour struct {
	R, G, B, A uint8
}

var (
	ColourRed   = Colour{R: 255, A: 255}
	ColourGreen = Colour{G: 255, A: 255}
	ColourBlue  = Colour{B: 255, A: 255}
)
