// Package trail turns continuous movement into a 4-connected cell path.
package trail

import (
	"github.com/satorunet/onj-jintori/internal/sim/world/logic/mathx"
	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
)

type Pixel struct {
	X float64
	Y float64
}

// Extend appends the cells between the tail of cells and to, inserting a corner cell
// before every diagonal step. Duplicates of the current tail are skipped.
func Extend(cells []grid.Point, to grid.Point) []grid.Point {
	if len(cells) == 0 {
		return append(cells, to)
	}
	last := cells[len(cells)-1]
	dx, dy := to.X-last.X, to.Y-last.Y
	steps := mathx.MaxInt(mathx.AbsInt(dx), mathx.AbsInt(dy))
	for i := 1; i <= steps; i++ {
		ix := last.X + mathx.RoundHalfUp(float64(dx*i)/float64(steps))
		iy := last.Y + mathx.RoundHalfUp(float64(dy*i)/float64(steps))
		prev := cells[len(cells)-1]
		if ix == prev.X && iy == prev.Y {
			continue
		}
		if ix != prev.X && iy != prev.Y {
			cells = append(cells, grid.Point{X: ix, Y: prev.Y})
		}
		cells = append(cells, grid.Point{X: ix, Y: iy})
	}
	return cells
}

// SelfHit reports whether (x,y) comes within sqrt(radiusSq) of the pixel trail, ignoring
// the newest skip points so the head never collides with its own neck.
func SelfHit(pix []Pixel, x, y float64, skip int, radiusSq float64) bool {
	if len(pix) <= skip {
		return false
	}
	for i := 0; i < len(pix)-skip; i++ {
		if i+1 >= len(pix) {
			break
		}
		a, b := pix[i], pix[i+1]
		if mathx.DistSqToSegment(x, y, a.X, a.Y, b.X, b.Y) < radiusSq {
			return true
		}
	}
	return false
}

// Touches reports whether (x,y) is within sqrt(radiusSq) of the trail polyline or of the
// open segment from its tail to the owner's head at (hx,hy).
func Touches(pix []Pixel, hx, hy, x, y, radiusSq float64) bool {
	if len(pix) == 0 {
		return false
	}
	for i := 0; i+1 < len(pix); i++ {
		a, b := pix[i], pix[i+1]
		if mathx.DistSqToSegment(x, y, a.X, a.Y, b.X, b.Y) < radiusSq {
			return true
		}
	}
	tail := pix[len(pix)-1]
	return mathx.DistSqToSegment(x, y, tail.X, tail.Y, hx, hy) < radiusSq
}
