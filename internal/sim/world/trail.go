package world

import (
	"github.com/satorunet/onj-jintori/internal/sim/world/logic/trail"
	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
)

// advanceTrail updates a's trail after it moved from cell (pgx,pgy) to (gx,gy).
// Standing on self/team territory closes the loop; anywhere else extends the trail.
func (w *World) advanceTrail(a *Agent, pgx, pgy, gx, gy int, now int64) {
	owner := w.grid.OwnerAt(gx, gy)
	if owner != grid.Obstacle && w.friendly(a, owner) {
		if len(a.Trail) > 0 {
			w.capture(a, now)
		}
		a.clearTrail()
		return
	}

	if len(a.Trail) == 0 && w.grid.InBounds(pgx, pgy) && w.grid.OwnerAt(pgx, pgy) == a.ID {
		a.Trail = append(a.Trail, grid.Point{X: pgx, Y: pgy})
		cx, cy := w.grid.Center(pgx, pgy)
		a.PixelTrail = append(a.PixelTrail, trail.Pixel{X: cx, Y: cy})
	}

	cur := grid.Point{X: gx, Y: gy}
	if len(a.Trail) == 0 {
		a.Trail = append(a.Trail, cur)
		a.PixelTrail = append(a.PixelTrail, trail.Pixel{X: a.X, Y: a.Y})
		return
	}
	if a.Trail[len(a.Trail)-1] == cur {
		return
	}
	c := w.tu.Combat
	if trail.SelfHit(a.PixelTrail, a.X, a.Y, c.SelfHitSkip, c.SelfHitRadius*c.SelfHitRadius) {
		w.kill(a, 0, "self-destruct", false, now)
		return
	}
	a.Trail = trail.Extend(a.Trail, cur)
	a.PixelTrail = append(a.PixelTrail, trail.Pixel{X: a.X, Y: a.Y})
}
