package world

import "github.com/satorunet/onj-jintori/internal/sim/world/logic/trail"

// headOn decides a same-cell meeting. Below the small threshold the lower score loses;
// equal scores, or both at/above the threshold, eliminate both.
func headOn(a, b, small int) (aDies, bDies bool) {
	if (a < small || b < small) && a != b {
		return a < b, b < a
	}
	return true, true
}

// resolveCollisions checks mover a, now at cell (gx,gy), against every other eligible
// agent in id order. A head-on meeting ends the check for a.
func (w *World) resolveCollisions(a *Agent, gx, gy int, now int64) {
	cut := w.tu.Combat.TrailCutRadius * w.tu.Combat.TrailCutRadius
	for _, id := range w.order {
		t := w.agents[id]
		if t == nil || t.ID == a.ID || t.State != AgentActive || teammates(a, t) || t.invulnerable(now) {
			continue
		}
		if w.grid.ToGrid(t.X) == gx && w.grid.ToGrid(t.Y) == gy {
			aDies, tDies := headOn(a.Score, t.Score, w.tu.Combat.SmallScoreThreshold)
			switch {
			case aDies && tDies:
				w.kill(a, t.ID, "head-on", false, now)
				w.kill(t, a.ID, "head-on", false, now)
			case aDies:
				t.Kills++
				w.kill(a, t.ID, "head-on", false, now)
			default:
				a.Kills++
				w.kill(t, a.ID, "head-on", false, now)
			}
			return
		}
		if len(t.PixelTrail) > 0 && trail.Touches(t.PixelTrail, t.X, t.Y, a.X, a.Y, cut) {
			w.cutTrail(a, t, now)
		}
	}
}

// cutTrail eliminates victim without wiping; the cutter takes every victim cell.
func (w *World) cutTrail(cutter, victim *Agent, now int64) {
	if victim.State != AgentActive {
		return
	}
	// Cells move before the kill: a kill that drops the victim wipes what it owns.
	stolen := w.grid.Transfer(victim.ID, cutter.ID)
	cutter.Score += stolen
	cutter.Kills++
	w.rebuildRects()
	w.audit(AuditEntry{Actor: cutter.ID, Action: "STEAL", Target: victim.ID, Cells: stolen, Pos: [2]int{int(cutter.X), int(cutter.Y)}})
	w.kill(victim, cutter.ID, "trail-cut", true, now)
}
