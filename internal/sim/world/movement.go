package world

import "math"

// moveAgent advances one active agent by a tick: heading, position, deaths by wall or
// obstacle, interactions with others, then trail bookkeeping.
func (w *World) moveAgent(a *Agent, now int64) {
	if a.State != AgentActive {
		return
	}
	mv := w.tu.Movement
	if !a.MovedSinceSpawn && !a.AutoRun && now-a.SpawnAt > int64(mv.AFKAutoRunMs) {
		ang := w.rng.Float64() * 2 * math.Pi
		a.DX, a.DY = math.Cos(ang), math.Sin(ang)
		a.AutoRun = true
		a.InvulnerableUntil = 0
	}

	prevGX, prevGY := w.grid.ToGrid(a.X), w.grid.ToGrid(a.Y)
	speed := mv.Speed
	if a.boosting(now) {
		speed *= mv.BoostMultiplier
	}
	dt := float64(w.tu.TickDurationMs) / 1000
	nx := a.X + a.DX*speed*dt
	ny := a.Y + a.DY*speed*dt

	size := float64(w.grid.WorldSize)
	if nx < 0 || nx >= size || ny < 0 || ny >= size {
		w.kill(a, 0, "wall", false, now)
		return
	}
	invuln := a.invulnerable(now)
	gx, gy := w.grid.ToGrid(nx), w.grid.ToGrid(ny)
	if !invuln && w.grid.IsObstacle(gx, gy) {
		w.kill(a, 0, "obstacle", false, now)
		return
	}
	a.X, a.Y = nx, ny

	if !invuln {
		w.resolveCollisions(a, gx, gy, now)
	}
	if a.State != AgentActive {
		return
	}
	w.advanceTrail(a, prevGX, prevGY, gx, gy, now)
}
