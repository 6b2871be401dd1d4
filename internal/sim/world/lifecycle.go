package world

import (
	"math"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world/logic/mathx"
	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
)

// kill eliminates an active agent. Its territory is wiped unless skipWipe, in which
// case the caller reassigns it. Agents that died without ever steering count toward
// the AFK limit and are dropped once they reach it.
func (w *World) kill(a *Agent, killer uint16, reason string, skipWipe bool, now int64) {
	if a.State != AgentActive {
		return
	}
	a.State = AgentDead
	a.DX, a.DY = 0, 0
	a.clearTrail()
	a.Score = 0
	if !skipWipe && w.grid.Wipe(a.ID) > 0 {
		w.rebuildRects()
	}
	if b, err := protocol.Encode(protocol.DeathMsg{Type: protocol.TypeDeath, ID: a.ID, Killer: killer, Reason: reason}); err == nil {
		w.broadcastAll(b)
	}
	w.audit(AuditEntry{Actor: killer, Action: "DEATH", Target: a.ID, Pos: [2]int{int(a.X), int(a.Y)}, Reason: reason})
	if killer != 0 {
		w.audit(AuditEntry{Actor: killer, Action: "KILL", Target: a.ID, Reason: reason})
	}

	if !a.MovedSinceSpawn {
		a.AFKDeaths++
		if a.AFKDeaths >= w.tu.Lifecycle.AFKDeathLimit {
			w.kick(a, protocol.CloseAFKTimeout)
			return
		}
	} else {
		a.AFKDeaths = 0
	}
	a.RespawnAt = now + int64(w.tu.Lifecycle.RespawnMs)
}

func (w *World) respawnDue(now int64) {
	for _, id := range w.order {
		a := w.agents[id]
		if a != nil && a.State == AgentDead && a.Joined && now >= a.RespawnAt {
			w.respawn(a, false, now)
		}
	}
}

// respawn activates a at a safe spot with a fresh starting territory.
func (w *World) respawn(a *Agent, fullReset bool, now int64) {
	lc := w.tu.Lifecycle
	a.State = AgentActive
	a.clearTrail()
	a.DX, a.DY = 0, 0
	a.SpawnAt = now
	a.MovedSinceSpawn = false
	a.AutoRun = false
	a.InvulnerableUntil = now + int64(lc.InvulnerableMs)
	a.BoostCooldownUntil = now + int64(lc.SpawnBoostCooldownMs)
	a.BoostUntil = 0
	if fullReset {
		a.Score = 0
		a.Kills = 0
		a.AFKDeaths = 0
	}

	a.X, a.Y = w.spawnSpot(a)
	w.claimStart(a)
	w.rebuildRects()
}

// spawnSpot searches for a point whose surrounding cells hold no obstacle, preferring
// the vicinity of an active teammate for the first half of the attempts.
func (w *World) spawnSpot(a *Agent) (float64, float64) {
	lc := w.tu.Lifecycle
	size := float64(w.grid.WorldSize)
	margin := 100.0
	if size <= 2*margin {
		margin = 0
	}
	var mate *Agent
	if a.Team != "" {
		for _, id := range w.order {
			o := w.agents[id]
			if o.ID != a.ID && o.Team == a.Team && o.State == AgentActive {
				mate = o
				break
			}
		}
	}
	for i := 0; i < lc.SpawnAttempts; i++ {
		var tx, ty float64
		if mate != nil && i < lc.SpawnAttempts/2 {
			ang := w.rng.Float64() * 2 * math.Pi
			dist := 100 + w.rng.Float64()*300
			tx = mathx.Clamp(mate.X+math.Cos(ang)*dist, margin, size-margin)
			ty = mathx.Clamp(mate.Y+math.Sin(ang)*dist, margin, size-margin)
		} else {
			tx = math.Floor(w.rng.Float64()*(size-2*margin) + margin)
			ty = math.Floor(w.rng.Float64()*(size-2*margin) + margin)
		}
		if !w.grid.ObstacleNear(w.grid.ToGrid(tx), w.grid.ToGrid(ty), lc.SpawnClearRadius) {
			return tx, ty
		}
	}
	fx := mathx.Clamp(1000, 0, size-1)
	return fx, fx
}

// claimStart takes the square of cells around a's position, charging prior owners.
func (w *World) claimStart(a *Agent) {
	r := w.tu.Lifecycle.StartTerritoryRadius
	cx, cy := w.grid.ToGrid(a.X), w.grid.ToGrid(a.Y)
	gained := 0
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			gx, gy := cx+dx, cy+dy
			if !w.grid.InBounds(gx, gy) {
				continue
			}
			old := w.grid.OwnerAt(gx, gy)
			switch {
			case old == grid.Obstacle:
			case old == a.ID:
				if a.Score == 0 {
					gained++
				}
			default:
				if o := w.agents[old]; o != nil && old != grid.Empty && o.Score > 0 {
					o.Score--
				}
				w.grid.SetOwner(gx, gy, a.ID)
				gained++
			}
		}
	}
	a.Score += gained
}
