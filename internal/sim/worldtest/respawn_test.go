package worldtest

import (
	"testing"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/tuning"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

func noObstacles() world.WorldConfig {
	tu := tuning.Defaults()
	tu.World.ObstaclesMin, tu.World.ObstaclesMax = 0, 0
	return world.WorldConfig{ID: "test", Seed: 7, Tuning: tu}
}

func TestWallDeathThenRespawn(t *testing.T) {
	h := NewHarness(t, noObstacles())
	id := h.Join("ann", "")
	watcher := h.Connect("watcher")

	// Head east until the wall.
	h.Steer(id, 0, false)
	h.StepUntil(800, func() bool { return h.Agent(id).State == world.AgentDead })

	a := h.Agent(id)
	if a.Score != 0 || len(a.Trail) != 0 {
		t.Fatalf("dead agent keeps score=%d trail=%d", a.Score, len(a.Trail))
	}
	for _, sid := range []uint16{id, watcher} {
		deaths := h.Deaths(sid)
		if len(deaths) != 1 || deaths[0].ID != id || deaths[0].Reason != "wall" || deaths[0].Killer != 0 {
			t.Fatalf("session %d deaths: %+v", sid, deaths)
		}
	}

	respawnTicks := h.W.Tuning().Lifecycle.RespawnMs / h.W.Tuning().TickDurationMs
	n := h.StepUntil(respawnTicks+5, func() bool { return h.Agent(id).State == world.AgentActive })
	if n < respawnTicks-1 {
		t.Fatalf("respawned after %d ticks, want about %d", n, respawnTicks)
	}
	a = h.Agent(id)
	if a.Score != 49 {
		t.Fatalf("respawn territory: %d", a.Score)
	}
	if h.CloseCode(id) != 0 {
		t.Fatalf("unexpected close %d", h.CloseCode(id))
	}
}

func TestIdleDeathsCloseConnection(t *testing.T) {
	h := NewHarness(t, noObstacles())
	id := h.Join("idle", "")
	limit := h.W.Tuning().Lifecycle.AFKDeathLimit
	maxTicks := limit * 2000

	h.StepUntil(maxTicks, func() bool {
		_, ok := h.W.Agent(id)
		return !ok
	})
	if got := h.CloseCode(id); got != protocol.CloseAFKTimeout {
		t.Fatalf("close code: %d", got)
	}
	if deaths := h.Deaths(id); len(deaths) != limit {
		t.Fatalf("deaths before kick: %d want %d", len(deaths), limit)
	}
}

func TestBroadcastShowsSelfAndTerritory(t *testing.T) {
	h := NewHarness(t, noObstacles())
	id := h.Join("ann", "")
	h.Broadcast()
	st := h.LastState(id)
	if st.TerritoryVersion != h.W.TerritoryVersion() || len(st.TerritoryFull) == 0 {
		t.Fatalf("first frame: tv=%d full=%d", st.TerritoryVersion, len(st.TerritoryFull))
	}
	var self bool
	for _, p := range st.Players {
		if p.ID == id {
			self = true
		}
	}
	if !self {
		t.Fatalf("self missing from %+v", st.Players)
	}
}
