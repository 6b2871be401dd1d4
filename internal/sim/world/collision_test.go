package world

import (
	"testing"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world/logic/trail"
)

func TestHeadOnRule(t *testing.T) {
	cases := []struct {
		a, b         int
		aDies, bDies bool
	}{
		{50, 30, false, true},
		{30, 50, true, false},
		{100, 50, false, true},
		{30, 30, true, true},
		{100, 100, true, true},
		{150, 120, true, true},
	}
	for _, tc := range cases {
		aDies, bDies := headOn(tc.a, tc.b, 100)
		if aDies != tc.aDies || bDies != tc.bDies {
			t.Fatalf("headOn(%d,%d) = %v,%v want %v,%v", tc.a, tc.b, aDies, bDies, tc.aDies, tc.bDies)
		}
	}
}

func TestHeadOnLowerScoreDies(t *testing.T) {
	w := newTestWorld(t, nil)
	ca := connectAndJoin(t, w, "a")
	cb := connectAndJoin(t, w, "b")
	a, b := w.agents[ca.id], w.agents[cb.id]
	a.Score, b.Score = 50, 30
	a.InvulnerableUntil, b.InvulnerableUntil = 0, 0
	b.X, b.Y = a.X, a.Y
	ax, ay := a.X, a.Y

	w.resolveCollisions(a, w.grid.ToGrid(a.X), w.grid.ToGrid(a.Y), w.nowMS())
	if b.State != AgentDead || a.State != AgentActive {
		t.Fatalf("states: a=%v b=%v", a.State, b.State)
	}
	if a.X != ax || a.Y != ay || a.Score != 50 {
		t.Fatalf("survivor changed: pos=(%v,%v) score=%d", a.X, a.Y, a.Score)
	}
	if a.Kills != 1 {
		t.Fatalf("kills: %d", a.Kills)
	}
	if w.grid.CountOwned(cb.id) != 0 {
		t.Fatalf("loser territory not wiped")
	}
}

func TestTrailCutTransfersTerritory(t *testing.T) {
	w := newTestWorld(t, nil)
	ca := connectAndJoin(t, w, "a")
	cb := connectAndJoin(t, w, "b")
	a, b := w.agents[ca.id], w.agents[cb.id]
	a.InvulnerableUntil, b.InvulnerableUntil = 0, 0
	victimCells := w.grid.CountOwned(cb.id)

	b.PixelTrail = []trail.Pixel{{X: 500, Y: 500}, {X: 600, Y: 500}}
	b.X, b.Y = 650, 500
	a.X, a.Y = 625, 508

	w.resolveCollisions(a, w.grid.ToGrid(a.X), w.grid.ToGrid(a.Y), w.nowMS())
	if b.State != AgentDead || a.Kills != 1 {
		t.Fatalf("cut: b=%v kills=%d", b.State, a.Kills)
	}
	if w.grid.CountOwned(cb.id) != 0 {
		t.Fatalf("victim kept cells")
	}
	if got := w.grid.CountOwned(ca.id); got != a.Score || got < victimCells {
		t.Fatalf("cutter cells=%d score=%d victim had %d", got, a.Score, victimCells)
	}
}

func TestTrailCutOnAFKVictimStillTransfers(t *testing.T) {
	w := newTestWorld(t, nil)
	ca := connectAndJoin(t, w, "a")
	cb := connectAndJoin(t, w, "b")
	a, b := w.agents[ca.id], w.agents[cb.id]
	a.InvulnerableUntil, b.InvulnerableUntil = 0, 0
	b.AutoRun = true
	b.MovedSinceSpawn = false
	b.AFKDeaths = w.tu.Lifecycle.AFKDeathLimit - 1
	victimCells := w.grid.CountOwned(cb.id)
	cutterCells := w.grid.CountOwned(ca.id)

	b.PixelTrail = []trail.Pixel{{X: 500, Y: 500}, {X: 600, Y: 500}}
	b.X, b.Y = 650, 500
	a.X, a.Y = 625, 508

	w.resolveCollisions(a, w.grid.ToGrid(a.X), w.grid.ToGrid(a.Y), w.nowMS())
	if _, ok := w.agents[cb.id]; ok {
		t.Fatalf("victim at the AFK limit was not dropped")
	}
	select {
	case code := <-cb.close:
		if code != protocol.CloseAFKTimeout {
			t.Fatalf("close code: %d", code)
		}
	default:
		t.Fatalf("victim connection not closed")
	}
	if got := w.grid.CountOwned(ca.id); got != cutterCells+victimCells || a.Kills != 1 {
		t.Fatalf("cutter cells=%d want %d kills=%d", got, cutterCells+victimCells, a.Kills)
	}
}

func TestTeammatesDoNotCollide(t *testing.T) {
	w := newTestWorld(t, nil)
	ca := connectAndJoin(t, w, "a")
	cb := connectAndJoin(t, w, "b")
	a, b := w.agents[ca.id], w.agents[cb.id]
	a.Team, b.Team = "RED", "RED"
	a.InvulnerableUntil, b.InvulnerableUntil = 0, 0
	b.X, b.Y = a.X, a.Y

	w.resolveCollisions(a, w.grid.ToGrid(a.X), w.grid.ToGrid(a.Y), w.nowMS())
	if a.State != AgentActive || b.State != AgentActive {
		t.Fatalf("teammates collided: a=%v b=%v", a.State, b.State)
	}
}
