package world

import (
	"testing"

	"github.com/satorunet/onj-jintori/internal/protocol"
)

func TestClosingLoopCapturesEnclosedCells(t *testing.T) {
	w := newTestWorld(t, nil)
	c := connectAndJoin(t, w, "alice")
	a := w.agents[c.id]
	a.InvulnerableUntil = 0

	cx, cy := w.grid.Cols/2, w.grid.Rows/2
	w.grid.Wipe(a.ID)
	a.Score = 0
	a.X, a.Y = w.grid.Center(cx, cy)
	w.claimStart(a)
	w.rebuildRects()
	if a.Score != 49 {
		t.Fatalf("start score: %d", a.Score)
	}

	walk := func(gx, gy int) {
		pgx, pgy := w.grid.ToGrid(a.X), w.grid.ToGrid(a.Y)
		a.X, a.Y = w.grid.Center(gx, gy)
		w.advanceTrail(a, pgx, pgy, gx, gy, w.nowMS())
	}
	walk(cx+1, cy)
	walk(cx+2, cy)
	walk(cx+3, cy)
	for x := cx + 4; x <= cx+6; x++ {
		walk(x, cy)
	}
	if len(a.Trail) != 4 {
		t.Fatalf("trail after leaving: %v", a.Trail)
	}
	for y := cy + 1; y <= cy+5; y++ {
		walk(cx+6, y)
	}
	for x := cx + 5; x >= cx; x-- {
		walk(x, cy+5)
	}
	walk(cx, cy+4)
	if a.State != AgentActive {
		t.Fatalf("agent died while drawing: %v", a.State)
	}
	v := w.rects.Version()
	walk(cx, cy+3)

	if len(a.Trail) != 0 || len(a.PixelTrail) != 0 {
		t.Fatalf("trail not cleared after capture")
	}
	// 15 trail cells plus 11 enclosed cells.
	if got := w.grid.CountOwned(a.ID); got != 75 || a.Score != 75 {
		t.Fatalf("after capture: cells=%d score=%d", got, a.Score)
	}
	if w.grid.OwnerAt(cx+5, cy+2) != a.ID || w.grid.OwnerAt(cx+2, cy+4) != a.ID {
		t.Fatalf("interior not captured")
	}
	if w.grid.OwnerAt(cx+7, cy+2) != 0 {
		t.Fatalf("outside cell captured")
	}
	if w.rects.Version() <= v {
		t.Fatalf("rect version did not advance")
	}
}

// drawSquareLoop resets a to a 7x7 start block at the grid centre and walks a loop
// out of its east edge and back in through its south edge.
func drawSquareLoop(t *testing.T, w *World, a *Agent) (cx, cy int) {
	t.Helper()
	cx, cy = w.grid.Cols/2, w.grid.Rows/2
	w.grid.Wipe(a.ID)
	a.Score = 0
	a.X, a.Y = w.grid.Center(cx, cy)
	w.claimStart(a)
	w.rebuildRects()

	walk := func(gx, gy int) {
		pgx, pgy := w.grid.ToGrid(a.X), w.grid.ToGrid(a.Y)
		a.X, a.Y = w.grid.Center(gx, gy)
		w.advanceTrail(a, pgx, pgy, gx, gy, w.nowMS())
	}
	for x := cx + 1; x <= cx+6; x++ {
		walk(x, cy)
	}
	for y := cy + 1; y <= cy+5; y++ {
		walk(cx+6, y)
	}
	for x := cx + 5; x >= cx; x-- {
		walk(x, cy+5)
	}
	walk(cx, cy+4)
	walk(cx, cy+3)
	if len(a.Trail) != 0 {
		t.Fatalf("loop did not close: trail=%v", a.Trail)
	}
	return cx, cy
}

// parkInside moves b's territory to a far corner and stands it on a cell the loop
// drawn by drawSquareLoop encloses.
func parkInside(w *World, b *Agent) {
	w.grid.Wipe(b.ID)
	b.Score = 0
	b.X, b.Y = w.grid.Center(5, 5)
	w.claimStart(b)
	w.rebuildRects()
	cx, cy := w.grid.Cols/2, w.grid.Rows/2
	b.X, b.Y = w.grid.Center(cx+5, cy+2)
}

func TestCaptureEliminatesEnemyInside(t *testing.T) {
	w := newTestWorld(t, nil)
	ca := connectAndJoin(t, w, "alice")
	cb := connectAndJoin(t, w, "bob")
	a, b := w.agents[ca.id], w.agents[cb.id]
	a.InvulnerableUntil = 0
	parkInside(w, b)
	if w.grid.CountOwned(b.ID) == 0 {
		t.Fatalf("bob has no territory to lose")
	}

	cx, cy := drawSquareLoop(t, w, a)
	if w.grid.OwnerAt(cx+5, cy+2) != a.ID {
		t.Fatalf("cell under bob not captured")
	}
	if b.State != AgentDead || a.Kills != 1 {
		t.Fatalf("enclosed enemy: state=%v kills=%d", b.State, a.Kills)
	}
	if got := w.grid.CountOwned(b.ID); got != 0 {
		t.Fatalf("victim kept %d cells", got)
	}
	for _, r := range w.rects.Rects() {
		if r.Owner == b.ID {
			t.Fatalf("victim rect survived rebuild: %+v", r)
		}
	}
	deaths := drain[protocol.DeathMsg](t, cb.out, protocol.TypeDeath)
	if len(deaths) != 1 || deaths[0].Killer != a.ID || deaths[0].Reason != "enclosed" {
		t.Fatalf("death messages: %+v", deaths)
	}
}

func TestCaptureSparesTeammateInside(t *testing.T) {
	w := newTestWorld(t, nil)
	ca := connectAndJoin(t, w, "alice")
	cb := connectAndJoin(t, w, "bob")
	a, b := w.agents[ca.id], w.agents[cb.id]
	a.InvulnerableUntil = 0
	a.Team, b.Team = "RED", "RED"
	parkInside(w, b)
	bobCells := w.grid.CountOwned(b.ID)

	drawSquareLoop(t, w, a)
	if b.State != AgentActive || a.Kills != 0 {
		t.Fatalf("teammate inside: state=%v kills=%d", b.State, a.Kills)
	}
	if got := w.grid.CountOwned(b.ID); got != bobCells {
		t.Fatalf("teammate cells: %d want %d", got, bobCells)
	}
}
