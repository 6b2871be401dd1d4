package world

import (
	"github.com/satorunet/onj-jintori/internal/sim/world/logic/capture"
)

// capture closes a's loop: reassigns enclosed cells, charges prior owners, and
// eliminates enemies standing on captured cells.
func (w *World) capture(a *Agent, now int64) {
	res := capture.Apply(w.grid, capture.Input{
		Owner:          a.ID,
		Friendly:       func(o uint16) bool { return w.friendly(a, o) },
		Trail:          a.Trail,
		SmallIslandMax: w.tu.Capture.SmallIslandMax,
	})
	a.clearTrail()
	if len(res.Captured) == 0 {
		return
	}
	for owner, n := range res.Losses {
		if o := w.agents[owner]; o != nil {
			o.Score -= n
			if o.Score < 0 {
				o.Score = 0
			}
		}
	}
	a.Score += len(res.Captured)
	w.rebuildRects()
	w.audit(AuditEntry{Actor: a.ID, Action: "CAPTURE", Cells: len(res.Captured), Pos: [2]int{int(a.X), int(a.Y)}})

	captured := make(map[int]struct{}, len(res.Captured))
	for _, i := range res.Captured {
		captured[i] = struct{}{}
	}
	var victims []*Agent
	for _, id := range w.order {
		t := w.agents[id]
		if t == nil || t.ID == a.ID || t.State != AgentActive || teammates(a, t) {
			continue
		}
		gx, gy := w.grid.ToGrid(t.X), w.grid.ToGrid(t.Y)
		if !w.grid.InBounds(gx, gy) {
			continue
		}
		if _, ok := captured[w.grid.Index(gx, gy)]; ok {
			victims = append(victims, t)
		}
	}
	if len(victims) == 0 {
		return
	}
	for _, t := range victims {
		w.kill(t, a.ID, "enclosed", false, now)
		a.Kills++
	}
	w.rebuildRects()
}
