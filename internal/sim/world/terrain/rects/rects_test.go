package rects

import (
	"testing"

	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
)

func fill(g *grid.Grid, owner uint16, x0, y0, x1, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			g.SetOwner(x, y, owner)
		}
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	g := grid.New(100, 10)
	fill(g, 1, 0, 0, 4, 2)
	fill(g, 2, 5, 1, 9, 1)
	ix := NewIndex(10)
	d, changed := ix.Rebuild(g, nil)
	if !changed || len(d.Added) != 4 {
		t.Fatalf("first rebuild: changed=%v added=%d", changed, len(d.Added))
	}
	v := ix.Version()
	d, changed = ix.Rebuild(g, nil)
	if changed || len(d.Added) != 0 || len(d.Removed) != 0 {
		t.Fatalf("second rebuild changed: %+v", d)
	}
	if ix.Version() != v {
		t.Fatalf("version moved: %d -> %d", v, ix.Version())
	}
}

func TestRebuildRowRuns(t *testing.T) {
	g := grid.New(100, 10)
	fill(g, 1, 0, 0, 2, 0)
	fill(g, 2, 3, 0, 3, 0)
	fill(g, 1, 4, 0, 5, 0)
	ix := NewIndex(10)
	ix.Rebuild(g, nil)
	rs := ix.Rects()
	if len(rs) != 3 {
		t.Fatalf("rects=%d", len(rs))
	}
	if rs[0] != (Rect{Owner: 1, X: 0, Y: 0, W: 30, H: 10}) {
		t.Fatalf("rect0=%+v", rs[0])
	}
	if rs[2].X != 40 || rs[2].W != 20 {
		t.Fatalf("rect2=%+v", rs[2])
	}
}

func TestRebuildClearsDeadOwners(t *testing.T) {
	g := grid.New(100, 10)
	fill(g, 7, 0, 0, 3, 0)
	ix := NewIndex(10)
	ix.Rebuild(g, func(o uint16) bool { return o != 7 })
	if len(ix.Rects()) != 0 {
		t.Fatalf("dead owner rects kept")
	}
	if g.CountOwned(7) != 0 {
		t.Fatalf("dead owner cells not cleared")
	}
}

func TestDiffOwnerChange(t *testing.T) {
	g := grid.New(100, 10)
	fill(g, 1, 0, 0, 3, 0)
	ix := NewIndex(10)
	ix.Rebuild(g, nil)
	fill(g, 2, 0, 0, 3, 0)
	d, changed := ix.Rebuild(g, nil)
	if !changed || len(d.Added) != 1 || len(d.Removed) != 1 {
		t.Fatalf("diff=%+v", d)
	}
	if d.Added[0].Owner != 2 || d.Removed[0] != (Key{0, 0}) {
		t.Fatalf("diff contents=%+v", d)
	}
}

func TestHistoryCapAndSince(t *testing.T) {
	g := grid.New(200, 10)
	ix := NewIndex(3)
	base := ix.Version()
	for i := 0; i < 5; i++ {
		g.SetOwner(i, 0, 1)
		g.SetOwner(i, 5, 2)
		ix.Rebuild(g, nil)
	}
	if ix.Version() != base+5 {
		t.Fatalf("version=%d", ix.Version())
	}
	if _, _, ok := ix.Since(base); ok {
		t.Fatalf("history should not cover version %d", base)
	}
	added, removed, ok := ix.Since(ix.Version() - 2)
	if !ok {
		t.Fatalf("recent delta not covered")
	}
	if len(added) != 2 || len(removed) != 0 {
		t.Fatalf("added=%d removed=%d", len(added), len(removed))
	}
	for _, r := range added {
		if r.W != 50 {
			t.Fatalf("merged delta must carry current rect, got %+v", r)
		}
	}
	if a, r, ok := ix.Since(ix.Version()); !ok || a != nil || r != nil {
		t.Fatalf("up-to-date delta not empty")
	}
}

func TestResetForcesFullSync(t *testing.T) {
	g := grid.New(100, 10)
	fill(g, 1, 0, 0, 1, 1)
	ix := NewIndex(10)
	ix.Rebuild(g, nil)
	v := ix.Version()
	ix.Reset()
	if ix.Version() != v+1 || len(ix.Rects()) != 0 {
		t.Fatalf("reset: version=%d rects=%d", ix.Version(), len(ix.Rects()))
	}
	if _, _, ok := ix.Since(v); ok {
		t.Fatalf("Since(%d) after reset should require a full snapshot", v)
	}
}
