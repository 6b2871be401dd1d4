package capture

import (
	"math/rand"
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

func line(x0, y0, x1, y1 int) []grid.Point {
	var out []grid.Point
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			out = append(out, grid.Point{X: x, Y: y})
		}
	}
	return out
}

func TestLoopEnclosesInterior(t *testing.T) {
	g := grid.New(200, 10)
	fill(g, 1, 2, 2, 4, 4)
	// Leave own block at (4,3), go right to x=8, down, back left, re-enter at (4,6)... approximated
	// by a closed rectangle whose ends touch the own block.
	trail := []grid.Point{{X: 5, Y: 2}, {X: 6, Y: 2}, {X: 7, Y: 2}, {X: 8, Y: 2}, {X: 8, Y: 3}, {X: 8, Y: 4}, {X: 8, Y: 5}, {X: 8, Y: 6}, {X: 7, Y: 6}, {X: 6, Y: 6}, {X: 5, Y: 6}, {X: 4, Y: 6}, {X: 3, Y: 6}, {X: 3, Y: 5}}
	res := Apply(g, Input{Owner: 1, Trail: trail, SmallIslandMax: 10})
	// Interior x 5..7, y 3..5 plus (4,5) plus the trail itself.
	for _, p := range []grid.Point{{X: 6, Y: 4}, {X: 5, Y: 3}, {X: 7, Y: 5}, {X: 4, Y: 5}, {X: 8, Y: 6}, {X: 3, Y: 6}} {
		if g.OwnerAt(p.X, p.Y) != 1 {
			t.Fatalf("cell %v not captured", p)
		}
	}
	if g.OwnerAt(9, 4) != grid.Empty || g.OwnerAt(1, 1) != grid.Empty {
		t.Fatalf("outside cell captured")
	}
	if len(res.Captured) != 9+1+len(trail) {
		t.Fatalf("captured=%d", len(res.Captured))
	}
}

// ringWithForeignBand builds an own ring at x 2..right, y 2..4 whose single interior row
// is owned by 2, and returns the trail that cuts the band at column cut.
func ringWithForeignBand(g *grid.Grid, right, cut int) []grid.Point {
	fill(g, 1, 2, 2, right, 4)
	fill(g, 2, 3, 3, right-1, 3)
	return line(cut, 2, cut, 4)
}

func TestSmallIslandsBothCaptured(t *testing.T) {
	g := grid.New(300, 10)
	trail := ringWithForeignBand(g, 11, 7) // left 3..6 = 4 cells, right 8..10 = 3 cells
	res := Apply(g, Input{Owner: 1, Trail: trail, SmallIslandMax: 10})
	if len(res.Captured) != 7 {
		t.Fatalf("captured=%d want 7", len(res.Captured))
	}
	if res.Losses[2] != 7 {
		t.Fatalf("losses=%v", res.Losses)
	}
	if g.OwnerAt(7, 3) != 2 {
		t.Fatalf("trail cell inside pre-existing hole should stay foreign")
	}
}

func TestLargeIslandSurvives(t *testing.T) {
	g := grid.New(300, 10)
	trail := ringWithForeignBand(g, 22, 18) // left 3..17 = 15 cells, right 19..21 = 3 cells
	res := Apply(g, Input{Owner: 1, Trail: trail, SmallIslandMax: 10})
	if len(res.Captured) != 3 {
		t.Fatalf("captured=%d want 3", len(res.Captured))
	}
	for x := 3; x <= 17; x++ {
		if g.OwnerAt(x, 3) != 2 {
			t.Fatalf("large island cell %d captured", x)
		}
	}
	for x := 19; x <= 21; x++ {
		if g.OwnerAt(x, 3) != 1 {
			t.Fatalf("small island cell %d not captured", x)
		}
	}
}

func TestTeammateCellsUntouched(t *testing.T) {
	g := grid.New(200, 10)
	fill(g, 1, 2, 2, 4, 4)
	fill(g, 3, 6, 4, 6, 4)
	trail := []grid.Point{{X: 5, Y: 2}, {X: 6, Y: 2}, {X: 7, Y: 2}, {X: 8, Y: 2}, {X: 8, Y: 3}, {X: 8, Y: 4}, {X: 8, Y: 5}, {X: 8, Y: 6}, {X: 7, Y: 6}, {X: 6, Y: 6}, {X: 5, Y: 6}, {X: 4, Y: 6}, {X: 3, Y: 6}, {X: 3, Y: 5}}
	Apply(g, Input{Owner: 1, Friendly: func(o uint16) bool { return o == 3 }, Trail: trail, SmallIslandMax: 10})
	if g.OwnerAt(6, 4) != 3 {
		t.Fatalf("teammate cell reassigned")
	}
}

func TestCaptureMonotonicAndObstaclesKept(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 30; trial++ {
		g := grid.New(300, 10)
		g.GenerateObstacles(rng, grid.ObstacleSpec{MinCount: 10, MaxCount: 15, MinCells: 2, MaxCells: 4}, nil, 0)
		for i := 0; i < 400; i++ {
			g.SetOwner(rng.Intn(g.Cols), rng.Intn(g.Rows), uint16(1+rng.Intn(4)))
		}
		fill(g, 1, 10, 10, 12, 12)
		var obstacles []int
		for i, c := range g.Cells() {
			if c == grid.Obstacle {
				obstacles = append(obstacles, i)
			}
		}
		before := g.CountOwned(1)
		cur := grid.Point{X: 12, Y: 11}
		var trail []grid.Point
		for k := 0; k < 25; k++ {
			switch rng.Intn(4) {
			case 0:
				cur.X++
			case 1:
				cur.X--
			case 2:
				cur.Y++
			default:
				cur.Y--
			}
			trail = append(trail, cur)
		}
		res := Apply(g, Input{Owner: 1, Trail: trail, SmallIslandMax: 10})
		if after := g.CountOwned(1); after < before || after != before+len(res.Captured) {
			t.Fatalf("trial %d: before=%d after=%d captured=%d", trial, before, after, len(res.Captured))
		}
		for _, i := range obstacles {
			if g.OwnerAtIndex(i) != grid.Obstacle {
				t.Fatalf("trial %d: obstacle %d changed", trial, i)
			}
		}
	}
}
