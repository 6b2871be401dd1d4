// Package capture implements loop-closure enclosure on the ownership grid.
package capture

import (
	"sort"

	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
)

type Input struct {
	Owner uint16
	// Friendly reports whether a (non-empty, non-obstacle) owner is the capturer or a teammate.
	Friendly       func(owner uint16) bool
	Trail          []grid.Point
	SmallIslandMax int
}

type Result struct {
	// Captured cell indices in scan order.
	Captured []int
	// Losses counts captured cells per previous non-empty owner.
	Losses map[uint16]int
}

type island struct {
	owner uint16
	cells []int
}

// Apply runs the enclosure sweep and reassigns captured cells to in.Owner.
func Apply(g *grid.Grid, in Input) Result {
	cols, rows := g.Cols, g.Rows
	cells := g.Cells()
	n := cols * rows
	friendly := func(o uint16) bool {
		return o != grid.Empty && o != grid.Obstacle && (o == in.Owner || (in.Friendly != nil && in.Friendly(o)))
	}

	base := make([]bool, n)
	for i, o := range cells {
		base[i] = friendly(o)
	}
	trailSet := make(map[int]struct{}, len(in.Trail))
	for _, p := range in.Trail {
		if g.InBounds(p.X, p.Y) {
			trailSet[g.Index(p.X, p.Y)] = struct{}{}
		}
	}

	outsidePre := flood(cols, rows, base, nil)
	outsideCur := flood(cols, rows, base, trailSet)

	var enemySeeds, blankSeeds []int
	for _, p := range in.Trail {
		if !g.InBounds(p.X, p.Y) {
			continue
		}
		i := g.Index(p.X, p.Y)
		switch o := cells[i]; {
		case o == grid.Empty:
			blankSeeds = append(blankSeeds, i)
		case o == grid.Obstacle || friendly(o):
		default:
			enemySeeds = append(enemySeeds, i)
		}
	}

	zone := map[int]struct{}{}
	regionMatch := func(owner uint16) func(int) bool {
		return func(j int) bool {
			_, onTrail := trailSet[j]
			return !outsideCur[j] && cells[j] == owner && !onTrail
		}
	}

	enemy := collectIslands(cols, rows, enemySeeds, func(seed int) (uint16, func(int) bool) {
		o := cells[seed]
		return o, regionMatch(o)
	})
	byOwner := map[uint16][]island{}
	var owners []uint16
	for _, is := range enemy {
		if _, ok := byOwner[is.owner]; !ok {
			owners = append(owners, is.owner)
		}
		byOwner[is.owner] = append(byOwner[is.owner], is)
	}
	for _, o := range owners {
		markSmallIslands(byOwner[o], in.SmallIslandMax, zone)
	}
	blank := collectIslands(cols, rows, blankSeeds, func(int) (uint16, func(int) bool) {
		return grid.Empty, regionMatch(grid.Empty)
	})
	markSmallIslands(blank, in.SmallIslandMax, zone)

	res := Result{Losses: map[uint16]int{}}
	for i := 0; i < n; i++ {
		enclosed := !outsideCur[i] && outsidePre[i]
		if _, ok := zone[i]; !ok && !enclosed {
			continue
		}
		old := cells[i]
		if old == grid.Obstacle || friendly(old) {
			continue
		}
		if !g.SetOwnerIndex(i, in.Owner) {
			continue
		}
		if old != grid.Empty {
			res.Losses[old]++
		}
		res.Captured = append(res.Captured, i)
	}
	return res
}

// flood marks every cell reachable from the border without crossing walls or extra.
func flood(cols, rows int, wall []bool, extra map[int]struct{}) []bool {
	n := cols * rows
	blocked := func(i int) bool {
		if wall[i] {
			return true
		}
		_, ok := extra[i]
		return ok
	}
	seen := make([]bool, n)
	queue := make([]int, 0, 2*(cols+rows))
	push := func(i int) {
		if !seen[i] && !blocked(i) {
			seen[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < cols; x++ {
		push(x)
		push((rows-1)*cols + x)
	}
	for y := 1; y < rows-1; y++ {
		push(y * cols)
		push(y*cols + cols - 1)
	}
	for head := 0; head < len(queue); head++ {
		i := queue[head]
		x, y := i%cols, i/cols
		if x > 0 {
			push(i - 1)
		}
		if x < cols-1 {
			push(i + 1)
		}
		if y > 0 {
			push(i - cols)
		}
		if y < rows-1 {
			push(i + cols)
		}
	}
	return seen
}

func neighbours(cols, rows, i int) []int {
	x, y := i%cols, i/cols
	out := make([]int, 0, 4)
	if x > 0 {
		out = append(out, i-1)
	}
	if x < cols-1 {
		out = append(out, i+1)
	}
	if y > 0 {
		out = append(out, i-cols)
	}
	if y < rows-1 {
		out = append(out, i+cols)
	}
	return out
}

// collectIslands floods a maximal region from every matching neighbour of each seed.
// Cells already assigned to a region are never visited twice.
func collectIslands(cols, rows int, seeds []int, match func(seed int) (uint16, func(int) bool)) []island {
	processed := map[int]struct{}{}
	var out []island
	for _, s := range seeds {
		owner, inRegion := match(s)
		for _, nb := range neighbours(cols, rows, s) {
			if _, done := processed[nb]; done || !inRegion(nb) {
				continue
			}
			processed[nb] = struct{}{}
			is := island{owner: owner, cells: []int{nb}}
			for head := 0; head < len(is.cells); head++ {
				for _, m := range neighbours(cols, rows, is.cells[head]) {
					if _, done := processed[m]; done || !inRegion(m) {
						continue
					}
					processed[m] = struct{}{}
					is.cells = append(is.cells, m)
				}
			}
			out = append(out, is)
		}
	}
	return out
}

// markSmallIslands adds capturable islands of one group to zone. A single island is never
// captured by this rule; with several, all are taken when the largest is small, otherwise
// all but the largest.
func markSmallIslands(group []island, smallMax int, zone map[int]struct{}) {
	if len(group) <= 1 {
		return
	}
	sort.SliceStable(group, func(i, j int) bool { return len(group[i].cells) > len(group[j].cells) })
	start := 1
	if len(group[0].cells) <= smallMax {
		start = 0
	}
	for _, is := range group[start:] {
		for _, c := range is.cells {
			zone[c] = struct{}{}
		}
	}
}
