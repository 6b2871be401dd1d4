// Package rects projects grid ownership onto row-run rectangles and tracks versioned diffs.
package rects

import (
	"sort"

	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
)

type Key struct {
	X int
	Y int
}

type Rect struct {
	Owner uint16
	X     int
	Y     int
	W     int
	H     int
}

func (r Rect) Key() Key { return Key{X: r.X, Y: r.Y} }

type Diff struct {
	Version uint64
	Added   []Rect
	Removed []Key
}

type Index struct {
	historyCap int
	version    uint64
	rects      []Rect
	byKey      map[Key]Rect
	history    []Diff
}

// NewIndex starts at version 1 so a fresh connection at version 0 is always behind.
func NewIndex(historyCap int) *Index {
	if historyCap <= 0 {
		historyCap = 10
	}
	return &Index{historyCap: historyCap, version: 1, byKey: map[Key]Rect{}}
}

func (ix *Index) Version() uint64 { return ix.version }

// Rects returns the current rect list in scan order. Callers must not modify it.
func (ix *Index) Rects() []Rect { return ix.rects }

// Reset forgets all rects and history and advances the version, so every holder of
// an older version falls back to a full snapshot.
func (ix *Index) Reset() {
	ix.version++
	ix.rects = nil
	ix.byKey = map[Key]Rect{}
	ix.history = nil
}

// Rebuild scans g row by row into maximal same-owner runs. A run whose owner fails alive
// is cleared to Empty in g and produces no rect. The version advances only when the
// rect set changed.
func (ix *Index) Rebuild(g *grid.Grid, alive func(owner uint16) bool) (Diff, bool) {
	cs := g.CellSize
	cells := g.Cells()
	next := make([]Rect, 0, len(ix.rects))
	nextByKey := make(map[Key]Rect, len(ix.byKey))

	for y := 0; y < g.Rows; y++ {
		row := y * g.Cols
		for x := 0; x < g.Cols; {
			owner := cells[row+x]
			if owner == grid.Empty || owner == grid.Obstacle {
				x++
				continue
			}
			start := x
			for x < g.Cols && cells[row+x] == owner {
				x++
			}
			if alive != nil && !alive(owner) {
				for i := start; i < x; i++ {
					cells[row+i] = grid.Empty
				}
				continue
			}
			r := Rect{Owner: owner, X: start * cs, Y: y * cs, W: (x - start) * cs, H: cs}
			next = append(next, r)
			nextByKey[r.Key()] = r
		}
	}

	var d Diff
	for _, r := range next {
		old, ok := ix.byKey[r.Key()]
		if !ok || old.Owner != r.Owner || old.W != r.W {
			d.Added = append(d.Added, r)
		}
	}
	for _, old := range ix.rects {
		cur, ok := nextByKey[old.Key()]
		if !ok || cur.Owner != old.Owner || cur.W != old.W {
			d.Removed = append(d.Removed, old.Key())
		}
	}

	ix.rects = next
	ix.byKey = nextByKey
	if len(d.Added) == 0 && len(d.Removed) == 0 {
		return Diff{Version: ix.version}, false
	}
	ix.version++
	d.Version = ix.version
	ix.history = append(ix.history, d)
	if over := len(ix.history) - ix.historyCap; over > 0 {
		ix.history = append([]Diff(nil), ix.history[over:]...)
	}
	return d, true
}

// Since merges every recorded diff newer than v. ok is false when history no longer
// reaches back to v+1, in which case the caller must send a full snapshot.
func (ix *Index) Since(v uint64) (added []Rect, removed []Key, ok bool) {
	if v >= ix.version {
		return nil, nil, true
	}
	if len(ix.history) == 0 || ix.history[0].Version > v+1 {
		return nil, nil, false
	}
	addKeys := map[Key]struct{}{}
	remKeys := map[Key]struct{}{}
	for _, d := range ix.history {
		if d.Version <= v {
			continue
		}
		for _, r := range d.Added {
			addKeys[r.Key()] = struct{}{}
		}
		for _, k := range d.Removed {
			remKeys[k] = struct{}{}
		}
	}
	for k := range addKeys {
		if r, ok := ix.byKey[k]; ok {
			added = append(added, r)
		}
	}
	for k := range remKeys {
		if _, ok := ix.byKey[k]; !ok {
			removed = append(removed, k)
		}
	}
	sortRects(added)
	sort.Slice(removed, func(i, j int) bool {
		if removed[i].Y != removed[j].Y {
			return removed[i].Y < removed[j].Y
		}
		return removed[i].X < removed[j].X
	})
	return added, removed, true
}

func sortRects(rs []Rect) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Y != rs[j].Y {
			return rs[i].Y < rs[j].Y
		}
		return rs[i].X < rs[j].X
	})
}
