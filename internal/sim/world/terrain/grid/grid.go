// Package grid holds the authoritative cell ownership of an arena round.
package grid

import (
	"math"
	"math/rand"
)

const (
	Empty    uint16 = 0
	Obstacle uint16 = 0xFFFF
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Obstacle rectangle in world pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Grid is a flat row-major owner array. Cells are Empty, Obstacle, or an owner short id.
// Obstacle cells never change until the next Resize.
type Grid struct {
	CellSize  int
	WorldSize int
	Cols      int
	Rows      int

	cells     []uint16
	obstacles []Rect
}

func New(worldSize, cellSize int) *Grid {
	g := &Grid{CellSize: cellSize}
	g.Resize(worldSize)
	return g
}

// Resize reallocates and clears the grid, dropping all ownership and obstacles.
func (g *Grid) Resize(worldSize int) {
	g.WorldSize = worldSize
	g.Cols = (worldSize + g.CellSize - 1) / g.CellSize
	g.Rows = g.Cols
	g.cells = make([]uint16, g.Cols*g.Rows)
	g.obstacles = nil
}

func (g *Grid) ToGrid(v float64) int {
	return int(math.Floor(v / float64(g.CellSize)))
}

// Center returns the pixel center of a cell.
func (g *Grid) Center(gx, gy int) (float64, float64) {
	h := float64(g.CellSize) / 2
	return float64(gx*g.CellSize) + h, float64(gy*g.CellSize) + h
}

func (g *Grid) InBounds(gx, gy int) bool {
	return gx >= 0 && gy >= 0 && gx < g.Cols && gy < g.Rows
}

func (g *Grid) Index(gx, gy int) int { return gy*g.Cols + gx }

// OwnerAt treats out-of-range coordinates as blocked.
func (g *Grid) OwnerAt(gx, gy int) uint16 {
	if !g.InBounds(gx, gy) {
		return Obstacle
	}
	return g.cells[gy*g.Cols+gx]
}

func (g *Grid) OwnerAtIndex(i int) uint16 {
	if i < 0 || i >= len(g.cells) {
		return Obstacle
	}
	return g.cells[i]
}

func (g *Grid) IsObstacle(gx, gy int) bool { return g.OwnerAt(gx, gy) == Obstacle }

// SetOwner refuses out-of-range and obstacle cells and the obstacle sentinel itself.
func (g *Grid) SetOwner(gx, gy int, owner uint16) bool {
	if !g.InBounds(gx, gy) {
		return false
	}
	return g.SetOwnerIndex(gy*g.Cols+gx, owner)
}

func (g *Grid) SetOwnerIndex(i int, owner uint16) bool {
	if i < 0 || i >= len(g.cells) || owner == Obstacle || g.cells[i] == Obstacle {
		return false
	}
	g.cells[i] = owner
	return true
}

// Cells exposes the backing array for read-only scans.
func (g *Grid) Cells() []uint16 { return g.cells }

func (g *Grid) Obstacles() []Rect { return g.obstacles }

func (g *Grid) CountOwned(owner uint16) int {
	n := 0
	for _, c := range g.cells {
		if c == owner {
			n++
		}
	}
	return n
}

// Wipe clears every cell of owner and reports how many were cleared.
func (g *Grid) Wipe(owner uint16) int {
	if owner == Empty || owner == Obstacle {
		return 0
	}
	n := 0
	for i, c := range g.cells {
		if c == owner {
			g.cells[i] = Empty
			n++
		}
	}
	return n
}

// Transfer reassigns every cell of from to to.
func (g *Grid) Transfer(from, to uint16) int {
	if from == Empty || from == Obstacle || to == Obstacle {
		return 0
	}
	n := 0
	for i, c := range g.cells {
		if c == from {
			g.cells[i] = to
			n++
		}
	}
	return n
}

// ObstacleSpec bounds the obstacle generator in cells.
type ObstacleSpec struct {
	MinCount int
	MaxCount int
	MinCells int
	MaxCells int
	Attempts int
}

// GenerateObstacles places random obstacle rectangles, skipping any that would overlap
// a keep-out cell box (center ± radius cells).
func (g *Grid) GenerateObstacles(rng *rand.Rand, spec ObstacleSpec, keepOut []Point, radius int) []Rect {
	count := spec.MinCount
	if spec.MaxCount > spec.MinCount {
		count += rng.Intn(spec.MaxCount - spec.MinCount + 1)
	}
	attempts := spec.Attempts
	if attempts <= 0 {
		attempts = 10
	}
	span := spec.MaxCells - spec.MinCells + 1
	if span < 1 {
		span = 1
	}
	for n := 0; n < count; n++ {
		for try := 0; try < attempts; try++ {
			w := spec.MinCells + rng.Intn(span)
			h := spec.MinCells + rng.Intn(span)
			if g.Cols <= w || g.Rows <= h {
				break
			}
			gx := rng.Intn(g.Cols - w)
			gy := rng.Intn(g.Rows - h)
			if overlapsKeepOut(gx, gy, w, h, keepOut, radius) {
				continue
			}
			for y := gy; y < gy+h; y++ {
				for x := gx; x < gx+w; x++ {
					g.cells[y*g.Cols+x] = Obstacle
				}
			}
			g.obstacles = append(g.obstacles, Rect{
				X: gx * g.CellSize, Y: gy * g.CellSize,
				Width: w * g.CellSize, Height: h * g.CellSize,
			})
			break
		}
	}
	return g.obstacles
}

func overlapsKeepOut(gx, gy, w, h int, keepOut []Point, radius int) bool {
	for _, p := range keepOut {
		if gx <= p.X+radius && gx+w-1 >= p.X-radius && gy <= p.Y+radius && gy+h-1 >= p.Y-radius {
			return true
		}
	}
	return false
}

// ObstacleNear reports whether any obstacle lies within radius cells of (gx,gy).
func (g *Grid) ObstacleNear(gx, gy, radius int) bool {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			x, y := gx+dx, gy+dy
			if g.InBounds(x, y) && g.cells[y*g.Cols+x] == Obstacle {
				return true
			}
		}
	}
	return false
}
