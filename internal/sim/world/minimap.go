package world

import (
	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
)

// Palette index 0 is empty ground and 1 is obstacle; owners take 2.. in id order.
const (
	minimapEmpty    = 0
	minimapObstacle = 1
)

// buildMinimap samples the grid into a Size×Size palette bitmap.
func (w *World) buildMinimap() (protocol.Minimap, bool) {
	size := w.tu.Sync.MinimapSize
	if size <= 0 || w.grid.Cols == 0 {
		return protocol.Minimap{}, false
	}
	palette := map[uint8]string{minimapObstacle: "#444444"}
	index := map[uint16]uint8{}
	next := uint8(2)
	for _, id := range w.order {
		if next == 0xFF {
			break
		}
		index[id] = next
		palette[next] = w.agents[id].Color
		next++
	}

	bitmap := make([]byte, size*size)
	for my := 0; my < size; my++ {
		gy := my * w.grid.Rows / size
		for mx := 0; mx < size; mx++ {
			gx := mx * w.grid.Cols / size
			switch owner := w.grid.OwnerAt(gx, gy); owner {
			case grid.Empty:
				bitmap[my*size+mx] = minimapEmpty
			case grid.Obstacle:
				bitmap[my*size+mx] = minimapObstacle
			default:
				bitmap[my*size+mx] = index[owner]
			}
		}
	}
	packed, err := protocol.CompressMinimap(bitmap)
	if err != nil {
		w.logf("minimap: %v", err)
		return protocol.Minimap{}, false
	}
	mm := protocol.Minimap{Size: size, Palette: palette, Bitmap: packed}
	if w.round.Mode == "TEAM" {
		mm.Flags = w.minimapFlags(size)
	}
	return mm, true
}

// minimapFlags marks each team at the position of its highest scoring live member.
func (w *World) minimapFlags(size int) []protocol.MinimapFlag {
	best := map[string]*Agent{}
	var teams []string
	for _, id := range w.order {
		a := w.agents[id]
		if !a.Joined || a.Team == "" || a.State != AgentActive {
			continue
		}
		cur, seen := best[a.Team]
		if !seen {
			teams = append(teams, a.Team)
		}
		if cur == nil || a.Score > cur.Score {
			best[a.Team] = a
		}
	}
	ws := float64(w.grid.WorldSize)
	out := make([]protocol.MinimapFlag, 0, len(teams))
	for _, t := range teams {
		a := best[t]
		out = append(out, protocol.MinimapFlag{
			Team: t,
			X:    min(size-1, int(a.X/ws*float64(size))),
			Y:    min(size-1, int(a.Y/ws*float64(size))),
		})
	}
	return out
}
