package world

import (
	"fmt"
	"math"
	"strings"
)

var teamColors = map[string]string{
	"RED":    "#ef4444",
	"BLUE":   "#3b82f6",
	"GREEN":  "#22c55e",
	"YELLOW": "#eab308",
}

var emojis = []string{"😀", "😎", "😂", "😍", "🤔", "🤠", "😈", "👻", "👽", "🤖", "💩", "🐱", "🐶", "🦊", "🦁", "🐷", "🦄", "🐲"}

const nameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// allocID hands out the next free short id, cycling so a freed id is not reused at once.
func (w *World) allocID() (uint16, bool) {
	max := w.cfg.MaxAgents
	if len(w.agents) >= max {
		return 0, false
	}
	for i := 0; i < max; i++ {
		id := w.nextID
		w.nextID++
		if int(w.nextID) > max {
			w.nextID = 1
		}
		if _, used := w.agents[id]; !used {
			return id, true
		}
	}
	return 0, false
}

func (w *World) randomName() string {
	return "Guest" + string(nameAlphabet[w.rng.Intn(len(nameAlphabet))]) + string(nameAlphabet[w.rng.Intn(len(nameAlphabet))])
}

func (w *World) randomEmoji() string { return emojis[w.rng.Intn(len(emojis))] }

// uniqueColor samples saturated HSL colors and keeps the one whose hue is farthest
// from every color already in use.
func (w *World) uniqueColor() string {
	used := map[string]bool{}
	var hues []float64
	for _, id := range w.order {
		c := w.agents[id].Color
		used[c] = true
		hues = append(hues, hueOf(c))
	}
	best, bestDist := "", -1.0
	for i := 0; i < 50; i++ {
		h := float64(w.rng.Intn(360))
		s := float64(w.rng.Intn(20) + 75)
		l := float64(w.rng.Intn(15) + 55)
		c := hslHex(h, s, l)
		if used[c] {
			continue
		}
		if len(hues) == 0 {
			return c
		}
		minDist := 360.0
		for _, eh := range hues {
			d := math.Abs(h - eh)
			if d > 180 {
				d = 360 - d
			}
			minDist = math.Min(minDist, d)
		}
		if minDist > bestDist {
			best, bestDist = c, minDist
		}
	}
	if best == "" {
		return hslHex(float64(w.rng.Intn(360)), 85, 60)
	}
	return best
}

func hslHex(h, s, l float64) string {
	a := s * math.Min(l/100, 1-l/100) / 100
	f := func(n float64) int {
		k := math.Mod(n+h/30, 12)
		c := l/100 - a*math.Max(math.Min(math.Min(k-3, 9-k), 1), -1)
		return int(math.Round(255 * c))
	}
	return fmt.Sprintf("#%02x%02x%02x", f(0), f(8), f(4))
}

func hueOf(hex string) float64 {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0
	}
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	mx := math.Max(rf, math.Max(gf, bf))
	mn := math.Min(rf, math.Min(gf, bf))
	d := mx - mn
	if d == 0 {
		return 0
	}
	var h float64
	switch mx {
	case rf:
		h = math.Mod((gf-bf)/d, 6)
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h
}

// applyModeIdentity sets team, display name and color of a for the current mode.
func (w *World) applyModeIdentity(a *Agent, baseName string) {
	if w.round.Mode != "TEAM" || a.RequestedTeam == "" {
		a.Team = ""
		a.Name = baseName
		if w.colorTaken(a) {
			a.Color = w.uniqueColor()
		} else {
			a.Color = a.BaseColor
		}
		return
	}
	a.Team = a.RequestedTeam
	a.Name = "[" + a.Team + "] " + baseName
	if c, ok := teamColors[a.Team]; ok {
		a.Color = c
		return
	}
	for _, id := range w.order {
		o := w.agents[id]
		if o.ID != a.ID && o.Team == a.Team && o.Color != "" {
			a.Color = o.Color
			return
		}
	}
	a.Color = a.BaseColor
	if w.colorTaken(a) {
		a.Color = w.uniqueColor()
	}
}

func (w *World) colorTaken(a *Agent) bool {
	for _, id := range w.order {
		o := w.agents[id]
		if o.ID != a.ID && o.Color == a.BaseColor {
			return true
		}
	}
	return false
}

// baseName strips a leading "[team] " tag.
func baseName(name string) string {
	if strings.HasPrefix(name, "[") {
		if i := strings.Index(name, "] "); i >= 0 {
			return name[i+2:]
		}
	}
	return name
}
