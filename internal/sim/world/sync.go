package world

import (
	"math"
	"sort"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world/logic/mathx"
	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/rects"
)

// trailSent is what one connection last received of one agent's trail.
type trailSent struct {
	length     int
	last       protocol.TrailPoint
	lastFullAt int64
}

// clientState is created on connect and dropped on leave. Trail entries are created
// when an agent enters the connection's AOI and evicted when it leaves.
type clientState struct {
	out        chan []byte
	close      chan protocol.CloseCode
	lastSynced uint64
	trails     map[uint16]*trailSent
	// resync is set when a queued message was discarded; the next broadcast resends
	// the player master and full territory and trails.
	resync          bool
	warnedNotJoined bool
}

func newClientState(out chan []byte, closeCh chan protocol.CloseCode) *clientState {
	return &clientState{out: out, close: closeCh, trails: map[uint16]*trailSent{}}
}

type syncCounters struct {
	bytesSent    uint64
	messagesSent uint64
	fullSyncs    uint64
	deltaSyncs   uint64
	resyncs      uint64
}

func (w *World) sendTo(c *clientState, b []byte) {
	if c == nil || c.out == nil || len(b) == 0 {
		return
	}
	if sendLatest(c.out, b) {
		// The discarded message may have carried deltas the client now lacks.
		c.lastSynced = 0
		c.trails = map[uint16]*trailSent{}
		if !c.resync {
			c.resync = true
			w.counters.resyncs++
		}
	}
	w.counters.bytesSent += uint64(len(b))
	w.counters.messagesSent++
}

func (w *World) broadcastAll(b []byte) {
	for _, id := range w.order {
		w.sendTo(w.clients[id], b)
	}
}

func (w *World) joinedAgents() []*Agent {
	var out []*Agent
	for _, id := range w.order {
		if a := w.agents[id]; a.Joined {
			out = append(out, a)
		}
	}
	return out
}

// playerMaster encodes the static identity of agents; nil when there is nothing to send.
func (w *World) playerMaster(agents []*Agent) []byte {
	if len(agents) == 0 {
		return nil
	}
	m := protocol.PlayerMasterMsg{Type: protocol.TypePlayerMaster}
	for _, a := range agents {
		m.Players = append(m.Players, protocol.PlayerEntry{ID: a.ID, Name: a.Name, Color: a.Color, Emoji: a.Emoji, Team: a.Team})
	}
	b, err := protocol.Encode(m)
	if err != nil {
		w.logf("encode pm: %v", err)
		return nil
	}
	return b
}

func sortTeamInfo(ts []protocol.TeamInfo) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Name < ts[j].Name })
}

// aoi is a viewer's visibility rectangle.
type aoi struct {
	cx, cy float64
	hw, hh int
}

func (v aoi) contains(x, y float64) bool {
	return math.Abs(x-v.cx) <= float64(v.hw) && math.Abs(y-v.cy) <= float64(v.hh)
}

// aoiFor centres on the viewer's agent once it has joined, on the arena centre otherwise.
func (w *World) aoiFor(viewer *Agent) aoi {
	cfg := w.tu.AOI
	half := float64(w.grid.WorldSize) / 2
	if viewer == nil || !viewer.Joined {
		return aoi{cx: half, cy: half, hw: cfg.DefaultHalfW, hh: cfg.DefaultHalfH}
	}
	hw, hh := viewer.AOIHalfW, viewer.AOIHalfH
	if viewer.Perf == protocol.PerfLow {
		hw = min(hw, cfg.LowPerfCap)
		hh = min(hh, cfg.LowPerfCap)
	}
	return aoi{cx: viewer.X, cy: viewer.Y, hw: max(hw, cfg.Floor), hh: max(hh, cfg.Floor)}
}

func (w *World) stateCode(a *Agent, now int64) int {
	switch {
	case a.State == AgentDead:
		return protocol.StateDead
	case a.State == AgentWaiting:
		return protocol.StateWaiting
	case a.invulnerable(now):
		return protocol.StateWaiting + int((a.InvulnerableUntil-now+999)/1000)
	default:
		return protocol.StateActive
	}
}

func tenths(until, now int64) int {
	if until <= now {
		return 0
	}
	return int((until - now + 99) / 100)
}

func trailPoints(a *Agent) []protocol.TrailPoint {
	pts := make([]protocol.TrailPoint, len(a.Trail))
	for i, p := range a.Trail {
		pts[i] = protocol.TrailPoint{X: p.X, Y: p.Y}
	}
	return pts
}

// viewTrail fills the trail part of v for connection c. A full frame is sent when the
// agent is new to c, the refresh interval elapsed, the trail shrank or was replaced,
// or nothing was sent before. tc is set once when a trail empties.
func (w *World) viewTrail(c *clientState, a *Agent, v *protocol.PlayerView, now int64) {
	ts := c.trails[a.ID]
	n := len(a.Trail)
	if n == 0 {
		if ts == nil {
			c.trails[a.ID] = &trailSent{}
		} else if ts.length > 0 {
			v.TrailCleared = true
			ts.length = 0
		}
		return
	}
	pts := trailPoints(a)
	full := ts == nil || ts.length == 0 || n < ts.length ||
		now-ts.lastFullAt >= int64(w.tu.Sync.TrailRefreshMs) ||
		pts[ts.length-1] != ts.last
	if full {
		v.Trail = protocol.EncodeTrailFull(pts)
		v.FullTrail = true
		c.trails[a.ID] = &trailSent{length: n, last: pts[n-1], lastFullAt: now}
		return
	}
	if n > ts.length {
		v.Trail = protocol.EncodeTrailDelta(ts.last, pts[ts.length:])
		ts.length = n
		ts.last = pts[n-1]
	}
}

func (w *World) territoryRect(r rects.Rect) protocol.TerritoryRect {
	color := "#888888"
	if a := w.agents[r.Owner]; a != nil {
		color = a.Color
	}
	cr, cg, cb := protocol.ParseColor(color)
	return protocol.TerritoryRect{X: uint16(r.X), Y: uint16(r.Y), W: uint16(r.W), H: uint16(r.H), Owner: r.Owner, R: cr, G: cg, B: cb}
}

// fullTerritory is built at most once per broadcast pass.
type fullTerritory struct {
	frame []byte
	built bool
}

func (w *World) fullTerritoryFrame(cache *fullTerritory) []byte {
	if cache.built {
		return cache.frame
	}
	cache.built = true
	cur := w.rects.Rects()
	out := make([]protocol.TerritoryRect, 0, len(cur))
	for _, r := range cur {
		out = append(out, w.territoryRect(r))
	}
	b, err := protocol.EncodeTerritoryFull(out)
	if err != nil {
		w.logf("encode full territory: %v", err)
		return nil
	}
	cache.frame = b
	return b
}

// syncTerritory attaches a full snapshot, a merged delta or nothing, then marks c as
// up to date with the current version.
func (w *World) syncTerritory(c *clientState, m *protocol.StateMsg, cache *fullTerritory) {
	cur := w.rects.Version()
	m.TerritoryVersion = cur
	if c.lastSynced == cur {
		return
	}
	full := c.lastSynced == 0 || c.lastSynced > cur || cur-c.lastSynced > uint64(w.tu.Sync.FullSyncLag)
	if !full {
		added, removed, ok := w.rects.Since(c.lastSynced)
		if ok {
			tr := make([]protocol.TerritoryRect, 0, len(added))
			for _, r := range added {
				tr = append(tr, w.territoryRect(r))
			}
			keys := make([]protocol.RectKey, 0, len(removed))
			for _, k := range removed {
				keys = append(keys, protocol.RectKey{X: uint16(k.X), Y: uint16(k.Y)})
			}
			if b, err := protocol.EncodeTerritory(tr, keys); err == nil {
				m.Territory = b
				w.counters.deltaSyncs++
				c.lastSynced = cur
				return
			}
		}
	}
	// An oversized delta falls back to the full snapshot. If that cannot be encoded
	// either, c keeps its version and is retried next broadcast.
	frame := w.fullTerritoryFrame(cache)
	if frame == nil {
		m.TerritoryVersion = c.lastSynced
		return
	}
	m.TerritoryFull = frame
	w.counters.fullSyncs++
	c.lastSynced = cur
}

func (w *World) scoreboard() []protocol.ScoreEntry {
	var ranked []*Agent
	for _, id := range w.order {
		if a := w.agents[id]; a.Joined {
			ranked = append(ranked, a)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Kills > ranked[j].Kills
	})
	if n := w.tu.Round.Rankings; len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]protocol.ScoreEntry, 0, len(ranked))
	for _, a := range ranked {
		out = append(out, protocol.ScoreEntry{ID: a.ID, Name: a.Name, Score: a.Score, Kills: a.Kills, Team: a.Team})
	}
	return out
}

// teamStats aggregates joined agents by team, highest score first.
func (w *World) teamStats() []protocol.TeamStat {
	byTeam := map[string]*protocol.TeamStat{}
	for _, id := range w.order {
		a := w.agents[id]
		if !a.Joined || a.Team == "" {
			continue
		}
		s := byTeam[a.Team]
		if s == nil {
			color := teamColors[a.Team]
			if color == "" {
				color = a.Color
			}
			s = &protocol.TeamStat{Name: a.Team, Color: color}
			byTeam[a.Team] = s
		}
		s.Score += a.Score
		s.Kills += a.Kills
		s.Members++
	}
	out := make([]protocol.TeamStat, 0, len(byTeam))
	for _, s := range byTeam {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sameTeamStats(a, b []protocol.TeamStat) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Broadcast sends one state message to every connection. It must run on the world
// goroutine between ticks.
func (w *World) Broadcast() {
	w.frame++
	now := w.nowMS()
	sc := w.tu.Sync

	var mm *protocol.Minimap
	if sc.MinimapEvery > 0 && w.frame%uint64(sc.MinimapEvery) == 0 {
		if m, ok := w.buildMinimap(); ok {
			mm = &m
		}
	}
	var sb []protocol.ScoreEntry
	var teams []protocol.TeamStat
	if sc.ScoreboardEvery > 0 && w.frame%uint64(sc.ScoreboardEvery) == 0 {
		sb = w.scoreboard()
		if w.round.Mode == "TEAM" {
			if ts := w.teamStats(); !sameTeamStats(ts, w.lastTeamStats) {
				teams = ts
				w.lastTeamStats = ts
			}
		}
	}

	var cache fullTerritory
	tm := w.timeRemainingSec(now)
	for _, id := range w.order {
		c := w.clients[id]
		if c == nil || c.out == nil {
			continue
		}
		if c.resync {
			c.resync = false
			if pm := w.playerMaster(w.joinedAgents()); pm != nil {
				w.sendTo(c, pm)
			}
		}
		viewer := w.agents[id]
		view := w.aoiFor(viewer)
		m := protocol.StateMsg{
			Type:          protocol.TypeState,
			TimeRemaining: tm,
			PlayerCount:   len(w.agents),
			Teams:         teams,
			Minimap:       mm,
			Scoreboard:    sb,
		}
		visible := map[uint16]bool{}
		for _, oid := range w.order {
			a := w.agents[oid]
			if !a.Joined || (oid != id && !view.contains(a.X, a.Y)) {
				continue
			}
			visible[oid] = true
			pv := protocol.PlayerView{
				ID:            a.ID,
				X:             mathx.RoundHalfUp(a.X),
				Y:             mathx.RoundHalfUp(a.Y),
				State:         w.stateCode(a, now),
				Boost:         tenths(a.BoostUntil, now),
				BoostCooldown: tenths(a.BoostCooldownUntil, now),
			}
			w.viewTrail(c, a, &pv, now)
			m.Players = append(m.Players, pv)
		}
		for oid := range c.trails {
			if !visible[oid] {
				delete(c.trails, oid)
			}
		}
		w.syncTerritory(c, &m, &cache)

		b, err := protocol.Encode(m)
		if err != nil {
			w.logf("encode state: %v", err)
			continue
		}
		w.sendTo(c, b)
	}
}
