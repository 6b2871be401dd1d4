package world

import (
	"sort"

	"github.com/satorunet/onj-jintori/internal/persistence/snapshot"
	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
)

type roundState struct {
	Number      int
	ModeIdx     int
	Mode        string
	Active      bool
	StartTick   uint64
	EndsAt      int64
	NextStartAt int64

	nextMinimapAt int64
	minimaps      []protocol.Minimap
}

func (w *World) timeRemainingSec(now int64) int {
	if !w.round.Active || now >= w.round.EndsAt {
		return 0
	}
	return int((w.round.EndsAt - now + 999) / 1000)
}

func (w *World) advanceRound(now int64) {
	switch {
	case w.round.Active && now >= w.round.EndsAt:
		w.endRound(now)
	case !w.round.Active && now >= w.round.NextStartAt:
		w.startRound((w.round.ModeIdx+1)%len(w.tu.Round.Modes), w.round.Number+1)
	}
}

// startRound resizes the arena for the current population, lays new obstacles and
// respawns every joined agent with a full reset.
func (w *World) startRound(modeIdx, number int) {
	now := w.nowMS()
	rc := w.tu.Round
	w.round = roundState{
		Number:    number,
		ModeIdx:   modeIdx,
		Mode:      rc.Modes[modeIdx],
		Active:    true,
		StartTick: w.tick.Load(),
	}
	dur := rc.DurationSec
	if w.round.Mode == "TEAM" {
		dur += rc.TeamBonusSec
	}
	w.round.EndsAt = now + int64(dur)*1000
	w.round.nextMinimapAt = now + int64(w.tu.Sync.MinimapHistoryMs)

	w.grid.Resize(worldSizeFor(w.tu.World, len(w.agents)))
	var keepOut []grid.Point
	for _, id := range w.order {
		a := w.agents[id]
		if a.State == AgentActive {
			keepOut = append(keepOut, grid.Point{X: w.grid.ToGrid(a.X), Y: w.grid.ToGrid(a.Y)})
		}
	}
	wc := w.tu.World
	w.grid.GenerateObstacles(w.rng, grid.ObstacleSpec{
		MinCount: wc.ObstaclesMin,
		MaxCount: wc.ObstaclesMax,
		MinCells: wc.ObstacleMinCells,
		MaxCells: wc.ObstacleMaxCells,
		Attempts: 10,
	}, keepOut, w.tu.Lifecycle.SpawnClearRadius)
	w.rects.Reset()

	for _, id := range w.order {
		a := w.agents[id]
		a.ChattedThisRound = false
		a.clearTrail()
		if !a.Joined {
			continue
		}
		w.applyModeIdentity(a, baseName(a.Name))
		w.respawn(a, true, now)
	}
	w.rebuildRects()
	for _, c := range w.clients {
		c.lastSynced = 0
		c.trails = map[uint16]*trailSent{}
	}
	w.lastTeamStats = nil

	if len(w.clients) > 0 {
		if b, err := protocol.Encode(protocol.RoundStartMsg{
			Type:             protocol.TypeRoundStart,
			Round:            number,
			Mode:             w.round.Mode,
			World:            protocol.WorldSize{Width: w.grid.WorldSize, Height: w.grid.WorldSize},
			Obstacles:        w.obstacleMsgs(),
			TerritoryVersion: w.rects.Version(),
			TimeRemaining:    w.timeRemainingSec(now),
		}); err == nil {
			w.broadcastAll(b)
		}
		if pm := w.playerMaster(w.joinedAgents()); pm != nil {
			w.broadcastAll(pm)
		}
	}
	w.logf("round start n=%d mode=%s world=%d obstacles=%d", number, w.round.Mode, w.grid.WorldSize, len(w.grid.Obstacles()))
}

// expScore converts a cell count into a percentage of the arena, two decimals.
func (w *World) expScore(cells int) float64 {
	total := w.grid.Cols * w.grid.Rows
	if cells <= 0 || total == 0 {
		return 0
	}
	return float64(int64(float64(cells)/float64(total)*10000+0.5)) / 100
}

func (w *World) rankings() []protocol.Ranking {
	var ranked []*Agent
	for _, id := range w.order {
		a := w.agents[id]
		if a.Joined && a.State != AgentWaiting && (a.Score > 0 || a.Kills > 0) {
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
	out := make([]protocol.Ranking, 0, len(ranked))
	for _, a := range ranked {
		out = append(out, protocol.Ranking{Name: a.Name, Team: a.Team, Color: a.Color, Emoji: a.Emoji, Score: w.expScore(a.Score), Kills: a.Kills})
	}
	return out
}

func (w *World) teamRankings() []protocol.TeamRanking {
	stats := w.teamStats()
	out := make([]protocol.TeamRanking, 0, len(stats))
	for _, s := range stats {
		out = append(out, protocol.TeamRanking{Team: s.Name, Color: s.Color, Score: w.expScore(s.Score), Kills: s.Kills, Members: s.Members})
	}
	if n := w.tu.Round.TeamRankings; len(out) > n {
		out = out[:n]
	}
	return out
}

func (w *World) endRound(now int64) {
	w.round.Active = false
	w.round.NextStartAt = now + int64(w.tu.Round.PauseSec)*1000
	if mm, ok := w.buildMinimap(); ok {
		w.round.minimaps = append(w.round.minimaps, mm)
	}

	res := RoundResult{
		ArenaID:   w.cfg.ID,
		Round:     w.round.Number,
		Mode:      w.round.Mode,
		StartTick: w.round.StartTick,
		EndTick:   w.tick.Load(),
		Rankings:  w.rankings(),
		Minimaps:  w.round.minimaps,
	}
	if w.round.Mode == "TEAM" {
		res.TeamRankings = w.teamRankings()
	}
	for _, id := range w.order {
		if w.agents[id].Joined {
			res.PlayerCount++
		}
	}
	if len(res.Rankings) > 0 {
		res.Winner = res.Rankings[0].Name
	}

	nextMode := w.tu.Round.Modes[(w.round.ModeIdx+1)%len(w.tu.Round.Modes)]
	if b, err := protocol.Encode(protocol.RoundEndMsg{
		Type:           protocol.TypeRoundEnd,
		Round:          res.Round,
		Mode:           res.Mode,
		NextMode:       nextMode,
		Winner:         res.Winner,
		Rankings:       res.Rankings,
		TeamRankings:   res.TeamRankings,
		TotalPlayers:   len(w.agents),
		MinimapHistory: w.round.minimaps,
		NextRoundSec:   w.tu.Round.PauseSec,
	}); err == nil {
		w.broadcastAll(b)
	}
	w.audit(AuditEntry{Action: "ROUND_END", Cells: res.PlayerCount, Reason: res.Mode})

	if w.roundSink != nil {
		rep := RoundReport{Result: res, Snapshot: w.roundSnapshot(res)}
		select {
		case w.roundSink <- rep:
		default:
			w.logf("round sink full, dropping round %d report", res.Round)
		}
	}
	w.logf("round end n=%d mode=%s players=%d winner=%q", res.Round, res.Mode, res.PlayerCount, res.Winner)
}

func (w *World) roundSnapshot(res RoundResult) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:    snapshot.Header{Version: 1, ArenaID: w.cfg.ID, Round: res.Round, Tick: res.EndTick},
		Seed:      w.cfg.Seed,
		Mode:      res.Mode,
		WorldSize: w.grid.WorldSize,
		CellSize:  w.grid.CellSize,
		Cols:      w.grid.Cols,
		Rows:      w.grid.Rows,
	}
	snap.SetCells(w.grid.Cells())
	for _, o := range w.grid.Obstacles() {
		snap.Obstacles = append(snap.Obstacles, snapshot.ObstacleV1{X: o.X, Y: o.Y, W: o.Width, H: o.Height})
	}
	for _, id := range w.order {
		a := w.agents[id]
		if !a.Joined {
			continue
		}
		snap.Agents = append(snap.Agents, snapshot.AgentV1{ID: a.ID, Name: a.Name, Team: a.Team, Color: a.Color, Score: a.Score, Kills: a.Kills})
	}
	for _, r := range res.Rankings {
		snap.Rankings = append(snap.Rankings, snapshot.RankingV1{Name: r.Name, Team: r.Team, Score: r.Score, Kills: r.Kills})
	}
	return snap
}

func (w *World) recordMinimapHistory(now int64) {
	if now < w.round.nextMinimapAt {
		return
	}
	w.round.nextMinimapAt = now + int64(w.tu.Sync.MinimapHistoryMs)
	if mm, ok := w.buildMinimap(); ok {
		w.round.minimaps = append(w.round.minimaps, mm)
	}
}
