package world

import (
	"context"
	"time"

	"github.com/satorunet/onj-jintori/internal/protocol"
)

// Run drives the world until ctx is cancelled or Stop is called. Inputs are gathered
// between ticks and applied at the next tick; broadcasts run on their own cadence in
// the same goroutine, so they always observe a between-ticks state.
func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(w.tu.TickDurationMs) * time.Millisecond)
	defer ticker.Stop()
	broadcast := time.NewTicker(time.Duration(w.tu.BroadcastMs) * time.Millisecond)
	defer broadcast.Stop()

	var pending TickInput

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.connect:
			pending.Connects = append(pending.Connects, req)
		case req := <-w.leave:
			pending.Leaves = append(pending.Leaves, req)
		case env := <-w.inbox:
			pending.Controls = append(pending.Controls, env)
		case <-ticker.C:
			w.step(pending)
			pending.Connects = pending.Connects[:0]
			pending.Leaves = pending.Leaves[:0]
			pending.Controls = pending.Controls[:0]
		case <-broadcast.C:
			w.Broadcast()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce(in TickInput) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(in)
	return tick, w.stateDigest(tick)
}

func (w *World) step(in TickInput) {
	start := time.Now()
	tick := w.tick.Load()
	now := w.nowMS()

	var left []uint16
	for _, req := range in.Leaves {
		if a := w.agents[req.ID]; a != nil && (req.SessionID == "" || req.SessionID == a.SessionID) {
			w.handleLeave(req.ID)
			left = append(left, req.ID)
		}
	}
	var connected []RecordedConnect
	for _, req := range in.Connects {
		if id, ok := w.handleConnect(req); ok {
			connected = append(connected, RecordedConnect{ID: id, SessionID: req.SessionID})
		}
	}
	for _, c := range in.Controls {
		w.applyControl(c, now)
	}

	w.advanceRound(now)
	if w.round.Active {
		w.respawnDue(now)
		ids := append([]uint16(nil), w.order...)
		for _, id := range ids {
			if a := w.agents[id]; a != nil {
				w.moveAgent(a, now)
			}
		}
		w.recordMinimapHistory(now)
	}

	if w.tickLogger != nil && (!in.empty() || tick%w.cfg.LogEveryTicks == 0) {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:     tick,
			Connects: connected,
			Leaves:   left,
			Controls: append([]ControlEnvelope(nil), in.Controls...),
			Digest:   w.stateDigest(tick),
		})
	}

	w.tick.Add(1)
	w.stepMS = float64(time.Since(start).Microseconds()) / 1000
	w.publishMetrics()
}

func (w *World) handleConnect(req ConnectRequest) (uint16, bool) {
	id, ok := w.allocID()
	if !ok {
		if req.Resp != nil {
			req.Resp <- ConnectResponse{Err: protocol.ErrArenaFull}
		}
		return 0, false
	}
	color := w.uniqueColor()
	half := float64(w.grid.WorldSize) / 2
	a := &Agent{
		ID:        id,
		SessionID: req.SessionID,
		Color:     color,
		BaseColor: color,
		Emoji:     w.randomEmoji(),
		State:     AgentWaiting,
		X:         half,
		Y:         half,
		Perf:      protocol.PerfAuto,
		AOIHalfW:  w.tu.AOI.DefaultHalfW,
		AOIHalfH:  w.tu.AOI.DefaultHalfH,
	}
	w.agents[id] = a
	w.rebuildOrder()
	c := newClientState(req.Out, req.Close)
	w.clients[id] = c

	if req.Resp != nil {
		req.Resp <- ConnectResponse{ID: id, Init: w.initMsg(a)}
	}
	if pm := w.playerMaster(w.joinedAgents()); pm != nil {
		w.sendTo(c, pm)
	}
	w.logf("connect id=%d session=%s agents=%d", id, req.SessionID, len(w.agents))
	return id, true
}

func (w *World) initMsg(a *Agent) protocol.InitMsg {
	m := protocol.InitMsg{
		Type:             protocol.TypeInit,
		ProtocolVersion:  protocol.Version,
		ID:               a.ID,
		SessionID:        a.SessionID,
		Color:            a.Color,
		Emoji:            a.Emoji,
		World:            protocol.WorldSize{Width: w.grid.WorldSize, Height: w.grid.WorldSize},
		CellSize:         w.grid.CellSize,
		Mode:             w.round.Mode,
		Obstacles:        w.obstacleMsgs(),
		TerritoryVersion: w.rects.Version(),
		TimeRemaining:    w.timeRemainingSec(w.nowMS()),
		PlayerCount:      len(w.agents),
	}
	for name, color := range teamColors {
		m.Teams = append(m.Teams, protocol.TeamInfo{Name: name, Color: color})
	}
	sortTeamInfo(m.Teams)
	return m
}

// handleLeave forgets the agent and its connection. Its territory is cleared by the rebuild.
func (w *World) handleLeave(id uint16) {
	a := w.agents[id]
	if a == nil {
		return
	}
	delete(w.agents, id)
	delete(w.clients, id)
	w.rebuildOrder()
	if w.grid.Wipe(id) > 0 {
		w.rebuildRects()
	}
	w.logf("leave id=%d name=%q agents=%d", id, a.Name, len(w.agents))
}

// kick closes the connection with code and removes the agent.
func (w *World) kick(a *Agent, code protocol.CloseCode) {
	if c := w.clients[a.ID]; c != nil && c.close != nil {
		select {
		case c.close <- code:
		default:
		}
	}
	w.logf("kick id=%d name=%q code=%d", a.ID, a.Name, code)
	w.handleLeave(a.ID)
}

// sendLatest queues b, discarding the oldest queued message when ch is full. It
// reports whether anything was discarded.
func sendLatest(ch chan []byte, b []byte) (dropped bool) {
	select {
	case ch <- b:
		return false
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return true
}
