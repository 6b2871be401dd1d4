package world

import (
	"math"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world/logic/mathx"
)

func (w *World) limits() protocol.Limits {
	return protocol.Limits{
		NameMaxRunes: w.tu.Limits.NameMaxRunes,
		TeamMaxRunes: w.tu.Limits.TeamMaxRunes,
		ChatMaxRunes: w.tu.Limits.ChatMaxRunes,
		MaxViewportW: w.tu.AOI.MaxViewportW,
		MaxViewportH: w.tu.AOI.MaxViewportH,
	}
}

// applyControl mutates intent only. Movement and its consequences happen in the tick.
func (w *World) applyControl(c ControlEnvelope, now int64) {
	a := w.agents[c.AgentID]
	if a == nil {
		return
	}
	switch c.Kind {
	case ControlInput:
		if !a.Joined {
			w.warnNotJoined(a)
			return
		}
		w.applyInput(a, c, now)
	case ControlJoin:
		w.applyJoin(a, c, now)
	case ControlViewport:
		w.applyViewport(a, c.W, c.H)
	case ControlPerf:
		if protocol.ValidPerfMode(c.Mode) {
			a.Perf = c.Mode
		}
	case ControlUpdateTeam:
		a.RequestedTeam = protocol.NormalizeTeam(c.Team, w.tu.Limits.TeamMaxRunes)
	case ControlChat:
		w.applyChat(a, c.Text)
	}
}

func (w *World) applyInput(a *Agent, c ControlEnvelope, now int64) {
	if a.State != AgentActive {
		return
	}
	a.MovedSinceSpawn = true
	a.AutoRun = false
	a.AFKDeaths = 0
	if c.HasAngle {
		a.DX, a.DY = math.Cos(c.Angle), math.Sin(c.Angle)
		a.InvulnerableUntil = 0
	}
	if c.Boost && now >= a.BoostCooldownUntil {
		a.BoostUntil = now + int64(w.tu.Movement.BoostMs)
		a.BoostCooldownUntil = now + int64(w.tu.Movement.BoostCooldownMs)
	}
}

func (w *World) applyJoin(a *Agent, c ControlEnvelope, now int64) {
	name, team, code := protocol.ValidateJoin(protocol.JoinMsg{Name: c.Name, Team: c.Team}, w.limits())
	if code != 0 {
		w.kick(a, code)
		return
	}
	if name == "" {
		name = w.randomName()
	}
	a.RequestedTeam = team
	a.Joined = true
	w.applyModeIdentity(a, name)
	w.respawn(a, true, now)
	if cs := w.clients[a.ID]; cs != nil {
		cs.lastSynced = 0
	}
	if pm := w.playerMaster([]*Agent{a}); pm != nil {
		w.broadcastAll(pm)
	}
	w.logf("join id=%d name=%q team=%q", a.ID, a.Name, a.Team)
}

// applyViewport sizes the AOI from the client's screen. Oversize screens are rejected by
// the transport before they reach the world; tiny ones are ignored.
func (w *World) applyViewport(a *Agent, vw, vh int) {
	cfg := w.tu.AOI
	if vw < cfg.MinViewport || vh < cfg.MinViewport || vw > cfg.MaxViewportW || vh > cfg.MaxViewportH {
		return
	}
	a.AOIHalfW = mathx.ClampInt(mathx.RoundHalfUp(float64(vw)*cfg.ViewportScale+float64(cfg.ViewportMargin)), 0, cfg.Ceiling)
	a.AOIHalfH = mathx.ClampInt(mathx.RoundHalfUp(float64(vh)*cfg.ViewportScale+float64(cfg.ViewportMargin)), 0, cfg.Ceiling)
}

func (w *World) applyChat(a *Agent, text string) {
	if !a.Joined {
		w.sendError(a, protocol.ErrNotJoined, "join before chatting")
		return
	}
	if a.ChattedThisRound {
		w.sendError(a, protocol.ErrChatUsed, "one chat per round")
		return
	}
	text, ok := protocol.NormalizeChat(text, w.tu.Limits.ChatMaxRunes)
	if !ok {
		return
	}
	a.ChattedThisRound = true
	b, err := protocol.Encode(protocol.ChatOutMsg{Type: protocol.TypeChatOut, ID: a.ID, Name: a.Name, Color: a.Color, Text: text})
	if err != nil {
		return
	}
	w.broadcastAll(b)
}

// warnNotJoined answers the first input a connection sends before joining.
func (w *World) warnNotJoined(a *Agent) {
	c := w.clients[a.ID]
	if c == nil || c.warnedNotJoined {
		return
	}
	c.warnedNotJoined = true
	w.sendError(a, protocol.ErrNotJoined, "join before sending input")
}

func (w *World) sendError(a *Agent, code, message string) {
	b, err := protocol.EncodeError(code, message)
	if err != nil {
		w.logf("encode error %s: %v", code, err)
		return
	}
	w.sendTo(w.clients[a.ID], b)
}
