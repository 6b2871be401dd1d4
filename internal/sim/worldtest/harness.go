package worldtest

import (
	"testing"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

// Harness drives a world through its exported API only:
// - Join() connects and joins via StepOnce()
// - Steer()/StepNoop() feed control envelopes via StepOnce()
// - Broadcast() runs one sync frame and decodes what each session received
//
// Tests built on it can live outside the world package.
type Harness struct {
	T *testing.T
	W *world.World

	sessions map[uint16]*session
}

type session struct {
	ID        uint16
	Out       chan []byte
	Close     chan protocol.CloseCode
	lastState protocol.StateMsg
	hasState  bool
	deaths    []protocol.DeathMsg
	closed    protocol.CloseCode
}

func NewHarness(t *testing.T, cfg world.WorldConfig) *Harness {
	t.Helper()
	w, err := world.New(cfg, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, W: w, sessions: map[uint16]*session{}}
}

// Connect opens a connection without joining and returns its short id.
func (h *Harness) Connect(sessionID string) uint16 {
	h.T.Helper()
	s := &session{Out: make(chan []byte, 512), Close: make(chan protocol.CloseCode, 1)}
	resp := make(chan world.ConnectResponse, 1)
	h.W.StepOnce(world.TickInput{Connects: []world.ConnectRequest{{
		SessionID: sessionID,
		Out:       s.Out,
		Close:     s.Close,
		Resp:      resp,
	}}})
	r := <-resp
	if r.Err != "" {
		h.T.Fatalf("connect %s: %s", sessionID, r.Err)
	}
	s.ID = r.ID
	h.sessions[s.ID] = s
	h.drainAll()
	return s.ID
}

// Join connects and joins a player. team is ignored outside TEAM rounds.
func (h *Harness) Join(name, team string) uint16 {
	h.T.Helper()
	id := h.Connect("sess-" + name)
	h.W.StepOnce(world.TickInput{Controls: []world.ControlEnvelope{{AgentID: id, Kind: world.ControlJoin, Name: name, Team: team}}})
	h.drainAll()
	if a, ok := h.W.Agent(id); !ok || !a.Joined {
		h.T.Fatalf("join %s: agent=%+v ok=%v", name, a, ok)
	}
	return id
}

func (h *Harness) Steer(id uint16, angle float64, boost bool) {
	h.T.Helper()
	h.W.StepOnce(world.TickInput{Controls: []world.ControlEnvelope{{
		AgentID:  id,
		Kind:     world.ControlInput,
		HasAngle: true,
		Angle:    angle,
		Boost:    boost,
	}}})
	h.drainAll()
}

func (h *Harness) StepNoop() string {
	h.T.Helper()
	_, digest := h.W.StepOnce(world.TickInput{})
	h.drainAll()
	return digest
}

// StepUntil steps until cond holds, failing after max ticks.
func (h *Harness) StepUntil(max int, cond func() bool) int {
	h.T.Helper()
	for i := 0; i < max; i++ {
		if cond() {
			return i
		}
		h.StepNoop()
	}
	if !cond() {
		h.T.Fatalf("condition not reached after %d ticks", max)
	}
	return max
}

func (h *Harness) Broadcast() {
	h.T.Helper()
	h.W.Broadcast()
	h.drainAll()
}

func (h *Harness) Agent(id uint16) world.Agent {
	h.T.Helper()
	a, ok := h.W.Agent(id)
	if !ok {
		h.T.Fatalf("unknown agent %d", id)
	}
	return a
}

func (h *Harness) LastState(id uint16) protocol.StateMsg {
	h.T.Helper()
	s := h.session(id)
	if !s.hasState {
		h.T.Fatalf("agent %d has no state message", id)
	}
	return s.lastState
}

func (h *Harness) Deaths(id uint16) []protocol.DeathMsg { return h.session(id).deaths }

func (h *Harness) CloseCode(id uint16) protocol.CloseCode { return h.session(id).closed }

func (h *Harness) session(id uint16) *session {
	h.T.Helper()
	s := h.sessions[id]
	if s == nil {
		h.T.Fatalf("unknown session %d", id)
	}
	return s
}

func (h *Harness) drainAll() {
	h.T.Helper()
	for _, s := range h.sessions {
		h.drainOne(s)
	}
}

func (h *Harness) drainOne(s *session) {
	h.T.Helper()
	for {
		select {
		case code := <-s.Close:
			s.closed = code
			continue
		case b := <-s.Out:
			typ, err := protocol.PeekType(b)
			if err != nil {
				h.T.Fatalf("PeekType: %v", err)
			}
			switch typ {
			case protocol.TypeState:
				var st protocol.StateMsg
				if err := protocol.Decode(b, &st); err != nil {
					h.T.Fatalf("decode state: %v", err)
				}
				s.lastState, s.hasState = st, true
			case protocol.TypeDeath:
				var d protocol.DeathMsg
				if err := protocol.Decode(b, &d); err != nil {
					h.T.Fatalf("decode death: %v", err)
				}
				s.deaths = append(s.deaths, d)
			}
			continue
		default:
		}
		return
	}
}
