package world

import (
	"github.com/satorunet/onj-jintori/internal/sim/world/logic/trail"
	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
)

type AgentState uint8

const (
	AgentWaiting AgentState = iota
	AgentActive
	AgentDead
)

func (s AgentState) String() string {
	switch s {
	case AgentActive:
		return "active"
	case AgentDead:
		return "dead"
	default:
		return "waiting"
	}
}

// Agent is one connected participant. Deadlines are simulation milliseconds.
type Agent struct {
	ID            uint16
	SessionID     string
	Name          string
	Team          string
	RequestedTeam string
	Color         string
	BaseColor     string
	Emoji         string
	Joined        bool

	X, Y   float64
	DX, DY float64
	State  AgentState

	Score int
	Kills int

	InvulnerableUntil  int64
	BoostUntil         int64
	BoostCooldownUntil int64
	SpawnAt            int64
	RespawnAt          int64

	MovedSinceSpawn bool
	AutoRun         bool
	AFKDeaths       int

	Perf     string
	AOIHalfW int
	AOIHalfH int

	ChattedThisRound bool

	// Trail is non-empty only while the agent stands outside self/team territory.
	Trail      []grid.Point
	PixelTrail []trail.Pixel
}

func (a *Agent) clearTrail() {
	a.Trail = a.Trail[:0]
	a.PixelTrail = a.PixelTrail[:0]
}

func (a *Agent) invulnerable(now int64) bool { return now < a.InvulnerableUntil }

func (a *Agent) boosting(now int64) bool { return now < a.BoostUntil }
