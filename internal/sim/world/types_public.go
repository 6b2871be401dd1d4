package world

import (
	"github.com/satorunet/onj-jintori/internal/persistence/snapshot"
	"github.com/satorunet/onj-jintori/internal/protocol"
)

// ConnectRequest registers a new connection. Out receives msgpack frames and Close
// receives at most one close code when the world drops the connection.
type ConnectRequest struct {
	SessionID string
	Out       chan []byte
	Close     chan protocol.CloseCode
	Resp      chan ConnectResponse
}

type ConnectResponse struct {
	ID   uint16
	Init protocol.InitMsg
	Err  string
}

// Control kinds.
const (
	ControlInput      = "input"
	ControlJoin       = "join"
	ControlViewport   = "viewport"
	ControlPerf       = "perf"
	ControlUpdateTeam = "update_team"
	ControlChat       = "chat"
)

// ControlEnvelope carries one client intent into the world loop. Only the fields
// relevant to Kind are set.
type ControlEnvelope struct {
	AgentID  uint16  `json:"agent_id"`
	Kind     string  `json:"kind"`
	HasAngle bool    `json:"has_angle,omitempty"`
	Angle    float64 `json:"angle,omitempty"`
	Boost    bool    `json:"boost,omitempty"`
	Name     string  `json:"name,omitempty"`
	Team     string  `json:"team,omitempty"`
	Text     string  `json:"text,omitempty"`
	Mode     string  `json:"mode,omitempty"`
	W        int     `json:"w,omitempty"`
	H        int     `json:"h,omitempty"`
}

// LeaveRequest removes a connection. A non-empty SessionID must match the agent's,
// so a late leave never removes a newer holder of a reused short id.
type LeaveRequest struct {
	ID        uint16
	SessionID string
}

// TickInput is everything applied at the start of a single tick.
type TickInput struct {
	Connects []ConnectRequest
	Leaves   []LeaveRequest
	Controls []ControlEnvelope
}

func (in TickInput) empty() bool {
	return len(in.Connects) == 0 && len(in.Leaves) == 0 && len(in.Controls) == 0
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Connects []RecordedConnect `json:"connects,omitempty"`
	Leaves   []uint16          `json:"leaves,omitempty"`
	Controls []ControlEnvelope `json:"controls,omitempty"`
	Digest   string            `json:"digest"`
}

type RecordedConnect struct {
	ID        uint16 `json:"id"`
	SessionID string `json:"session_id"`
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Round  int    `json:"round"`
	Actor  uint16 `json:"actor"`
	Action string `json:"action"` // CAPTURE, KILL, DEATH, STEAL, ROUND_END
	Target uint16 `json:"target,omitempty"`
	Cells  int    `json:"cells,omitempty"`
	Pos    [2]int `json:"pos"`
	Reason string `json:"reason,omitempty"`
}

// RoundResult is the persisted outcome of one round.
type RoundResult struct {
	ArenaID      string                 `json:"arena_id"`
	Round        int                    `json:"round"`
	Mode         string                 `json:"mode"`
	StartTick    uint64                 `json:"start_tick"`
	EndTick      uint64                 `json:"end_tick"`
	PlayerCount  int                    `json:"player_count"`
	Winner       string                 `json:"winner,omitempty"`
	Rankings     []protocol.Ranking     `json:"rankings"`
	TeamRankings []protocol.TeamRanking `json:"team_rankings,omitempty"`
	Minimaps     []protocol.Minimap     `json:"-"`
}

// RoundReport is emitted on the round sink when a round ends.
type RoundReport struct {
	Result   RoundResult
	Snapshot snapshot.SnapshotV1
}
