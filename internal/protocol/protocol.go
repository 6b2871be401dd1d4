package protocol

import "encoding/json"

const Version = "1.0"

// Client -> server JSON control message types.
const (
	TypeJoin       = "join"
	TypeViewport   = "viewport"
	TypePerf       = "perf"
	TypeUpdateTeam = "update_team"
	TypeChat       = "chat"
)

// Server -> client message types. init is JSON text, the rest are msgpack binary.
const (
	TypeInit         = "init"
	TypeState        = "s"
	TypePlayerMaster = "pm"
	TypeDeath        = "player_death"
	TypeChatOut      = "chat"
	TypeRoundEnd     = "round_end"
	TypeRoundStart   = "round_start"
	TypeError        = "error"
)

// Perf modes.
const (
	PerfAuto = "auto"
	PerfHigh = "high"
	PerfLow  = "low"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

// IsControlType reports whether t names a client control message.
func IsControlType(t string) bool {
	switch t {
	case TypeJoin, TypeViewport, TypePerf, TypeUpdateTeam, TypeChat:
		return true
	}
	return false
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
