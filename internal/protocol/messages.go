package protocol

// JOIN (client -> server)
type JoinMsg struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Team string `json:"team,omitempty"`
}

type ViewportMsg struct {
	Type string `json:"type"`
	W    int    `json:"w"`
	H    int    `json:"h"`
}

type PerfMsg struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

type UpdateTeamMsg struct {
	Type string `json:"type"`
	Team string `json:"team"`
}

type ChatMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// INIT (server -> client, JSON text)
type InitMsg struct {
	Type             string     `json:"type"`
	ProtocolVersion  string     `json:"protocol_version"`
	ID               uint16     `json:"id"`
	SessionID        string     `json:"session_id"`
	Color            string     `json:"color"`
	Emoji            string     `json:"emoji"`
	World            WorldSize  `json:"world"`
	CellSize         int        `json:"cell_size"`
	Mode             string     `json:"mode"`
	Obstacles        []Obstacle `json:"obstacles"`
	TerritoryVersion uint64     `json:"tv"`
	TimeRemaining    int        `json:"tm"`
	PlayerCount      int        `json:"pc"`
	Teams            []TeamInfo `json:"teams,omitempty"`
}

type WorldSize struct {
	Width  int `json:"width" msgpack:"w"`
	Height int `json:"height" msgpack:"h"`
}

type Obstacle struct {
	X      int `json:"x" msgpack:"x"`
	Y      int `json:"y" msgpack:"y"`
	Width  int `json:"width" msgpack:"w"`
	Height int `json:"height" msgpack:"h"`
}

type TeamInfo struct {
	Name  string `json:"name" msgpack:"n"`
	Color string `json:"color" msgpack:"c"`
}

// Agent state codes carried in PlayerView.State. Invulnerable agents report
// StateWaiting plus the remaining whole seconds of protection.
const (
	StateDead    = 0
	StateActive  = 1
	StateWaiting = 2
)

// STATE (server -> client, msgpack)
type StateMsg struct {
	Type             string       `msgpack:"type"`
	TimeRemaining    int          `msgpack:"tm"`
	PlayerCount      int          `msgpack:"pc"`
	Players          []PlayerView `msgpack:"p"`
	TerritoryVersion uint64       `msgpack:"tv"`
	Territory        []byte       `msgpack:"tb,omitempty"`
	TerritoryFull    []byte       `msgpack:"tfb,omitempty"`
	Teams            []TeamStat   `msgpack:"te,omitempty"`
	Minimap          *Minimap     `msgpack:"mm,omitempty"`
	Scoreboard       []ScoreEntry `msgpack:"sb,omitempty"`
}

type PlayerView struct {
	ID    uint16 `msgpack:"i"`
	X     int    `msgpack:"x"`
	Y     int    `msgpack:"y"`
	State int    `msgpack:"st"`
	// Boost and BoostCooldown are remaining tenths of a second.
	Boost         int    `msgpack:"bs,omitempty"`
	BoostCooldown int    `msgpack:"bc,omitempty"`
	Trail         []byte `msgpack:"rb,omitempty"`
	FullTrail     bool   `msgpack:"ft,omitempty"`
	TrailCleared  bool   `msgpack:"tc,omitempty"`
}

type TeamStat struct {
	Name    string `msgpack:"n"`
	Color   string `msgpack:"c"`
	Score   int    `msgpack:"s"`
	Kills   int    `msgpack:"k"`
	Members int    `msgpack:"m"`
}

type ScoreEntry struct {
	ID    uint16 `msgpack:"i"`
	Name  string `msgpack:"n"`
	Score int    `msgpack:"s"`
	Kills int    `msgpack:"k"`
	Team  string `msgpack:"t,omitempty"`
}

// Minimap is a palette-indexed square bitmap; Bitmap is zlib-compressed, one byte per cell.
type Minimap struct {
	Size    int              `msgpack:"sz" json:"size"`
	Palette map[uint8]string `msgpack:"pl" json:"palette"`
	Bitmap  []byte           `msgpack:"bm" json:"bitmap"`
	Flags   []MinimapFlag    `msgpack:"fl,omitempty" json:"flags,omitempty"`
}

type MinimapFlag struct {
	Team string `msgpack:"t" json:"team"`
	X    int    `msgpack:"x" json:"x"`
	Y    int    `msgpack:"y" json:"y"`
}

type PlayerMasterMsg struct {
	Type    string        `msgpack:"type"`
	Players []PlayerEntry `msgpack:"players"`
}

type PlayerEntry struct {
	ID    uint16 `msgpack:"i"`
	Name  string `msgpack:"n"`
	Color string `msgpack:"c"`
	Emoji string `msgpack:"e"`
	Team  string `msgpack:"t"`
}

type DeathMsg struct {
	Type   string `msgpack:"type"`
	ID     uint16 `msgpack:"id"`
	Killer uint16 `msgpack:"killer,omitempty"`
	Reason string `msgpack:"reason"`
}

// ErrorMsg tells one client a request was refused. The connection stays open.
type ErrorMsg struct {
	Type    string `msgpack:"type"`
	Code    string `msgpack:"code"`
	Message string `msgpack:"msg,omitempty"`
}

type ChatOutMsg struct {
	Type  string `msgpack:"type"`
	ID    uint16 `msgpack:"id"`
	Name  string `msgpack:"name"`
	Color string `msgpack:"color"`
	Text  string `msgpack:"text"`
}

type Ranking struct {
	Name  string  `msgpack:"name" json:"name"`
	Team  string  `msgpack:"team,omitempty" json:"team,omitempty"`
	Color string  `msgpack:"color" json:"color"`
	Emoji string  `msgpack:"emoji" json:"emoji"`
	Score float64 `msgpack:"score" json:"score"`
	Kills int     `msgpack:"kills" json:"kills"`
}

type TeamRanking struct {
	Team    string  `msgpack:"team" json:"team"`
	Color   string  `msgpack:"color" json:"color"`
	Score   float64 `msgpack:"score" json:"score"`
	Kills   int     `msgpack:"kills" json:"kills"`
	Members int     `msgpack:"members" json:"members"`
}

type RoundEndMsg struct {
	Type           string        `msgpack:"type"`
	Round          int           `msgpack:"round"`
	Mode           string        `msgpack:"mode"`
	NextMode       string        `msgpack:"next_mode"`
	Winner         string        `msgpack:"winner,omitempty"`
	Rankings       []Ranking     `msgpack:"rankings"`
	TeamRankings   []TeamRanking `msgpack:"team_rankings,omitempty"`
	TotalPlayers   int           `msgpack:"total_players"`
	MinimapHistory []Minimap     `msgpack:"minimap_history,omitempty"`
	NextRoundSec   int           `msgpack:"next_round_sec"`
}

type RoundStartMsg struct {
	Type             string     `msgpack:"type"`
	Round            int        `msgpack:"round"`
	Mode             string     `msgpack:"mode"`
	World            WorldSize  `msgpack:"world"`
	Obstacles        []Obstacle `msgpack:"obstacles"`
	TerritoryVersion uint64     `msgpack:"tv"`
	TimeRemaining    int        `msgpack:"tm"`
}
