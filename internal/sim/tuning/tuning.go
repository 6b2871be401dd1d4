package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickDurationMs int `yaml:"tick_duration_ms"`
	BroadcastMs    int `yaml:"broadcast_ms"`
	CellSize       int `yaml:"cell_size"`

	World     World     `yaml:"world"`
	Movement  Movement  `yaml:"movement"`
	Combat    Combat    `yaml:"combat"`
	Capture   Capture   `yaml:"capture"`
	Lifecycle Lifecycle `yaml:"lifecycle"`
	Round     Round     `yaml:"round"`
	Sync      Sync      `yaml:"sync"`
	AOI       AOI       `yaml:"aoi"`

	RateLimits RateLimits `yaml:"rate_limits"`
	Limits     Limits     `yaml:"limits"`
}

// World sizing follows the connected player count at round start.
type World struct {
	BaseSize         int `yaml:"base_size"`
	PerPlayer        int `yaml:"per_player"`
	MinSize          int `yaml:"min_size"`
	MaxSize          int `yaml:"max_size"`
	ObstaclesMin     int `yaml:"obstacles_min"`
	ObstaclesMax     int `yaml:"obstacles_max"`
	ObstacleMinCells int `yaml:"obstacle_min_cells"`
	ObstacleMaxCells int `yaml:"obstacle_max_cells"`
}

type Movement struct {
	Speed           float64 `yaml:"speed"`
	BoostMultiplier float64 `yaml:"boost_multiplier"`
	BoostMs         int     `yaml:"boost_ms"`
	BoostCooldownMs int     `yaml:"boost_cooldown_ms"`
	AFKAutoRunMs    int     `yaml:"afk_autorun_ms"`
}

type Combat struct {
	SmallScoreThreshold int     `yaml:"small_score_threshold"`
	TrailCutRadius      float64 `yaml:"trail_cut_radius"`
	SelfHitRadius       float64 `yaml:"self_hit_radius"`
	SelfHitSkip         int     `yaml:"self_hit_skip"`
}

type Capture struct {
	SmallIslandMax int `yaml:"small_island_max"`
}

type Lifecycle struct {
	RespawnMs            int `yaml:"respawn_ms"`
	InvulnerableMs       int `yaml:"invulnerable_ms"`
	SpawnBoostCooldownMs int `yaml:"spawn_boost_cooldown_ms"`
	AFKDeathLimit        int `yaml:"afk_death_limit"`
	SpawnAttempts        int `yaml:"spawn_attempts"`
	SpawnClearRadius     int `yaml:"spawn_clear_radius"`
	StartTerritoryRadius int `yaml:"start_territory_radius"`
}

type Round struct {
	DurationSec  int      `yaml:"duration_sec"`
	TeamBonusSec int      `yaml:"team_bonus_sec"`
	PauseSec     int      `yaml:"pause_sec"`
	Modes        []string `yaml:"modes"`
	Rankings     int      `yaml:"rankings"`
	TeamRankings int      `yaml:"team_rankings"`
}

type Sync struct {
	HistoryCap       int `yaml:"history_cap"`
	FullSyncLag      int `yaml:"full_sync_lag"`
	TrailRefreshMs   int `yaml:"trail_refresh_ms"`
	MinimapEvery     int `yaml:"minimap_every"`
	ScoreboardEvery  int `yaml:"scoreboard_every"`
	MinimapSize      int `yaml:"minimap_size"`
	MinimapHistoryMs int `yaml:"minimap_history_ms"`
}

type AOI struct {
	DefaultHalfW   int     `yaml:"default_half_w"`
	DefaultHalfH   int     `yaml:"default_half_h"`
	Floor          int     `yaml:"floor"`
	Ceiling        int     `yaml:"ceiling"`
	LowPerfCap     int     `yaml:"low_perf_cap"`
	ViewportScale  float64 `yaml:"viewport_scale"`
	ViewportMargin int     `yaml:"viewport_margin"`
	MinViewport    int     `yaml:"min_viewport"`
	MaxViewportW   int     `yaml:"max_viewport_w"`
	MaxViewportH   int     `yaml:"max_viewport_h"`
}

type RateLimits struct {
	ControlPerSec float64 `yaml:"control_per_sec"`
	ControlBurst  int     `yaml:"control_burst"`
}

type Limits struct {
	NameMaxRunes int `yaml:"name_max_runes"`
	TeamMaxRunes int `yaml:"team_max_runes"`
	ChatMaxRunes int `yaml:"chat_max_runes"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickDurationMs:  50,
		BroadcastMs:     150,
		CellSize:        10,
		World: World{
			BaseSize:         2000,
			PerPlayer:        100,
			MinSize:          1500,
			MaxSize:          5000,
			ObstaclesMin:     10,
			ObstaclesMax:     20,
			ObstacleMinCells: 2,
			ObstacleMaxCells: 6,
		},
		Movement: Movement{
			Speed:           130,
			BoostMultiplier: 1.8,
			BoostMs:         2000,
			BoostCooldownMs: 5000,
			AFKAutoRunMs:    5000,
		},
		Combat: Combat{
			SmallScoreThreshold: 100,
			TrailCutRadius:      15,
			SelfHitRadius:       8,
			SelfHitSkip:         10,
		},
		Capture: Capture{SmallIslandMax: 10},
		Lifecycle: Lifecycle{
			RespawnMs:            3000,
			InvulnerableMs:       3000,
			SpawnBoostCooldownMs: 5000,
			AFKDeathLimit:        3,
			SpawnAttempts:        100,
			SpawnClearRadius:     4,
			StartTerritoryRadius: 3,
		},
		Round: Round{
			DurationSec:  120,
			TeamBonusSec: 120,
			PauseSec:     15,
			Modes:        []string{"SOLO", "TEAM"},
			Rankings:     10,
			TeamRankings: 5,
		},
		Sync: Sync{
			HistoryCap:       10,
			FullSyncLag:      1000,
			TrailRefreshMs:   5000,
			MinimapEvery:     66,
			ScoreboardEvery:  20,
			MinimapSize:      30,
			MinimapHistoryMs: 20000,
		},
		AOI: AOI{
			DefaultHalfW:   488,
			DefaultHalfH:   752,
			Floor:          800,
			Ceiling:        2500,
			LowPerfCap:     1500,
			ViewportScale:  0.6,
			ViewportMargin: 200,
			MinViewport:    100,
			MaxViewportW:   540,
			MaxViewportH:   1020,
		},
		RateLimits: RateLimits{ControlPerSec: 5, ControlBurst: 10},
		Limits:     Limits{NameMaxRunes: 8, TeamMaxRunes: 5, ChatMaxRunes: 15},
	}
}

// Load reads a tuning file on top of Defaults, so a partial file only overrides
// the keys it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickDurationMs <= 0:
		return fmt.Errorf("tick_duration_ms must be > 0")
	case t.BroadcastMs <= 0:
		return fmt.Errorf("broadcast_ms must be > 0")
	case t.CellSize <= 0:
		return fmt.Errorf("cell_size must be > 0")
	case t.World.MinSize <= 0 || t.World.MaxSize < t.World.MinSize:
		return fmt.Errorf("world min_size/max_size out of order")
	case t.World.ObstaclesMax < t.World.ObstaclesMin:
		return fmt.Errorf("world obstacles_max < obstacles_min")
	case t.World.ObstacleMinCells <= 0 || t.World.ObstacleMaxCells < t.World.ObstacleMinCells:
		return fmt.Errorf("world obstacle cell range invalid")
	case t.Sync.HistoryCap <= 0:
		return fmt.Errorf("sync history_cap must be > 0")
	case len(t.Round.Modes) == 0:
		return fmt.Errorf("round modes must not be empty")
	}
	for _, m := range t.Round.Modes {
		if m != "SOLO" && m != "TEAM" {
			return fmt.Errorf("round mode %q unknown", m)
		}
	}
	return nil
}

// Save writes t as yaml. Load(path) of the result yields t again.
func Save(path string, t Tuning) error {
	raw, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("tuning.yaml: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}
