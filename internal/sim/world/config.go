package world

import "github.com/satorunet/onj-jintori/internal/sim/tuning"

type WorldConfig struct {
	ID   string
	Seed int64

	// MaxAgents caps concurrent connections. Short ids are drawn from 1..MaxAgents.
	MaxAgents int

	// LogEveryTicks forces a tick log entry (with digest) at this cadence even when
	// the tick had no inputs, so replays can verify long idle stretches.
	LogEveryTicks uint64

	Tuning tuning.Tuning
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "arena-1"
	}
	if c.MaxAgents <= 0 || c.MaxAgents > 65534 {
		c.MaxAgents = 65534
	}
	if c.LogEveryTicks == 0 {
		c.LogEveryTicks = 100
	}
	if c.Tuning.TickDurationMs <= 0 {
		c.Tuning = tuning.Defaults()
	}
}
