package world

type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Agents  int `json:"agents"`
	Joined  int `json:"joined"`
	Clients int `json:"clients"`

	Round            int    `json:"round"`
	Mode             string `json:"mode"`
	RoundActive      bool   `json:"round_active"`
	TimeRemaining    int    `json:"time_remaining_sec"`
	WorldSize        int    `json:"world_size"`
	TerritoryVersion uint64 `json:"territory_version"`
	TerritoryRects   int    `json:"territory_rects"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`

	BytesSent    uint64 `json:"bytes_sent"`
	MessagesSent uint64 `json:"messages_sent"`
	FullSyncs    uint64 `json:"full_syncs"`
	DeltaSyncs   uint64 `json:"delta_syncs"`
	Resyncs      uint64 `json:"resyncs"`
}

type QueueDepths struct {
	Inbox   int `json:"inbox"`
	Connect int `json:"connect"`
	Leave   int `json:"leave"`
}

func (w *World) publishMetrics() {
	joined := 0
	for _, a := range w.agents {
		if a.Joined {
			joined++
		}
	}
	w.metrics.Store(WorldMetrics{
		Tick:             w.tick.Load(),
		Agents:           len(w.agents),
		Joined:           joined,
		Clients:          len(w.clients),
		Round:            w.round.Number,
		Mode:             w.round.Mode,
		RoundActive:      w.round.Active,
		TimeRemaining:    w.timeRemainingSec(w.nowMS()),
		WorldSize:        w.grid.WorldSize,
		TerritoryVersion: w.rects.Version(),
		TerritoryRects:   len(w.rects.Rects()),
		QueueDepths: QueueDepths{
			Inbox:   len(w.inbox),
			Connect: len(w.connect),
			Leave:   len(w.leave),
		},
		StepMS:       w.stepMS,
		BytesSent:    w.counters.bytesSent,
		MessagesSent: w.counters.messagesSent,
		FullSyncs:    w.counters.fullSyncs,
		DeltaSyncs:   w.counters.deltaSyncs,
		Resyncs:      w.counters.resyncs,
	})
}

// Metrics returns the snapshot published after the latest tick. Safe for concurrent use.
func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}
