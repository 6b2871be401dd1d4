package world

import (
	"log"
	"math/rand"
	"sort"
	"sync/atomic"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/tuning"
	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/grid"
	"github.com/satorunet/onj-jintori/internal/sim/world/terrain/rects"
)

// World is the authoritative arena. All state must be accessed only from the world
// loop goroutine (Run) or, when no loop is running, from the caller of StepOnce.
type World struct {
	cfg    WorldConfig
	tu     tuning.Tuning
	logger *log.Logger
	rng    *rand.Rand

	tick atomic.Uint64

	grid    *grid.Grid
	rects   *rects.Index
	agents  map[uint16]*Agent
	order   []uint16
	clients map[uint16]*clientState
	nextID  uint16

	round roundState

	connect chan ConnectRequest
	inbox   chan ControlEnvelope
	leave   chan LeaveRequest
	stop    chan struct{}

	tickLogger  TickLogger
	auditLogger AuditLogger
	roundSink   chan<- RoundReport

	frame         uint64
	counters      syncCounters
	lastTeamStats []protocol.TeamStat
	stepMS        float64
	metrics       atomic.Value // WorldMetrics
}

func New(cfg WorldConfig, logger *log.Logger) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	tu := cfg.Tuning
	w := &World{
		cfg:     cfg,
		tu:      tu,
		logger:  logger,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		grid:    grid.New(worldSizeFor(tu.World, 0), tu.CellSize),
		rects:   rects.NewIndex(tu.Sync.HistoryCap),
		agents:  map[uint16]*Agent{},
		clients: map[uint16]*clientState{},
		nextID:  1,
		connect: make(chan ConnectRequest, 64),
		inbox:   make(chan ControlEnvelope, 1024),
		leave:   make(chan LeaveRequest, 64),
		stop:    make(chan struct{}),
	}
	w.startRound(0, 1)
	w.publishMetrics()
	return w, nil
}

func (w *World) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}

func (w *World) SetTickLogger(l TickLogger)   { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

// SetRoundSink registers a channel receiving one report per finished round. Sends are
// non-blocking; a full sink drops the report.
func (w *World) SetRoundSink(ch chan<- RoundReport) { w.roundSink = ch }

func (w *World) Connect() chan<- ConnectRequest { return w.connect }
func (w *World) Inbox() chan<- ControlEnvelope  { return w.inbox }
func (w *World) Leave() chan<- LeaveRequest     { return w.leave }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Tuning() tuning.Tuning { return w.tu }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) nowMS() int64 {
	return int64(w.tick.Load()) * int64(w.tu.TickDurationMs)
}

func worldSizeFor(c tuning.World, players int) int {
	size := c.BaseSize + c.PerPlayer*players
	if size < c.MinSize {
		size = c.MinSize
	}
	if size > c.MaxSize {
		size = c.MaxSize
	}
	return size
}

// rebuildOrder replaces the id order with a fresh slice, so loops ranging over the
// previous order survive agents leaving mid-iteration.
func (w *World) rebuildOrder() {
	order := make([]uint16, 0, len(w.agents))
	for id := range w.agents {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	w.order = order
}

// friendly reports whether owner is a or one of a's teammates.
func (w *World) friendly(a *Agent, owner uint16) bool {
	if owner == a.ID {
		return true
	}
	if a.Team == "" || owner == grid.Empty || owner == grid.Obstacle {
		return false
	}
	o := w.agents[owner]
	return o != nil && o.Team == a.Team
}

func teammates(a, b *Agent) bool {
	return a.Team != "" && a.Team == b.Team
}

// rebuildRects re-projects the grid. Cells of owners that no longer exist are cleared.
func (w *World) rebuildRects() {
	w.rects.Rebuild(w.grid, func(owner uint16) bool {
		_, ok := w.agents[owner]
		return ok
	})
}

func (w *World) obstacleMsgs() []protocol.Obstacle {
	obs := w.grid.Obstacles()
	out := make([]protocol.Obstacle, 0, len(obs))
	for _, o := range obs {
		out = append(out, protocol.Obstacle{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height})
	}
	return out
}

func (w *World) audit(e AuditEntry) {
	if w.auditLogger == nil {
		return
	}
	e.Tick = w.tick.Load()
	e.Round = w.round.Number
	_ = w.auditLogger.WriteAudit(e)
}

// Agent returns a copy of the agent with the given id. For tests and tooling only.
func (w *World) Agent(id uint16) (Agent, bool) {
	a := w.agents[id]
	if a == nil {
		return Agent{}, false
	}
	return *a, true
}

// TerritoryVersion returns the current rect index version.
func (w *World) TerritoryVersion() uint64 { return w.rects.Version() }
