package world

import (
	"testing"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/tuning"
)

func TestRoundEndReportsAndAlternatesMode(t *testing.T) {
	w := newTestWorld(t, func(tu *tuning.Tuning) {
		tu.Round.DurationSec = 1
		tu.Round.TeamBonusSec = 0
		tu.Round.PauseSec = 1
	})
	sink := make(chan RoundReport, 4)
	w.SetRoundSink(sink)
	c := connectAndJoin(t, w, "alice")
	c.out = make(chan []byte, 1024)
	w.clients[c.id].out = c.out
	v0 := w.TerritoryVersion()

	for i := 0; i < 100 && w.round.Number < 2; i++ {
		w.StepOnce(TickInput{})
	}
	if w.round.Number != 2 || w.round.Mode != "TEAM" || !w.round.Active {
		t.Fatalf("round: %+v", w.round)
	}

	var rep RoundReport
	select {
	case rep = <-sink:
	default:
		t.Fatalf("no round report")
	}
	if rep.Result.Round != 1 || rep.Result.Mode != "SOLO" || rep.Result.PlayerCount != 1 {
		t.Fatalf("result: %+v", rep.Result)
	}
	if rep.Result.Winner != "alice" || len(rep.Result.Rankings) != 1 || rep.Result.Rankings[0].Score <= 0 {
		t.Fatalf("rankings: %+v", rep.Result.Rankings)
	}
	cells, err := rep.Snapshot.Cells()
	if err != nil {
		t.Fatalf("snapshot cells: %v", err)
	}
	if len(cells) != rep.Snapshot.Cols*rep.Snapshot.Rows || len(rep.Snapshot.Agents) != 1 {
		t.Fatalf("snapshot: cells=%d agents=%d", len(cells), len(rep.Snapshot.Agents))
	}

	ends := drain[protocol.RoundEndMsg](t, c.out, protocol.TypeRoundEnd)
	if len(ends) != 1 || ends[0].NextMode != "TEAM" {
		t.Fatalf("round_end: %+v", ends)
	}

	a, _ := w.Agent(c.id)
	if a.State != AgentActive || a.Score != 49 || a.Kills != 0 {
		t.Fatalf("agent not reset for new round: %+v", a)
	}
	if w.TerritoryVersion() <= v0 {
		t.Fatalf("territory version went backwards: %d <= %d", w.TerritoryVersion(), v0)
	}
	if w.clients[c.id].lastSynced != 0 {
		t.Fatalf("round start did not force a full sync")
	}
}

func TestRoundPauseFreezesMovement(t *testing.T) {
	w := newTestWorld(t, func(tu *tuning.Tuning) {
		tu.Round.DurationSec = 1
		tu.Round.PauseSec = 5
	})
	c := connectAndJoin(t, w, "alice")
	for i := 0; i < 30 && w.round.Active; i++ {
		w.StepOnce(TickInput{})
	}
	if w.round.Active {
		t.Fatalf("round still active")
	}
	a := w.agents[c.id]
	a.DX, a.DY = 1, 0
	x := a.X
	w.StepOnce(TickInput{})
	if a.X != x {
		t.Fatalf("agent moved during pause")
	}
}
