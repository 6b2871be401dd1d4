package indexdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

func sampleRound(n int) world.RoundResult {
	return world.RoundResult{
		ArenaID:     "arena-1",
		Round:       n,
		Mode:        "TEAM",
		StartTick:   100,
		EndTick:     2500,
		PlayerCount: 3,
		Winner:      "[RED] ann",
		Rankings: []protocol.Ranking{
			{Name: "[RED] ann", Team: "RED", Color: "#ef4444", Emoji: "😀", Score: 12.5, Kills: 2},
			{Name: "[BLUE] bo", Team: "BLUE", Color: "#3b82f6", Emoji: "👻", Score: 3.25, Kills: 0},
		},
		TeamRankings: []protocol.TeamRanking{
			{Team: "RED", Color: "#ef4444", Score: 12.5, Kills: 2, Members: 2},
			{Team: "BLUE", Color: "#3b82f6", Score: 3.25, Kills: 0, Members: 1},
		},
		Minimaps: []protocol.Minimap{
			{Size: 2, Palette: map[uint8]string{2: "#ef4444"}, Bitmap: []byte{1, 2, 3}, Flags: []protocol.MinimapFlag{{Team: "RED", X: 1, Y: 0}}},
		},
	}
}

func TestSQLiteIndex_RecordAndQueryRounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordRound(sampleRound(1), "/data/archives/round_001/round.snap.zst")
	idx.RecordRound(sampleRound(2), "")
	_ = idx.WriteAudit(world.AuditEntry{Tick: 7, Round: 1, Actor: 3, Action: "CAPTURE", Cells: 24, Pos: [2]int{100, 200}})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 7, Round: 1, Actor: 3, Action: "KILL", Target: 4, Reason: "enclosed"})
	_ = idx.WriteTick(world.TickLogEntry{Tick: 7, Digest: "abc"})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	list, err := idx.ListRounds(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	if len(list) != 2 || list[0].Round != 2 || list[1].SnapshotPath == "" {
		t.Fatalf("list: %+v", list)
	}

	d, err := idx.GetRound(ctx, list[1].ID)
	if err != nil {
		t.Fatalf("GetRound: %v", err)
	}
	if d.Winner != "[RED] ann" || d.EndTick != 2500 || d.Mode != "TEAM" {
		t.Fatalf("summary: %+v", d.RoundSummary)
	}
	if len(d.Rankings) != 2 || d.Rankings[0].Score != 12.5 || d.Rankings[1].Emoji != "👻" {
		t.Fatalf("rankings: %+v", d.Rankings)
	}
	if len(d.TeamRankings) != 2 || d.TeamRankings[0].Members != 2 {
		t.Fatalf("team rankings: %+v", d.TeamRankings)
	}
	if len(d.Minimaps) != 1 || d.Minimaps[0].Palette[2] != "#ef4444" || len(d.Minimaps[0].Bitmap) != 3 || d.Minimaps[0].Flags[0].X != 1 {
		t.Fatalf("minimaps: %+v", d.Minimaps)
	}

	if _, err := idx.GetRound(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing round err=%v", err)
	}

	audits, err := idx.RecentAudits(ctx, "CAPTURE", 10)
	if err != nil {
		t.Fatalf("RecentAudits: %v", err)
	}
	if len(audits) != 1 || audits[0].Cells != 24 || audits[0].Y != 200 {
		t.Fatalf("audits: %+v", audits)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	_ = s.WriteAudit(world.AuditEntry{Tick: 2})
	s.RecordRound(world.RoundResult{Round: 1}, "")

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropAuditTotal != 1 || st.DropRoundTotal != 1 {
		t.Fatalf("drops: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}
