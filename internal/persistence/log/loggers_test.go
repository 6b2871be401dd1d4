package log

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/satorunet/onj-jintori/internal/sim/tuning"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

func TestJSONLZstdWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "audit")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	paths, err := Files(dir, "audit")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("files: %v", paths)
	}
	if filepath.Base(paths[0]) != "audit-2026-03-01-10.jsonl.zst" {
		t.Fatalf("first file: %s", paths[0])
	}
	var got []int
	err = ForEachLine(paths, func(line []byte) error {
		var m map[string]int
		if err := json.Unmarshal(line, &m); err != nil {
			return err
		}
		got = append(got, m["n"])
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachLine: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("lines: %v", got)
	}
}

func TestTickLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	for i := uint64(0); i < 5; i++ {
		err := l.WriteTick(world.TickLogEntry{
			Tick:     i,
			Controls: []world.ControlEnvelope{{AgentID: 1, Kind: world.ControlInput, HasAngle: true, Angle: 0.5}},
			Digest:   "d",
		})
		if err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	entries, err := ReadTicks(dir)
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(entries) != 5 || entries[4].Tick != 4 || entries[2].Controls[0].Angle != 0.5 {
		t.Fatalf("entries: %+v", entries)
	}
	if s := l.Stats(); s.Dropped != 0 || s.Errors != 0 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestRunManifestRoundTrip(t *testing.T) {
	arena := t.TempDir()
	started := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	dir := RunDir(arena, started)
	if filepath.Base(dir) != "20260301T100005Z" {
		t.Fatalf("run dir: %s", dir)
	}
	tu := tuning.Defaults()
	tu.Round.DurationSec = 45
	cfg := world.WorldConfig{ID: "arena-x", Seed: 99, MaxAgents: 12, LogEveryTicks: 10, Tuning: tu}
	if err := WriteRunManifest(dir, cfg, started); err != nil {
		t.Fatalf("WriteRunManifest: %v", err)
	}
	got, m, err := ReadRunManifest(dir)
	if err != nil {
		t.Fatalf("ReadRunManifest: %v", err)
	}
	if !m.StartedAt.Equal(started) {
		t.Fatalf("started: %v", m.StartedAt)
	}
	if got.ID != "arena-x" || got.Seed != 99 || got.MaxAgents != 12 || got.LogEveryTicks != 10 {
		t.Fatalf("config: %+v", got)
	}
	if !reflect.DeepEqual(got.Tuning, tu) {
		t.Fatalf("tuning mismatch:\n got=%+v\nwant=%+v", got.Tuning, tu)
	}
}
