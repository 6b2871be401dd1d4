package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/satorunet/onj-jintori/internal/sim/encoding"
)

type Header struct {
	Version int    `json:"version"`
	ArenaID string `json:"arena_id"`
	Round   int    `json:"round"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 is the final territory of a round. It is an archive record, not a
// resumable world state.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed      int64  `json:"seed"`
	Mode      string `json:"mode"`
	WorldSize int    `json:"world_size"`
	CellSize  int    `json:"cell_size"`
	Cols      int    `json:"cols"`
	Rows      int    `json:"rows"`

	// CellsRLE is the row-major owner grid, run-length encoded.
	CellsRLE string `json:"cells_rle"`

	Obstacles []ObstacleV1 `json:"obstacles"`
	Agents    []AgentV1    `json:"agents"`
	Rankings  []RankingV1  `json:"rankings"`
}

type ObstacleV1 struct {
	X, Y, W, H int
}

type AgentV1 struct {
	ID    uint16 `json:"id"`
	Name  string `json:"name"`
	Team  string `json:"team,omitempty"`
	Color string `json:"color"`
	Score int    `json:"score"`
	Kills int    `json:"kills"`
}

type RankingV1 struct {
	Name  string  `json:"name"`
	Team  string  `json:"team,omitempty"`
	Score float64 `json:"score"`
	Kills int     `json:"kills"`
}

// SetCells stores the owner grid.
func (s *SnapshotV1) SetCells(cells []uint16) { s.CellsRLE = encoding.EncodeRLE(cells) }

// Cells decodes the owner grid and checks it against the recorded dimensions.
func (s SnapshotV1) Cells() ([]uint16, error) {
	cells, err := encoding.DecodeRLE(s.CellsRLE)
	if err != nil {
		return nil, err
	}
	if len(cells) != s.Cols*s.Rows {
		return nil, fmt.Errorf("cells: got %d want %dx%d", len(cells), s.Cols, s.Rows)
	}
	return cells, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

// ReadHeader returns only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Header line is redundant with the gob payload.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
