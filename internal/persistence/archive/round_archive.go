package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/satorunet/onj-jintori/internal/persistence/snapshot"
)

type RoundArchiveMeta struct {
	ArenaID   string `json:"arena_id"`
	Round     int    `json:"round"`
	Mode      string `json:"mode"`
	EndTick   uint64 `json:"end_tick"`
	Seed      int64  `json:"seed"`
	WorldSize int    `json:"world_size"`
	Players   int    `json:"players"`
	Winner    string `json:"winner,omitempty"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveRoundSnapshot copies a round-end snapshot into `arenaDir/archives/round_<NNN>/`.
// Round numbers restart with the process, so an occupied directory gets the end tick
// appended.
func ArchiveRoundSnapshot(arenaDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, err error) {
	if snap.Header.Round <= 0 {
		return "", fmt.Errorf("archive: snapshot has no round")
	}
	archiveDir := filepath.Join(arenaDir, "archives", fmt.Sprintf("round_%03d", snap.Header.Round))
	if _, err := os.Stat(archiveDir); err == nil {
		archiveDir = fmt.Sprintf("%s-%d", archiveDir, snap.Header.Tick)
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	meta := RoundArchiveMeta{
		ArenaID:   snap.Header.ArenaID,
		Round:     snap.Header.Round,
		Mode:      snap.Mode,
		EndTick:   snap.Header.Tick,
		Seed:      snap.Seed,
		WorldSize: snap.WorldSize,
		Players:   len(snap.Agents),
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if len(snap.Rankings) > 0 {
		meta.Winner = snap.Rankings[0].Name
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, nil
}

// ListArchives reads every meta.json under arenaDir/archives, oldest end tick first.
// Directories without a readable meta.json are skipped.
func ListArchives(arenaDir string) ([]RoundArchiveMeta, error) {
	entries, err := os.ReadDir(filepath.Join(arenaDir, "archives"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []RoundArchiveMeta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(arenaDir, "archives", e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m RoundArchiveMeta
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTick < out[j].EndTick })
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
