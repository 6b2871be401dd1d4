package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/satorunet/onj-jintori/internal/sim/tuning"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

const (
	manifestName = "run.json"
	tuningName   = "tuning.yaml"
)

// RunManifest records what a replay needs to rebuild the world of one server run.
type RunManifest struct {
	ArenaID       string    `json:"arena_id"`
	Seed          int64     `json:"seed"`
	MaxAgents     int       `json:"max_agents"`
	LogEveryTicks uint64    `json:"log_every_ticks"`
	StartedAt     time.Time `json:"started_at"`
}

// RunDir is the per-run log directory under an arena directory.
func RunDir(arenaDir string, startedAt time.Time) string {
	return filepath.Join(arenaDir, "runs", startedAt.UTC().Format("20060102T150405Z"))
}

// WriteRunManifest stores run.json and the effective tuning in runDir.
func WriteRunManifest(runDir string, cfg world.WorldConfig, startedAt time.Time) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	m := RunManifest{
		ArenaID:       cfg.ID,
		Seed:          cfg.Seed,
		MaxAgents:     cfg.MaxAgents,
		LogEveryTicks: cfg.LogEveryTicks,
		StartedAt:     startedAt.UTC(),
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(runDir, manifestName), b, 0o644); err != nil {
		return err
	}
	return tuning.Save(filepath.Join(runDir, tuningName), cfg.Tuning)
}

// ReadRunManifest returns the world config recorded for runDir.
func ReadRunManifest(runDir string) (world.WorldConfig, RunManifest, error) {
	var m RunManifest
	b, err := os.ReadFile(filepath.Join(runDir, manifestName))
	if err != nil {
		return world.WorldConfig{}, m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return world.WorldConfig{}, m, fmt.Errorf("%s: %w", manifestName, err)
	}
	tu, err := tuning.Load(filepath.Join(runDir, tuningName))
	if err != nil {
		return world.WorldConfig{}, m, err
	}
	return world.WorldConfig{
		ID:            m.ArenaID,
		Seed:          m.Seed,
		MaxAgents:     m.MaxAgents,
		LogEveryTicks: m.LogEveryTicks,
		Tuning:        tu,
	}, m, nil
}
