package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/satorunet/onj-jintori/internal/persistence/indexdb"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

type roundRecorder interface {
	RecordRound(res world.RoundResult, snapshotPath string)
}

// openRuntimeIndex opens the round index selected by JINTORI_INDEX_BACKEND. A nil
// index with a nil error means indexing is off.
func openRuntimeIndex(arenaDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("JINTORI_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(arenaDir, "index", "arena.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported JINTORI_INDEX_BACKEND: %s", backend)
	}
}
