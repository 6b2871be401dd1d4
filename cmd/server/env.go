package main

import (
	"os"
	"strings"
	"time"

	persistlog "github.com/satorunet/onj-jintori/internal/persistence/log"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeRunManifest(arenaDir string, cfg world.WorldConfig, startedAt time.Time) (string, error) {
	dir := persistlog.RunDir(arenaDir, startedAt)
	if err := persistlog.WriteRunManifest(dir, cfg, startedAt); err != nil {
		return "", err
	}
	return dir, nil
}
