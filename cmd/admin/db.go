package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/satorunet/onj-jintori/internal/persistence/indexdb"
)

// openIndex adds the location flags to fs, parses args and opens the arena index.
func openIndex(fs *flag.FlagSet, args []string) *indexdb.SQLiteIndex {
	dataDir := fs.String("data", "./data", "runtime data directory")
	arenaID := fs.String("arena", "arena-1", "arena id")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "arenas", *arenaID, "index", "arena.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "index:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return idx
}

func roundsCmd(args []string) {
	fs := flag.NewFlagSet("rounds", flag.ExitOnError)
	limit := fs.Int("limit", 20, "result limit")
	offset := fs.Int("offset", 0, "result offset")
	idx := openIndex(fs, args)
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := idx.ListRounds(ctx, *limit, *offset)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

func roundCmd(args []string) {
	fs := flag.NewFlagSet("round", flag.ExitOnError)
	id := fs.Int64("id", 0, "round row id")
	idx := openIndex(fs, args)
	defer idx.Close()

	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "missing -id")
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d, err := idx.GetRound(ctx, *id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	// Minimap bitmaps are large and unreadable on a terminal.
	d.Minimaps = nil
	printJSON(d)
}

func auditsCmd(args []string) {
	fs := flag.NewFlagSet("audits", flag.ExitOnError)
	action := fs.String("action", "", "action filter (CAPTURE, KILL, DEATH, STEAL, ROUND_END)")
	limit := fs.Int("limit", 50, "result limit")
	idx := openIndex(fs, args)
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := idx.RecentAudits(ctx, strings.ToUpper(strings.TrimSpace(*action)), *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

func printJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "json:", err)
		return
	}
	fmt.Println(string(b))
}
