package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/satorunet/onj-jintori/internal/persistence/archive"
	"github.com/satorunet/onj-jintori/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rounds":
			roundsCmd(os.Args[2:])
			return
		case "round":
			roundCmd(os.Args[2:])
			return
		case "audits":
			auditsCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "archives":
			archivesCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "arenas"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	arenaID := fs.String("arena", "arena-1", "arena id")
	_ = fs.Parse(args)

	metas, err := archive.ListArchives(filepath.Join(*dataDir, "arenas", *arenaID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list archives:", err)
		os.Exit(1)
	}
	for _, m := range metas {
		printJSON(m)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	path := fs.String("path", "", "snapshot path (.snap.zst)")
	top := fs.Int("top", 10, "owners to list by cell count")
	_ = fs.Parse(args)

	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(os.Stderr, "missing -path")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if err := describeSnapshot(os.Stdout, snap, *top); err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
}

type ownerCount struct {
	ID    uint16
	Cells int
}

// describeSnapshot prints the header and the largest territories of a round snapshot.
func describeSnapshot(w io.Writer, snap snapshot.SnapshotV1, top int) error {
	cells, err := snap.Cells()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "snapshot v%d arena=%s round=%d tick=%d mode=%s seed=%d world=%d grid=%dx%d obstacles=%d agents=%d\n",
		snap.Header.Version, snap.Header.ArenaID, snap.Header.Round, snap.Header.Tick, snap.Mode, snap.Seed,
		snap.WorldSize, snap.Cols, snap.Rows, len(snap.Obstacles), len(snap.Agents))

	counts := map[uint16]int{}
	for _, c := range cells {
		if c != 0 && c != 0xFFFF {
			counts[c]++
		}
	}
	owners := make([]ownerCount, 0, len(counts))
	for id, n := range counts {
		owners = append(owners, ownerCount{ID: id, Cells: n})
	}
	sort.Slice(owners, func(i, j int) bool {
		if owners[i].Cells != owners[j].Cells {
			return owners[i].Cells > owners[j].Cells
		}
		return owners[i].ID < owners[j].ID
	})
	names := map[uint16]string{}
	for _, a := range snap.Agents {
		names[a.ID] = a.Name
	}
	for i, o := range owners {
		if i >= top {
			break
		}
		pct := float64(o.Cells) * 100 / float64(len(cells))
		fmt.Fprintf(w, "%2d. id=%d name=%q cells=%d (%.2f%%)\n", i+1, o.ID, names[o.ID], o.Cells, pct)
	}
	return nil
}
