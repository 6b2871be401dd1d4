package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/satorunet/onj-jintori/internal/sim/world"
)

// arenaState mirrors the body of the server's /admin/v1/state endpoint.
type arenaState struct {
	ArenaID string             `json:"arena_id"`
	Seed    int64              `json:"seed"`
	RunDir  string             `json:"run_dir"`
	Tick    uint64             `json:"tick"`
	Metrics world.WorldMetrics `json:"metrics"`
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	raw := fs.Bool("json", false, "print the response body unchanged")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	if resp.StatusCode/100 != 2 {
		fmt.Fprintf(os.Stderr, "%s: %s\n", resp.Status, strings.TrimSpace(string(b)))
		os.Exit(1)
	}
	if *raw {
		fmt.Println(strings.TrimSpace(string(b)))
		return
	}
	var st arenaState
	if err := json.Unmarshal(b, &st); err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	describeState(os.Stdout, st)
}

// describeState prints the round and traffic figures an operator checks first.
func describeState(w io.Writer, st arenaState) {
	m := st.Metrics
	phase := "intermission"
	if m.RoundActive {
		phase = fmt.Sprintf("%ds left", m.TimeRemaining)
	}
	fmt.Fprintf(w, "arena=%s seed=%d tick=%d run=%s\n", st.ArenaID, st.Seed, st.Tick, st.RunDir)
	fmt.Fprintf(w, "round %d %s (%s) world=%d rects=%d tv=%d\n", m.Round, m.Mode, phase, m.WorldSize, m.TerritoryRects, m.TerritoryVersion)
	fmt.Fprintf(w, "agents=%d joined=%d clients=%d step=%.2fms\n", m.Agents, m.Joined, m.Clients, m.StepMS)
	fmt.Fprintf(w, "sent=%d msgs / %d bytes syncs full=%d delta=%d resyncs=%d\n", m.MessagesSent, m.BytesSent, m.FullSyncs, m.DeltaSyncs, m.Resyncs)
	fmt.Fprintf(w, "queues inbox=%d connect=%d leave=%d\n", m.QueueDepths.Inbox, m.QueueDepths.Connect, m.QueueDepths.Leave)
}
