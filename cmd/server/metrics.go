package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/satorunet/onj-jintori/internal/persistence/indexdb"
	persistlog "github.com/satorunet/onj-jintori/internal/persistence/log"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// writeMetrics renders the Prometheus text exposition format.
func writeMetrics(rw io.Writer, arena string, m world.WorldMetrics, logs map[string]persistlog.Stats, idx indexdb.Stats) {
	gauge := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s gauge\n", name, help, name)
	}
	counter := func(name, help string) {
		fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s counter\n", name, help, name)
	}

	gauge("jintori_world_tick", "Current world tick.")
	fmt.Fprintf(rw, "jintori_world_tick{arena=%q} %d\n", arena, m.Tick)

	gauge("jintori_world_agents", "Connected agents, joined or not.")
	fmt.Fprintf(rw, "jintori_world_agents{arena=%q} %d\n", arena, m.Agents)

	gauge("jintori_world_joined", "Agents that sent join.")
	fmt.Fprintf(rw, "jintori_world_joined{arena=%q} %d\n", arena, m.Joined)

	gauge("jintori_round", "Current round number.")
	fmt.Fprintf(rw, "jintori_round{arena=%q,mode=%q} %d\n", arena, m.Mode, m.Round)

	gauge("jintori_round_active", "1 while a round is running, 0 during the pause.")
	fmt.Fprintf(rw, "jintori_round_active{arena=%q} %d\n", arena, boolGauge(m.RoundActive))

	gauge("jintori_round_time_remaining_seconds", "Seconds left in the current round.")
	fmt.Fprintf(rw, "jintori_round_time_remaining_seconds{arena=%q} %d\n", arena, m.TimeRemaining)

	gauge("jintori_world_size_pixels", "World edge length.")
	fmt.Fprintf(rw, "jintori_world_size_pixels{arena=%q} %d\n", arena, m.WorldSize)

	gauge("jintori_territory_version", "Territory version counter.")
	fmt.Fprintf(rw, "jintori_territory_version{arena=%q} %d\n", arena, m.TerritoryVersion)

	gauge("jintori_territory_rects", "Territory rectangles in the current index.")
	fmt.Fprintf(rw, "jintori_territory_rects{arena=%q} %d\n", arena, m.TerritoryRects)

	gauge("jintori_world_queue_depth", "Channel backlog depth.")
	fmt.Fprintf(rw, "jintori_world_queue_depth{arena=%q,queue=%q} %d\n", arena, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "jintori_world_queue_depth{arena=%q,queue=%q} %d\n", arena, "connect", m.QueueDepths.Connect)
	fmt.Fprintf(rw, "jintori_world_queue_depth{arena=%q,queue=%q} %d\n", arena, "leave", m.QueueDepths.Leave)

	gauge("jintori_world_step_ms", "Last tick step duration in milliseconds.")
	fmt.Fprintf(rw, "jintori_world_step_ms{arena=%q} %.3f\n", arena, m.StepMS)

	counter("jintori_sent_bytes_total", "Bytes queued to clients.")
	fmt.Fprintf(rw, "jintori_sent_bytes_total{arena=%q} %d\n", arena, m.BytesSent)

	counter("jintori_sent_messages_total", "Messages queued to clients.")
	fmt.Fprintf(rw, "jintori_sent_messages_total{arena=%q} %d\n", arena, m.MessagesSent)

	counter("jintori_territory_syncs_total", "Territory syncs by kind.")
	fmt.Fprintf(rw, "jintori_territory_syncs_total{arena=%q,kind=%q} %d\n", arena, "full", m.FullSyncs)
	fmt.Fprintf(rw, "jintori_territory_syncs_total{arena=%q,kind=%q} %d\n", arena, "delta", m.DeltaSyncs)

	counter("jintori_client_resyncs_total", "Connections forced to a full resync after a discarded message.")
	fmt.Fprintf(rw, "jintori_client_resyncs_total{arena=%q} %d\n", arena, m.Resyncs)

	names := make([]string, 0, len(logs))
	for name := range logs {
		names = append(names, name)
	}
	sort.Strings(names)
	counter("jintori_log_dropped_total", "Log entries dropped on a full queue.")
	for _, name := range names {
		fmt.Fprintf(rw, "jintori_log_dropped_total{arena=%q,log=%q} %d\n", arena, name, logs[name].Dropped)
	}
	counter("jintori_log_errors_total", "Log write errors.")
	for _, name := range names {
		fmt.Fprintf(rw, "jintori_log_errors_total{arena=%q,log=%q} %d\n", arena, name, logs[name].Errors)
	}

	gauge("jintori_index_queue_depth", "Round index writer backlog.")
	fmt.Fprintf(rw, "jintori_index_queue_depth{arena=%q} %d\n", arena, idx.QueueDepth)
	counter("jintori_index_dropped_total", "Round index rows dropped on a full queue.")
	fmt.Fprintf(rw, "jintori_index_dropped_total{arena=%q,kind=%q} %d\n", arena, "tick", idx.DropTickTotal)
	fmt.Fprintf(rw, "jintori_index_dropped_total{arena=%q,kind=%q} %d\n", arena, "audit", idx.DropAuditTotal)
	fmt.Fprintf(rw, "jintori_index_dropped_total{arena=%q,kind=%q} %d\n", arena, "round", idx.DropRoundTotal)
	counter("jintori_index_write_errors_total", "Round index write errors.")
	fmt.Fprintf(rw, "jintori_index_write_errors_total{arena=%q} %d\n", arena, idx.WriteErrors)
}
