package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/satorunet/onj-jintori/internal/persistence/archive"
	persistlog "github.com/satorunet/onj-jintori/internal/persistence/log"
	"github.com/satorunet/onj-jintori/internal/persistence/snapshot"
	"github.com/satorunet/onj-jintori/internal/sim/tuning"
	"github.com/satorunet/onj-jintori/internal/sim/world"
	"github.com/satorunet/onj-jintori/internal/transport/httpapi"
	"github.com/satorunet/onj-jintori/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		arenaID    = flag.String("arena", "arena-1", "arena id")
		seed       = flag.Int64("seed", 0, "world seed (0 = derive from start time)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		maxAgents  = flag.Int("max_agents", 0, "max concurrent connections (0 = default)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite round index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Printf(".env: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	arenaDir := filepath.Join(*dataDir, "arenas", *arenaID)
	cfg := world.WorldConfig{
		ID:        *arenaID,
		Seed:      *seed,
		MaxAgents: *maxAgents,
		Tuning:    tune,
	}
	runDir, err := writeRunManifest(arenaDir, cfg, time.Now().UTC())
	if err != nil {
		logger.Fatalf("run manifest: %v", err)
	}

	w, err := world.New(cfg, log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	idx, err := openRuntimeIndex(arenaDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}

	tickLog := persistlog.NewTickLogger(runDir)
	auditLog := persistlog.NewAuditLogger(runDir)
	tickSinks := []world.TickLogger{tickLog}
	auditSinks := []world.AuditLogger{auditLog}
	if idx != nil {
		tickSinks = append(tickSinks, idx)
		auditSinks = append(auditSinks, idx)
	}
	w.SetTickLogger(multiTickLogger(tickSinks))
	w.SetAuditLogger(multiAuditLogger(auditSinks))

	ctx, cancel := signalContext()
	defer cancel()

	var recorder roundRecorder
	if idx != nil {
		recorder = idx
	}
	rounds := make(chan world.RoundReport, 4)
	w.SetRoundSink(rounds)
	roundsDone := make(chan struct{})
	go func() {
		defer close(roundsDone)
		for {
			select {
			case <-ctx.Done():
				return
			case rep := <-rounds:
				persistRound(arenaDir, rep, recorder, logger)
			}
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		sinks := map[string]persistlog.Stats{"tick": tickLog.Stats(), "audit": auditLog.Stats()}
		writeMetrics(rw, *arenaID, w.Metrics(), sinks, idx.Stats())
	})

	var store httpapi.RoundStore
	if idx != nil {
		store = idx
	}
	api := httpapi.NewRouter(httpapi.Config{CORSOrigins: splitList(os.Getenv("JINTORI_CORS_ORIGINS"))}, store, w)
	mux.Handle("/api/", http.StripPrefix("/api", api))

	if envBool("JINTORI_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				ArenaID string             `json:"arena_id"`
				Seed    int64              `json:"seed"`
				RunDir  string             `json:"run_dir"`
				Tick    uint64             `json:"tick"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{
				ArenaID: *arenaID,
				Seed:    *seed,
				RunDir:  runDir,
				Tick:    w.CurrentTick(),
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
	} else {
		logger.Printf("admin endpoints disabled (JINTORI_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("JINTORI_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("arena=%s seed=%d run=%s listening on %s", *arenaID, *seed, runDir, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	<-worldDone
	<-roundsDone
	if err := tickLog.Close(); err != nil {
		logger.Printf("close tick log: %v", err)
	}
	if err := auditLog.Close(); err != nil {
		logger.Printf("close audit log: %v", err)
	}
	if idx != nil {
		if err := idx.Close(); err != nil {
			logger.Printf("close index: %v", err)
		}
	}
	logger.Printf("shutdown complete")
}

// persistRound writes the round snapshot, archives it and records the result.
func persistRound(arenaDir string, rep world.RoundReport, idx roundRecorder, logger *log.Logger) {
	snap := rep.Snapshot
	path := filepath.Join(arenaDir, "snapshots", fmt.Sprintf("round_%04d_%d.snap.zst", snap.Header.Round, snap.Header.Tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Printf("snapshot write: %v", err)
		return
	}
	archived, err := archive.ArchiveRoundSnapshot(arenaDir, path, snap)
	if err != nil {
		logger.Printf("archive round snapshot: %v", err)
		archived = path
	}
	if idx != nil {
		idx.RecordRound(rep.Result, archived)
	}
	logger.Printf("round=%d mode=%s players=%d winner=%q archived=%s",
		rep.Result.Round, rep.Result.Mode, rep.Result.PlayerCount, rep.Result.Winner, archived)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiTickLogger []world.TickLogger

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	for _, l := range m {
		_ = l.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger []world.AuditLogger

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	for _, l := range m {
		_ = l.WriteAudit(entry)
	}
	return nil
}
