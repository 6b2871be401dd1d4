package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

var ErrNotFound = errors.New("round not found")

type SQLiteIndex struct {
	db *sql.DB
	ro *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick    atomic.Uint64
	dropAudit   atomic.Uint64
	dropRound   atomic.Uint64
	writeErrors atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqRound
)

type req struct {
	kind reqKind

	tick  world.TickLogEntry
	audit world.AuditEntry
	round roundRow
}

type roundRow struct {
	Result       world.RoundResult
	SnapshotPath string
	RecordedAt   string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Readers get their own pool so API queries never wait on the writer's open tx.
	ro, err := sql.Open("sqlite", path)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	ro.SetMaxOpenConns(4)
	if _, err := ro.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = ro.Close()
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ro: ro,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			connects INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			controls INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			round INTEGER NOT NULL,
			actor INTEGER NOT NULL,
			action TEXT NOT NULL,
			target INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_round ON audits(round, tick);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			arena_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			mode TEXT NOT NULL,
			start_tick INTEGER NOT NULL,
			end_tick INTEGER NOT NULL,
			player_count INTEGER NOT NULL,
			winner TEXT NOT NULL,
			snapshot_path TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_arena ON rounds(arena_id, round);`,
		`CREATE TABLE IF NOT EXISTS player_rankings (
			round_id INTEGER NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			name TEXT NOT NULL,
			team TEXT NOT NULL,
			color TEXT NOT NULL,
			emoji TEXT NOT NULL,
			score REAL NOT NULL,
			kills INTEGER NOT NULL,
			PRIMARY KEY (round_id, rank)
		);`,
		`CREATE TABLE IF NOT EXISTS team_rankings (
			round_id INTEGER NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			team TEXT NOT NULL,
			color TEXT NOT NULL,
			score REAL NOT NULL,
			kills INTEGER NOT NULL,
			members INTEGER NOT NULL,
			PRIMARY KEY (round_id, rank)
		);`,
		`CREATE TABLE IF NOT EXISTS round_minimaps (
			round_id INTEGER NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			size INTEGER NOT NULL,
			palette_json TEXT NOT NULL,
			bitmap BLOB NOT NULL,
			flags_json TEXT NOT NULL,
			PRIMARY KEY (round_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = errors.Join(s.db.Close(), s.ro.Close())
	})
	return err
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

// RecordRound queues a finished round with its rankings and minimap history.
func (s *SQLiteIndex) RecordRound(res world.RoundResult, snapshotPath string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := roundRow{Result: res, SnapshotPath: snapshotPath, RecordedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	select {
	case s.ch <- req{kind: reqRound, round: r}:
	default:
		s.dropRound.Add(1)
	}
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropTickTotal  uint64 `json:"drop_tick_total"`
	DropAuditTotal uint64 `json:"drop_audit_total"`
	DropRoundTotal uint64 `json:"drop_round_total"`
	WriteErrors    uint64 `json:"write_errors"`
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropTickTotal:  s.dropTick.Load(),
		DropAuditTotal: s.dropAudit.Load(),
		DropRoundTotal: s.dropRound.Load(),
		WriteErrors:    s.writeErrors.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,connects,leaves,controls,raw_json) VALUES(?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,round,actor,action,target,cells,x,y,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertAudit != nil {
			_ = insertAudit.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.writeErrors.Add(1)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		s.writeErrors.Add(1)
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			b, _ := json.Marshal(r.tick)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					int64(r.tick.Tick),
					r.tick.Digest,
					len(r.tick.Connects),
					len(r.tick.Leaves),
					len(r.tick.Controls),
					string(b),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			if insertAudit != nil {
				if _, err := tx.Stmt(insertAudit).Exec(
					int64(a.Tick), seq, a.Round,
					int(a.Actor), a.Action, int(a.Target), a.Cells,
					a.Pos[0], a.Pos[1],
					a.Reason,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqRound:
			if err := insertRound(tx, r.round); err != nil {
				rollback()
				continue
			}
			// Rounds are rare and read by the API; make them visible right away.
			commit()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func insertRound(tx *sql.Tx, r roundRow) error {
	res := r.Result
	out, err := tx.Exec(`INSERT INTO rounds(arena_id,round,mode,start_tick,end_tick,player_count,winner,snapshot_path,recorded_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		res.ArenaID, res.Round, res.Mode, int64(res.StartTick), int64(res.EndTick), res.PlayerCount, res.Winner, r.SnapshotPath, r.RecordedAt)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	for i, p := range res.Rankings {
		if _, err := tx.Exec(`INSERT INTO player_rankings(round_id,rank,name,team,color,emoji,score,kills) VALUES(?,?,?,?,?,?,?,?)`,
			id, i+1, p.Name, p.Team, p.Color, p.Emoji, p.Score, p.Kills); err != nil {
			return err
		}
	}
	for i, t := range res.TeamRankings {
		if _, err := tx.Exec(`INSERT INTO team_rankings(round_id,rank,team,color,score,kills,members) VALUES(?,?,?,?,?,?,?)`,
			id, i+1, t.Team, t.Color, t.Score, t.Kills, t.Members); err != nil {
			return err
		}
	}
	for i, mm := range res.Minimaps {
		palette, _ := json.Marshal(mm.Palette)
		flags, _ := json.Marshal(mm.Flags)
		if _, err := tx.Exec(`INSERT INTO round_minimaps(round_id,seq,size,palette_json,bitmap,flags_json) VALUES(?,?,?,?,?,?)`,
			id, i, mm.Size, string(palette), mm.Bitmap, string(flags)); err != nil {
			return err
		}
	}
	return nil
}

type RoundSummary struct {
	ID           int64  `json:"id"`
	ArenaID      string `json:"arena_id"`
	Round        int    `json:"round"`
	Mode         string `json:"mode"`
	StartTick    uint64 `json:"start_tick"`
	EndTick      uint64 `json:"end_tick"`
	PlayerCount  int    `json:"player_count"`
	Winner       string `json:"winner,omitempty"`
	SnapshotPath string `json:"snapshot_path,omitempty"`
	RecordedAt   string `json:"recorded_at"`
}

type RoundDetail struct {
	RoundSummary
	Rankings     []protocol.Ranking     `json:"rankings"`
	TeamRankings []protocol.TeamRanking `json:"team_rankings,omitempty"`
	Minimaps     []protocol.Minimap     `json:"minimaps,omitempty"`
}

const roundColumns = `id,arena_id,round,mode,start_tick,end_tick,player_count,winner,snapshot_path,recorded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(r rowScanner) (RoundSummary, error) {
	var (
		s          RoundSummary
		start, end int64
	)
	if err := r.Scan(&s.ID, &s.ArenaID, &s.Round, &s.Mode, &start, &end, &s.PlayerCount, &s.Winner, &s.SnapshotPath, &s.RecordedAt); err != nil {
		return RoundSummary{}, err
	}
	s.StartTick, s.EndTick = uint64(start), uint64(end)
	return s, nil
}

// ListRounds returns recorded rounds, newest first.
func (s *SQLiteIndex) ListRounds(ctx context.Context, limit, offset int) ([]RoundSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.ro.QueryContext(ctx, `SELECT `+roundColumns+` FROM rounds ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RoundSummary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetRound loads one round with its rankings and minimap history.
func (s *SQLiteIndex) GetRound(ctx context.Context, id int64) (RoundDetail, error) {
	sum, err := scanSummary(s.ro.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return RoundDetail{}, ErrNotFound
	}
	if err != nil {
		return RoundDetail{}, err
	}
	d := RoundDetail{RoundSummary: sum, Rankings: []protocol.Ranking{}}

	rows, err := s.ro.QueryContext(ctx, `SELECT name,team,color,emoji,score,kills FROM player_rankings WHERE round_id=? ORDER BY rank`, id)
	if err != nil {
		return RoundDetail{}, err
	}
	for rows.Next() {
		var p protocol.Ranking
		if err := rows.Scan(&p.Name, &p.Team, &p.Color, &p.Emoji, &p.Score, &p.Kills); err != nil {
			rows.Close()
			return RoundDetail{}, err
		}
		d.Rankings = append(d.Rankings, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return RoundDetail{}, err
	}

	rows, err = s.ro.QueryContext(ctx, `SELECT team,color,score,kills,members FROM team_rankings WHERE round_id=? ORDER BY rank`, id)
	if err != nil {
		return RoundDetail{}, err
	}
	for rows.Next() {
		var t protocol.TeamRanking
		if err := rows.Scan(&t.Team, &t.Color, &t.Score, &t.Kills, &t.Members); err != nil {
			rows.Close()
			return RoundDetail{}, err
		}
		d.TeamRankings = append(d.TeamRankings, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return RoundDetail{}, err
	}

	rows, err = s.ro.QueryContext(ctx, `SELECT size,palette_json,bitmap,flags_json FROM round_minimaps WHERE round_id=? ORDER BY seq`, id)
	if err != nil {
		return RoundDetail{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			mm             protocol.Minimap
			palette, flags string
		)
		if err := rows.Scan(&mm.Size, &palette, &mm.Bitmap, &flags); err != nil {
			return RoundDetail{}, err
		}
		if err := json.Unmarshal([]byte(palette), &mm.Palette); err != nil {
			return RoundDetail{}, fmt.Errorf("minimap palette: %w", err)
		}
		if err := json.Unmarshal([]byte(flags), &mm.Flags); err != nil {
			return RoundDetail{}, fmt.Errorf("minimap flags: %w", err)
		}
		d.Minimaps = append(d.Minimaps, mm)
	}
	return d, rows.Err()
}

type AuditRow struct {
	Tick   uint64 `json:"tick"`
	Round  int    `json:"round"`
	Actor  uint16 `json:"actor"`
	Action string `json:"action"`
	Target uint16 `json:"target,omitempty"`
	Cells  int    `json:"cells,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Reason string `json:"reason,omitempty"`
}

// RecentAudits returns the latest audit rows, newest first. action filters when non-empty.
func (s *SQLiteIndex) RecentAudits(ctx context.Context, action string, limit int) ([]AuditRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	rows, err := s.ro.QueryContext(ctx, `SELECT tick,round,actor,action,target,cells,x,y,COALESCE(reason,'') FROM audits
		WHERE (?='' OR action=?) ORDER BY tick DESC, seq DESC LIMIT ?`, action, action, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var (
			a             AuditRow
			tick          int64
			actor, target int
		)
		if err := rows.Scan(&tick, &a.Round, &actor, &a.Action, &target, &a.Cells, &a.X, &a.Y, &a.Reason); err != nil {
			return nil, err
		}
		a.Tick, a.Actor, a.Target = uint64(tick), uint16(actor), uint16(target)
		out = append(out, a)
	}
	return out, rows.Err()
}
