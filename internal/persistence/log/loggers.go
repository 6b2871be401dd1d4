package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/satorunet/onj-jintori/internal/sim/world"
)

// JSONLZstdWriter appends JSON lines to hourly zstd files named <prefix>-YYYY-MM-DD-HH.jsonl.zst.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered lines through the encoder without closing the frame.
func (w *JSONLZstdWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// queue moves writes off the caller's goroutine. Entries are dropped when the queue
// is full; Close drains what was accepted.
type queue struct {
	w       *JSONLZstdWriter
	ch      chan any
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
	errs    atomic.Uint64
}

func newQueue(w *JSONLZstdWriter, size int) *queue {
	q := &queue{w: w, ch: make(chan any, size), done: make(chan struct{})}
	go q.loop()
	return q
}

func (q *queue) loop() {
	defer close(q.done)
	flush := time.NewTicker(time.Second)
	defer flush.Stop()
	for {
		select {
		case v, ok := <-q.ch:
			if !ok {
				_ = q.w.Close()
				return
			}
			if err := q.w.Write(v); err != nil {
				q.errs.Add(1)
			}
		case <-flush.C:
			_ = q.w.Flush()
		}
	}
}

func (q *queue) enqueue(v any) error {
	select {
	case q.ch <- v:
		return nil
	default:
		q.dropped.Add(1)
		return fmt.Errorf("%s log queue full", q.w.prefix)
	}
}

func (q *queue) close() error {
	q.once.Do(func() { close(q.ch) })
	<-q.done
	return nil
}

// Stats reports entries dropped because the queue was full and entries that failed to write.
type Stats struct {
	Dropped uint64 `json:"dropped"`
	Errors  uint64 `json:"errors"`
}

func (q *queue) stats() Stats { return Stats{Dropped: q.dropped.Load(), Errors: q.errs.Load()} }

// TickLogger writes one JSONL entry per logged tick (compressed).
type TickLogger struct{ q *queue }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{q: newQueue(NewJSONLZstdWriter(filepath.Join(worldDir, "events"), "events"), 8192)}
}

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.q.enqueue(v) }
func (l *TickLogger) Close() error                         { return l.q.close() }
func (l *TickLogger) Stats() Stats                         { return l.q.stats() }

// AuditLogger writes audit JSONL entries (compressed).
type AuditLogger struct{ q *queue }

func NewAuditLogger(worldDir string) *AuditLogger {
	return &AuditLogger{q: newQueue(NewJSONLZstdWriter(filepath.Join(worldDir, "audit"), "audit"), 8192)}
}

func (l *AuditLogger) WriteAudit(v world.AuditEntry) error { return l.q.enqueue(v) }
func (l *AuditLogger) Close() error                        { return l.q.close() }
func (l *AuditLogger) Stats() Stats                        { return l.q.stats() }

// Files lists <prefix>-*.jsonl.zst under dir in chronological order.
func Files(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// ForEachLine streams every JSON line of the given files to fn, in order.
func ForEachLine(paths []string, fn func(line []byte) error) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()
	for _, p := range paths {
		if err := eachLine(dec, p, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func eachLine(dec *zstd.Decoder, path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := dec.Reset(f); err != nil {
		return err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadTicks decodes every tick entry under worldDir/events.
func ReadTicks(worldDir string) ([]world.TickLogEntry, error) {
	paths, err := Files(filepath.Join(worldDir, "events"), "events")
	if err != nil {
		return nil, err
	}
	var out []world.TickLogEntry
	err = ForEachLine(paths, func(line []byte) error {
		var e world.TickLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}
