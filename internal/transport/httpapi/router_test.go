package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/satorunet/onj-jintori/internal/persistence/indexdb"
	"github.com/satorunet/onj-jintori/internal/protocol"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

type fakeStore struct {
	rounds     []indexdb.RoundSummary
	lastLimit  int
	lastOffset int
}

func (f *fakeStore) ListRounds(_ context.Context, limit, offset int) ([]indexdb.RoundSummary, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.rounds, nil
}

func (f *fakeStore) GetRound(_ context.Context, id int64) (indexdb.RoundDetail, error) {
	for _, r := range f.rounds {
		if r.ID == id {
			return indexdb.RoundDetail{RoundSummary: r, Rankings: []protocol.Ranking{{Name: "ann", Score: 7.5}}}, nil
		}
	}
	return indexdb.RoundDetail{}, indexdb.ErrNotFound
}

type fakeMetrics struct{}

func (fakeMetrics) Metrics() world.WorldMetrics {
	return world.WorldMetrics{Tick: 42, Round: 3, Mode: "TEAM", Joined: 5}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoundsEndpoints(t *testing.T) {
	store := &fakeStore{rounds: []indexdb.RoundSummary{{ID: 2, Round: 2, Mode: "TEAM"}, {ID: 1, Round: 1, Mode: "SOLO"}}}
	r := NewRouter(Config{}, store, fakeMetrics{})

	rec := get(t, r, "/rounds?page=2&page_size=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: %d", rec.Code)
	}
	var list apiListResponse[indexdb.RoundSummary]
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 2 || list.Page != 2 || store.lastLimit != 5 || store.lastOffset != 5 {
		t.Fatalf("list: %+v limit=%d offset=%d", list, store.lastLimit, store.lastOffset)
	}

	rec = get(t, r, "/rounds/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status: %d", rec.Code)
	}
	var d indexdb.RoundDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if d.Mode != "SOLO" || len(d.Rankings) != 1 || d.Rankings[0].Score != 7.5 {
		t.Fatalf("detail: %+v", d)
	}

	if rec := get(t, r, "/rounds/99"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status: %d", rec.Code)
	}
	if rec := get(t, r, "/rounds/abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status: %d", rec.Code)
	}
}

func TestRealtimeAndDisabledStore(t *testing.T) {
	r := NewRouter(Config{CORSOrigins: []string{"https://example.com"}}, nil, fakeMetrics{})

	rec := get(t, r, "/realtime")
	if rec.Code != http.StatusOK {
		t.Fatalf("realtime status: %d", rec.Code)
	}
	var rt realtimeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &rt); err != nil {
		t.Fatalf("decode realtime: %v", err)
	}
	if rt.Tick != 42 || rt.Mode != "TEAM" || rt.Joined != 5 || rt.Timestamp.IsZero() {
		t.Fatalf("realtime: %+v", rt)
	}

	if rec := get(t, r, "/rounds"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled store status: %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := NewRouter(Config{CORSOrigins: []string{"https://example.com"}}, &fakeStore{}, fakeMetrics{})
	req := httptest.NewRequest(http.MethodOptions, "/rounds", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Fatalf("allow origin: %q", got)
	}
}
