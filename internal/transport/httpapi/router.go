// Package httpapi serves the read-only round history and realtime stats under /api.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/satorunet/onj-jintori/internal/persistence/indexdb"
	"github.com/satorunet/onj-jintori/internal/sim/world"
)

type RoundStore interface {
	ListRounds(ctx context.Context, limit, offset int) ([]indexdb.RoundSummary, error)
	GetRound(ctx context.Context, id int64) (indexdb.RoundDetail, error)
}

type MetricsSource interface {
	Metrics() world.WorldMetrics
}

type Config struct {
	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string
}

type apiError struct {
	Error string `json:"error"`
}

type apiListResponse[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type realtimeResponse struct {
	Timestamp time.Time `json:"timestamp"`
	world.WorldMetrics
}

// NewRouter builds the /api router. store may be nil when the index is disabled.
func NewRouter(cfg Config, store RoundStore, src MetricsSource) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handler{store: store, src: src}
	r.Get("/rounds", h.listRounds)
	r.Get("/rounds/{id}", h.getRound)
	r.Get("/realtime", h.realtime)
	return r
}

type handler struct {
	store RoundStore
	src   MetricsSource
}

func (h *handler) listRounds(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		errorJSON(w, http.StatusServiceUnavailable, "round index disabled")
		return
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "page_size", 20)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	items, err := h.store.ListRounds(r.Context(), size, (page-1)*size)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "list rounds failed")
		return
	}
	writeJSON(w, http.StatusOK, apiListResponse[indexdb.RoundSummary]{Items: items, Page: page, PageSize: size})
}

func (h *handler) getRound(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		errorJSON(w, http.StatusServiceUnavailable, "round index disabled")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		errorJSON(w, http.StatusBadRequest, "invalid round id")
		return
	}
	d, err := h.store.GetRound(r.Context(), id)
	if errors.Is(err, indexdb.ErrNotFound) {
		errorJSON(w, http.StatusNotFound, "round not found")
		return
	}
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "load round failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) realtime(w http.ResponseWriter, r *http.Request) {
	if h.src == nil {
		errorJSON(w, http.StatusServiceUnavailable, "world not running")
		return
	}
	writeJSON(w, http.StatusOK, realtimeResponse{Timestamp: time.Now().UTC(), WorldMetrics: h.src.Metrics()})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}
