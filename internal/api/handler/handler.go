// Package handler serves the recommendation HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/api/cache"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/model"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/query"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/refresh"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/metrics"
)

const (
	defaultTitleLimit = 20
	maxTitleLimit     = 100
)

// SnapshotSource yields the live model.
type SnapshotSource interface {
	Snapshot() (*model.Snapshot, error)
}

// Reloader rebuilds the model from the catalog.
type Reloader interface {
	Reload(ctx context.Context) (*refresh.Result, error)
}

// Tracker receives analytics events.
type Tracker interface {
	Track(event analytics.Event)
}

// Deps wires a Handler. Cache, Tracker, Reloader and Metrics may be nil.
type Deps struct {
	Models   SnapshotSource
	Reloader Reloader
	Cache    *cache.ResultCache
	Tracker  Tracker
	Metrics  *metrics.Metrics
	Limits   config.RecommendConfig
}

type Handler struct {
	deps   Deps
	logger *slog.Logger
}

// RecommendResponse is the body of GET /api/v1/recommendations.
type RecommendResponse struct {
	Title    string                 `json:"title"`
	K        int                    `json:"k"`
	Found    bool                   `json:"found"`
	Results  []query.Recommendation `json:"results"`
	Snapshot string                 `json:"snapshot"`
	CacheHit bool                   `json:"cache_hit"`
	TookMs   float64                `json:"took_ms"`
}

func New(deps Deps) *Handler {
	return &Handler{
		deps:   deps,
		logger: slog.Default().With("component", "api-handler"),
	}
}

// Routes registers every API endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/recommendations", h.Recommend)
	mux.HandleFunc("GET /api/v1/titles", h.Titles)
	mux.HandleFunc("GET /api/v1/model", h.Model)
	mux.HandleFunc("POST /api/v1/model/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Recommend handles GET /api/v1/recommendations?title=...&k=...
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	title := r.URL.Query().Get("title")
	if title == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'title' is required")
		return
	}
	k, err := h.parseK(r.URL.Query().Get("k"))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	snap, err := h.deps.Models.Snapshot()
	if err != nil {
		h.observe("error", "none", 0, start)
		h.writeAppError(w, err)
		return
	}

	compute := func() (*cache.Entry, error) {
		results, err := snap.Recommend(title, k)
		if err != nil {
			return nil, err
		}
		return &cache.Entry{Found: snap.Contains(title), Results: results}, nil
	}
	var (
		entry    *cache.Entry
		cacheHit bool
	)
	cacheStatus := "disabled"
	if h.deps.Cache != nil {
		entry, cacheHit, err = h.deps.Cache.GetOrCompute(ctx, snap.Key, title, k, compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		entry, err = compute()
	}
	if err != nil {
		log.Error("recommendation failed", "title", title, "k", k, "error", err)
		h.observe("error", cacheStatus, 0, start)
		h.writeAppError(w, err)
		return
	}

	outcome := "found"
	if !entry.Found {
		outcome = "unknown"
	}
	took := time.Since(start)
	h.observe(outcome, cacheStatus, len(entry.Results), start)
	log.Info("recommendation served",
		"title", title,
		"k", k,
		"found", entry.Found,
		"returned", len(entry.Results),
		"cache_hit", cacheHit,
		"latency_ms", took.Milliseconds(),
	)
	if h.deps.Tracker != nil {
		var top float64
		if len(entry.Results) > 0 {
			top = entry.Results[0].Score
		}
		h.deps.Tracker.Track(analytics.RecommendEvent(
			logger.RequestID(ctx), title, k, entry.Found, len(entry.Results), top, took, cacheHit,
		))
	}

	results := entry.Results
	if results == nil {
		results = []query.Recommendation{}
	}
	h.writeJSON(w, http.StatusOK, RecommendResponse{
		Title:    title,
		K:        k,
		Found:    entry.Found,
		Results:  results,
		Snapshot: snap.Key,
		CacheHit: cacheHit,
		TookMs:   float64(took.Microseconds()) / 1000,
	})
}

// Titles handles GET /api/v1/titles?q=...&limit=...
func (h *Handler) Titles(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Models.Snapshot()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	limit := defaultTitleLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxTitleLimit)
	}
	q := r.URL.Query().Get("q")
	titles := catalog.Search(snap.Corpus, q, limit)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":  q,
		"titles": titles,
		"count":  len(titles),
		"total":  snap.Size(),
	})
}

// Model handles GET /api/v1/model.
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Models.Snapshot()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap.Stats())
}

// Rebuild handles POST /api/v1/model/rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.deps.Reloader == nil {
		h.writeError(w, http.StatusServiceUnavailable, "rebuilds are disabled")
		return
	}
	res, err := h.deps.Reloader.Reload(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("rebuild failed", "error", err)
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.deps.Cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.deps.Cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) parseK(raw string) (int, error) {
	lim := h.deps.Limits
	if raw == "" {
		return lim.DefaultK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "k must be an integer, got %q", raw)
	}
	if k < lim.MinK || k > lim.MaxK {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "k must be between %d and %d", lim.MinK, lim.MaxK)
	}
	return k, nil
}

func (h *Handler) observe(outcome, cacheStatus string, returned int, start time.Time) {
	m := h.deps.Metrics
	if m == nil {
		return
	}
	m.RecommendQueriesTotal.WithLabelValues(outcome).Inc()
	if outcome != "error" {
		m.RecommendLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
		m.RecommendResultsCount.Observe(float64(returned))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err to a status code. Server-side failures get a
// generic message.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		msg = appErr.Message
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		msg = "internal server error"
	}
	h.writeError(w, status, msg)
}
