package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/legaldrishti/backend/internal/cache"
	"github.com/legaldrishti/backend/internal/pipeline"
)

const (
	statsCacheKey = "pipeline:stats"
	statsCacheTTL = 30 * time.Second
)

// StatsHandler serves the pipeline dashboard snapshot, cached briefly so
// dashboard polling does not hammer the counts.
type StatsHandler struct {
	svc   *pipeline.Service
	cache *cache.Cache
}

func NewStatsHandler(svc *pipeline.Service, c *cache.Cache) *StatsHandler {
	return &StatsHandler{svc: svc, cache: c}
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		var cached pipeline.Stats
		if err := h.cache.Get(r.Context(), statsCacheKey, &cached); err == nil {
			writeJSON(w, http.StatusOK, &cached)
			return
		}
	}

	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), statsCacheKey, stats, statsCacheTTL); err != nil {
			slog.Warn("failed to cache stats", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, stats)
}
