package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hyperjump/imi/internal/models"
	"github.com/hyperjump/imi/internal/search"
	"github.com/hyperjump/imi/internal/vector"
	"go.uber.org/zap"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	search.Status
	ItemCount int `json:"item_count"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))

	start := time.Now()
	ranked, err := s.searcher.Search(r.Context(), query.Query)
	switch {
	case err == nil:
	case errors.Is(err, search.ErrEmptyQuery):
		s.respondError(w, http.StatusBadRequest, models.ErrEmptyQuery.Error())
		return
	case errors.Is(err, search.ErrSearchUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, "search unavailable")
		return
	case errors.Is(err, search.ErrNotInitialized):
		s.respondError(w, http.StatusServiceUnavailable, "search not ready")
		return
	default:
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	s.respondJSON(w, http.StatusOK, NewSearchResponse(query, ranked, time.Since(start)))
}

// NewSearchResponse numbers ranked results from 1, applying q.Limit when positive.
func NewSearchResponse(q models.SearchQuery, ranked []vector.Scored[models.Item], elapsed time.Duration) models.SearchResponse {
	if q.Limit > 0 && len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}
	results := make([]models.SearchResult, len(ranked))
	for i, sc := range ranked {
		results[i] = models.SearchResult{Item: sc.Item, Score: sc.Score, Rank: i + 1}
	}
	return models.SearchResponse{
		Results:   results,
		Total:     len(results),
		Query:     search.NormalizeQuery(q.Query),
		QueryTime: elapsed.Milliseconds(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusResponse{
		Status:    s.searcher.Status(),
		ItemCount: s.items.Len(),
	})
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	items, queries := s.searcher.CleanupExpired()
	s.respondJSON(w, http.StatusOK, map[string]int{"items": items, "queries": queries})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	reset := false
	if v := r.URL.Query().Get("reset_stats"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "reset_stats must be a boolean")
			return
		}
		reset = b
	}
	s.searcher.ClearCaches(reset)
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "cleared", "reset_stats": reset})
}

func (s *Server) handleLastNotice(w http.ResponseWriter, r *http.Request) {
	n, ok := s.searcher.Notifier().Last()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondJSON(w, http.StatusOK, n)
}

// handleNoticeStream sends each new notice as a Server-Sent Event until the client leaves.
func (s *Server) handleNoticeStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	notices, cancel := s.searcher.Notifier().Subscribe(16)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				s.logger.Error("encode notice", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: notice\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	n, err := s.reload(r.Context())
	if err != nil {
		s.logger.Error("corpus reload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "corpus reload failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"items": n})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
