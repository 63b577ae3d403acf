// Package api exposes the detector's read-only HTTP surface: a health
// probe, the error tracker's grouped report, and a cache data-quality
// summary. There is no write path and no framework dependency, matching
// how thin the teacher keeps its own cmd/ entry points.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/solarb/arb-detector-go/errtracker"
	"github.com/solarb/arb-detector-go/pricecache"
)

// Server wires the price cache and error tracker into a read-only
// http.Handler. Server holds no other state and starts no listener
// itself; the caller decides how to run it (http.Server, httptest, or
// embedding into a larger mux).
type Server struct {
	cache   *pricecache.Cache
	tracker *errtracker.Tracker
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New builds a Server and registers its routes. A nil logger falls
// back to slog.Default().
func New(cache *pricecache.Cache, tracker *errtracker.Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cache: cache, tracker: tracker, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/errors", s.handleErrors)
	s.mux.HandleFunc("/data-quality", s.handleDataQuality)
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status      string `json:"status"`
	PoolCount   int    `json:"pool_count"`
	UniquePairs int    `json:"unique_pairs"`
	LatestSlot  uint64 `json:"latest_slot"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	q := s.cache.Quality()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		PoolCount:   q.Total,
		UniquePairs: q.UniquePairCount,
		LatestSlot:  q.LatestSlot,
	})
}

type errorsResponse struct {
	TotalErrors  int                         `json:"total_errors"`
	UniqueErrors int                         `json:"unique_errors"`
	ByType       map[string]errtracker.Stats `json:"by_type"`
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, errorsResponse{
		TotalErrors:  s.tracker.TotalErrors(),
		UniqueErrors: s.tracker.UniqueErrors(),
		ByType:       s.tracker.Report(),
	})
}

type dataQualityResponse struct {
	Total            int     `json:"total"`
	FreshCount       int     `json:"fresh_count"`
	AlignedCount     int     `json:"aligned_count"`
	AvgAgeMillis     int64   `json:"avg_age_millis"`
	LatestSlot       uint64  `json:"latest_slot"`
	UniquePairCount  int     `json:"unique_pair_count"`
	ConsistencyScore float64 `json:"consistency_score"`
}

func (s *Server) handleDataQuality(w http.ResponseWriter, r *http.Request) {
	q := s.cache.Quality()
	s.writeJSON(w, http.StatusOK, dataQualityResponse{
		Total:            q.Total,
		FreshCount:       q.FreshCount,
		AlignedCount:     q.AlignedCount,
		AvgAgeMillis:     q.AvgAgeMillis,
		LatestSlot:       q.LatestSlot,
		UniquePairCount:  q.UniquePairCount,
		ConsistencyScore: q.ConsistencyScore,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("api: failed to encode response", "err", err)
	}
}

// ListenAndServe starts an http.Server bound to addr serving s, with
// the read/write timeouts the teacher's own client applies to its
// outbound transports, applied here to the inbound listener instead.
func ListenAndServe(addr string, s *Server) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
