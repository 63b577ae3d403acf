package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarb/arb-detector-go/engine"
	"github.com/solarb/arb-detector-go/errtracker"
	"github.com/solarb/arb-detector-go/pricecache"
)

func newTestServer() (*Server, *pricecache.Cache, *errtracker.Tracker) {
	cache := pricecache.New()
	tracker := errtracker.New(nil)
	return New(cache, tracker, nil), cache, tracker
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth_ReportsPoolCountAndSlot(t *testing.T) {
	s, cache, _ := newTestServer()
	cache.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: 150.0, Slot: 100, LastUpdate: time.Now()})
	cache.Update(engine.PoolSnapshot{PoolID: "p2", Pair: "SOL/USDT", Price: 150.0, Slot: 101, LastUpdate: time.Now()})

	rec := doGet(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.PoolCount)
	assert.Equal(t, 2, body.UniquePairs)
	assert.Equal(t, uint64(101), body.LatestSlot)
}

func TestHandleErrors_ReportsTrackedCounts(t *testing.T) {
	s, _, tracker := newTestServer()
	tracker.RecordError("decode_error", "bad length")
	tracker.RecordError("decode_error", "bad length again")
	tracker.RecordError("rpc_timeout", "context deadline exceeded")

	rec := doGet(t, s, "/errors")
	require.Equal(t, http.StatusOK, rec.Code)

	var body errorsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.TotalErrors)
	assert.Equal(t, 2, body.UniqueErrors)
	assert.Equal(t, 2, body.ByType["decode_error"].Count)
}

func TestHandleDataQuality_ComputesConsistencyScore(t *testing.T) {
	s, cache, _ := newTestServer()
	cache.Update(engine.PoolSnapshot{PoolID: "p1", Pair: "SOL/USDC", Price: 150.0, Slot: 100, LastUpdate: time.Now()})

	rec := doGet(t, s, "/data-quality")
	require.Equal(t, http.StatusOK, rec.Code)

	var body dataQualityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, 1, body.FreshCount)
	assert.Equal(t, 1, body.AlignedCount)
	assert.Equal(t, 100.0, body.ConsistencyScore)
}

func TestHandleDataQuality_EmptyCacheYieldsZeroScore(t *testing.T) {
	s, _, _ := newTestServer()

	rec := doGet(t, s, "/data-quality")
	require.Equal(t, http.StatusOK, rec.Code)

	var body dataQualityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Total)
	assert.Zero(t, body.ConsistencyScore)
}

func TestUnknownRoute_Returns404(t *testing.T) {
	s, _, _ := newTestServer()
	rec := doGet(t, s, "/nonexistent")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
