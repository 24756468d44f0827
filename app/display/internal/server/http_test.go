package server

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/world_end/app/display/internal/biz"
	"github.com/iWorld-y/world_end/app/display/internal/conf"
	"github.com/iWorld-y/world_end/app/display/internal/data"
	"github.com/iWorld-y/world_end/app/display/internal/service"
	"github.com/iWorld-y/world_end/app/radar/pkg/broadcast"
	"github.com/iWorld-y/world_end/app/radar/pkg/engine"
	"github.com/iWorld-y/world_end/app/radar/pkg/model"
	"github.com/iWorld-y/world_end/app/radar/pkg/storage"
)

type stubRunner struct {
	outcome engine.Outcome
	err     error
	panics  bool
}

func (s *stubRunner) RunCycle(ctx context.Context) (engine.Outcome, error) {
	if s.panics {
		panic("boom")
	}
	return s.outcome, s.err
}

func (s *stubRunner) Status() engine.Status {
	return engine.Status{State: engine.StateIdle, LastOutcome: s.outcome}
}

type testServer struct {
	srv   *http.Server
	store storage.Store
}

func newTestServer(t *testing.T, limit int32, runner *stubRunner) *testServer {
	t.Helper()
	logger := log.DefaultLogger

	d, cleanup, err := data.NewData(&conf.Data{Database: &conf.Database{Driver: "memory"}}, logger)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	uc := biz.NewAnalysisUseCase(data.NewAnalysisRepo(d, logger), runner, logger)
	c := &conf.Server{Http: &conf.HTTP{Limit: &conf.Limit{Window: "15m", Max: limit}}}
	srv := NewHTTPServer(c, service.NewDisplayService(uc, logger), broadcast.NewHub(), runner, logger)
	return &testServer{srv: srv, store: d.Store()}
}

func (ts *testServer) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func TestNoCacheHeaders(t *testing.T) {
	ts := newTestServer(t, 100, &stubRunner{})
	for _, path := range []string{"/api/countries", "/", "/healthz"} {
		rec := ts.do(nethttp.MethodGet, path, nil)
		h := rec.Header()
		assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", h.Get("Cache-Control"), path)
		assert.Equal(t, "no-cache", h.Get("Pragma"), path)
		assert.Equal(t, "0", h.Get("Expires"), path)
		assert.Equal(t, "no-store", h.Get("Surrogate-Control"), path)
	}
}

func TestLatestSentinel(t *testing.T) {
	ts := newTestServer(t, 100, &stubRunner{})

	rec := ts.do(nethttp.MethodGet, "/api/latest", nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	_, err := ts.store.Insert(context.Background(), &model.Evaluation{Score: 42.5, NewsSummary: "n", Reasoning: "r"})
	require.NoError(t, err)

	rec = ts.do(nethttp.MethodGet, "/api/latest", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 42.5, got["worldend"])
	assert.Equal(t, "n", got["news"])
}

func TestHistoryLimit(t *testing.T) {
	ts := newTestServer(t, 1000, &stubRunner{})
	for i := 0; i < 120; i++ {
		_, err := ts.store.Insert(context.Background(), &model.Evaluation{Score: float64(i)})
		require.NoError(t, err)
	}

	count := func(path string) int {
		rec := ts.do(nethttp.MethodGet, path, nil)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		var rows []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		return len(rows)
	}
	assert.Equal(t, 10, count("/api/history"))
	assert.Equal(t, 100, count("/api/history?limit=500"))
	assert.Equal(t, 1, count("/api/history?limit=-3"))
	assert.Equal(t, 10, count("/api/history?limit=abc"))
	assert.Equal(t, 25, count("/api/history?limit=25"))
}

func TestHistoricalAnalysis(t *testing.T) {
	ts := newTestServer(t, 100, &stubRunner{})
	_, err := ts.store.Insert(context.Background(), &model.Evaluation{Score: 12.5})
	require.NoError(t, err)

	rec := ts.do(nethttp.MethodGet, "/api/historical-analysis?period=bogus", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	var points []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, 12.5, points[0]["overall_risk_level"])
	assert.Contains(t, points[0], "created_at")
}

func TestGlobalAnalysisNotFound(t *testing.T) {
	ts := newTestServer(t, 100, &stubRunner{})
	rec := ts.do(nethttp.MethodGet, "/api/global-analysis", nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"No global analysis found"}`, rec.Body.String())
}

func TestDailySummaryRoutes(t *testing.T) {
	ts := newTestServer(t, 100, &stubRunner{})
	_, err := ts.store.UpsertDailySummary(context.Background(), &model.DailySummary{
		Date: "2025-03-01", KeyEvents: []string{"ceasefire"}, OverallImpact: "calmer", AverageScore: 45.01,
	})
	require.NoError(t, err)

	rec := ts.do(nethttp.MethodGet, "/api/daily-summary?date=2025-03-01", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"average_worldend":45.01`)

	rec = ts.do(nethttp.MethodGet, "/api/daily-summary?date=2025-02-28", nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)

	rec = ts.do(nethttp.MethodGet, "/api/daily-summary?date=yesterday", nil)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestTriggerAnalysis(t *testing.T) {
	ts := newTestServer(t, 100, &stubRunner{outcome: engine.OutcomeCompleted})
	rec := ts.do(nethttp.MethodPost, "/api/trigger-analysis", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	busy := newTestServer(t, 100, &stubRunner{err: engine.ErrCycleInProgress})
	rec = busy.do(nethttp.MethodPost, "/api/trigger-analysis", nil)
	assert.Equal(t, nethttp.StatusConflict, rec.Code)

	broken := newTestServer(t, 100, &stubRunner{err: assert.AnError})
	rec = broken.do(nethttp.MethodPost, "/api/trigger-analysis", nil)
	assert.Equal(t, nethttp.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to trigger analysis"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestTriggerAnalysisRecoversPanic(t *testing.T) {
	ts := newTestServer(t, 100, &stubRunner{panics: true})
	var rec *httptest.ResponseRecorder
	require.NotPanics(t, func() {
		rec = ts.do(nethttp.MethodPost, "/api/trigger-analysis", nil)
	})
	assert.Equal(t, nethttp.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to trigger analysis"}`, rec.Body.String())
	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", rec.Header().Get("Cache-Control"))

	// panic 之后服务仍可用
	rec = ts.do(nethttp.MethodGet, "/api/countries", nil)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
}

func TestRateLimitPerIP(t *testing.T) {
	ts := newTestServer(t, 3, &stubRunner{})
	first := map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}
	second := map[string]string{"X-Forwarded-For": "198.51.100.2"}

	for i := 0; i < 3; i++ {
		assert.Equal(t, nethttp.StatusOK, ts.do(nethttp.MethodGet, "/api/countries", first).Code)
	}
	rec := ts.do(nethttp.MethodGet, "/api/countries", first)
	assert.Equal(t, nethttp.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests from this IP, please try again later."}`, rec.Body.String())

	assert.Equal(t, nethttp.StatusOK, ts.do(nethttp.MethodGet, "/api/countries", second).Code)
	// 非 /api 路径不限流
	assert.Equal(t, nethttp.StatusOK, ts.do(nethttp.MethodGet, "/healthz", first).Code)
}

func TestStaticAndOps(t *testing.T) {
	ts := newTestServer(t, 100, &stubRunner{outcome: engine.OutcomeNoNews})

	rec := ts.do(nethttp.MethodGet, "/", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "<title>World End Radar</title>"))

	rec = ts.do(nethttp.MethodGet, "/healthz", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_outcome":"no_news"`)

	rec = ts.do(nethttp.MethodGet, "/metrics", nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "worldend_api_rate_limited_total")
}

func TestRadarConfigDefaults(t *testing.T) {
	t.Setenv("NEWS_API_KEY", "from-env")
	cfg, err := RadarConfig(&conf.Radar{Scheduler: &conf.Scheduler{Interval: "1h"}})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.News.NewsAPI.APIKey)
	assert.Equal(t, "newsapi", cfg.News.Provider)
	d, err := cfg.SchedulerInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	_, err = RadarConfig(&conf.Radar{News: &conf.News{Provider: "carrier-pigeon"}})
	assert.Error(t, err)
}
