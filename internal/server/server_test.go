package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmsite/collector/internal/config"
	"github.com/vmsite/collector/internal/event"
	"github.com/vmsite/collector/internal/metrics"
	"github.com/vmsite/collector/internal/store"
	clock "github.com/vmsite/collector/internal/testutil"
)

// fixedNow is 2025-10-08T12:00:00Z.
var fixedNow = time.Unix(1759924800, 0).UTC()

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	srv     *Server
	store   *store.Store
	dbPath  string
	metrics *metrics.Metrics
	clock   *clock.FixedClock
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.DB = filepath.Join(t.TempDir(), "analytics.db")
	for _, fn := range mutate {
		fn(cfg)
	}

	st, err := store.Open(cfg.DB)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	c := clock.NewFixedClock(fixedNow)
	srv, err := New(cfg, st, WithMetrics(m), WithClock(c.Now))
	require.NoError(t, err)

	return &testEnv{srv: srv, store: st, dbPath: cfg.DB, metrics: m, clock: c}
}

func withToken(token string) func(*config.Config) {
	return func(c *config.Config) { c.Token = token }
}

func (e *testEnv) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) stored(t *testing.T) []event.Event {
	t.Helper()
	events, err := e.store.Query(context.Background(), nil, store.QueryOptions{Order: store.OldestFirst})
	require.NoError(t, err)
	return events
}

// assertIngested compares the ingestion counter series. Zero series are
// never created, so they are left out of the expectation.
func (e *testEnv) assertIngested(t *testing.T, ok, failed int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("# HELP collector_events_ingested_total Events received on the collect endpoint, by storage result.\n")
	b.WriteString("# TYPE collector_events_ingested_total counter\n")
	if failed > 0 {
		fmt.Fprintf(&b, "collector_events_ingested_total{result=\"error\"} %d\n", failed)
	}
	if ok > 0 {
		fmt.Fprintf(&b, "collector_events_ingested_total{result=\"ok\"} %d\n", ok)
	}
	if ok == 0 && failed == 0 {
		n, err := testutil.GatherAndCount(e.metrics.Registry(), "collector_events_ingested_total")
		require.NoError(t, err)
		assert.Zero(t, n)
		return
	}
	assert.NoError(t, testutil.GatherAndCompare(e.metrics.Registry(), strings.NewReader(b.String()), "collector_events_ingested_total"))
}

func TestCollect_SingleEvent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/collect",
		`{"event":"view","page":"/blog/a","cid":"c1","sid":"s1","ip":"6.6.6.6","ua":"spoofed","props":{"x":1}}`,
		"User-Agent", "test-agent/1.0")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	events := env.stored(t)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, "view", got.Kind)
	assert.Equal(t, "/blog/a", got.Page)
	assert.Equal(t, "c1", got.ClientID)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "192.0.2.1", got.IP, "transport ip overrides payload")
	assert.Equal(t, "test-agent/1.0", got.UserAgent)
	assert.Equal(t, fixedNow.Unix(), got.Timestamp)
	assert.JSONEq(t, `{"x":1}`, got.Props.String())
	env.assertIngested(t, 1, 0)
}

func TestCollect_Batch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/collect",
		`{"batch":[{"event":"view","ts":1759920000},"junk",{"event":"search","value":"go"},42]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	events := env.stored(t)
	require.Len(t, events, 2)
	assert.Equal(t, "view", events[0].Kind)
	assert.Equal(t, int64(1759920000), events[0].Timestamp)
	assert.Equal(t, "search", events[1].Kind)
	assert.Equal(t, "go", events[1].Value)
	env.assertIngested(t, 2, 0)
}

func TestCollect_EmptyBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/collect", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	events := env.stored(t)
	require.Len(t, events, 1)
	assert.Equal(t, "", events[0].Kind)
	assert.Equal(t, "{}", events[0].Props.String())
}

func TestCollect_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"event":`},
		{"top-level array", `[{"event":"view"}]`},
		{"scalar", `"view"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/collect", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, env.stored(t))
			env.assertIngested(t, 0, 0)
		})
	}
}

func TestCollect_TooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Collect.MaxBodyBytes = 32 })

	rec := env.do(t, http.MethodPost, "/api/collect", `{"event":"view","page":"`+strings.Repeat("a", 64)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.stored(t))
}

func TestCollect_ItemFailureStillAccepted(t *testing.T) {
	env := newTestEnv(t)

	db, err := sql.Open("sqlite3", env.dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TRIGGER reject_boom BEFORE INSERT ON events
		WHEN NEW.event = 'boom' BEGIN SELECT RAISE(ABORT, 'boom rejected'); END`)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/collect",
		`{"batch":[{"event":"view"},{"event":"boom"},{"event":"click"}]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	events := env.stored(t)
	require.Len(t, events, 2)
	assert.Equal(t, "view", events[0].Kind)
	assert.Equal(t, "click", events[1].Kind)
	env.assertIngested(t, 2, 1)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, withToken("s3cret"))

	gated := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/collect", `{"event":"view"}`},
		{http.MethodGet, "/api/stats/summary", ""},
		{http.MethodGet, "/api/stats/dashboard", ""},
		{http.MethodGet, "/api/export/events", ""},
		{http.MethodGet, "/metrics", ""},
	}
	for _, g := range gated {
		t.Run(g.method+" "+g.path, func(t *testing.T) {
			rec := env.do(t, g.method, g.path, g.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, rec.Body.String())
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

			rec = env.do(t, g.method, g.path, g.body, TokenHeader, "wrong")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = env.do(t, g.method, g.path, g.body, TokenHeader, "s3cret")
			assert.Less(t, rec.Code, 300)
		})
	}

	// Only the authorised collect stored anything.
	assert.Len(t, env.stored(t), 1)

	for _, open := range []string{"/healthz", "/admin"} {
		rec := env.do(t, http.MethodGet, open, "")
		assert.Equal(t, http.StatusOK, rec.Code, open)
	}
}

func TestAuth_NoSecretIsOpen(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/stats/summary", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, withToken("s3cret"))

	for _, path := range []string{"/api/collect", "/api/stats/dashboard", "/anything/else"} {
		rec := env.do(t, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assertCORS(t, rec)
	}

	rec := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assertCORS(t, rec)
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	h := rec.Header()
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, X-Analytics-Token", h.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET, POST, OPTIONS", h.Get("Access-Control-Allow-Methods"))
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", RequestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = env.do(t, http.MethodGet, "/healthz", "")
	id, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.NoError(t, env.store.Close())
	rec = env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/admin", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "/api/stats/dashboard")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/collect", `{"event":"view"}`)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `collector_events_ingested_total{result="ok"} 1`)
	assert.Contains(t, body, `collector_http_requests_total{method="POST",route="/api/collect",status="204"} 1`)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Port = freePort(t) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx) }()

	url := "http://" + env.srv.cfg.Addr() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
