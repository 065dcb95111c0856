package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/vmsite/collector/internal/config"
	"github.com/vmsite/collector/internal/event"
	"github.com/vmsite/collector/internal/server"
	"github.com/vmsite/collector/internal/stats"
	"github.com/vmsite/collector/internal/store"
	"github.com/vmsite/collector/internal/testutil"
)

// Harness drives one server instance over an isolated store.
type Harness struct {
	store   *store.Store
	handler http.Handler
	token   string
}

// Run executes a scenario against a fresh in-memory store.
//
// Execution flow:
//  1. Open an in-memory store and build the server with a frozen clock
//  2. Send each request, checking its status
//  3. Fetch the dashboard and the stored rows
//  4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(st, scenario)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()

	for i, req := range scenario.Requests {
		status, err := h.send(req, scenario)
		if err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		result.Steps = append(result.Steps, StepResult{Method: req.Method, Path: req.Path, Status: status})
		if status != req.Status {
			result.AddError(fmt.Sprintf("requests[%d] %s %s: expected status %d, got %d",
				i, req.Method, req.Path, req.Status, status))
		}
	}

	if result.Dashboard, err = h.dashboard(); err != nil {
		return nil, err
	}

	err = st.Each(ctx, nil, store.QueryOptions{Order: store.OldestFirst}, func(e event.Event) error {
		result.Stored = append(result.Stored, storedEvent(e))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read stored events: %w", err)
	}

	actx := &AssertionContext{Harness: h, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(st *store.Store, scenario *Scenario) (*Harness, error) {
	cfg := config.Default()
	cfg.Token = scenario.Token

	clock := testutil.NewFixedClock(scenario.Now)
	srv, err := server.New(cfg, st, server.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("build server: %w", err)
	}
	return &Harness{store: st, handler: srv.Handler(), token: scenario.Token}, nil
}

// send performs one scenario request and returns the status code.
func (h *Harness) send(req Request, scenario *Scenario) (int, error) {
	body, err := requestBody(req, scenario)
	if err != nil {
		return 0, err
	}
	rec := h.do(req.Method, req.Path, body, req.Anonymous)
	return rec.Code, nil
}

func (h *Harness) do(method, target string, body []byte, anonymous bool) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	httpReq := httptest.NewRequest(method, target, r)
	if h.token != "" && !anonymous {
		httpReq.Header.Set(server.TokenHeader, h.token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httpReq)
	return rec
}

func (h *Harness) dashboard() (*stats.Dashboard, error) {
	rec := h.do(http.MethodGet, "/api/stats/dashboard", nil, false)
	if rec.Code != http.StatusOK {
		return nil, fmt.Errorf("dashboard: status %d", rec.Code)
	}
	var d stats.Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}
	return &d, nil
}

// requestBody renders the wire body: raw text, a single object, or a
// batch envelope.
func requestBody(req Request, scenario *Scenario) ([]byte, error) {
	if req.Raw != "" {
		return []byte(req.Raw), nil
	}
	if len(req.Events) == 0 {
		return nil, nil
	}

	items := make([]map[string]any, 0, len(req.Events))
	for _, es := range req.Events {
		obj := make(map[string]any, len(es.Fields)+1)
		for k, v := range es.Fields {
			obj[k] = v
		}
		if _, ok := obj["ts"]; !ok {
			obj["ts"] = scenario.Now.Add(-es.Ago).Unix()
		}
		items = append(items, obj)
	}

	var payload any = items[0]
	if len(items) > 1 {
		payload = map[string]any{"batch": items}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return b, nil
}
