package harness

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: one view
now: 2025-10-08T12:00:00Z
requests:
  - events:
      - {event: view, page: /, ago: 90m}
assertions:
  - type: stored_count
    count: 1
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC), s.Now.UTC())
	require.Len(t, s.Requests, 1)

	req := s.Requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/collect", req.Path)
	assert.Equal(t, http.StatusNoContent, req.Status)
	require.Len(t, req.Events, 1)
	assert.Equal(t, 90*time.Minute, req.Events[0].Ago)
	assert.Equal(t, map[string]any{"event": "view", "page": "/"}, req.Events[0].Fields)
}

func TestParseScenario_DefaultStatus(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: defaults
description: status defaults
now: 2025-10-08T12:00:00Z
requests:
  - method: GET
    path: /api/stats/summary
  - method: OPTIONS
    path: /x
assertions:
  - type: stored_count
`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, s.Requests[0].Status)
	assert.Equal(t, http.StatusNoContent, s.Requests[1].Status)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    minimalScenario + "assertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name: "missing now",
			yaml: `
name: x
description: x
requests: [{raw: "{}"}]
assertions: [{type: stored_count}]
`,
			wantErr: "now is required",
		},
		{
			name: "no requests",
			yaml: `
name: x
description: x
now: 2025-10-08T12:00:00Z
assertions: [{type: stored_count}]
`,
			wantErr: "requests list is required",
		},
		{
			name: "raw and events",
			yaml: `
name: x
description: x
now: 2025-10-08T12:00:00Z
requests: [{raw: "{}", events: [{event: view}]}]
assertions: [{type: stored_count}]
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "unknown window",
			yaml: `
name: x
description: x
now: 2025-10-08T12:00:00Z
requests: [{raw: "{}"}]
assertions: [{type: counters, window: last90}]
`,
			wantErr: `unknown window "last90"`,
		},
		{
			name: "unknown counter",
			yaml: `
name: x
description: x
now: 2025-10-08T12:00:00Z
requests: [{raw: "{}"}]
assertions: [{type: counters, window: last7, expect: {visits: 1}}]
`,
			wantErr: `unknown counter "visits"`,
		},
		{
			name: "unknown type",
			yaml: `
name: x
description: x
now: 2025-10-08T12:00:00Z
requests: [{raw: "{}"}]
assertions: [{type: trace_order}]
`,
			wantErr: `unknown assertion type "trace_order"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
}

func TestRequestBody(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	body, err := requestBody(s.Requests[0], s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"view","page":"/","ts":1759919400}`, string(body))

	batch := Request{Events: []EventSpec{
		{Fields: map[string]any{"event": "a"}},
		{Fields: map[string]any{"event": "b", "ts": 5}},
	}}
	body, err = requestBody(batch, s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"batch":[{"event":"a","ts":1759924800},{"event":"b","ts":5}]}`, string(body))

	body, err = requestBody(Request{}, s)
	require.NoError(t, err)
	assert.Nil(t, body)
}
