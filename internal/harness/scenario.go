package harness

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes one end-to-end run.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Now freezes the server clock.
	Now time.Time `yaml:"now"`

	// Token is the configured shared secret. Requests send it unless
	// marked anonymous.
	Token string `yaml:"token,omitempty"`

	Requests   []Request   `yaml:"requests"`
	Assertions []Assertion `yaml:"assertions"`
}

// Request is one HTTP call. Method defaults to POST and path to
// /api/collect.
type Request struct {
	Method    string      `yaml:"method,omitempty"`
	Path      string      `yaml:"path,omitempty"`
	Anonymous bool        `yaml:"anonymous,omitempty"`
	Events    []EventSpec `yaml:"events,omitempty"`
	Raw       string      `yaml:"raw,omitempty"`

	// Status is the expected response code. Zero expects 204 for collect
	// and preflight requests, 200 otherwise.
	Status int `yaml:"status,omitempty"`
}

// EventSpec is one wire event. Ago sets ts relative to the scenario clock
// unless Fields carries an explicit ts.
type EventSpec struct {
	Ago    time.Duration  `yaml:"ago,omitempty"`
	Fields map[string]any `yaml:",inline"`
}

// Assertion checks one property of the finished run.
type Assertion struct {
	Type string `yaml:"type"`

	// stored_count
	Count int `yaml:"count,omitempty"`

	// counters: window is last24, last7 or last30; expect maps counter
	// names to values. Counters not listed must be zero.
	Window string           `yaml:"window,omitempty"`
	Expect map[string]int64 `yaml:"expect,omitempty"`

	// top: panel is blogs, searches or subs.
	Panel string   `yaml:"panel,omitempty"`
	Rows  []TopRow `yaml:"rows,omitempty"`

	// series: days not listed must be zero.
	Series map[string]SeriesPoint `yaml:"series,omitempty"`

	// hours: hour label to count; hours not listed must be zero.
	Hours map[string]int64 `yaml:"hours,omitempty"`

	// export: view plus optional query string, compared line by line.
	View  string   `yaml:"view,omitempty"`
	Query string   `yaml:"query,omitempty"`
	Lines []string `yaml:"lines,omitempty"`
}

type TopRow struct {
	Key   string `yaml:"key"`
	Count int64  `yaml:"count"`
}

type SeriesPoint struct {
	Appointments int64 `yaml:"appointments"`
	Emails       int64 `yaml:"emails"`
}

// Assertion type constants.
const (
	AssertStoredCount = "stored_count"
	AssertCounters    = "counters"
	AssertTop         = "top"
	AssertSeries      = "series"
	AssertHours       = "hours"
	AssertExport      = "export"
)

// LoadScenario reads and validates a scenario file. Unknown keys are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Scenario) applyDefaults() {
	for i := range s.Requests {
		r := &s.Requests[i]
		if r.Method == "" {
			r.Method = http.MethodPost
		}
		if r.Path == "" {
			r.Path = "/api/collect"
		}
		if r.Status == 0 {
			r.Status = http.StatusOK
			if r.Method == http.MethodOptions || (r.Method == http.MethodPost && r.Path == "/api/collect") {
				r.Status = http.StatusNoContent
			}
		}
	}
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Now.IsZero() {
		return fmt.Errorf("now is required")
	}
	if len(s.Requests) == 0 {
		return fmt.Errorf("requests list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, r := range s.Requests {
		if len(r.Events) > 0 && r.Raw != "" {
			return fmt.Errorf("requests[%d]: events and raw are mutually exclusive", i)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStoredCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertCounters:
		if _, ok := windows[a.Window]; !ok {
			return fmt.Errorf("assertions[%d]: unknown window %q", index, a.Window)
		}
		for name := range a.Expect {
			if _, ok := counterNames[name]; !ok {
				return fmt.Errorf("assertions[%d]: unknown counter %q", index, name)
			}
		}
	case AssertTop:
		if _, ok := panels[a.Panel]; !ok {
			return fmt.Errorf("assertions[%d]: unknown panel %q", index, a.Panel)
		}
	case AssertSeries, AssertHours:
	case AssertExport:
		if a.View == "" {
			return fmt.Errorf("assertions[%d]: view is required for export", index)
		}
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines are required for export", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
