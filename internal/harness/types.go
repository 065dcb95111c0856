package harness

import (
	"github.com/vmsite/collector/internal/event"
	"github.com/vmsite/collector/internal/stats"
)

// StepResult records one request of the run.
type StepResult struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Status int    `json:"status"`
}

// StoredEvent is the golden form of a stored row. Transport fields are
// fixed by httptest and left out.
type StoredEvent struct {
	ID      int64  `json:"id"`
	TS      int64  `json:"ts"`
	Event   string `json:"event"`
	Page    string `json:"page,omitempty"`
	Element string `json:"element,omitempty"`
	Value   string `json:"value,omitempty"`
	Props   string `json:"props"`
}

func storedEvent(e event.Event) StoredEvent {
	return StoredEvent{
		ID:      e.ID,
		TS:      e.Timestamp,
		Event:   e.Kind,
		Page:    e.Page,
		Element: e.Element,
		Value:   e.Value,
		Props:   e.Props.String(),
	}
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every request returned its expected status and
	// every assertion held.
	Pass   bool          `json:"pass"`
	Steps  []StepResult  `json:"steps"`
	Stored []StoredEvent `json:"stored"`
	Errors []string      `json:"errors,omitempty"`

	// Dashboard is fetched once after the last request.
	Dashboard *stats.Dashboard `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Stored: []StoredEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
