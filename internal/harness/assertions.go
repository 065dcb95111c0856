package harness

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/vmsite/collector/internal/stats"
)

// AssertionContext gives assertions access to the running server.
type AssertionContext struct {
	Harness *Harness
	Ctx     context.Context
}

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

var windows = map[string]func(*stats.Dashboard) stats.Counters{
	"last24": func(d *stats.Dashboard) stats.Counters { return d.Last24 },
	"last7":  func(d *stats.Dashboard) stats.Counters { return d.Last7 },
	"last30": func(d *stats.Dashboard) stats.Counters { return d.Last30 },
}

var counterNames = map[string]func(stats.Counters) int64{
	"views":        func(c stats.Counters) int64 { return c.Views },
	"searches":     func(c stats.Counters) int64 { return c.Searches },
	"clicks":       func(c stats.Counters) int64 { return c.Clicks },
	"appointments": func(c stats.Counters) int64 { return c.Appointments },
	"emails":       func(c stats.Counters) int64 { return c.Emails },
}

var panels = map[string]func(*stats.Dashboard) []TopRow{
	"blogs": func(d *stats.Dashboard) []TopRow {
		rows := make([]TopRow, 0, len(d.Tops.Blogs))
		for _, p := range d.Tops.Blogs {
			rows = append(rows, TopRow{Key: p.Page, Count: p.C})
		}
		return rows
	},
	"searches": func(d *stats.Dashboard) []TopRow {
		rows := make([]TopRow, 0, len(d.Tops.Searches))
		for _, q := range d.Tops.Searches {
			rows = append(rows, TopRow{Key: q.Q, Count: q.C})
		}
		return rows
	},
	"subs": func(d *stats.Dashboard) []TopRow {
		rows := make([]TopRow, 0, len(d.Tops.Subs))
		for _, k := range d.Tops.Subs {
			rows = append(rows, TopRow{Key: k.K, Count: k.C})
		}
		return rows
	},
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertStoredCount:
		return assertStoredCount(result, a)
	case AssertCounters:
		return assertCounters(result.Dashboard, a)
	case AssertTop:
		return assertTop(result.Dashboard, a)
	case AssertSeries:
		return assertSeries(result.Dashboard, a)
	case AssertHours:
		return assertHours(result.Dashboard, a)
	case AssertExport:
		return assertExport(actx, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertStoredCount(result *Result, a Assertion) error {
	if len(result.Stored) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertStoredCount,
		Expected: fmt.Sprintf("%d stored events", a.Count),
		Actual:   fmt.Sprintf("%d stored events", len(result.Stored)),
	}
}

func assertCounters(d *stats.Dashboard, a Assertion) error {
	got := windows[a.Window](d)
	var diffs []string
	for name, read := range counterNames {
		want := a.Expect[name]
		if have := read(got); have != want {
			diffs = append(diffs, fmt.Sprintf("%s=%d (want %d)", name, have, want))
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertCounters,
		Expected: fmt.Sprintf("%s %v", a.Window, a.Expect),
		Actual:   strings.Join(sorted(diffs), ", "),
	}
}

func assertTop(d *stats.Dashboard, a Assertion) error {
	got := panels[a.Panel](d)
	want := a.Rows
	if want == nil {
		want = []TopRow{}
	}
	if equalRows(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTop,
		Expected: fmt.Sprintf("%s %v", a.Panel, want),
		Actual:   fmt.Sprintf("%v", got),
	}
}

func assertSeries(d *stats.Dashboard, a Assertion) error {
	ts := d.TimeSeries
	seen := 0
	for i, date := range ts.Dates {
		want, ok := a.Series[date]
		if ok {
			seen++
		}
		got := SeriesPoint{Appointments: ts.Appointments[i], Emails: ts.Emails[i]}
		if got != want {
			return &AssertionError{
				Type:     AssertSeries,
				Expected: fmt.Sprintf("%s %+v", date, want),
				Actual:   fmt.Sprintf("%+v", got),
			}
		}
	}
	if seen != len(a.Series) {
		return &AssertionError{
			Type:     AssertSeries,
			Expected: fmt.Sprintf("dates %v within the series", keys(a.Series)),
			Actual:   fmt.Sprintf("series covers %v", ts.Dates),
		}
	}
	return nil
}

func assertHours(d *stats.Dashboard, a Assertion) error {
	h := d.AppointmentHours
	for i, label := range h.Labels {
		if want := a.Hours[label]; h.Values[i] != want {
			return &AssertionError{
				Type:     AssertHours,
				Expected: fmt.Sprintf("hour %s = %d", label, want),
				Actual:   fmt.Sprintf("%d", h.Values[i]),
			}
		}
	}
	return nil
}

func assertExport(actx *AssertionContext, a Assertion) error {
	target := "/api/export/" + a.View
	if a.Query != "" {
		target += "?" + a.Query
	}
	rec := actx.Harness.do(http.MethodGet, target, nil, false)
	if rec.Code != http.StatusOK {
		return &AssertionError{
			Type:     AssertExport,
			Expected: "status 200",
			Actual:   fmt.Sprintf("status %d", rec.Code),
		}
	}
	got := strings.Split(strings.TrimSuffix(rec.Body.String(), "\r\n"), "\r\n")
	if strings.Join(got, "\n") == strings.Join(a.Lines, "\n") {
		return nil
	}
	return &AssertionError{
		Type:     AssertExport,
		Expected: strings.Join(a.Lines, " | "),
		Actual:   strings.Join(got, " | "),
	}
}

func equalRows(a, b []TopRow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sorted(s []string) []string {
	sort.Strings(s)
	return s
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
