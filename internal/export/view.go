// Package export renders aggregations and raw events as CSV downloads.
//
// Aggregate views reuse the stats engine, so an export for a window of N
// days counts the same rows as the dashboard panel for that window.
package export

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/vmsite/collector/internal/stats"
)

// View names one downloadable table.
type View string

const (
	ViewTopBlogs         View = "top_blogs"
	ViewTopSearches      View = "top_searches"
	ViewSubClicks        View = "sub_clicks"
	ViewTimeSeries       View = "timeseries"
	ViewAppointmentHours View = "appointment_hours"
	ViewEvents           View = "events"
)

// ContentType is sent with every export.
const ContentType = "text/csv; charset=utf-8"

// Parameter defaults.
const (
	DefaultDays  = 7
	DefaultLimit = 10000
)

// Row caps of the ranked views.
const (
	topBlogsLimit    = 100
	topSearchesLimit = 100
	subClicksLimit   = 200
)

// ErrUnknownView is returned by ParseView for names outside Views.
var ErrUnknownView = errors.New("export: unknown view")

// Views lists every view in a stable order.
var Views = []View{
	ViewTopBlogs,
	ViewTopSearches,
	ViewSubClicks,
	ViewTimeSeries,
	ViewAppointmentHours,
	ViewEvents,
}

var headers = map[View][]string{
	ViewTopBlogs:         {"page", "views"},
	ViewTopSearches:      {"query", "count"},
	ViewSubClicks:        {"page", "clicks"},
	ViewTimeSeries:       {"date", "appointments", "emails"},
	ViewAppointmentHours: {"hour", "count"},
	ViewEvents:           {"ts", "client_id", "session_id", "ip", "ua", "ref", "page", "event", "element", "value", "props"},
}

// ParseView resolves a view name.
func ParseView(name string) (View, error) {
	v := View(name)
	if _, ok := headers[v]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return v, nil
}

// Header returns the CSV header row.
func (v View) Header() []string {
	return append([]string(nil), headers[v]...)
}

// Filename is the suggested download name.
func (v View) Filename() string {
	if v == ViewSubClicks {
		return "subscribe_clicks.csv"
	}
	return string(v) + ".csv"
}

// ContentDisposition is the attachment header value for v.
func (v View) ContentDisposition() string {
	return fmt.Sprintf("attachment; filename=%q", v.Filename())
}

// Params are the query parameters of an export.
type Params struct {
	// Days sizes the window of aggregate views.
	Days int
	// Limit caps the raw events view.
	Limit int
}

// DefaultParams returns Params with every default applied.
func DefaultParams() Params {
	return Params{Days: DefaultDays, Limit: DefaultLimit}
}

// ParseParams reads raw query values. Unparsable or non-positive values
// fall back to their defaults; days above stats.MaxDays are clamped.
func ParseParams(days, limit string) Params {
	return Params{
		Days:  min(positiveOr(days, DefaultDays), stats.MaxDays),
		Limit: positiveOr(limit, DefaultLimit),
	}
}

func positiveOr(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
