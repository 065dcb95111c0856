package stats

import "fmt"

// BasicCounters are the traffic counters shown in the summary.
type BasicCounters struct {
	Views    int64 `json:"views"`
	Searches int64 `json:"searches"`
	Clicks   int64 `json:"clicks"`
}

// Counters extends BasicCounters with conversion counters.
type Counters struct {
	BasicCounters
	Appointments int64 `json:"appointments"`
	Emails       int64 `json:"emails"`
}

// PageCount is a page with its view or click count.
type PageCount struct {
	Page string `json:"page"`
	C    int64  `json:"c"`
}

// QueryCount is a search query with the number of times it was issued.
type QueryCount struct {
	Q string `json:"q"`
	C int64  `json:"c"`
}

// KeyCount is a grouping key with its count. The summary uses it for
// searches, the dashboard for subscribe clicks by page.
type KeyCount struct {
	K string `json:"k"`
	C int64  `json:"c"`
}

// Summary is the response of /api/stats/summary.
type Summary struct {
	Last24 BasicCounters `json:"last24"`
	Last7  BasicCounters `json:"last7"`
	Tops   SummaryTops   `json:"tops"`
}

// SummaryTops ranks pages and searches over the last 7 days.
type SummaryTops struct {
	Pages    []PageCount `json:"pages"`
	Searches []KeyCount  `json:"searches"`
}

// Dashboard is the response of /api/stats/dashboard. Field names match
// what the admin page reads.
type Dashboard struct {
	Last24           Counters      `json:"last24"`
	Last7            Counters      `json:"last7"`
	Last30           Counters      `json:"last30"`
	Tops             DashboardTops `json:"tops"`
	TimeSeries       Series        `json:"timeseries"`
	AppointmentHours HourHistogram `json:"appointmentHours"`
}

// DashboardTops holds the 7-day top-10 panels.
type DashboardTops struct {
	Blogs    []PageCount  `json:"blogs"`
	Searches []QueryCount `json:"searches"`
	Subs     []KeyCount   `json:"subs"`
}

// DayRow is one day of the appointment/email time series.
type DayRow struct {
	Date         string
	Appointments int64
	Emails       int64
}

// Series is the column-oriented form of []DayRow used by the chart.
type Series struct {
	Dates        []string `json:"dates"`
	Appointments []int64  `json:"appointments"`
	Emails       []int64  `json:"emails"`
}

// HourHistogram pairs hour labels "00".."23" with counts.
type HourHistogram struct {
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}

// Columns pivots rows into a Series.
func Columns(rows []DayRow) Series {
	s := Series{
		Dates:        make([]string, len(rows)),
		Appointments: make([]int64, len(rows)),
		Emails:       make([]int64, len(rows)),
	}
	for i, r := range rows {
		s.Dates[i] = r.Date
		s.Appointments[i] = r.Appointments
		s.Emails[i] = r.Emails
	}
	return s
}

// HourLabel formats an hour of day as two digits.
func HourLabel(h int) string {
	return fmt.Sprintf("%02d", h)
}

// Histogram labels 24 hourly buckets.
func Histogram(hours [HoursPerDay]int64) HourHistogram {
	h := HourHistogram{
		Labels: make([]string, HoursPerDay),
		Values: make([]int64, HoursPerDay),
	}
	for i, v := range hours {
		h.Labels[i] = HourLabel(i)
		h.Values[i] = v
	}
	return h
}
