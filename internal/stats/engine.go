package stats

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vmsite/collector/internal/event"
	"github.com/vmsite/collector/internal/filter"
	"github.com/vmsite/collector/internal/store"
)

// Default sizes of the dashboard panels.
const (
	TopLimit        = 10
	TimeSeriesDays  = 14
	HourWindowDays  = 30
	HoursPerDay     = 24
	summaryTopLimit = 10
)

// Reader is the subset of the store the engine needs.
type Reader interface {
	Count(ctx context.Context, where filter.Predicate) (int64, error)
	GroupCount(ctx context.Context, q store.GroupQuery) ([]store.Group, error)
	DayCounts(ctx context.Context, where filter.Predicate) ([]store.DayCount, error)
	Properties(ctx context.Context, where filter.Predicate) ([]event.Properties, error)
}

// Engine evaluates aggregations against a Reader.
type Engine struct {
	reader Reader
	logger *slog.Logger
}

// New creates an engine. A nil logger discards output.
func New(r Reader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{reader: r, logger: logger.With("component", "stats")}
}

// Count returns the number of events matching p inside w.
func (e *Engine) Count(ctx context.Context, now time.Time, w Window, p filter.Predicate) (int64, error) {
	return e.reader.Count(ctx, filter.All(w.Since(now), p))
}

// BasicCounters returns views, searches and clicks inside w.
func (e *Engine) BasicCounters(ctx context.Context, now time.Time, w Window) (BasicCounters, error) {
	var c BasicCounters
	for _, f := range []struct {
		dst *int64
		p   filter.Predicate
	}{
		{&c.Views, Views},
		{&c.Searches, Searches},
		{&c.Clicks, Clicks},
	} {
		n, err := e.Count(ctx, now, w, f.p)
		if err != nil {
			return BasicCounters{}, err
		}
		*f.dst = n
	}
	return c, nil
}

// Counters returns every dashboard counter inside w.
func (e *Engine) Counters(ctx context.Context, now time.Time, w Window) (Counters, error) {
	basic, err := e.BasicCounters(ctx, now, w)
	if err != nil {
		return Counters{}, err
	}
	c := Counters{BasicCounters: basic}
	if c.Appointments, err = e.Count(ctx, now, w, Appointments); err != nil {
		return Counters{}, err
	}
	if c.Emails, err = e.Count(ctx, now, w, Emails); err != nil {
		return Counters{}, err
	}
	return c, nil
}

func (e *Engine) top(ctx context.Context, now time.Time, w Window, by filter.Column, nullAs string, p filter.Predicate, limit int) ([]store.Group, error) {
	groups, err := e.reader.GroupCount(ctx, store.GroupQuery{
		By:     by,
		NullAs: nullAs,
		Where:  filter.All(w.Since(now), p),
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("top by %s: %w", by, err)
	}
	return groups, nil
}

// TopPages ranks viewed pages.
func (e *Engine) TopPages(ctx context.Context, now time.Time, w Window, limit int) ([]store.Group, error) {
	return e.top(ctx, now, w, filter.ColumnPage, "", PageViews, limit)
}

// TopBlogs ranks viewed blog posts.
func (e *Engine) TopBlogs(ctx context.Context, now time.Time, w Window, limit int) ([]store.Group, error) {
	return e.top(ctx, now, w, filter.ColumnPage, "", BlogViews, limit)
}

// TopSearches ranks search queries.
func (e *Engine) TopSearches(ctx context.Context, now time.Time, w Window, limit int) ([]store.Group, error) {
	return e.top(ctx, now, w, filter.ColumnValue, "", SearchQueries, limit)
}

// SubClicks ranks pages by subscribe clicks. Clicks without a page are
// grouped under NullPage.
func (e *Engine) SubClicks(ctx context.Context, now time.Time, w Window, limit int) ([]store.Group, error) {
	return e.top(ctx, now, w, filter.ColumnPage, NullPage, SubscribeClicks, limit)
}

// TimeSeries returns daily appointment and email counts.
//
// Rows cover every UTC day from today-(days-1) to the later of today and the
// latest day with data, with missing days zero-filled. days is clamped by
// ClampDays, and data more than MaxDays past today is ignored.
func (e *Engine) TimeSeries(ctx context.Context, now time.Time, days int) ([]DayRow, error) {
	days = ClampDays(days)
	today := dayOf(now.Unix())
	first := today - int64(days-1)

	counts, err := e.reader.DayCounts(ctx, filter.All(
		filter.Since{Unix: first * secondsPerDay},
		AppointmentsOrEmails,
	))
	if err != nil {
		return nil, fmt.Errorf("time series: %w", err)
	}

	last := today
	byDay := make(map[int64]*DayRow)
	for _, dc := range counts {
		if dc.Day < first || dc.Day > today+MaxDays {
			continue
		}
		if dc.Day > last {
			last = dc.Day
		}
		row, ok := byDay[dc.Day]
		if !ok {
			row = &DayRow{}
			byDay[dc.Day] = row
		}
		switch {
		case IsAppointment(dc.Kind):
			row.Appointments += dc.Count
		case dc.Kind == KindEmailSend:
			row.Emails += dc.Count
		}
	}

	rows := make([]DayRow, 0, last-first+1)
	for d := first; d <= last; d++ {
		row := DayRow{Date: dayLabel(d)}
		if r, ok := byDay[d]; ok {
			row.Appointments = r.Appointments
			row.Emails = r.Emails
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppointmentHours buckets appointments inside w by the hour of their
// "start" property. Appointments without a usable start are skipped.
func (e *Engine) AppointmentHours(ctx context.Context, now time.Time, w Window) ([HoursPerDay]int64, error) {
	var hours [HoursPerDay]int64

	props, err := e.reader.Properties(ctx, filter.All(w.Since(now), Appointments))
	if err != nil {
		return hours, fmt.Errorf("appointment hours: %w", err)
	}

	skipped := 0
	for _, p := range props {
		h, ok := p.StartHour()
		if !ok {
			skipped++
			continue
		}
		hours[h]++
	}
	if skipped > 0 {
		e.logger.Debug("appointments without start hour", "skipped", skipped)
	}
	return hours, nil
}

// Summary builds the compact 24h/7d overview.
func (e *Engine) Summary(ctx context.Context, now time.Time) (*Summary, error) {
	var s Summary
	var err error

	if s.Last24, err = e.BasicCounters(ctx, now, Last24h); err != nil {
		return nil, err
	}
	if s.Last7, err = e.BasicCounters(ctx, now, Last7d); err != nil {
		return nil, err
	}

	pages, err := e.TopPages(ctx, now, Last7d, summaryTopLimit)
	if err != nil {
		return nil, err
	}
	searches, err := e.TopSearches(ctx, now, Last7d, summaryTopLimit)
	if err != nil {
		return nil, err
	}
	s.Tops.Pages = pageCounts(pages)
	s.Tops.Searches = keyCounts(searches)
	return &s, nil
}

// Dashboard builds every panel of the admin dashboard.
func (e *Engine) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	var d Dashboard
	var err error

	if d.Last24, err = e.Counters(ctx, now, Last24h); err != nil {
		return nil, err
	}
	if d.Last7, err = e.Counters(ctx, now, Last7d); err != nil {
		return nil, err
	}
	if d.Last30, err = e.Counters(ctx, now, Last30d); err != nil {
		return nil, err
	}

	blogs, err := e.TopBlogs(ctx, now, Last7d, TopLimit)
	if err != nil {
		return nil, err
	}
	searches, err := e.TopSearches(ctx, now, Last7d, TopLimit)
	if err != nil {
		return nil, err
	}
	subs, err := e.SubClicks(ctx, now, Last7d, TopLimit)
	if err != nil {
		return nil, err
	}
	d.Tops = DashboardTops{
		Blogs:    pageCounts(blogs),
		Searches: queryCounts(searches),
		Subs:     keyCounts(subs),
	}

	rows, err := e.TimeSeries(ctx, now, TimeSeriesDays)
	if err != nil {
		return nil, err
	}
	d.TimeSeries = Columns(rows)

	hours, err := e.AppointmentHours(ctx, now, Days(HourWindowDays))
	if err != nil {
		return nil, err
	}
	d.AppointmentHours = Histogram(hours)

	return &d, nil
}
