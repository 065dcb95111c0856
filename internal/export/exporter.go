package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/vmsite/collector/internal/event"
	"github.com/vmsite/collector/internal/filter"
	"github.com/vmsite/collector/internal/stats"
	"github.com/vmsite/collector/internal/store"
)

// EventSource streams stored events.
type EventSource interface {
	Each(ctx context.Context, where filter.Predicate, opts store.QueryOptions, fn func(event.Event) error) error
}

// Exporter writes views as CSV.
type Exporter struct {
	stats  *stats.Engine
	events EventSource
}

// New creates an exporter backed by the stats engine and an event source.
func New(engine *stats.Engine, events EventSource) *Exporter {
	return &Exporter{stats: engine, events: events}
}

// Write renders view v to w. Lines end in CRLF.
//
// The header is only written once the underlying query has succeeded, so a
// failed export leaves w untouched for aggregate views.
func (x *Exporter) Write(ctx context.Context, w io.Writer, v View, p Params, now time.Time) error {
	if _, ok := headers[v]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownView, v)
	}
	if p.Days < 1 {
		p.Days = DefaultDays
	}
	p.Days = stats.ClampDays(p.Days)
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	var err error
	switch v {
	case ViewTopBlogs:
		err = x.writeGroups(cw, v, func() ([]store.Group, error) {
			return x.stats.TopBlogs(ctx, now, stats.Days(p.Days), topBlogsLimit)
		})
	case ViewTopSearches:
		err = x.writeGroups(cw, v, func() ([]store.Group, error) {
			return x.stats.TopSearches(ctx, now, stats.Days(p.Days), topSearchesLimit)
		})
	case ViewSubClicks:
		err = x.writeGroups(cw, v, func() ([]store.Group, error) {
			return x.stats.SubClicks(ctx, now, stats.Days(p.Days), subClicksLimit)
		})
	case ViewTimeSeries:
		err = x.writeTimeSeries(ctx, cw, now, p.Days)
	case ViewAppointmentHours:
		err = x.writeHours(ctx, cw, now, p.Days)
	case ViewEvents:
		err = x.writeEvents(ctx, cw, p.Limit)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", v, err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export %s: write: %w", v, err)
	}
	return nil
}

func (x *Exporter) writeGroups(cw *csv.Writer, v View, load func() ([]store.Group, error)) error {
	groups, err := load()
	if err != nil {
		return err
	}
	if err := cw.Write(v.Header()); err != nil {
		return err
	}
	for _, g := range groups {
		if err := cw.Write([]string{g.Key, strconv.FormatInt(g.Count, 10)}); err != nil {
			return err
		}
	}
	return nil
}

func (x *Exporter) writeTimeSeries(ctx context.Context, cw *csv.Writer, now time.Time, days int) error {
	rows, err := x.stats.TimeSeries(ctx, now, days)
	if err != nil {
		return err
	}
	if err := cw.Write(ViewTimeSeries.Header()); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Date, strconv.FormatInt(r.Appointments, 10), strconv.FormatInt(r.Emails, 10)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (x *Exporter) writeHours(ctx context.Context, cw *csv.Writer, now time.Time, days int) error {
	hours, err := x.stats.AppointmentHours(ctx, now, stats.Days(days))
	if err != nil {
		return err
	}
	if err := cw.Write(ViewAppointmentHours.Header()); err != nil {
		return err
	}
	for h, n := range hours {
		if err := cw.Write([]string{stats.HourLabel(h), strconv.FormatInt(n, 10)}); err != nil {
			return err
		}
	}
	return nil
}

func (x *Exporter) writeEvents(ctx context.Context, cw *csv.Writer, limit int) error {
	if err := cw.Write(ViewEvents.Header()); err != nil {
		return err
	}
	opts := store.QueryOptions{Order: store.NewestFirst, Limit: limit}
	return x.events.Each(ctx, nil, opts, func(e event.Event) error {
		return cw.Write([]string{
			strconv.FormatInt(e.Timestamp, 10),
			e.ClientID,
			e.SessionID,
			e.IP,
			e.UserAgent,
			e.Referrer,
			e.Page,
			e.Kind,
			e.Element,
			e.Value,
			e.Props.String(),
		})
	})
}
