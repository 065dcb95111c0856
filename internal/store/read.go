package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vmsite/collector/internal/event"
	"github.com/vmsite/collector/internal/filter"
)

// ErrNotFound is returned by Get when no event has the requested id.
var ErrNotFound = errors.New("store: event not found")

// Group is one row of a GroupCount result.
type Group struct {
	Key   string
	Count int64
}

// GroupQuery describes a "count per distinct column value" aggregation.
type GroupQuery struct {
	// By is the grouped column.
	By filter.Column
	// NullAs replaces NULL keys. When empty, NULL keys are grouped under "".
	NullAs string
	// Where restricts the counted rows. Nil counts every row.
	Where filter.Predicate
	// Limit caps the number of groups. Zero or negative means no cap.
	Limit int
}

// DayCount is the number of events of one kind on one UTC day.
type DayCount struct {
	// Day is the number of whole days since the Unix epoch.
	Day   int64
	Kind  string
	Count int64
}

// Order selects the row order of event reads.
type Order int

const (
	// NewestFirst orders by ts DESC, id DESC.
	NewestFirst Order = iota
	// OldestFirst orders by ts ASC, id ASC.
	OldestFirst
)

func (o Order) sql() string {
	if o == OldestFirst {
		return "ts ASC, id ASC"
	}
	return "ts DESC, id DESC"
}

// QueryOptions tunes Each and Query.
type QueryOptions struct {
	Order Order
	// Limit caps the number of rows. Zero or negative means no cap.
	Limit int
}

// sqlLimit maps "no cap" onto SQLite's LIMIT -1.
func sqlLimit(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}

// Count returns the number of events matching where.
func (s *Store) Count(ctx context.Context, where filter.Predicate) (int64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	clause, args, err := filter.Compile(where)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE "+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// GroupCount counts matching events per distinct value of q.By.
// Groups are ordered by count descending, then key ascending.
func (s *Store) GroupCount(ctx context.Context, q GroupQuery) ([]Group, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	if !q.By.Valid() {
		return nil, fmt.Errorf("group count: unknown column %q", q.By)
	}
	clause, whereArgs, err := filter.Compile(q.Where)
	if err != nil {
		return nil, fmt.Errorf("group count: %w", err)
	}

	key := string(q.By)
	var args []any
	if q.NullAs != "" {
		key = fmt.Sprintf("COALESCE(%s, ?)", q.By)
		args = append(args, q.NullAs)
	}
	args = append(args, whereArgs...)
	args = append(args, sqlLimit(q.Limit))

	query := fmt.Sprintf(`
		SELECT %s AS k, COUNT(*) AS c
		FROM events
		WHERE %s
		GROUP BY k
		ORDER BY c DESC, k ASC
		LIMIT ?
	`, key, clause)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group count by %s: %w", q.By, err)
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var k sql.NullString
		var g Group
		if err := rows.Scan(&k, &g.Count); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.Key = k.String
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// DayCounts counts matching events per (UTC day, kind), ordered by day then kind.
func (s *Store) DayCounts(ctx context.Context, where filter.Predicate) ([]DayCount, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	clause, args, err := filter.Compile(where)
	if err != nil {
		return nil, fmt.Errorf("day counts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ts / 86400 AS d, event, COUNT(*)
		FROM events
		WHERE `+clause+`
		GROUP BY d, event
		ORDER BY d ASC, event ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("day counts: %w", err)
	}
	defer rows.Close()

	counts := []DayCount{}
	for rows.Next() {
		var dc DayCount
		var kind sql.NullString
		if err := rows.Scan(&dc.Day, &kind, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		dc.Kind = kind.String
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate day counts: %w", err)
	}
	return counts, nil
}

// Properties returns the props payload of every matching event in id order.
func (s *Store) Properties(ctx context.Context, where filter.Predicate) ([]event.Properties, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	clause, args, err := filter.Compile(where)
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT props FROM events WHERE "+clause+" ORDER BY id ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}
	defer rows.Close()

	props := []event.Properties{}
	for rows.Next() {
		var p sql.NullString
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan props: %w", err)
		}
		props = append(props, event.Properties(p.String))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate props: %w", err)
	}
	return props, nil
}

// Each streams matching events to fn. Iteration stops at the first error
// returned by fn, which is passed through unwrapped.
func (s *Store) Each(ctx context.Context, where filter.Predicate, opts QueryOptions, fn func(event.Event) error) error {
	if s.isClosed() {
		return ErrClosed
	}
	clause, args, err := filter.Compile(where)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	args = append(args, sqlLimit(opts.Limit))

	query := "SELECT " + eventColumns + " FROM events WHERE " + clause +
		" ORDER BY " + opts.Order.sql() + " LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate events: %w", err)
	}
	return nil
}

// Query returns matching events. Returns an empty slice (not nil) when
// nothing matches.
func (s *Store) Query(ctx context.Context, where filter.Predicate, opts QueryOptions) ([]event.Event, error) {
	events := []event.Event{}
	err := s.Each(ctx, where, opts, func(e event.Event) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]event.Event, error) {
	return s.Query(ctx, nil, QueryOptions{Order: NewestFirst, Limit: limit})
}

// Get returns the event with the given id.
func (s *Store) Get(ctx context.Context, id int64) (event.Event, error) {
	if s.isClosed() {
		return event.Event{}, ErrClosed
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return event.Event{}, err
	}
	return e, nil
}
