package store

import (
	"database/sql"
	"fmt"

	"github.com/vmsite/collector/internal/event"
)

// eventColumns is the column list used by every full-row read, in scan order.
const eventColumns = "id, ts, client_id, session_id, ip, ua, ref, page, event, element, value, props"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullable stores empty optional strings as NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// insertArgs returns the positional arguments for insertSQL.
func insertArgs(e event.Event) []any {
	props := e.Props
	if props == "" {
		props = event.EmptyProperties
	}
	return []any{
		e.Timestamp,
		nullable(e.ClientID),
		nullable(e.SessionID),
		nullable(e.IP),
		nullable(e.UserAgent),
		nullable(e.Referrer),
		nullable(e.Page),
		e.Kind,
		nullable(e.Element),
		nullable(e.Value),
		string(props),
	}
}

// scanEvent reads one row selected with eventColumns. Columns that older
// databases allowed to be NULL (event, props) are tolerated.
func scanEvent(row rowScanner) (event.Event, error) {
	var e event.Event
	var cid, sid, ip, ua, ref, page, kind, element, value, props sql.NullString
	err := row.Scan(&e.ID, &e.Timestamp, &cid, &sid, &ip, &ua, &ref, &page, &kind, &element, &value, &props)
	if err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}
	e.ClientID = cid.String
	e.SessionID = sid.String
	e.IP = ip.String
	e.UserAgent = ua.String
	e.Referrer = ref.String
	e.Page = page.String
	e.Kind = kind.String
	e.Element = element.String
	e.Value = value.String
	e.Props = event.Properties(props.String)
	if e.Props == "" {
		e.Props = event.EmptyProperties
	}
	return e, nil
}
