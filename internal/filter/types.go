package filter

import (
	"fmt"

	"github.com/vmsite/collector/internal/event"
)

// Predicate is a filter condition over events.
//
// This is a sealed interface. Only types in this package implement it, so
// Compile and Match can switch exhaustively.
type Predicate interface {
	predicateNode()
}

// Column names a stored event attribute.
type Column string

const (
	ColumnTimestamp Column = "ts"
	ColumnClientID  Column = "client_id"
	ColumnSessionID Column = "session_id"
	ColumnIP        Column = "ip"
	ColumnUserAgent Column = "ua"
	ColumnReferrer  Column = "ref"
	ColumnPage      Column = "page"
	ColumnKind      Column = "event"
	ColumnElement   Column = "element"
	ColumnValue     Column = "value"
	ColumnProps     Column = "props"
)

// Valid reports whether c is a known column.
func (c Column) Valid() bool {
	switch c {
	case ColumnTimestamp, ColumnClientID, ColumnSessionID, ColumnIP, ColumnUserAgent,
		ColumnReferrer, ColumnPage, ColumnKind, ColumnElement, ColumnValue, ColumnProps:
		return true
	}
	return false
}

// textual reports whether c holds text (everything except ts).
func (c Column) textual() bool {
	return c.Valid() && c != ColumnTimestamp
}

// Of returns the stored text of column c for e. ok is false when the stored
// value is NULL (an empty optional string).
func (c Column) Of(e event.Event) (string, bool) {
	switch c {
	case ColumnKind:
		return e.Kind, true
	case ColumnProps:
		return e.Props.String(), true
	case ColumnTimestamp:
		return fmt.Sprintf("%d", e.Timestamp), true
	}
	var v string
	switch c {
	case ColumnClientID:
		v = e.ClientID
	case ColumnSessionID:
		v = e.SessionID
	case ColumnIP:
		v = e.IP
	case ColumnUserAgent:
		v = e.UserAgent
	case ColumnReferrer:
		v = e.Referrer
	case ColumnPage:
		v = e.Page
	case ColumnElement:
		v = e.Element
	case ColumnValue:
		v = e.Value
	}
	return v, v != ""
}

// Since keeps events with ts >= Unix.
type Since struct {
	Unix int64
}

func (Since) predicateNode() {}

// KindPrefix keeps events whose kind starts with Prefix.
type KindPrefix struct {
	Prefix string
}

func (KindPrefix) predicateNode() {}

// KindIn keeps events whose kind equals one of Kinds.
// An empty list matches nothing.
type KindIn struct {
	Kinds []string
}

func (KindIn) predicateNode() {}

// Equals keeps events whose column equals Value exactly.
type Equals struct {
	Field Column
	Value string
}

func (Equals) predicateNode() {}

// Contains keeps events whose column contains Substr (LIKE '%Substr%').
type Contains struct {
	Field  Column
	Substr string
}

func (Contains) predicateNode() {}

// NotNull keeps events where the column has a value.
type NotNull struct {
	Field Column
}

func (NotNull) predicateNode() {}

// And keeps events matching every predicate. Empty And matches everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or keeps events matching at least one predicate. Empty Or matches nothing.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// All is shorthand for And{...}, dropping nil entries.
func All(preds ...Predicate) Predicate {
	out := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	return And{Predicates: out}
}

// Any is shorthand for Or{...}, dropping nil entries.
func Any(preds ...Predicate) Predicate {
	out := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	return Or{Predicates: out}
}
