package event

import "time"

// Event is one recorded client action.
//
// Optional caller strings are empty when absent. The store persists empty
// optional strings as NULL so "has a value" groupings ignore them.
type Event struct {
	ID        int64      `json:"id"`
	Timestamp int64      `json:"ts"`
	ClientID  string     `json:"client_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	IP        string     `json:"ip,omitempty"`
	UserAgent string     `json:"ua,omitempty"`
	Referrer  string     `json:"ref,omitempty"`
	Page      string     `json:"page,omitempty"`
	Kind      string     `json:"event"`
	Element   string     `json:"element,omitempty"`
	Value     string     `json:"value,omitempty"`
	Props     Properties `json:"props"`
}

// Time returns the event timestamp as a UTC time.
func (e Event) Time() time.Time {
	return time.Unix(e.Timestamp, 0).UTC()
}

// Transport carries the identity fields captured from the connection.
// They always overwrite whatever the payload claims.
type Transport struct {
	IP        string
	UserAgent string
}
