package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrMalformed is returned when the request body is not valid JSON.
	ErrMalformed = errors.New("malformed event payload")

	// ErrNotObject is returned when the body is valid JSON but not an object.
	ErrNotObject = errors.New("event payload is not a JSON object")
)

// Batch is the result of decoding one ingestion request.
type Batch struct {
	Events []Event

	// Skipped counts batch items that were not JSON objects.
	Skipped int
}

// Decode parses an ingestion body: either a single event object or
// {"batch":[...]}. An empty body decodes as one empty event.
//
// Transport fields always come from tr. Items inside a batch that are not
// objects are skipped and counted; they never fail the request.
func Decode(body []byte, tr Transport, now time.Time) (Batch, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		return Batch{}, ErrMalformed
	}
	if body[0] != '{' {
		return Batch{}, ErrNotObject
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if raw, ok := top["batch"]; ok && isArray(raw) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return Batch{}, fmt.Errorf("%w: batch: %v", ErrMalformed, err)
		}
		out := Batch{Events: make([]Event, 0, len(items))}
		for _, item := range items {
			var obj map[string]json.RawMessage
			if !isObject(item) || json.Unmarshal(item, &obj) != nil {
				out.Skipped++
				continue
			}
			out.Events = append(out.Events, fromWire(obj, tr, now))
		}
		return out, nil
	}

	return Batch{Events: []Event{fromWire(top, tr, now)}}, nil
}

// fromWire maps the short wire names onto an Event.
func fromWire(obj map[string]json.RawMessage, tr Transport, now time.Time) Event {
	return Event{
		Timestamp: timestamp(obj["ts"], now),
		ClientID:  text(obj["cid"]),
		SessionID: text(obj["sid"]),
		IP:        tr.IP,
		UserAgent: tr.UserAgent,
		Referrer:  text(obj["ref"]),
		Page:      text(obj["page"]),
		Kind:      text(obj["event"]),
		Element:   text(obj["element"]),
		Value:     text(obj["value"]),
		Props:     properties(obj["props"]),
	}
}

// timestamp reads a numeric or numeric-string ts. Anything else, including
// zero, falls back to the server clock.
func timestamp(raw json.RawMessage, now time.Time) int64 {
	fallback := now.Unix()
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fallback
	}

	var s string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return fallback
		}
		s = strings.TrimSpace(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		s = string(raw)
	default:
		return fallback
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n == 0 {
			return fallback
		}
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return fallback
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return fallback
	}
	return int64(f)
}

// text reads an optional string. Non-string scalars keep their JSON text.
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return norm.NFC.String(s)
	}
	return compact(raw)
}

// properties keeps the payload verbatim (compacted). Falsy payloads become {}.
func properties(raw json.RawMessage) Properties {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", "0", `""`, "[]", "{}":
		return EmptyProperties
	}
	return Properties(compact(raw))
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
