package event

import (
	"encoding/json"
	"strconv"
	"strings"
)

// EmptyProperties is the stored form of an absent properties payload.
const EmptyProperties Properties = "{}"

// Properties is the opaque JSON text attached to an event.
//
// The store never interprets it. Aggregations read specific fields through
// the named accessors below, which report absence instead of failing.
type Properties string

// String returns the raw JSON text.
func (p Properties) String() string {
	if p == "" {
		return string(EmptyProperties)
	}
	return string(p)
}

// MarshalJSON emits the payload as embedded JSON when it is valid, and as a
// JSON string otherwise.
func (p Properties) MarshalJSON() ([]byte, error) {
	raw := []byte(p.String())
	if json.Valid(raw) {
		return raw, nil
	}
	return json.Marshal(string(p))
}

// Contains reports whether the raw text contains substr, ignoring ASCII case.
func (p Properties) Contains(substr string) bool {
	return strings.Contains(FoldASCII(string(p)), FoldASCII(substr))
}

// Start returns the embedded "start" field when it is a string.
func (p Properties) Start() (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(p.String()), &obj); err != nil {
		return "", false
	}
	raw, ok := obj["start"]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// StartHour extracts the hour of day from the embedded "start" timestamp.
//
// The field is expected in an ISO-8601 layout ("2025-10-06T14:30:00+03:00")
// where characters 11..13 hold the local hour. The hour is taken as written,
// without timezone conversion.
func (p Properties) StartHour() (int, bool) {
	s, ok := p.Start()
	if !ok {
		return 0, false
	}
	r := []rune(s)
	if len(r) < 13 {
		return 0, false
	}
	hh, err := strconv.Atoi(strings.TrimSpace(string(r[11:13])))
	if err != nil || hh < 0 || hh > 23 {
		return 0, false
	}
	return hh, true
}

// FoldASCII lowercases ASCII letters only, matching SQLite's LIKE.
func FoldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
