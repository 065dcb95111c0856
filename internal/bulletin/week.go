package bulletin

import (
	"fmt"
	"time"
)

var turkishMonths = [...]string{
	time.January:   "Ocak",
	time.February:  "Şubat",
	time.March:     "Mart",
	time.April:     "Nisan",
	time.May:       "Mayıs",
	time.June:      "Haziran",
	time.July:      "Temmuz",
	time.August:    "Ağustos",
	time.September: "Eylül",
	time.October:   "Ekim",
	time.November:  "Kasım",
	time.December:  "Aralık",
}

// Week returns midnight of the Monday of the week containing t, in t's
// location.
func Week(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// Slug is the record key of a week.
func Slug(week time.Time) string {
	return "verinin-dunyasi-" + week.Format(time.DateOnly)
}

// Title is the display title of a week, e.g. "Verinin Dünyası 6 Ekim".
func Title(week time.Time) string {
	return fmt.Sprintf("Verinin Dünyası %d %s", week.Day(), turkishMonths[week.Month()])
}
